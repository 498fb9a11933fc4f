// Package metrics exposes Prometheus counters for the review workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Publish outcomes.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
	OutcomeDeferred  = "deferred" // approved without channel credentials
	OutcomeRefreshed = "token_refreshed"
)

// Metrics holds the application's collectors on a private registry so
// tests can create as many instances as they like.
type Metrics struct {
	registry  *prometheus.Registry
	reviews   *prometheus.CounterVec
	publishes *prometheus.CounterVec
	uploads   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "videohub",
			Name:      "review_decisions_total",
			Help:      "Review decisions applied, by decision.",
		}, []string{"decision"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "videohub",
			Name:      "publish_attempts_total",
			Help:      "Publication attempts, by outcome.",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "videohub",
			Name:      "video_uploads_total",
			Help:      "Videos accepted into the review queue.",
		}),
	}

	m.registry.MustRegister(
		m.reviews,
		m.publishes,
		m.uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ReviewDecision(decision string) {
	m.reviews.WithLabelValues(decision).Inc()
}

func (m *Metrics) PublishOutcome(outcome string) {
	m.publishes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) VideoUploaded() {
	m.uploads.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
