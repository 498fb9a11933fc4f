// Package review holds the video lifecycle transition table.
//
//	pending ──approve──▶ approved ──upload ok──▶ published
//	   │                   │  ▲
//	 reject           upload failed
//	   ▼                   ▼  │ re-approve
//	rejected           publish_failed
//
// rejected and published are terminal.
package review

import (
	"fmt"

	"github.com/sakif/videohub/internal/model"
)

// Decision is a reviewer's verdict.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == Approve || d == Reject
}

var transitions = map[model.VideoStatus][]model.VideoStatus{
	model.StatusPending:       {model.StatusApproved, model.StatusRejected},
	model.StatusApproved:      {model.StatusPublished, model.StatusPublishFailed},
	model.StatusPublishFailed: {model.StatusApproved},
	model.StatusRejected:      nil,
	model.StatusPublished:     nil,
}

// CanTransition reports whether a video may move from one status to another.
func CanTransition(from, to model.VideoStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the status a reviewer decision moves a video into.
func Next(from model.VideoStatus, d Decision) (model.VideoStatus, error) {
	var to model.VideoStatus
	switch d {
	case Approve:
		to = model.StatusApproved
	case Reject:
		to = model.StatusRejected
	default:
		return "", fmt.Errorf("unknown decision %q", d)
	}

	if IsTerminal(from) {
		return "", fmt.Errorf("video is %s and can no longer be reviewed", from)
	}
	if !CanTransition(from, to) {
		return "", fmt.Errorf("cannot %s a video that is %s", d, from)
	}
	return to, nil
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status model.VideoStatus) bool {
	return len(transitions[status]) == 0
}
