// Package publisher uploads approved videos to the account's channel.
package publisher

import (
	"context"
	"errors"

	"github.com/sakif/videohub/internal/model"
)

var (
	// ErrTokenExpired means the channel's access token was rejected. The
	// caller may refresh it and try again.
	ErrTokenExpired = errors.New("channel token expired")

	// ErrUploadFailed covers every other upload failure. It is not retried.
	ErrUploadFailed = errors.New("upload failed")
)

// Request describes one upload.
type Request struct {
	Title       string
	Description string
	MediaRef    string // object key in the media store
	MediaURL    string
	Credentials model.ChannelCredentials
}

// Result identifies the published video on the channel.
type Result struct {
	ExternalVideoID string
	PublicURL       string
}

// Adapter publishes videos. Implementations return errors that wrap
// ErrTokenExpired or ErrUploadFailed.
type Adapter interface {
	Upload(ctx context.Context, req Request) (*Result, error)
}
