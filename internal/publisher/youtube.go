package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// MediaOpener reads stored video bytes by reference.
type MediaOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// YouTube uploads through the YouTube Data API v3 using the account's
// stored channel token.
type YouTube struct {
	media      MediaOpener
	privacy    string
	categoryID string
	timeout    time.Duration
	opts       []option.ClientOption
	logger     *slog.Logger
	now        func() time.Time
}

// YouTubeOption customizes the adapter.
type YouTubeOption func(*YouTube)

// WithPrivacy sets the privacy status of uploaded videos
// ("private", "unlisted" or "public").
func WithPrivacy(status string) YouTubeOption {
	return func(y *YouTube) { y.privacy = status }
}

// WithTimeout bounds a single upload.
func WithTimeout(d time.Duration) YouTubeOption {
	return func(y *YouTube) { y.timeout = d }
}

// WithClientOptions passes extra options to the API client, e.g. a test
// endpoint.
func WithClientOptions(opts ...option.ClientOption) YouTubeOption {
	return func(y *YouTube) { y.opts = append(y.opts, opts...) }
}

func NewYouTube(media MediaOpener, logger *slog.Logger, opts ...YouTubeOption) *YouTube {
	y := &YouTube{
		media:      media,
		privacy:    "private",
		categoryID: "22", // People & Blogs
		timeout:    10 * time.Minute,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Upload streams the stored media to the channel.
//
// An access token that is already past its expiry is reported as
// ErrTokenExpired without calling the API; so is a 401 from the API.
func (y *YouTube) Upload(ctx context.Context, req Request) (*Result, error) {
	creds := req.Credentials
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: account has no access token", ErrUploadFailed)
	}
	if !creds.Expiry.IsZero() && !y.now().Before(creds.Expiry) {
		return nil, ErrTokenExpired
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	body, err := y.media.Open(ctx, req.MediaRef)
	if err != nil {
		return nil, fmt.Errorf("%w: opening media %s: %v", ErrUploadFailed, req.MediaRef, err)
	}
	defer body.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, y.opts...)

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating youtube client: %v", ErrUploadFailed, err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			CategoryId:  y.categoryID,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: y.privacy},
	}

	start := time.Now()
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(body).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	y.logger.Info("video uploaded to youtube",
		slog.String("media_ref", req.MediaRef),
		slog.String("youtube_id", uploaded.Id),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		ExternalVideoID: uploaded.Id,
		PublicURL:       WatchURL(uploaded.Id),
	}, nil
}

// WatchURL is the public page of a YouTube video.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// classify maps API errors onto the adapter's two failure kinds.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrTokenExpired, apiErr.Message)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrTokenExpired, retrieveErr)
	}

	return fmt.Errorf("%w: %v", ErrUploadFailed, err)
}
