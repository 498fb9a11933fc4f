package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sakif/videohub/internal/auth"
	"github.com/sakif/videohub/internal/metrics"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/policy"
	"github.com/sakif/videohub/internal/publisher"
	"github.com/sakif/videohub/internal/repository/sqlite"
)

// =========================================================================
// FAKES
// =========================================================================

// fakePublisher returns queued results in order and records every call.
// onUpload, when set, runs first and its error replaces the queue.
type fakePublisher struct {
	mu       sync.Mutex
	calls    []publisher.Request
	results  []error
	onUpload func(ctx context.Context) error
}

func (f *fakePublisher) Upload(ctx context.Context, req publisher.Request) (*publisher.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)
	if f.onUpload != nil {
		if err := f.onUpload(ctx); err != nil {
			return nil, err
		}
	} else if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return nil, err
		}
	}
	return &publisher.Result{ExternalVideoID: "yt-1", PublicURL: publisher.WatchURL("yt-1")}, nil
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeRefresher hands out a fixed new access token.
type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, creds model.ChannelCredentials) (model.ChannelCredentials, error) {
	f.calls++
	if f.err != nil {
		return creds, f.err
	}
	return model.ChannelCredentials{AccessToken: "fresh-token", RefreshToken: creds.RefreshToken}, nil
}

// fakeMedia keeps uploaded objects in memory.
type fakeMedia struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeMedia) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return "mem://" + key, nil
}

func (f *fakeMedia) Delete(_ context.Context, key string) error {
	if _, ok := f.objects[key]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, key)
	return nil
}

// =========================================================================
// HARNESS
// =========================================================================

// harness wires every service over one in-memory database.
type harness struct {
	db        *sqlite.DB
	identity  *IdentityService
	accounts  *AccountService
	videos    *VideoService
	reviews   *ReviewService
	publisher *fakePublisher
	refresher *fakeRefresher
	media     *fakeMedia
	metrics   *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	evaluator := policy.NewEvaluator(db.Accounts(), db.Roles())

	h := &harness{
		db:        db,
		publisher: &fakePublisher{},
		refresher: &fakeRefresher{},
		media:     &fakeMedia{objects: map[string][]byte{}},
		metrics:   m,
	}
	h.identity = NewIdentityService(db.Users(), db.Roles(), tokens, auth.NewPasswordServiceWithCost(4), logger)
	h.accounts = NewAccountService(db.Accounts(), db.Roles(), db.Users(), evaluator, logger)
	h.videos = NewVideoService(db.Videos(), db.Accounts(), evaluator, h.media, m, logger)
	h.reviews = NewReviewService(db.Videos(), db.Accounts(), evaluator, h.publisher, h.refresher, m, logger)
	h.reviews.retryDelay = time.Millisecond
	return h
}

// signInGoogle resolves a Google principal and returns its identity.
func (h *harness) signInGoogle(t *testing.T, subject, email string) model.Identity {
	t.Helper()
	res, err := h.identity.ResolveOAuth(context.Background(), &auth.Principal{Subject: subject, Email: email, EmailVerified: true, Name: email})
	if err != nil {
		t.Fatalf("ResolveOAuth(%s): %v", email, err)
	}
	return res.Identity
}

// provisionEditor creates a password user with role user.
func (h *harness) provisionEditor(t *testing.T, email string) model.Identity {
	t.Helper()
	user, err := h.identity.Provision(context.Background(), CreateEditorInput{Email: email, Name: "Editor", Password: "password123"}, model.RoleUser)
	if err != nil {
		t.Fatalf("Provision(%s): %v", email, err)
	}
	return model.IdentityOf(user)
}

func (h *harness) createAccount(t *testing.T, owner model.Identity, name string) *model.AccessibleAccount {
	t.Helper()
	account, err := h.accounts.Create(context.Background(), owner, CreateAccountInput{Name: name})
	if err != nil {
		t.Fatalf("Create account %q: %v", name, err)
	}
	return account
}

func (h *harness) addEditor(t *testing.T, owner model.Identity, accountID, email string) {
	t.Helper()
	if _, err := h.accounts.AddEditor(context.Background(), owner, accountID, AddEditorInput{Email: email}); err != nil {
		t.Fatalf("AddEditor(%s): %v", email, err)
	}
}

func (h *harness) connectChannel(t *testing.T, owner model.Identity, accountID string) {
	t.Helper()
	creds := model.ChannelCredentials{AccessToken: "access-token", RefreshToken: "refresh-token"}
	if _, err := h.accounts.ConnectChannel(context.Background(), owner, accountID, "UC123", creds); err != nil {
		t.Fatalf("ConnectChannel: %v", err)
	}
}

// mp4 is enough of an MP4 file for content sniffing.
var mp4 = []byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom")

func (h *harness) upload(t *testing.T, uploader model.Identity, accountID, title string) *model.Video {
	t.Helper()
	video, err := h.videos.Upload(context.Background(), uploader, accountID, UploadInput{
		Title:    title,
		Filename: title + ".mp4",
		Size:     int64(len(mp4)),
		File:     bytes.NewReader(mp4),
	})
	if err != nil {
		t.Fatalf("Upload(%s): %v", title, err)
	}
	return video
}
