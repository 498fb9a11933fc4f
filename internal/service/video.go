package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/media"
	"github.com/sakif/videohub/internal/metrics"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/policy"
	"github.com/sakif/videohub/internal/repository"
)

// MediaStore is the part of media.Storage the video service writes to.
type MediaStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// VideoService accepts uploads and serves video metadata.
type VideoService struct {
	videos   repository.VideoRepository
	accounts repository.AccountRepository
	policy   *policy.Evaluator
	media    MediaStore
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewVideoService(
	videos repository.VideoRepository,
	accounts repository.AccountRepository,
	evaluator *policy.Evaluator,
	store MediaStore,
	m *metrics.Metrics,
	logger *slog.Logger,
) *VideoService {
	return &VideoService{
		videos:   videos,
		accounts: accounts,
		policy:   evaluator,
		media:    store,
		metrics:  m,
		logger:   logger,
	}
}

// UploadInput is one multipart upload. Size is -1 when unknown.
type UploadInput struct {
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=5000"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	File        io.Reader `json:"-" validate:"-"`
}

// Upload stores the file and creates a pending video. Owners and editors
// of the account may upload.
func (s *VideoService) Upload(ctx context.Context, id model.Identity, accountID string, in UploadInput) (*model.Video, error) {
	if _, err := s.policy.RequireAccount(ctx, id, accountID); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.File == nil {
		return nil, apperror.ValidationFailed("file", "file is required")
	}

	mime, body, err := media.Sniff(in.File)
	if err != nil {
		return nil, fmt.Errorf("service/video: reading upload: %w", err)
	}
	if !media.IsVideo(mime) {
		return nil, apperror.ValidationFailed("file", fmt.Sprintf("file must be a video, got %s", mime))
	}

	key := fmt.Sprintf("videos/%s/%s%s", accountID, xid.New().String(), strings.ToLower(path.Ext(in.Filename)))
	url, err := s.media.Put(ctx, key, body, in.Size, mime)
	if err != nil {
		return nil, fmt.Errorf("service/video: storing %s: %w", key, err)
	}

	video := &model.Video{
		Title:       in.Title,
		Description: in.Description,
		AccountID:   accountID,
		StorageURL:  url,
		StorageRef:  key,
		Format:      mime,
		Size:        in.Size,
		UploadedBy:  id.UserID,
		Status:      model.StatusPending,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		if derr := s.media.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned media object",
				slog.String("key", key),
				slog.String("error", derr.Error()),
			)
		}
		return nil, fmt.Errorf("service/video: saving video: %w", err)
	}

	s.metrics.VideoUploaded()
	s.logger.Info("video uploaded",
		slog.String("video_id", video.ID),
		slog.String("account_id", accountID),
		slog.String("uploaded_by", id.UserID),
		slog.String("format", mime),
	)
	return video, nil
}

// ListByAccount returns an account's videos, newest first.
func (s *VideoService) ListByAccount(ctx context.Context, id model.Identity, accountID string, opts repository.ListOptions) ([]model.Video, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.requireViewer(ctx, id, account); err != nil {
		return nil, err
	}
	return s.videos.ListByAccount(ctx, accountID, opts)
}

func (s *VideoService) Get(ctx context.Context, id model.Identity, videoID string) (*model.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, video.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.requireViewer(ctx, id, account); err != nil {
		return nil, err
	}
	return video, nil
}

func (s *VideoService) requireViewer(ctx context.Context, id model.Identity, account *model.Account) error {
	ok, err := s.policy.CanViewVideos(ctx, id, account)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.AccessDenied("no access to this account's videos")
	}
	return nil
}
