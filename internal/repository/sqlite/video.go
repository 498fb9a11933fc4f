package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/repository"
)

var _ repository.VideoRepository = (*VideoStore)(nil)

// VideoStore persists videos and their review/publication state.
type VideoStore struct {
	conn *sql.DB
}

const videoColumns = `id, title, description, account_id, storage_url, thumbnail_url, storage_ref,
	duration, format, size, uploaded_by, status, publish_pending,
	reviewed_by, review_notes, reviewed_at,
	external_video_id, public_url, published_at, published_by, failure_reason,
	created_at, updated_at`

// Create inserts a new video and fills in its ID and timestamps.
func (s *VideoStore) Create(ctx context.Context, video *model.Video) error {
	now := time.Now().UTC()
	video.ID = xid.New().String()
	video.CreatedAt = now
	video.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO videos (`+videoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ID,
		video.Title,
		video.Description,
		video.AccountID,
		video.StorageURL,
		video.ThumbnailURL,
		video.StorageRef,
		video.Duration,
		video.Format,
		video.Size,
		video.UploadedBy,
		video.Status,
		video.PublishPending,
		video.ReviewedBy,
		video.ReviewNotes,
		video.ReviewedAt,
		video.ExternalVideoID,
		video.PublicURL,
		video.PublishedAt,
		video.PublishedBy,
		video.FailureReason,
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting video: %w", err)
	}
	return nil
}

// GetByID retrieves a single video.
func (s *VideoStore) GetByID(ctx context.Context, id string) (*model.Video, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)

	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("video", id)
		}
		return nil, fmt.Errorf("sqlite: getting video %s: %w", id, err)
	}
	return video, nil
}

// ListByAccount returns an account's videos, newest first.
func (s *VideoStore) ListByAccount(ctx context.Context, accountID string, opts repository.ListOptions) ([]model.Video, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+videoColumns+`
		 FROM videos
		 WHERE account_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		accountID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing videos for %s: %w", accountID, err)
	}
	defer rows.Close()

	videos := []model.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning video row: %w", err)
		}
		videos = append(videos, *video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating video rows: %w", err)
	}
	return videos, nil
}

// Update writes back every mutable column. There is no version check:
// concurrent reviews resolve as last write wins.
func (s *VideoStore) Update(ctx context.Context, video *model.Video) error {
	video.UpdatedAt = time.Now().UTC()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE videos
		 SET title = ?, description = ?, storage_url = ?, thumbnail_url = ?, storage_ref = ?,
		     duration = ?, format = ?, size = ?, status = ?, publish_pending = ?,
		     reviewed_by = ?, review_notes = ?, reviewed_at = ?,
		     external_video_id = ?, public_url = ?, published_at = ?, published_by = ?, failure_reason = ?,
		     updated_at = ?
		 WHERE id = ?`,
		video.Title,
		video.Description,
		video.StorageURL,
		video.ThumbnailURL,
		video.StorageRef,
		video.Duration,
		video.Format,
		video.Size,
		video.Status,
		video.PublishPending,
		video.ReviewedBy,
		video.ReviewNotes,
		video.ReviewedAt,
		video.ExternalVideoID,
		video.PublicURL,
		video.PublishedAt,
		video.PublishedBy,
		video.FailureReason,
		video.UpdatedAt,
		video.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating video %s: %w", video.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("video", video.ID)
	}
	return nil
}

func scanVideo(row scanner) (*model.Video, error) {
	var (
		v           model.Video
		reviewedAt  sql.NullTime
		publishedAt sql.NullTime
	)
	err := row.Scan(
		&v.ID,
		&v.Title,
		&v.Description,
		&v.AccountID,
		&v.StorageURL,
		&v.ThumbnailURL,
		&v.StorageRef,
		&v.Duration,
		&v.Format,
		&v.Size,
		&v.UploadedBy,
		&v.Status,
		&v.PublishPending,
		&v.ReviewedBy,
		&v.ReviewNotes,
		&reviewedAt,
		&v.ExternalVideoID,
		&v.PublicURL,
		&publishedAt,
		&v.PublishedBy,
		&v.FailureReason,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		v.ReviewedAt = &reviewedAt.Time
	}
	if publishedAt.Valid {
		v.PublishedAt = &publishedAt.Time
	}
	return &v, nil
}
