package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/metrics"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/policy"
	"github.com/sakif/videohub/internal/publisher"
	"github.com/sakif/videohub/internal/repository"
	"github.com/sakif/videohub/internal/review"
)

// TokenRefresher exchanges a channel's refresh token for a new access
// token.
type TokenRefresher interface {
	Refresh(ctx context.Context, creds model.ChannelCredentials) (model.ChannelCredentials, error)
}

// ReviewService applies reviewer decisions and publishes approved videos.
type ReviewService struct {
	videos     repository.VideoRepository
	accounts   repository.AccountRepository
	policy     *policy.Evaluator
	publisher  publisher.Adapter
	refresher  TokenRefresher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	retryDelay time.Duration
}

func NewReviewService(
	videos repository.VideoRepository,
	accounts repository.AccountRepository,
	evaluator *policy.Evaluator,
	pub publisher.Adapter,
	refresher TokenRefresher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		videos:     videos,
		accounts:   accounts,
		policy:     evaluator,
		publisher:  pub,
		refresher:  refresher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		retryDelay: 500 * time.Millisecond,
	}
}

type ReviewInput struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Notes    string `json:"notes" validate:"max=2000"`
}

// Review records a decision on a video.
//
// Rejecting is final. Approving records the reviewer and then tries to
// publish: without channel credentials the video stays approved with
// PublishPending set; a failed upload moves it to publish_failed. Neither
// outcome is an error for the caller, who gets the updated video back.
// The approval is saved with PublishPending set, so a publish step that
// never records its outcome can be resumed with PublishPending.
// Concurrent reviews are not detected; the last write wins.
func (s *ReviewService) Review(ctx context.Context, id model.Identity, videoID string, in ReviewInput) (*model.Video, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	video, err := s.requireReviewer(ctx, id, videoID)
	if err != nil {
		return nil, err
	}

	decision := review.Decision(in.Decision)
	next, err := review.Next(video.Status, decision)
	if err != nil {
		return nil, apperror.Conflict(err.Error())
	}

	now := s.now().UTC()
	video.Status = next
	video.ReviewedBy = id.UserID
	video.ReviewNotes = in.Notes
	video.ReviewedAt = &now
	video.PublishPending = decision == review.Approve
	if decision == review.Approve {
		video.FailureReason = ""
	}

	if err := s.videos.Update(ctx, video); err != nil {
		return nil, fmt.Errorf("service/review: saving decision on %s: %w", video.ID, err)
	}

	s.metrics.ReviewDecision(string(decision))
	s.logger.Info("video reviewed",
		slog.String("video_id", video.ID),
		slog.String("decision", string(decision)),
		slog.String("reviewer", id.UserID),
	)

	if decision == review.Reject {
		return video, nil
	}
	if err := s.publish(ctx, id, video); err != nil {
		return nil, err
	}
	return video, nil
}

// PublishPending retries publication of an approved video that is still
// marked pending: parked because its account had no channel yet, or
// approved by a publish step that stopped before recording an outcome.
func (s *ReviewService) PublishPending(ctx context.Context, id model.Identity, videoID string) (*model.Video, error) {
	video, err := s.requireReviewer(ctx, id, videoID)
	if err != nil {
		return nil, err
	}

	if video.Status != model.StatusApproved || !video.PublishPending {
		return nil, apperror.Conflict(fmt.Sprintf("video is %s and not waiting for publication", video.Status))
	}

	account, err := s.accounts.GetByID(ctx, video.AccountID)
	if err != nil {
		return nil, fmt.Errorf("service/review: loading account %s: %w", video.AccountID, err)
	}
	if !account.HasCredentials() {
		return nil, apperror.Conflict("account has no connected channel")
	}

	if err := s.publish(ctx, id, video); err != nil {
		return nil, err
	}
	return video, nil
}

func (s *ReviewService) requireReviewer(ctx context.Context, id model.Identity, videoID string) (*model.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}

	ok, err := s.policy.CanReview(ctx, id, video)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.AccessDenied("only account owners may review videos")
	}
	return video, nil
}

// publish runs the approved → published | publish_failed step. It only
// returns an error when the video could not be loaded or saved, in which
// case it is left approved with PublishPending set.
//
// Outcomes are written with a context that ignores cancellation: once the
// upload has run, a client disconnect must not lose its result.
func (s *ReviewService) publish(ctx context.Context, id model.Identity, video *model.Video) error {
	saveCtx := context.WithoutCancel(ctx)

	account, err := s.accounts.GetByID(ctx, video.AccountID)
	if err != nil {
		return fmt.Errorf("service/review: loading account %s: %w", video.AccountID, err)
	}

	if !account.HasCredentials() {
		video.PublishPending = true
		if err := s.videos.Update(saveCtx, video); err != nil {
			return fmt.Errorf("service/review: parking %s: %w", video.ID, err)
		}
		s.metrics.PublishOutcome(metrics.OutcomeDeferred)
		s.logger.Info("approved video waiting for a channel",
			slog.String("video_id", video.ID),
			slog.String("account_id", account.ID),
		)
		return nil
	}

	result, err := s.upload(ctx, account, video)
	if err != nil {
		pubErr := apperror.PublicationFailed(err)
		video.Status = model.StatusPublishFailed
		video.FailureReason = pubErr.Message
		video.PublishPending = false
		if err := s.videos.Update(saveCtx, video); err != nil {
			return fmt.Errorf("service/review: recording failure on %s: %w", video.ID, err)
		}
		s.metrics.PublishOutcome(metrics.OutcomeFailed)
		s.logger.Warn("publication failed",
			slog.String("video_id", video.ID),
			slog.String("account_id", account.ID),
			slog.String("error", pubErr.Error()),
		)
		return nil
	}

	now := s.now().UTC()
	video.Status = model.StatusPublished
	video.ExternalVideoID = result.ExternalVideoID
	video.PublicURL = result.PublicURL
	video.PublishedAt = &now
	video.PublishedBy = id.UserID
	video.PublishPending = false
	video.FailureReason = ""
	if err := s.videos.Update(saveCtx, video); err != nil {
		return fmt.Errorf("service/review: recording publication of %s: %w", video.ID, err)
	}

	s.metrics.PublishOutcome(metrics.OutcomePublished)
	s.logger.Info("video published",
		slog.String("video_id", video.ID),
		slog.String("external_id", result.ExternalVideoID),
	)
	return nil
}

// upload calls the adapter. ErrTokenExpired triggers one refresh of the
// channel token, which is saved on the account, followed by exactly one
// more attempt. Any other error is returned immediately.
func (s *ReviewService) upload(ctx context.Context, account *model.Account, video *model.Video) (*publisher.Result, error) {
	creds := *account.Credentials
	refreshed := false

	var result *publisher.Result
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.retryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.publisher.Upload(ctx, publisher.Request{
			Title:       video.Title,
			Description: video.Description,
			MediaRef:    video.StorageRef,
			MediaURL:    video.StorageURL,
			Credentials: creds,
		})
		if err == nil {
			result = res
			return nil
		}
		if !errors.Is(err, publisher.ErrTokenExpired) || refreshed {
			return err
		}

		refreshed = true
		fresh, rerr := s.refresher.Refresh(ctx, creds)
		if rerr != nil {
			return fmt.Errorf("%w: %v", err, rerr)
		}
		creds = fresh

		account.Credentials = &fresh
		if uerr := s.accounts.UpdateCredentials(context.WithoutCancel(ctx), account); uerr != nil {
			s.logger.Warn("could not save refreshed channel token",
				slog.String("account_id", account.ID),
				slog.String("error", uerr.Error()),
			)
		}
		s.metrics.PublishOutcome(metrics.OutcomeRefreshed)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
