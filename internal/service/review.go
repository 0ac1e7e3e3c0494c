package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/logger"
	"github.com/PoojiKatru/local-business-finder/pkg/tracing"
	"github.com/PoojiKatru/local-business-finder/pkg/validator"
)

// ReviewPublisher announces admitted reviews to other systems.
type ReviewPublisher interface {
	PublishReviewAdmitted(ctx context.Context, review *domain.Review, agg domain.RatingAggregate, pending bool) error
}

// SubmitReviewInput holds the parameters for submitting a review.
type SubmitReviewInput struct {
	ChallengeID string
	Answer      string
	SessionID   string
	BusinessID  string
	Rating      int
	Title       string
	Content     string
}

// SubmitReviewResult is returned for every admitted review. AggregatePending
// is set when the review was persisted but the aggregate update failed and
// was queued for reconciliation.
type SubmitReviewResult struct {
	Review           *domain.Review
	Aggregate        domain.RatingAggregate
	AggregatePending bool
}

// ReviewService runs the review admission pipeline: verify the challenge,
// validate the content, persist the review, then update the aggregate.
type ReviewService struct {
	challenges *ChallengeService
	ratings    *RatingService
	reviews    repository.ReviewRepository
	businesses repository.BusinessRepository
	queue      ReconcileQueue
	publisher  ReviewPublisher
	bounds     domain.ReviewBounds
	now        func() time.Time
	logger     *slog.Logger
}

// NewReviewService creates a new review service. publisher may be nil.
func NewReviewService(
	challenges *ChallengeService,
	ratings *RatingService,
	reviews repository.ReviewRepository,
	businesses repository.BusinessRepository,
	queue ReconcileQueue,
	publisher ReviewPublisher,
	bounds domain.ReviewBounds,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		challenges: challenges,
		ratings:    ratings,
		reviews:    reviews,
		businesses: businesses,
		queue:      queue,
		publisher:  publisher,
		bounds:     bounds,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// SubmitReview admits one review. Each step short-circuits the rest; once the
// review is persisted the submission succeeds even if the aggregate could not
// be updated.
func (s *ReviewService) SubmitReview(ctx context.Context, in SubmitReviewInput) (res *SubmitReviewResult, err error) {
	ctx, span := tracing.Start(ctx, "service", "ReviewService.SubmitReview",
		attribute.String("business.id", in.BusinessID))
	defer func() { tracing.End(span, err) }()

	if _, err := s.challenges.Verify(ctx, VerifyInput{
		ChallengeID: in.ChallengeID,
		SessionID:   in.SessionID,
		Answer:      in.Answer,
	}); err != nil {
		return nil, err
	}

	review, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	res = &SubmitReviewResult{Review: review}
	res.Aggregate, err = s.ratings.Admit(ctx, review.BusinessID, review.Rating, func(ctx context.Context) error {
		if err := s.reviews.Create(ctx, review); err != nil {
			return fmt.Errorf("persist review: %w", err)
		}
		reviewsAdmitted.Inc()
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrConsistency):
		s.reconcileLater(ctx, review, err)
		res.AggregatePending = true
	default:
		return nil, err
	}

	s.logger.InfoContext(ctx, "review admitted",
		slog.String("review_id", review.ID),
		slog.String("business_id", review.BusinessID),
		slog.Int("rating", review.Rating),
		slog.Bool("aggregate_pending", res.AggregatePending),
	)
	s.publish(ctx, res)
	return res, nil
}

// validate checks the content and the business reference and builds the
// review to persist.
func (s *ReviewService) validate(ctx context.Context, in SubmitReviewInput) (*domain.Review, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	businessID := strings.TrimSpace(in.BusinessID)

	v := validator.Violations{}
	if businessID == "" {
		v.Add("business_id", "is required")
	}
	v.Var("title", title, fmt.Sprintf("notblank,max=%d", s.bounds.TitleMax))
	v.Var("content", content, fmt.Sprintf("notblank,min=%d,max=%d", s.bounds.ContentMin, s.bounds.ContentMax))

	if !domain.ValidRating(in.Rating) {
		if len(v) == 0 {
			return nil, apperrors.InvalidRating(in.Rating)
		}
		v.Add("rating", fmt.Sprintf("must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if len(v) > 0 {
		return nil, apperrors.Validation(v)
	}

	if _, err := s.businesses.Get(ctx, businessID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("business", businessID)
		}
		return nil, fmt.Errorf("get business: %w", err)
	}

	return &domain.Review{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		SessionID:  in.SessionID,
		Rating:     in.Rating,
		Title:      title,
		Content:    content,
		CreatedAt:  s.now(),
	}, nil
}

func (s *ReviewService) reconcileLater(ctx context.Context, review *domain.Review, cause error) {
	consistencyFailures.Inc()
	s.logger.ErrorContext(ctx, "aggregate update failed after review was persisted",
		slog.String("business_id", review.BusinessID),
		slog.String("review_id", review.ID),
		slog.String("error", cause.Error()),
	)

	req := ReconcileRequest{
		BusinessID:    review.BusinessID,
		ReviewID:      review.ID,
		Reason:        cause.Error(),
		RequestedAt:   s.now(),
		CorrelationID: logger.CorrelationIDFromContext(ctx),
	}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to queue aggregate reconciliation",
			slog.String("business_id", review.BusinessID),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ReviewService) publish(ctx context.Context, res *SubmitReviewResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReviewAdmitted(ctx, res.Review, res.Aggregate, res.AggregatePending); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review admitted event",
			slog.String("review_id", res.Review.ID),
			slog.String("error", err.Error()),
		)
	}
}
