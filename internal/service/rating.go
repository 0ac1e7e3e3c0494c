package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

// RatingService maintains per-business rating aggregates. When the aggregate
// store can refresh itself from the review log, admissions and recomputes go
// through that refresh so several processes sharing the store stay
// consistent; otherwise they are serialized by an in-process lock only.
type RatingService struct {
	aggregates repository.AggregateRepository
	refresher  repository.AggregateRefresher
	reviews    repository.ReviewRepository
	locks      *keyLock
	now        func() time.Time
	logger     *slog.Logger
}

// NewRatingService creates a new rating service.
func NewRatingService(aggregates repository.AggregateRepository, reviews repository.ReviewRepository, logger *slog.Logger) *RatingService {
	s := &RatingService{
		aggregates: aggregates,
		reviews:    reviews,
		locks:      newKeyLock(),
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
	if r, ok := aggregates.(repository.AggregateRefresher); ok {
		s.refresher = r
	}
	return s
}

// RecordReview applies one admitted rating to the business's aggregate.
func (s *RatingService) RecordReview(ctx context.Context, businessID string, rating int) (domain.RatingAggregate, error) {
	return s.Admit(ctx, businessID, rating, nil)
}

// Admit runs persist and then applies rating, both under the business's
// lock. An error from persist is returned unchanged and leaves the aggregate
// untouched; a failed increment after persist succeeded is returned as a
// consistency error.
func (s *RatingService) Admit(ctx context.Context, businessID string, rating int, persist func(context.Context) error) (domain.RatingAggregate, error) {
	if !domain.ValidRating(rating) {
		return domain.RatingAggregate{}, apperrors.InvalidRating(rating)
	}

	unlock := s.locks.Lock(businessID)
	defer unlock()

	if persist != nil {
		if err := persist(ctx); err != nil {
			return domain.RatingAggregate{}, err
		}
	}

	var (
		agg domain.RatingAggregate
		err error
	)
	if persist != nil && s.refresher != nil {
		agg, err = s.refresher.Refresh(ctx, businessID, s.now())
	} else {
		agg, err = s.aggregates.Increment(ctx, businessID, rating, s.now())
	}
	if err != nil {
		err = fmt.Errorf("increment aggregate: %w", err)
		if persist != nil {
			return domain.RatingAggregate{}, apperrors.Consistency(businessID, err)
		}
		return domain.RatingAggregate{}, err
	}
	return agg, nil
}

// Get returns the aggregate of a business, zero when it has no reviews.
func (s *RatingService) Get(ctx context.Context, businessID string) (domain.RatingAggregate, error) {
	agg, err := s.aggregates.Get(ctx, businessID)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("get aggregate: %w", err)
	}
	return agg, nil
}

// Snapshot returns every stored aggregate keyed by business id.
func (s *RatingService) Snapshot(ctx context.Context) (map[string]domain.RatingAggregate, error) {
	all, err := s.aggregates.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	return all, nil
}

// Recompute rebuilds the aggregate from every persisted review of the
// business and replaces the stored one. It holds the same per-business lock
// as Admit.
func (s *RatingService) Recompute(ctx context.Context, businessID string) (domain.RatingAggregate, error) {
	unlock := s.locks.Lock(businessID)
	defer unlock()

	before, err := s.aggregates.Get(ctx, businessID)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("get aggregate: %w", err)
	}

	var agg domain.RatingAggregate
	if s.refresher != nil {
		agg, err = s.refresher.Refresh(ctx, businessID, s.now())
		if err != nil {
			return domain.RatingAggregate{}, fmt.Errorf("refresh aggregate: %w", err)
		}
	} else {
		ratings, err := s.reviews.ListRatings(ctx, businessID)
		if err != nil {
			return domain.RatingAggregate{}, fmt.Errorf("list ratings: %w", err)
		}
		agg = domain.FoldRatings(businessID, ratings, s.now())
		if err := s.aggregates.Replace(ctx, agg); err != nil {
			return domain.RatingAggregate{}, fmt.Errorf("replace aggregate: %w", err)
		}
	}

	if before.Count != agg.Count || before.Sum != agg.Sum {
		s.logger.InfoContext(ctx, "aggregate corrected",
			slog.String("business_id", businessID),
			slog.Int64("count_before", before.Count),
			slog.Int64("count_after", agg.Count),
			slog.Int64("sum_before", before.Sum),
			slog.Int64("sum_after", agg.Sum),
		)
	}
	return agg, nil
}
