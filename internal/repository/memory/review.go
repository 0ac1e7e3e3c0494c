package memory

import (
	"context"
	"sync"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

type reviewShard struct {
	mu         sync.RWMutex
	byBusiness map[string][]domain.Review
	ids        map[string]struct{}
}

// ReviewRepository is an append-only in-memory review store.
type ReviewRepository struct {
	shards [shardCount]reviewShard
}

// NewReviewRepository creates an empty review store.
func NewReviewRepository() *ReviewRepository {
	r := &ReviewRepository{}
	for i := range r.shards {
		r.shards[i].byBusiness = make(map[string][]domain.Review)
		r.shards[i].ids = make(map[string]struct{})
	}
	return r
}

func (r *ReviewRepository) Create(_ context.Context, review *domain.Review) error {
	s := &r.shards[shardIndex(review.BusinessID)]
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[review.ID]; dup {
		return apperrors.AlreadyExists("review", "id", review.ID)
	}
	s.ids[review.ID] = struct{}{}
	s.byBusiness[review.BusinessID] = append(s.byBusiness[review.BusinessID], *review)
	return nil
}

func (r *ReviewRepository) ListRatings(_ context.Context, businessID string) ([]int, error) {
	s := &r.shards[shardIndex(businessID)]
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviews := s.byBusiness[businessID]
	ratings := make([]int, len(reviews))
	for i, rv := range reviews {
		ratings[i] = rv.Rating
	}
	return ratings, nil
}

// ListByBusiness returns the reviews of a business in admission order.
func (r *ReviewRepository) ListByBusiness(_ context.Context, businessID string) ([]domain.Review, error) {
	s := &r.shards[shardIndex(businessID)]
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Review(nil), s.byBusiness[businessID]...), nil
}
