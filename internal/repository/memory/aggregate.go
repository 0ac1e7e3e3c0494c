package memory

import (
	"context"
	"sync"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
)

type aggregateEntry struct {
	mu  sync.Mutex
	agg domain.RatingAggregate
}

type aggregateShard struct {
	mu      sync.RWMutex
	entries map[string]*aggregateEntry
}

// AggregateRepository keeps rating aggregates in memory. Each business has
// its own mutex; shard locks only guard entry lookup and creation.
type AggregateRepository struct {
	shards [shardCount]aggregateShard
}

// NewAggregateRepository creates an empty aggregate store.
func NewAggregateRepository() *AggregateRepository {
	r := &AggregateRepository{}
	for i := range r.shards {
		r.shards[i].entries = make(map[string]*aggregateEntry)
	}
	return r
}

func (r *AggregateRepository) entry(businessID string, create bool) *aggregateEntry {
	s := &r.shards[shardIndex(businessID)]

	s.mu.RLock()
	e, ok := s.entries[businessID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[businessID]; !ok {
		e = &aggregateEntry{agg: domain.NewRatingAggregate(businessID)}
		s.entries[businessID] = e
	}
	return e
}

func (r *AggregateRepository) Increment(_ context.Context, businessID string, rating int, at time.Time) (domain.RatingAggregate, error) {
	e := r.entry(businessID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.agg.Add(rating, at)
	return e.agg, nil
}

func (r *AggregateRepository) Get(_ context.Context, businessID string) (domain.RatingAggregate, error) {
	e := r.entry(businessID, false)
	if e == nil {
		return domain.NewRatingAggregate(businessID), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agg, nil
}

func (r *AggregateRepository) All(_ context.Context) (map[string]domain.RatingAggregate, error) {
	out := make(map[string]domain.RatingAggregate)
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		entries := make([]*aggregateEntry, 0, len(s.entries))
		for _, e := range s.entries {
			entries = append(entries, e)
		}
		s.mu.RUnlock()

		for _, e := range entries {
			e.mu.Lock()
			out[e.agg.BusinessID] = e.agg
			e.mu.Unlock()
		}
	}
	return out, nil
}

func (r *AggregateRepository) Replace(_ context.Context, agg domain.RatingAggregate) error {
	e := r.entry(agg.BusinessID, true)
	e.mu.Lock()
	e.agg = agg
	e.mu.Unlock()
	return nil
}
