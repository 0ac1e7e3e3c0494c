package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

// BusinessRepository is an in-memory catalog.
type BusinessRepository struct {
	mu         sync.RWMutex
	businesses map[string]domain.Business
}

// NewBusinessRepository creates a catalog holding the given businesses.
func NewBusinessRepository(businesses ...domain.Business) *BusinessRepository {
	r := &BusinessRepository{businesses: make(map[string]domain.Business, len(businesses))}
	for _, b := range businesses {
		r.businesses[b.ID] = b
	}
	return r
}

func (r *BusinessRepository) List(_ context.Context) ([]domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Business, 0, len(r.businesses))
	for _, b := range r.businesses {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *BusinessRepository) Get(_ context.Context, id string) (*domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.businesses[id]
	if !ok {
		return nil, apperrors.NotFound("business", id)
	}
	return &b, nil
}

func (r *BusinessRepository) Upsert(_ context.Context, b *domain.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.businesses[b.ID] = *b
	return nil
}
