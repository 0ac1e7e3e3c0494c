package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/ranking"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	"github.com/PoojiKatru/local-business-finder/pkg/pagination"
	"github.com/PoojiKatru/local-business-finder/pkg/tracing"
)

// Listing is one page of businesses together with the category counts taken
// from the same snapshot.
type Listing struct {
	pagination.Result[domain.BusinessSummary]
	Categories []domain.CategoryCount `json:"categories"`
}

// DiscoveryService serves business listings and details.
type DiscoveryService struct {
	businesses repository.BusinessRepository
	ratings    *RatingService
	now        func() time.Time
	logger     *slog.Logger
}

// NewDiscoveryService creates a new discovery service.
func NewDiscoveryService(businesses repository.BusinessRepository, ratings *RatingService, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{
		businesses: businesses,
		ratings:    ratings,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Snapshot reads the catalog and every aggregate and joins them.
func (s *DiscoveryService) Snapshot(ctx context.Context) (snap *ranking.Snapshot, err error) {
	ctx, span := tracing.Start(ctx, "service", "DiscoveryService.Snapshot")
	defer func() { tracing.End(span, err) }()

	var (
		businesses []domain.Business
		aggregates map[string]domain.RatingAggregate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		businesses, err = s.businesses.List(gctx)
		if err != nil {
			return fmt.Errorf("list businesses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		aggregates, err = s.ratings.Snapshot(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("catalog.size", len(businesses)))
	return ranking.NewSnapshot(businesses, aggregates, s.now()), nil
}

// ListBusinesses filters, sorts and paginates the catalog.
func (s *DiscoveryService) ListBusinesses(ctx context.Context, q domain.ListingQuery) (*Listing, error) {
	start := time.Now()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		Result:     snap.List(q),
		Categories: snap.CategoryCounts(),
	}
	rankingDuration.Observe(time.Since(start).Seconds())

	s.logger.DebugContext(ctx, "businesses listed",
		slog.String("category", string(q.Category)),
		slog.String("sort", string(q.Sort)),
		slog.Int("total", listing.Total),
		slog.Int("returned", len(listing.Items)),
	)
	return listing, nil
}

// CategoryCounts returns the number of businesses per category.
func (s *DiscoveryService) CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.CategoryCounts(), nil
}

// GetBusiness returns one business with its rating aggregate.
func (s *DiscoveryService) GetBusiness(ctx context.Context, id string) (*domain.BusinessDetail, error) {
	b, err := s.businesses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	agg, err := s.ratings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.BusinessDetail{Business: *b, Rating: agg}, nil
}
