package repository

import (
	"context"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
)

// ChallengeRepository stores challenges and owns the single compare-and-set
// that consumes them.
type ChallengeRepository interface {
	// Create stores a newly issued challenge.
	Create(ctx context.Context, c *domain.Challenge) error

	// Get returns the challenge or an ErrNotFound error.
	Get(ctx context.Context, id string) (*domain.Challenge, error)

	// Solve atomically checks expiry, the solved flag and the answer digest,
	// marking the challenge solved only when the digest matches.
	Solve(ctx context.Context, id string, digest []byte, now time.Time) (domain.VerificationOutcome, error)

	// LatestForSession returns the most recently issued unsolved, unexpired
	// challenge for the session, or an ErrNotFound error.
	LatestForSession(ctx context.Context, sessionID string, now time.Time) (*domain.Challenge, error)

	// DeleteExpired reclaims challenges whose retention has lapsed and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// AggregateRepository stores per-business rating aggregates. Increment must
// be linearizable per business and must not serialize unrelated businesses.
type AggregateRepository interface {
	// Increment applies one rating and returns the updated aggregate,
	// creating the aggregate on the business's first review.
	Increment(ctx context.Context, businessID string, rating int, at time.Time) (domain.RatingAggregate, error)

	// Get returns the aggregate, or the zero aggregate if none exists.
	Get(ctx context.Context, businessID string) (domain.RatingAggregate, error)

	// All returns every stored aggregate keyed by business id.
	All(ctx context.Context) (map[string]domain.RatingAggregate, error)

	// Replace overwrites the aggregate with a recomputed one.
	Replace(ctx context.Context, agg domain.RatingAggregate) error
}

// AggregateRefresher is implemented by aggregate stores that share a database
// with the review log. Refresh rebuilds the aggregate from every persisted
// review in one serialized step, so concurrent refreshes from several
// processes always converge on the review log.
type AggregateRefresher interface {
	Refresh(ctx context.Context, businessID string, at time.Time) (domain.RatingAggregate, error)
}

// ReviewRepository persists admitted reviews.
type ReviewRepository interface {
	// Create durably stores the review.
	Create(ctx context.Context, review *domain.Review) error

	// ListRatings returns the rating of every persisted review of a business.
	ListRatings(ctx context.Context, businessID string) ([]int, error)
}

// BusinessRepository reads the business catalog.
type BusinessRepository interface {
	// List returns a snapshot of every business.
	List(ctx context.Context) ([]domain.Business, error)

	// Get returns one business or an ErrNotFound error.
	Get(ctx context.Context, id string) (*domain.Business, error)
}

// BusinessWriter is implemented by catalogs that can be seeded locally.
type BusinessWriter interface {
	Upsert(ctx context.Context, b *domain.Business) error
}
