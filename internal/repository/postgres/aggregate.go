package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/pkg/database"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

// AggregateRepository stores rating aggregates in PostgreSQL. Increment is a
// single upsert, so the row lock serialises writers of one business while
// other businesses proceed independently. Refresh rebuilds a row from the
// reviews table under a per-business advisory lock shared by every instance.
type AggregateRepository struct {
	pool database.DBTX
}

// NewAggregateRepository creates a new PostgreSQL-backed aggregate repository.
func NewAggregateRepository(pool database.DBTX) *AggregateRepository {
	return &AggregateRepository{pool: pool}
}

const aggregateColumns = `business_id, review_count, rating_sum, star1, star2, star3, star4, star5, updated_at`

const incrementAggregateSQL = `
		INSERT INTO rating_aggregates (` + aggregateColumns + `)
		VALUES ($1, 1, $2::int,
		        ($2::int = 1)::int, ($2::int = 2)::int, ($2::int = 3)::int, ($2::int = 4)::int, ($2::int = 5)::int,
		        $3)
		ON CONFLICT (business_id) DO UPDATE SET
			review_count = rating_aggregates.review_count + 1,
			rating_sum   = rating_aggregates.rating_sum + EXCLUDED.rating_sum,
			star1        = rating_aggregates.star1 + EXCLUDED.star1,
			star2        = rating_aggregates.star2 + EXCLUDED.star2,
			star3        = rating_aggregates.star3 + EXCLUDED.star3,
			star4        = rating_aggregates.star4 + EXCLUDED.star4,
			star5        = rating_aggregates.star5 + EXCLUDED.star5,
			updated_at   = EXCLUDED.updated_at
		RETURNING ` + aggregateColumns

// Increment applies one rating and returns the updated row.
func (r *AggregateRepository) Increment(ctx context.Context, businessID string, rating int, at time.Time) (agg domain.RatingAggregate, err error) {
	ctx, end := database.TraceQuery(ctx, "IncrementAggregate", incrementAggregateSQL)
	defer func() { end(err) }()

	agg, err = scanAggregate(r.pool.QueryRow(ctx, incrementAggregateSQL, businessID, rating, at))
	if pgErrorCode(err) == pgForeignKeyViolation {
		return domain.RatingAggregate{}, apperrors.NotFound("business", businessID)
	}
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("increment aggregate: %w", err)
	}
	return agg, nil
}

const getAggregateSQL = `SELECT ` + aggregateColumns + ` FROM rating_aggregates WHERE business_id = $1`

// Get returns the aggregate, or the zero aggregate when the business has no
// reviews yet.
func (r *AggregateRepository) Get(ctx context.Context, businessID string) (agg domain.RatingAggregate, err error) {
	ctx, end := database.TraceQuery(ctx, "GetAggregate", getAggregateSQL)
	defer func() { end(err) }()

	agg, err = scanAggregate(r.pool.QueryRow(ctx, getAggregateSQL, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewRatingAggregate(businessID), nil
	}
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("get aggregate: %w", err)
	}
	return agg, nil
}

const listAggregatesSQL = `SELECT ` + aggregateColumns + ` FROM rating_aggregates`

// All returns every aggregate keyed by business id.
func (r *AggregateRepository) All(ctx context.Context) (out map[string]domain.RatingAggregate, err error) {
	ctx, end := database.TraceQuery(ctx, "ListAggregates", listAggregatesSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listAggregatesSQL)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()

	out = make(map[string]domain.RatingAggregate)
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		out[agg.BusinessID] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregates: %w", err)
	}
	return out, nil
}

const replaceAggregateSQL = `
		INSERT INTO rating_aggregates (` + aggregateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (business_id) DO UPDATE SET
			review_count = EXCLUDED.review_count,
			rating_sum   = EXCLUDED.rating_sum,
			star1        = EXCLUDED.star1,
			star2        = EXCLUDED.star2,
			star3        = EXCLUDED.star3,
			star4        = EXCLUDED.star4,
			star5        = EXCLUDED.star5,
			updated_at   = EXCLUDED.updated_at`

// Replace overwrites the stored aggregate with agg.
func (r *AggregateRepository) Replace(ctx context.Context, agg domain.RatingAggregate) (err error) {
	ctx, end := database.TraceQuery(ctx, "ReplaceAggregate", replaceAggregateSQL)
	defer func() { end(err) }()

	h := agg.Histogram
	_, err = r.pool.Exec(ctx, replaceAggregateSQL,
		agg.BusinessID, agg.Count, agg.Sum,
		h[0], h[1], h[2], h[3], h[4],
		agg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("replace aggregate: %w", err)
	}
	return nil
}

const lockAggregateSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

const refreshAggregateSQL = `
		INSERT INTO rating_aggregates (` + aggregateColumns + `)
		SELECT $1::text, count(*), COALESCE(sum(rating), 0),
		       count(*) FILTER (WHERE rating = 1),
		       count(*) FILTER (WHERE rating = 2),
		       count(*) FILTER (WHERE rating = 3),
		       count(*) FILTER (WHERE rating = 4),
		       count(*) FILTER (WHERE rating = 5),
		       $2
		FROM reviews
		WHERE business_id = $1
		ON CONFLICT (business_id) DO UPDATE SET
			review_count = EXCLUDED.review_count,
			rating_sum   = EXCLUDED.rating_sum,
			star1        = EXCLUDED.star1,
			star2        = EXCLUDED.star2,
			star3        = EXCLUDED.star3,
			star4        = EXCLUDED.star4,
			star5        = EXCLUDED.star5,
			updated_at   = EXCLUDED.updated_at
		RETURNING ` + aggregateColumns

// Refresh folds every persisted review of the business into its aggregate.
// The fold runs after the advisory lock is granted, so under read committed
// it sees every review committed before it, and the last refresh to commit
// reflects the whole log.
func (r *AggregateRepository) Refresh(ctx context.Context, businessID string, at time.Time) (agg domain.RatingAggregate, err error) {
	ctx, end := database.TraceQuery(ctx, "RefreshAggregate", refreshAggregateSQL)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("begin refresh: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockAggregateSQL, businessID); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("lock aggregate: %w", err)
	}

	agg, err = scanAggregate(tx.QueryRow(ctx, refreshAggregateSQL, businessID, at))
	if pgErrorCode(err) == pgForeignKeyViolation {
		return domain.RatingAggregate{}, apperrors.NotFound("business", businessID)
	}
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("refresh aggregate: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("commit refresh: %w", err)
	}
	return agg, nil
}

func scanAggregate(row pgx.Row) (domain.RatingAggregate, error) {
	var agg domain.RatingAggregate
	h := &agg.Histogram
	err := row.Scan(
		&agg.BusinessID,
		&agg.Count,
		&agg.Sum,
		&h[0], &h[1], &h[2], &h[3], &h[4],
		&agg.UpdatedAt,
	)
	return agg, err
}
