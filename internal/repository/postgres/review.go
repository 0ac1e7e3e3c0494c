package postgres

import (
	"context"
	"fmt"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/pkg/database"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const insertReviewSQL = `
		INSERT INTO reviews (id, business_id, session_id, rating, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "InsertReview", insertReviewSQL)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, insertReviewSQL,
		review.ID,
		review.BusinessID,
		review.SessionID,
		review.Rating,
		review.Title,
		review.Content,
		review.CreatedAt,
	)
	switch pgErrorCode(err) {
	case "":
	case pgForeignKeyViolation:
		return apperrors.NotFound("business", review.BusinessID)
	case pgUniqueViolation:
		return apperrors.AlreadyExists("review", "id", review.ID)
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

const listRatingsSQL = `SELECT rating FROM reviews WHERE business_id = $1 ORDER BY created_at, id`

// ListRatings returns every persisted rating for a business.
func (r *ReviewRepository) ListRatings(ctx context.Context, businessID string) (ratings []int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListRatings", listRatingsSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listRatingsSQL, businessID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings = []int{}
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}
	return ratings, nil
}
