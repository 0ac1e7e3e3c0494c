package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/pkg/database"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

// BusinessRepository reads and seeds the business catalog in PostgreSQL.
type BusinessRepository struct {
	pool database.DBTX
}

// NewBusinessRepository creates a new PostgreSQL-backed business repository.
func NewBusinessRepository(pool database.DBTX) *BusinessRepository {
	return &BusinessRepository{pool: pool}
}

const businessColumns = `id, name, description, category, address, phone, website, created_at`

const listBusinessesSQL = `SELECT ` + businessColumns + ` FROM businesses ORDER BY id`

// List returns every business.
func (r *BusinessRepository) List(ctx context.Context) (businesses []domain.Business, err error) {
	ctx, end := database.TraceQuery(ctx, "ListBusinesses", listBusinessesSQL)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, listBusinessesSQL)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	businesses = []domain.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	return businesses, nil
}

const getBusinessSQL = `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`

// Get returns one business by id.
func (r *BusinessRepository) Get(ctx context.Context, id string) (_ *domain.Business, err error) {
	ctx, end := database.TraceQuery(ctx, "GetBusiness", getBusinessSQL)
	defer func() { end(err) }()

	b, err := scanBusiness(r.pool.QueryRow(ctx, getBusinessSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("business", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return &b, nil
}

const upsertBusinessSQL = `
		INSERT INTO businesses (` + businessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name        = EXCLUDED.name,
			description = EXCLUDED.description,
			category    = EXCLUDED.category,
			address     = EXCLUDED.address,
			phone       = EXCLUDED.phone,
			website     = EXCLUDED.website`

// Upsert inserts or updates a business. created_at is never changed.
func (r *BusinessRepository) Upsert(ctx context.Context, b *domain.Business) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpsertBusiness", upsertBusinessSQL)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, upsertBusinessSQL,
		b.ID, b.Name, b.Description, string(b.Category),
		b.Address, b.Phone, b.Website, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

func scanBusiness(row pgx.Row) (domain.Business, error) {
	var (
		b        domain.Business
		category string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Description, &category, &b.Address, &b.Phone, &b.Website, &b.CreatedAt)
	b.Category = domain.Category(category)
	return b, err
}
