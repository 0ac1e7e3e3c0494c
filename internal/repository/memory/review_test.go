package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

func TestReviewRepository_CreateAndList(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()

	for i, rating := range []int{5, 3, 4} {
		require.NoError(t, repo.Create(ctx, &domain.Review{
			ID:         string(rune('a' + i)),
			BusinessID: "b1",
			Rating:     rating,
			Title:      "t",
			Content:    "content long enough",
			CreatedAt:  time.Now(),
		}))
	}

	ratings, err := repo.ListRatings(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3, 4}, ratings)

	reviews, err := repo.ListByBusiness(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, reviews, 3)

	ratings, err = repo.ListRatings(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, ratings)

	err = repo.Create(ctx, &domain.Review{ID: "a", BusinessID: "b1", Rating: 1})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestBusinessRepository(t *testing.T) {
	repo := NewBusinessRepository(
		domain.Business{ID: "zeta", Name: "Zeta"},
		domain.Business{ID: "alpha", Name: "Alpha"},
	)
	ctx := context.Background()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)

	require.NoError(t, repo.Upsert(ctx, &domain.Business{ID: "alpha", Name: "Alpha Cafe"}))
	b, err := repo.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Cafe", b.Name)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
