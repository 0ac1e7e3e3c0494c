package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
)

func TestAggregateRepository_GetUnknownIsZero(t *testing.T) {
	repo := NewAggregateRepository()

	agg, err := repo.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", agg.BusinessID)
	assert.Zero(t, agg.Count)
	_, ok := agg.Mean()
	assert.False(t, ok)
}

func TestAggregateRepository_ConcurrentIncrement(t *testing.T) {
	repo := NewAggregateRepository()
	ctx := context.Background()

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.Increment(ctx, "b1", 5, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	agg, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(n), agg.Count)
	assert.Equal(t, int64(5*n), agg.Sum)
	assert.Equal(t, int64(n), agg.Histogram[4])
	assert.True(t, agg.Consistent())
}

func TestAggregateRepository_ManyBusinesses(t *testing.T) {
	repo := NewAggregateRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for b := 0; b < 20; b++ {
		for r := 1; r <= 5; r++ {
			wg.Add(1)
			go func(id string, rating int) {
				defer wg.Done()
				_, _ = repo.Increment(ctx, id, rating, time.Now())
			}(fmt.Sprintf("b%02d", b), r)
		}
	}
	wg.Wait()

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 20)
	for id, agg := range all {
		assert.Equal(t, int64(5), agg.Count, id)
		assert.Equal(t, int64(15), agg.Sum, id)
		assert.True(t, agg.Consistent(), id)
	}
}

func TestAggregateRepository_Replace(t *testing.T) {
	repo := NewAggregateRepository()
	ctx := context.Background()

	_, err := repo.Increment(ctx, "b1", 1, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.Replace(ctx, domain.FoldRatings("b1", []int{4, 5}, time.Now())))

	agg, _ := repo.Get(ctx, "b1")
	assert.Equal(t, int64(2), agg.Count)
	assert.Equal(t, int64(9), agg.Sum)

	agg, _ = repo.Increment(ctx, "b1", 3, time.Now())
	assert.Equal(t, int64(3), agg.Count)
}
