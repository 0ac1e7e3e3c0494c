package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Food", CategoryFood, true},
		{" HEALTH ", CategoryHealth, true},
		{"all", "", true},
		{"", "", true},
		{"bakery", "bakery", false},
	}
	for _, tc := range tests {
		got, ok := ParseCategory(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("")
	assert.True(t, ok)
	assert.Equal(t, SortRating, k)

	k, ok = ParseSortKey("Newest")
	assert.True(t, ok)
	assert.Equal(t, SortNewest, k)

	_, ok = ParseSortKey("popularity")
	assert.False(t, ok)
}

func TestChallenge_Expiry(t *testing.T) {
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &Challenge{CreatedAt: created, ExpiresAt: created.Add(5 * time.Minute)}

	assert.False(t, c.Expired(created.Add(5*time.Minute)), "boundary instant is still valid")
	assert.True(t, c.Expired(created.Add(5*time.Minute+time.Nanosecond)))
	assert.True(t, c.Current(created))

	c.Solved = true
	assert.False(t, c.Current(created))
}

func TestVerificationOutcome_Err(t *testing.T) {
	assert.NoError(t, OutcomeAccepted.Err("c1"))
	assert.True(t, errors.Is(OutcomeRejected.Err("c1"), apperrors.ErrChallengeRejected))
	assert.True(t, errors.Is(OutcomeExpired.Err("c1"), apperrors.ErrExpired))
	assert.True(t, errors.Is(OutcomeAlreadySolved.Err("c1"), apperrors.ErrAlreadySolved))
	assert.True(t, errors.Is(OutcomeNotFound.Err("c1"), apperrors.ErrNotFound))
}

func TestRatingAggregate_AddAndMean(t *testing.T) {
	agg := NewRatingAggregate("b1")
	_, ok := agg.Mean()
	assert.False(t, ok)

	now := time.Now()
	for _, r := range []int{5, 4, 4, 1} {
		agg.Add(r, now)
	}

	mean, ok := agg.Mean()
	require.True(t, ok)
	assert.InDelta(t, 3.5, mean, 1e-9)
	assert.Equal(t, int64(4), agg.Count)
	assert.Equal(t, int64(14), agg.Sum)
	assert.Equal(t, [5]int64{1, 0, 0, 2, 1}, agg.Histogram)
	assert.True(t, agg.Consistent())

	agg.Count++
	assert.False(t, agg.Consistent())
}

func TestRatingAggregate_RoundedMean(t *testing.T) {
	agg := FoldRatings("b1", []int{5, 4, 4}, time.Now())
	m, ok := agg.RoundedMean()
	require.True(t, ok)
	assert.Equal(t, 4.3, m)
}

func TestCompareMean(t *testing.T) {
	now := time.Now()
	// 10/6 and 5/3
	tenSixths := FoldRatings("a", []int{1, 1, 1, 1, 1, 5}, now)
	fiveThirds := FoldRatings("b", []int{1, 2, 2}, now)
	high := FoldRatings("c", []int{5}, now)
	empty := NewRatingAggregate("d")

	assert.Equal(t, 0, CompareMean(tenSixths, fiveThirds), "10/6 equals 5/3 exactly")
	assert.Equal(t, 1, CompareMean(high, tenSixths))
	assert.Equal(t, -1, CompareMean(tenSixths, high))
	assert.Equal(t, -1, CompareMean(empty, tenSixths))
	assert.Equal(t, 0, CompareMean(empty, NewRatingAggregate("e")))
}

func TestFoldRatings_SkipsInvalid(t *testing.T) {
	agg := FoldRatings("b1", []int{0, 3, 6, 5}, time.Now())
	assert.Equal(t, int64(2), agg.Count)
	assert.Equal(t, int64(8), agg.Sum)
	assert.True(t, agg.Consistent())
}

func TestRatingAggregate_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(NewRatingAggregate("b1"))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Nil(t, out["mean"])
	assert.Equal(t, float64(0), out["review_count"])
	assert.Len(t, out["histogram"], 5)

	raw, err = json.Marshal(FoldRatings("b1", []int{5}, time.Now()))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 5.0, out["mean"])
	assert.Equal(t, float64(1), out["histogram"].(map[string]any)["5"])
}

func TestNewBusinessSummary(t *testing.T) {
	b := Business{ID: "b1", Name: "Alpha Cafe", Category: CategoryFood}

	s := NewBusinessSummary(b, NewRatingAggregate("b1"))
	assert.Nil(t, s.Mean)
	assert.Zero(t, s.ReviewCount)

	s = NewBusinessSummary(b, FoldRatings("b1", []int{4, 5}, time.Now()))
	require.NotNil(t, s.AverageRating)
	assert.Equal(t, 4.5, *s.AverageRating)
	assert.Equal(t, int64(2), s.ReviewCount)
}
