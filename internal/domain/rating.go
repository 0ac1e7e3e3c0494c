package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is an integer star value in [1,5].
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// RatingAggregate is the per-business materialised view over admitted
// reviews. Stored state is integral; the mean is derived on read.
type RatingAggregate struct {
	BusinessID string
	Count      int64
	Sum        int64
	Histogram  [MaxRating]int64 // Histogram[i] counts reviews rated i+1
	UpdatedAt  time.Time
}

// NewRatingAggregate returns the zero aggregate for a business.
func NewRatingAggregate(businessID string) RatingAggregate {
	return RatingAggregate{BusinessID: businessID}
}

// Add applies one review. The caller has already validated rating.
func (a *RatingAggregate) Add(rating int, at time.Time) {
	a.Count++
	a.Sum += int64(rating)
	a.Histogram[rating-1]++
	a.UpdatedAt = at
}

// Mean returns sum/count, or false when there are no reviews.
func (a RatingAggregate) Mean() (float64, bool) {
	if a.Count == 0 {
		return 0, false
	}
	return float64(a.Sum) / float64(a.Count), true
}

// RoundedMean is the mean rounded to one decimal place for display.
func (a RatingAggregate) RoundedMean() (float64, bool) {
	m, ok := a.Mean()
	if !ok {
		return 0, false
	}
	return math.Round(m*10) / 10, true
}

// Consistent reports whether count equals the histogram total and sum equals
// the weighted histogram total.
func (a RatingAggregate) Consistent() bool {
	var count, sum int64
	for i, n := range a.Histogram {
		if n < 0 {
			return false
		}
		count += n
		sum += n * int64(i+1)
	}
	return count == a.Count && sum == a.Sum
}

// CompareMean orders two aggregates by mean using exact integer arithmetic.
// It returns -1, 0 or 1. Aggregates without reviews compare below any rated
// aggregate and equal to each other.
func CompareMean(a, b RatingAggregate) int {
	switch {
	case a.Count == 0 && b.Count == 0:
		return 0
	case a.Count == 0:
		return -1
	case b.Count == 0:
		return 1
	}
	l, r := a.Sum*b.Count, b.Sum*a.Count
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	default:
		return 0
	}
}

// FoldRatings rebuilds an aggregate from the full list of persisted ratings.
// Values outside [1,5] are skipped.
func FoldRatings(businessID string, ratings []int, at time.Time) RatingAggregate {
	agg := NewRatingAggregate(businessID)
	for _, r := range ratings {
		if ValidRating(r) {
			agg.Add(r, at)
		}
	}
	agg.UpdatedAt = at
	return agg
}

type ratingAggregateJSON struct {
	BusinessID    string           `json:"business_id"`
	Count         int64            `json:"review_count"`
	Sum           int64            `json:"rating_sum"`
	Mean          *float64         `json:"mean"`
	AverageRating *float64         `json:"average_rating"`
	Histogram     map[string]int64 `json:"histogram"`
	UpdatedAt     *time.Time       `json:"updated_at,omitempty"`
}

// MarshalJSON renders the mean as null when there are no reviews and the
// histogram keyed by star value.
func (a RatingAggregate) MarshalJSON() ([]byte, error) {
	out := ratingAggregateJSON{
		BusinessID: a.BusinessID,
		Count:      a.Count,
		Sum:        a.Sum,
		Histogram:  make(map[string]int64, MaxRating),
	}
	if m, ok := a.Mean(); ok {
		out.Mean = &m
	}
	if m, ok := a.RoundedMean(); ok {
		out.AverageRating = &m
	}
	for i, n := range a.Histogram {
		out.Histogram[strconv.Itoa(i+1)] = n
	}
	if !a.UpdatedAt.IsZero() {
		out.UpdatedAt = &a.UpdatedAt
	}
	return json.Marshal(out)
}
