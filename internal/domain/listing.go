package domain

import (
	"strings"
	"time"
)

// SortKey selects the listing order.
type SortKey string

const (
	SortRating  SortKey = "rating"
	SortReviews SortKey = "reviews"
	SortName    SortKey = "name"
	SortNewest  SortKey = "newest"
)

// DefaultSort is used when the query names no sort key.
const DefaultSort = SortRating

// ParseSortKey matches s case-insensitively. Empty yields DefaultSort.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return DefaultSort, true
	case SortRating, SortReviews, SortName, SortNewest:
		return k, true
	default:
		return "", false
	}
}

// ListingQuery describes one discovery request.
type ListingQuery struct {
	Category Category
	Term     string
	Sort     SortKey
	Offset   int
	Limit    int
}

// BusinessSummary is one row of a listing.
type BusinessSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      Category  `json:"category"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ReviewCount   int64     `json:"review_count"`
	Mean          *float64  `json:"mean"`
	AverageRating *float64  `json:"average_rating"`
}

// NewBusinessSummary joins a business with its aggregate.
func NewBusinessSummary(b Business, agg RatingAggregate) BusinessSummary {
	s := BusinessSummary{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Category:    b.Category,
		Address:     b.Address,
		CreatedAt:   b.CreatedAt,
		ReviewCount: agg.Count,
	}
	if m, ok := agg.Mean(); ok {
		s.Mean = &m
	}
	if m, ok := agg.RoundedMean(); ok {
		s.AverageRating = &m
	}
	return s
}
