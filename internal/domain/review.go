package domain

import "time"

// Review is an admitted review. Reviews are append-only.
type Review struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	SessionID  string    `json:"-"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewBounds are the configured length limits for review text, counted in
// characters after trimming.
type ReviewBounds struct {
	TitleMax   int
	ContentMin int
	ContentMax int
}

// DefaultReviewBounds returns the limits used when none are configured.
func DefaultReviewBounds() ReviewBounds {
	return ReviewBounds{TitleMax: 200, ContentMin: 1, ContentMax: 5000}
}
