package domain

import "time"

// Business is a catalog record. The catalog is owned elsewhere; this service
// only reads snapshots of it.
type Business struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Address     string    `json:"address,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Website     string    `json:"website,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BusinessDetail is a business together with its current rating aggregate.
type BusinessDetail struct {
	Business
	Rating RatingAggregate `json:"rating"`
}
