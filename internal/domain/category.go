package domain

import "strings"

// Category is a value of the closed business category enumeration shared by
// the catalog and the listing filter.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryRetail        Category = "retail"
	CategoryServices      Category = "services"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
)

// Categories returns every category in enumeration order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryRetail,
		CategoryServices,
		CategoryEntertainment,
		CategoryHealth,
	}
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	for _, v := range Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory matches s case-insensitively against the enumeration. An empty
// string or "all" yields the zero Category, meaning no filter.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return "", true
	}
	c := Category(s)
	return c, c.Valid()
}

// CategoryCount is one facet of the category breakdown.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}
