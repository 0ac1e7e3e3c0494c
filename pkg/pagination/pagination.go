package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds offset-based pagination parameters extracted from query strings.
// Offset is never clamped to the result size; a window past the end is empty.
type Params struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{Offset: 0, Limit: DefaultLimit}
}

// Normalize clamps Limit into 1..MaxLimit and Offset to be non-negative.
func (p Params) Normalize() Params {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// FromRequest extracts pagination parameters from an HTTP request. It accepts
// offset/limit and, when offset is absent, page/per_page.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := DefaultParams()

	if v, ok := positiveInt(q.Get("limit")); ok {
		p.Limit = v
	} else if v, ok := positiveInt(q.Get("per_page")); ok {
		p.Limit = v
	}
	p = p.Normalize()

	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			p.Offset = v
		}
	} else if page, ok := positiveInt(q.Get("page")); ok {
		p.Offset = pageOffset(page, p.Limit)
	}

	return p
}

// pageOffset converts a 1-based page to an offset, saturating at
// math.MaxInt so an out-of-range page selects an empty window.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

func positiveInt(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Result wraps a paginated response.
type Result[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result for one window of a larger set.
func NewResult[T any](items []T, total int, params Params) Result[T] {
	params = params.Normalize()
	if items == nil {
		items = []T{}
	}

	totalPages := total / params.Limit
	if total%params.Limit > 0 {
		totalPages++
	}

	return Result[T]{
		Items:      items,
		Total:      total,
		Offset:     params.Offset,
		Limit:      params.Limit,
		Page:       params.Offset/params.Limit + 1,
		TotalPages: totalPages,
		HasNext:    params.Offset+len(items) < total,
		HasPrev:    params.Offset > 0,
	}
}

// Window returns the bounds [start, end) of the slice selected by params over
// a collection of size total. start may equal end when the window is empty.
func Window(total int, params Params) (start, end int) {
	params = params.Normalize()
	start = params.Offset
	if start > total {
		start = total
	}
	end = start + params.Limit
	if end > total {
		end = total
	}
	return start, end
}
