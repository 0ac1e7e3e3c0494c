package pagination

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	p := FromRequest(httptest.NewRequest("GET", "/businesses", nil))
	assert.Equal(t, Params{Offset: 0, Limit: 20}, p)
}

func TestFromRequest_OffsetLimit(t *testing.T) {
	p := FromRequest(httptest.NewRequest("GET", "/businesses?offset=40&limit=10", nil))
	assert.Equal(t, Params{Offset: 40, Limit: 10}, p)
}

func TestFromRequest_PageFallback(t *testing.T) {
	p := FromRequest(httptest.NewRequest("GET", "/businesses?page=3&per_page=5", nil))
	assert.Equal(t, Params{Offset: 10, Limit: 5}, p)
}

func TestFromRequest_HugePageSaturates(t *testing.T) {
	p := FromRequest(httptest.NewRequest("GET", "/businesses?page=461168601842738792&per_page=20", nil))
	assert.Equal(t, math.MaxInt, p.Offset)
	assert.Equal(t, 20, p.Limit)

	start, end := Window(5, p)
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)

	res := NewResult([]int{}, 5, p)
	assert.Empty(t, res.Items)
	assert.Equal(t, 5, res.Total)
	assert.False(t, res.HasNext)
}

func TestFromRequest_OffsetWinsOverPage(t *testing.T) {
	p := FromRequest(httptest.NewRequest("GET", "/businesses?page=3&offset=1", nil))
	assert.Equal(t, 1, p.Offset)
}

func TestFromRequest_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"negative offset", "offset=-5", Params{Offset: 0, Limit: 20}},
		{"non numeric limit", "limit=abc", Params{Offset: 0, Limit: 20}},
		{"zero limit", "limit=0", Params{Offset: 0, Limit: 20}},
		{"limit over max", "limit=500", Params{Offset: 0, Limit: 100}},
		{"large offset kept", "offset=1000", Params{Offset: 1000, Limit: 20}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest("GET", "/businesses?"+tc.query, nil))
			assert.Equal(t, tc.want, p)
		})
	}
}

func TestWindow(t *testing.T) {
	start, end := Window(5, Params{Offset: 2, Limit: 2})
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, end)

	start, end = Window(5, Params{Offset: 4, Limit: 20})
	assert.Equal(t, 4, start)
	assert.Equal(t, 5, end)

	start, end = Window(5, Params{Offset: 1000, Limit: 20})
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}

func TestNewResult_OutOfRangeOffset(t *testing.T) {
	r := NewResult[string](nil, 5, Params{Offset: 1000, Limit: 20})

	assert.Empty(t, r.Items)
	assert.NotNil(t, r.Items)
	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 1000, r.Offset)
	assert.False(t, r.HasNext)
	assert.True(t, r.HasPrev)
}

func TestNewResult_MiddlePage(t *testing.T) {
	r := NewResult([]int{3, 4}, 7, Params{Offset: 2, Limit: 2})

	assert.Equal(t, 2, r.Page)
	assert.Equal(t, 4, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)
}
