package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/repository/memory"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCatalog(t *testing.T, h http.Handler) *RemoteCatalog {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return NewRemoteCatalog(NewRemoteCatalogClient(cfg, testLogger()), srv.URL+"/", testLogger())
}

func TestRemoteCatalog_List(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/businesses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"businesses":[
			{"id":"corner-cafe","name":"Corner Cafe","category":"Food","created_at":"2024-01-02T03:04:05+02:00"},
			{"id":"mystery","name":"Mystery","category":"aerospace"},
			{"id":"","name":"Nameless","category":"retail"},
			{"id":"fit-zone","name":"Fit Zone","category":"health"}
		]}`)
	})
	c := newTestCatalog(t, mux)

	got, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "corner-cafe", got[0].ID)
	assert.Equal(t, domain.CategoryFood, got[0].Category)
	assert.Equal(t, time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC), got[0].CreatedAt)
	assert.Equal(t, domain.CategoryHealth, got[1].Category)
}

func TestRemoteCatalog_Get(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/businesses/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "page turner" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":"NOT_FOUND","message":"business not found"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"page turner","name":"Page Turner","category":"retail"}`)
	})
	c := newTestCatalog(t, mux)

	b, err := c.Get(context.Background(), "page turner")
	require.NoError(t, err)
	assert.Equal(t, "Page Turner", b.Name)
	assert.Equal(t, domain.CategoryRetail, b.Category)

	_, err = c.Get(context.Background(), "nowhere")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "got %v", err)
}

func TestRemoteCatalog_ServerErrorsOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.List(ctx)
		require.Error(t, err)
	}
	_, err := c.List(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail), "got %v", err)
	assert.Equal(t, int32(5), calls.Load())
}

func TestSampleBusinesses(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := SampleBusinesses(base)
	require.Len(t, got, 12)

	ids := make(map[string]bool)
	perCategory := make(map[domain.Category]int)
	for _, b := range got {
		assert.False(t, ids[b.ID], "duplicate id %s", b.ID)
		ids[b.ID] = true
		assert.True(t, b.Category.Valid(), b.ID)
		perCategory[b.Category]++
	}
	assert.Len(t, perCategory, 5)
	assert.Equal(t, 3, perCategory[domain.CategoryFood])
	assert.True(t, ids["craft-and-co"])
	assert.Equal(t, "the-rustic-table", got[0].ID)
	assert.Equal(t, base.Add(11*time.Hour), got[11].CreatedAt)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	businesses := memory.NewBusinessRepository()
	reviews := memory.NewReviewRepository()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	seeded, err := Seed(ctx, businesses, reviews, base)
	require.NoError(t, err)
	require.Len(t, seeded, 12)

	_, err = Seed(ctx, businesses, reviews, base)
	require.NoError(t, err)

	all, err := businesses.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 12)

	ratings, err := reviews.ListRatings(ctx, "the-rustic-table")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{5, 4}, ratings)

	total := 0
	for _, b := range all {
		r, err := reviews.ListRatings(ctx, b.ID)
		require.NoError(t, err)
		total += len(r)
	}
	assert.Equal(t, len(sampleReviews), total)
}
