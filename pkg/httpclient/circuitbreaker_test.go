package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestCircuitBreaker_ClosedPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":12}`))
	}))
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("catalog-closed"), testLogger())

	var out struct {
		Total int `json:"total"`
	}
	require.NoError(t, cb.GetJSON(context.Background(), server.URL, &out))
	assert.Equal(t, 12, out.Total)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_TripsAndReportsUnavailable(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("catalog-trip"), testLogger())

	for i := 0; i < 3; i++ {
		var out map[string]any
		require.Error(t, cb.GetJSON(context.Background(), server.URL, &out))
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	var out map[string]any
	err := cb.GetJSON(context.Background(), server.URL, &out)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "open breaker must not reach the server")
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"nope"}}`))
	}))
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("catalog-4xx"), testLogger())

	for i := 0; i < 5; i++ {
		var out map[string]any
		err := cb.GetJSON(context.Background(), server.URL, &out)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cb := NewCircuitBreakerClient(New(fastConfig(0)), testCBConfig("catalog-recover"), testLogger())
	for i := 0; i < 3; i++ {
		var out map[string]any
		_ = cb.GetJSON(context.Background(), server.URL, &out)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	healthy.Store(true)
	time.Sleep(80 * time.Millisecond)

	var out map[string]any
	require.NoError(t, cb.GetJSON(context.Background(), server.URL, &out))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
