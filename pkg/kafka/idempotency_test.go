package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyStore_AddContainsExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryIdempotencyStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-1"))
	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryIdempotencyStore_AddSweepsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryIdempotencyStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "old"))
	now = now.Add(5 * time.Minute)
	require.NoError(t, store.Add(ctx, "new"))

	assert.Equal(t, 1, store.Len())
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	h := IdempotentHandler("t", store, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	ev := &Event{EventID: "evt-1", EventType: "review.admitted"}
	require.NoError(t, h(context.Background(), ev))
	require.NoError(t, h(context.Background(), ev))

	assert.Equal(t, 1, calls)
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	calls := 0
	h := IdempotentHandler("t", store, func(context.Context, *Event) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return nil
	}, testLogger())

	ev := &Event{EventID: "evt-2"}
	assert.Error(t, h(context.Background(), ev))
	assert.NoError(t, h(context.Background(), ev))
	assert.Equal(t, 2, calls)
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) { return false, errors.New("down") }
func (failingStore) Add(context.Context, string) error              { return errors.New("down") }

func TestIdempotentHandler_StoreFailurePassesThrough(t *testing.T) {
	calls := 0
	h := IdempotentHandler("t", failingStore{}, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	require.NoError(t, h(context.Background(), &Event{EventID: "evt-3"}))
	require.NoError(t, h(context.Background(), &Event{}))
	assert.Equal(t, 2, calls)
}
