package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/repository/memory"
)

// --- Mock Aggregate Repository ---

type mockAggregateRepository struct {
	mock.Mock
}

func (m *mockAggregateRepository) Increment(ctx context.Context, businessID string, rating int, at time.Time) (domain.RatingAggregate, error) {
	args := m.Called(ctx, businessID, rating, at)
	return args.Get(0).(domain.RatingAggregate), args.Error(1)
}

func (m *mockAggregateRepository) Get(ctx context.Context, businessID string) (domain.RatingAggregate, error) {
	args := m.Called(ctx, businessID)
	return args.Get(0).(domain.RatingAggregate), args.Error(1)
}

func (m *mockAggregateRepository) All(ctx context.Context) (map[string]domain.RatingAggregate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.RatingAggregate), args.Error(1)
}

func (m *mockAggregateRepository) Replace(ctx context.Context, agg domain.RatingAggregate) error {
	args := m.Called(ctx, agg)
	return args.Error(0)
}

// refreshingAggregates wraps a mock aggregate store with a mocked Refresh.
type refreshingAggregates struct {
	mockAggregateRepository
}

func (m *refreshingAggregates) Refresh(ctx context.Context, businessID string, at time.Time) (domain.RatingAggregate, error) {
	args := m.Called(ctx, businessID, at)
	return args.Get(0).(domain.RatingAggregate), args.Error(1)
}

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewAdmitted(ctx context.Context, review *domain.Review, agg domain.RatingAggregate, pending bool) error {
	args := m.Called(ctx, review, agg, pending)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fixedPuzzle(prompt, answer string) PuzzleGenerator {
	return func() Puzzle { return Puzzle{Prompt: prompt, Answer: answer} }
}

func newTestChallengeService(clock *testClock) (*ChallengeService, *memory.ChallengeRepository) {
	repo := memory.NewChallengeRepository(time.Minute)
	svc := NewChallengeService(repo, ChallengeConfig{
		TTL:     5 * time.Minute,
		Secret:  "test-secret",
		Clock:   clock.Now,
		Puzzles: fixedPuzzle("What is 2 + 2?", "4"),
	}, newTestLogger())
	return svc, repo
}

func testBusinesses() []domain.Business {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Business{
		{ID: "corner-cafe", Name: "Corner Cafe", Description: "Coffee and pastries", Category: domain.CategoryFood, CreatedAt: base},
		{ID: "bella-pizza", Name: "Bella Pizza", Description: "Wood-fired pizza", Category: domain.CategoryFood, CreatedAt: base.Add(time.Hour)},
		{ID: "page-turner", Name: "Page Turner Books", Description: "Independent bookstore", Category: domain.CategoryRetail, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "fit-zone", Name: "Fit Zone Gym", Description: "Classes and weights", Category: domain.CategoryHealth, CreatedAt: base.Add(3 * time.Hour)},
	}
}

type testEnv struct {
	clock      *testClock
	challenges *ChallengeService
	ratings    *RatingService
	reviews    *memory.ReviewRepository
	aggregates *memory.AggregateRepository
	businesses *memory.BusinessRepository
	queue      *MemoryReconcileQueue
	review     *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:      newTestClock(),
		reviews:    memory.NewReviewRepository(),
		aggregates: memory.NewAggregateRepository(),
		businesses: memory.NewBusinessRepository(testBusinesses()...),
		queue:      NewMemoryReconcileQueue(16),
	}
	env.challenges, _ = newTestChallengeService(env.clock)
	env.ratings = NewRatingService(env.aggregates, env.reviews, newTestLogger())
	env.review = NewReviewService(env.challenges, env.ratings, env.reviews, env.businesses,
		env.queue, nil, domain.DefaultReviewBounds(), newTestLogger())
	return env
}
