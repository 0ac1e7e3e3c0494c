package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

func (env *testEnv) issue(t *testing.T, sessionID string) *domain.Challenge {
	t.Helper()
	c, err := env.challenges.Issue(context.Background(), sessionID)
	require.NoError(t, err)
	return c
}

func validSubmission(challengeID string) SubmitReviewInput {
	return SubmitReviewInput{
		ChallengeID: challengeID,
		Answer:      "4",
		SessionID:   "session-1",
		BusinessID:  "corner-cafe",
		Rating:      5,
		Title:       "Great",
		Content:     "Loved it",
	}
}

func TestSubmitReview_AcceptedThenAlreadySolved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.issue(t, "session-1")

	res, err := env.review.SubmitReview(ctx, validSubmission(c.ID))
	require.NoError(t, err)
	require.NotNil(t, res.Review)
	assert.NotEmpty(t, res.Review.ID)
	assert.False(t, res.AggregatePending)
	assert.Equal(t, int64(1), res.Aggregate.Count)
	mean, ok := res.Aggregate.Mean()
	require.True(t, ok)
	assert.Equal(t, 5.0, mean)

	_, err = env.review.SubmitReview(ctx, validSubmission(c.ID))
	assert.True(t, errors.Is(err, apperrors.ErrAlreadySolved))

	ratings, err := env.reviews.ListRatings(ctx, "corner-cafe")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, ratings)
}

func TestSubmitReview_WrongAnswerHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.issue(t, "session-1")

	in := validSubmission(c.ID)
	in.Answer = "5"
	_, err := env.review.SubmitReview(ctx, in)
	assert.True(t, errors.Is(err, apperrors.ErrChallengeRejected))

	ratings, _ := env.reviews.ListRatings(ctx, "corner-cafe")
	assert.Empty(t, ratings)
	agg, _ := env.ratings.Get(ctx, "corner-cafe")
	assert.Equal(t, int64(0), agg.Count)

	// the same challenge may be retried
	_, err = env.review.SubmitReview(ctx, validSubmission(c.ID))
	assert.NoError(t, err)
}

func TestSubmitReview_ExpiredChallenge(t *testing.T) {
	env := newTestEnv(t)
	c := env.issue(t, "session-1")
	env.clock.Advance(10 * time.Minute)

	_, err := env.review.SubmitReview(context.Background(), validSubmission(c.ID))
	assert.True(t, errors.Is(err, apperrors.ErrExpired))
}

func TestSubmitReview_Validation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*SubmitReviewInput)
		sentinel   error
		wantFields []string
	}{
		{
			name:     "rating too high",
			mutate:   func(in *SubmitReviewInput) { in.Rating = 6 },
			sentinel: apperrors.ErrInvalidRating,
		},
		{
			name:     "rating zero",
			mutate:   func(in *SubmitReviewInput) { in.Rating = 0 },
			sentinel: apperrors.ErrInvalidRating,
		},
		{
			name:       "blank title",
			mutate:     func(in *SubmitReviewInput) { in.Title = "   " },
			sentinel:   apperrors.ErrValidation,
			wantFields: []string{"title"},
		},
		{
			name:       "empty content",
			mutate:     func(in *SubmitReviewInput) { in.Content = "" },
			sentinel:   apperrors.ErrValidation,
			wantFields: []string{"content"},
		},
		{
			name:       "content too long",
			mutate:     func(in *SubmitReviewInput) { in.Content = strings.Repeat("x", 5001) },
			sentinel:   apperrors.ErrValidation,
			wantFields: []string{"content"},
		},
		{
			name:       "title too long",
			mutate:     func(in *SubmitReviewInput) { in.Title = strings.Repeat("t", 201) },
			sentinel:   apperrors.ErrValidation,
			wantFields: []string{"title"},
		},
		{
			name: "several fields",
			mutate: func(in *SubmitReviewInput) {
				in.Rating = 9
				in.Title = ""
				in.BusinessID = ""
			},
			sentinel:   apperrors.ErrValidation,
			wantFields: []string{"business_id", "rating", "title"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			c := env.issue(t, "session-1")

			in := validSubmission(c.ID)
			tc.mutate(&in)
			_, err := env.review.SubmitReview(ctx, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.sentinel), "got %v", err)

			if tc.wantFields != nil {
				var appErr *apperrors.AppError
				require.True(t, errors.As(err, &appErr))
				fields := make([]string, 0, len(appErr.Fields))
				for f := range appErr.Fields {
					fields = append(fields, f)
				}
				assert.ElementsMatch(t, tc.wantFields, fields)
			}

			ratings, _ := env.reviews.ListRatings(ctx, "corner-cafe")
			assert.Empty(t, ratings)

			// the challenge was consumed by step one
			_, err = env.review.SubmitReview(ctx, validSubmission(c.ID))
			assert.True(t, errors.Is(err, apperrors.ErrAlreadySolved))
		})
	}
}

func TestSubmitReview_ConfiguredBounds(t *testing.T) {
	env := newTestEnv(t)
	env.review.bounds = domain.ReviewBounds{TitleMax: 5, ContentMin: 10, ContentMax: 20}
	ctx := context.Background()

	in := validSubmission(env.issue(t, "session-1").ID)
	in.Title = "Greatest"
	_, err := env.review.SubmitReview(ctx, in)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "must be at most 5 characters", appErr.Fields["title"])
	assert.Equal(t, "must be at least 10 characters", appErr.Fields["content"])
}

func TestSubmitReview_TrimsText(t *testing.T) {
	env := newTestEnv(t)
	in := validSubmission(env.issue(t, "session-1").ID)
	in.Title = "  Great \n"
	in.Content = "\tLoved it  "

	res, err := env.review.SubmitReview(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Great", res.Review.Title)
	assert.Equal(t, "Loved it", res.Review.Content)
	assert.Equal(t, "session-1", res.Review.SessionID)
}

func TestSubmitReview_UnknownBusiness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := validSubmission(env.issue(t, "session-1").ID)
	in.BusinessID = "no-such-place"
	_, err := env.review.SubmitReview(ctx, in)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	ratings, _ := env.reviews.ListRatings(ctx, "no-such-place")
	assert.Empty(t, ratings)
}

func TestSubmitReview_AggregateFailureQueuesReconcile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	aggs := new(mockAggregateRepository)
	aggs.On("Increment", mock.Anything, "corner-cafe", 5, mock.AnythingOfType("time.Time")).
		Return(domain.RatingAggregate{}, errors.New("connection refused"))
	env.ratings = NewRatingService(aggs, env.reviews, newTestLogger())
	env.review.ratings = env.ratings

	res, err := env.review.SubmitReview(ctx, validSubmission(env.issue(t, "session-1").ID))
	require.NoError(t, err)
	assert.True(t, res.AggregatePending)

	ratings, _ := env.reviews.ListRatings(ctx, "corner-cafe")
	assert.Equal(t, []int{5}, ratings)

	require.Equal(t, 1, env.queue.Len())
	req := <-env.queue.ch
	assert.Equal(t, "corner-cafe", req.BusinessID)
	assert.Equal(t, res.Review.ID, req.ReviewID)
	assert.Contains(t, req.Reason, "connection refused")
}

func TestSubmitReview_ConcurrentSameBusiness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 50
	ids := make([]string, n)
	for i := range ids {
		ids[i] = env.issue(t, "session-1").ID
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := validSubmission(ids[i])
			in.SessionID = ""
			_, err := env.review.SubmitReview(ctx, in)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	agg, err := env.ratings.Get(ctx, "corner-cafe")
	require.NoError(t, err)
	assert.Equal(t, int64(n), agg.Count)
	mean, _ := agg.Mean()
	assert.Equal(t, 5.0, mean)
}

func TestSubmitReview_Publishes(t *testing.T) {
	env := newTestEnv(t)
	pub := new(mockPublisher)
	env.review.publisher = pub

	pub.On("PublishReviewAdmitted", mock.Anything, mock.AnythingOfType("*domain.Review"),
		mock.AnythingOfType("domain.RatingAggregate"), false).
		Return(errors.New("broker down")).Once()

	res, err := env.review.SubmitReview(context.Background(), validSubmission(env.issue(t, "session-1").ID))
	require.NoError(t, err)
	assert.NotNil(t, res.Review)
	pub.AssertExpectations(t)
}
