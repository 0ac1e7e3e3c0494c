package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newChallenge(id, session string, created time.Time) *domain.Challenge {
	return &domain.Challenge{
		ID:           id,
		SessionID:    session,
		Prompt:       "What is 2 + 2?",
		AnswerDigest: []byte("digest-4"),
		CreatedAt:    created,
		ExpiresAt:    created.Add(5 * time.Minute),
	}
}

func TestChallengeRepository_CreateGet(t *testing.T) {
	repo := NewChallengeRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newChallenge("c1", "s1", t0)))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "What is 2 + 2?", got.Prompt)

	got.AnswerDigest[0] = 'X'
	again, _ := repo.Get(ctx, "c1")
	assert.Equal(t, byte('d'), again.AnswerDigest[0], "returned challenge must be a copy")

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.Create(ctx, newChallenge("c1", "s1", t0))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestChallengeRepository_SolveOutcomes(t *testing.T) {
	repo := NewChallengeRepository(time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newChallenge("c1", "s1", t0)))

	out, err := repo.Solve(ctx, "c1", []byte("digest-5"), t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, out)

	out, _ = repo.Solve(ctx, "c1", []byte("digest-4"), t0.Add(2*time.Second))
	assert.Equal(t, domain.OutcomeAccepted, out)

	out, _ = repo.Solve(ctx, "c1", []byte("digest-4"), t0.Add(3*time.Second))
	assert.Equal(t, domain.OutcomeAlreadySolved, out)

	out, _ = repo.Solve(ctx, "c1", []byte("digest-4"), t0.Add(6*time.Minute))
	assert.Equal(t, domain.OutcomeExpired, out, "expiry wins over solved")

	out, _ = repo.Solve(ctx, "nope", []byte("digest-4"), t0)
	assert.Equal(t, domain.OutcomeNotFound, out)
}

func TestChallengeRepository_SolveExpiredRegardlessOfAnswer(t *testing.T) {
	repo := NewChallengeRepository(time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newChallenge("c1", "s1", t0)))

	late := t0.Add(5*time.Minute + time.Millisecond)
	for _, d := range [][]byte{[]byte("digest-4"), []byte("wrong")} {
		out, err := repo.Solve(ctx, "c1", d, late)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeExpired, out)
	}
}

func TestChallengeRepository_ConcurrentSolveAcceptsOnce(t *testing.T) {
	repo := NewChallengeRepository(time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newChallenge("c1", "s1", t0)))

	const n = 64
	var accepted, replays int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			out, err := repo.Solve(ctx, "c1", []byte("digest-4"), t0.Add(time.Second))
			assert.NoError(t, err)
			switch out {
			case domain.OutcomeAccepted:
				atomic.AddInt32(&accepted, 1)
			case domain.OutcomeAlreadySolved:
				atomic.AddInt32(&replays, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(n-1), replays)
}

func TestChallengeRepository_LatestForSession(t *testing.T) {
	repo := NewChallengeRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newChallenge("old", "s1", t0)))
	require.NoError(t, repo.Create(ctx, newChallenge("new", "s1", t0.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newChallenge("other", "s2", t0.Add(2*time.Minute))))

	got, err := repo.LatestForSession(ctx, "s1", t0.Add(90*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)

	_, err = repo.Solve(ctx, "new", []byte("digest-4"), t0.Add(90*time.Second))
	require.NoError(t, err)

	got, err = repo.LatestForSession(ctx, "s1", t0.Add(100*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID, "solved challenges are no longer current")

	_, err = repo.LatestForSession(ctx, "s1", t0.Add(10*time.Minute))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestChallengeRepository_DeleteExpired(t *testing.T) {
	repo := NewChallengeRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newChallenge("a", "s1", t0)))
	require.NoError(t, repo.Create(ctx, newChallenge("b", "s1", t0.Add(10*time.Minute))))

	n, err := repo.DeleteExpired(ctx, t0.Add(5*time.Minute+30*time.Second))
	require.NoError(t, err)
	assert.Zero(t, n, "grace keeps a just-expired challenge reportable")

	out, _ := repo.Solve(ctx, "a", []byte("digest-4"), t0.Add(5*time.Minute+30*time.Second))
	assert.Equal(t, domain.OutcomeExpired, out)

	n, err = repo.DeleteExpired(ctx, t0.Add(7*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, repo.Len())

	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
