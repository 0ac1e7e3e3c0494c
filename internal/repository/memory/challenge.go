package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

type challengeShard struct {
	mu         sync.Mutex
	challenges map[string]*domain.Challenge
}

type sessionEntry struct {
	id        string
	createdAt time.Time
	expiresAt time.Time
}

type sessionShard struct {
	mu       sync.Mutex
	sessions map[string][]sessionEntry
}

// ChallengeRepository is an in-process challenge store. Challenges and the
// per-session index are each split across independently locked shards, so
// operations on unrelated ids never share a lock.
type ChallengeRepository struct {
	shards   [shardCount]challengeShard
	sessions [shardCount]sessionShard
	grace    time.Duration
}

// NewChallengeRepository creates an empty store. Expired challenges stay
// verifiable as Expired for grace before DeleteExpired reclaims them.
func NewChallengeRepository(grace time.Duration) *ChallengeRepository {
	r := &ChallengeRepository{grace: grace}
	for i := range r.shards {
		r.shards[i].challenges = make(map[string]*domain.Challenge)
		r.sessions[i].sessions = make(map[string][]sessionEntry)
	}
	return r
}

func (r *ChallengeRepository) shard(id string) *challengeShard {
	return &r.shards[shardIndex(id)]
}

func (r *ChallengeRepository) sessionShard(sessionID string) *sessionShard {
	return &r.sessions[shardIndex(sessionID)]
}

func (r *ChallengeRepository) Create(_ context.Context, c *domain.Challenge) error {
	s := r.shard(c.ID)
	s.mu.Lock()
	if _, exists := s.challenges[c.ID]; exists {
		s.mu.Unlock()
		return apperrors.AlreadyExists("challenge", "id", c.ID)
	}
	s.challenges[c.ID] = cloneChallenge(c)
	s.mu.Unlock()

	ss := r.sessionShard(c.SessionID)
	ss.mu.Lock()
	ss.sessions[c.SessionID] = append(ss.sessions[c.SessionID], sessionEntry{
		id:        c.ID,
		createdAt: c.CreatedAt,
		expiresAt: c.ExpiresAt,
	})
	ss.mu.Unlock()
	return nil
}

func (r *ChallengeRepository) Get(_ context.Context, id string) (*domain.Challenge, error) {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	if !ok {
		return nil, apperrors.NotFound("challenge", id)
	}
	return cloneChallenge(c), nil
}

func (r *ChallengeRepository) Solve(_ context.Context, id string, digest []byte, now time.Time) (domain.VerificationOutcome, error) {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	switch {
	case !ok:
		return domain.OutcomeNotFound, nil
	case c.Expired(now):
		return domain.OutcomeExpired, nil
	case c.Solved:
		return domain.OutcomeAlreadySolved, nil
	case !bytes.Equal(c.AnswerDigest, digest):
		return domain.OutcomeRejected, nil
	}
	c.Solved = true
	return domain.OutcomeAccepted, nil
}

func (r *ChallengeRepository) LatestForSession(ctx context.Context, sessionID string, now time.Time) (*domain.Challenge, error) {
	ss := r.sessionShard(sessionID)
	ss.mu.Lock()
	entries := make([]sessionEntry, len(ss.sessions[sessionID]))
	copy(entries, ss.sessions[sessionID])
	ss.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].createdAt.After(entries[j].createdAt)
	})
	for _, e := range entries {
		if now.After(e.expiresAt) {
			continue
		}
		c, err := r.Get(ctx, e.id)
		if err != nil {
			continue
		}
		if c.Current(now) {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("current challenge for session", sessionID)
}

func (r *ChallengeRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-r.grace)
	removed := 0

	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for id, c := range s.challenges {
			if c.Expired(cutoff) {
				delete(s.challenges, id)
				removed++
			}
		}
		s.mu.Unlock()
	}

	for i := range r.sessions {
		ss := &r.sessions[i]
		ss.mu.Lock()
		for sid, entries := range ss.sessions {
			kept := entries[:0]
			for _, e := range entries {
				if !cutoff.After(e.expiresAt) {
					kept = append(kept, e)
				}
			}
			if len(kept) == 0 {
				delete(ss.sessions, sid)
			} else {
				ss.sessions[sid] = kept
			}
		}
		ss.mu.Unlock()
	}

	return removed, nil
}

// Len returns the number of stored challenges.
func (r *ChallengeRepository) Len() int {
	n := 0
	for i := range r.shards {
		r.shards[i].mu.Lock()
		n += len(r.shards[i].challenges)
		r.shards[i].mu.Unlock()
	}
	return n
}

func cloneChallenge(c *domain.Challenge) *domain.Challenge {
	cp := *c
	cp.AnswerDigest = append([]byte(nil), c.AnswerDigest...)
	return &cp
}
