package redis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

const (
	challengeKeyPrefix = "challenge:"
	sessionKeyPrefix   = "challenge:session:"
)

// createScript stores the challenge hash and indexes it under its session.
// Both keys expire at ARGV[6].
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'session', ARGV[1], 'prompt', ARGV[2], 'digest', ARGV[3],
	'created_at', ARGV[4], 'expires_at', ARGV[5], 'solved', '0')
redis.call('PEXPIREAT', KEYS[1], ARGV[6])
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[7])
redis.call('PEXPIREAT', KEYS[2], ARGV[6])
return 1
`)

// solveScript is the compare-and-set on one challenge hash. Times are unix
// milliseconds so they stay exact in Lua numbers.
var solveScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'digest', 'expires_at', 'solved')
if not h[1] then
	return 'not_found'
end
if tonumber(ARGV[2]) > tonumber(h[2]) then
	return 'expired'
end
if h[3] == '1' then
	return 'already_solved'
end
if h[1] ~= ARGV[1] then
	return 'rejected'
end
redis.call('HSET', KEYS[1], 'solved', '1')
return 'accepted'
`)

// ChallengeRepository implements repository.ChallengeRepository using Redis.
// Each challenge is a hash whose key expires grace after the challenge does,
// so late submissions still see Expired before the key disappears. A sorted
// set per session, scored by issue time, indexes the session's challenges.
type ChallengeRepository struct {
	client *redis.Client
	grace  time.Duration
}

// NewChallengeRepository creates a new Redis-backed challenge store.
func NewChallengeRepository(client *redis.Client, grace time.Duration) *ChallengeRepository {
	return &ChallengeRepository{client: client, grace: grace}
}

func challengeKey(id string) string { return challengeKeyPrefix + id }

func sessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }

func (r *ChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	created, err := createScript.Run(ctx, r.client,
		[]string{challengeKey(c.ID), sessionKey(c.SessionID)},
		c.SessionID,
		c.Prompt,
		hex.EncodeToString(c.AnswerDigest),
		c.CreatedAt.UnixMilli(),
		c.ExpiresAt.UnixMilli(),
		c.ExpiresAt.Add(r.grace).UnixMilli(),
		c.ID,
	).Int()
	if err != nil {
		return fmt.Errorf("redis create challenge: %w", err)
	}
	if created == 0 {
		return apperrors.AlreadyExists("challenge", "id", c.ID)
	}
	return nil
}

func (r *ChallengeRepository) Get(ctx context.Context, id string) (*domain.Challenge, error) {
	fields, err := r.client.HGetAll(ctx, challengeKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.NotFound("challenge", id)
	}
	return decodeChallenge(id, fields)
}

func (r *ChallengeRepository) Solve(ctx context.Context, id string, digest []byte, now time.Time) (domain.VerificationOutcome, error) {
	res, err := solveScript.Run(ctx, r.client,
		[]string{challengeKey(id)},
		hex.EncodeToString(digest), now.UnixMilli(),
	).Text()
	if err != nil {
		return "", fmt.Errorf("redis solve challenge: %w", err)
	}

	switch out := domain.VerificationOutcome(res); out {
	case domain.OutcomeAccepted, domain.OutcomeRejected, domain.OutcomeExpired,
		domain.OutcomeAlreadySolved, domain.OutcomeNotFound:
		return out, nil
	default:
		return "", fmt.Errorf("redis solve challenge: unexpected result %q", res)
	}
}

func (r *ChallengeRepository) LatestForSession(ctx context.Context, sessionID string, now time.Time) (*domain.Challenge, error) {
	key := sessionKey(sessionID)
	ids, err := r.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list session challenges: %w", err)
	}

	var stale []any
	defer func() {
		if len(stale) > 0 {
			r.client.ZRem(context.WithoutCancel(ctx), key, stale...)
		}
	}()

	for _, id := range ids {
		c, err := r.Get(ctx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.Current(now) {
			return c, nil
		}
	}
	return nil, apperrors.NotFound("current challenge for session", sessionID)
}

// DeleteExpired is a no-op: key expiry reclaims challenges and session
// indexes, and LatestForSession prunes index members whose key has gone.
func (r *ChallengeRepository) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func decodeChallenge(id string, f map[string]string) (*domain.Challenge, error) {
	digest, err := hex.DecodeString(f["digest"])
	if err != nil {
		return nil, fmt.Errorf("decode challenge %s digest: %w", id, err)
	}
	created, err := strconv.ParseInt(f["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode challenge %s created_at: %w", id, err)
	}
	expires, err := strconv.ParseInt(f["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode challenge %s expires_at: %w", id, err)
	}

	return &domain.Challenge{
		ID:           id,
		SessionID:    f["session"],
		Prompt:       f["prompt"],
		AnswerDigest: digest,
		CreatedAt:    time.UnixMilli(created).UTC(),
		ExpiresAt:    time.UnixMilli(expires).UTC(),
		Solved:       f["solved"] == "1",
	}, nil
}
