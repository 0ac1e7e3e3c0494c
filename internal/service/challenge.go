package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/tracing"
)

// DefaultChallengeTTL is how long an issued challenge may be answered.
const DefaultChallengeTTL = 5 * time.Minute

// Puzzle is a prompt shown to the client and the answer expected back.
type Puzzle struct {
	Prompt string
	Answer string
}

// PuzzleGenerator produces a fresh puzzle for each issued challenge.
type PuzzleGenerator func() Puzzle

var mathOperators = []string{"+", "-", "×"}

// MathPuzzle asks for the result of a single operation on two integers in
// 1..10. Operands are ordered so subtraction never goes negative.
func MathPuzzle() Puzzle {
	a, b := rand.IntN(10)+1, rand.IntN(10)+1
	if a < b {
		a, b = b, a
	}
	op := mathOperators[rand.IntN(len(mathOperators))]

	var answer int
	switch op {
	case "+":
		answer = a + b
	case "-":
		answer = a - b
	default:
		answer = a * b
	}
	return Puzzle{
		Prompt: fmt.Sprintf("What is %d %s %d?", a, op, b),
		Answer: strconv.Itoa(answer),
	}
}

// ChallengeConfig tunes challenge issuance.
type ChallengeConfig struct {
	TTL     time.Duration
	Secret  string
	Clock   func() time.Time
	Puzzles PuzzleGenerator
}

// VerifyInput holds the parameters of one verification attempt. SessionID is
// optional; when set the challenge must belong to that session and be its
// current one.
type VerifyInput struct {
	ChallengeID string
	SessionID   string
	Answer      string
}

// ChallengeService issues and verifies anti-automation challenges.
type ChallengeService struct {
	repo     repository.ChallengeRepository
	ttl      time.Duration
	digester answerDigester
	now      func() time.Time
	puzzles  PuzzleGenerator
	logger   *slog.Logger
}

// NewChallengeService creates a new challenge service. Zero config fields
// fall back to a five minute TTL, the wall clock and MathPuzzle.
func NewChallengeService(repo repository.ChallengeRepository, cfg ChallengeConfig, logger *slog.Logger) *ChallengeService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultChallengeTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Puzzles == nil {
		cfg.Puzzles = MathPuzzle
	}
	return &ChallengeService{
		repo:     repo,
		ttl:      cfg.TTL,
		digester: newAnswerDigester(cfg.Secret),
		now:      cfg.Clock,
		puzzles:  cfg.Puzzles,
		logger:   logger,
	}
}

// Issue creates a challenge bound to sessionID.
func (s *ChallengeService) Issue(ctx context.Context, sessionID string) (*domain.Challenge, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	puzzle := s.puzzles()
	now := s.now()
	id := uuid.New().String()
	c := &domain.Challenge{
		ID:           id,
		SessionID:    sessionID,
		Prompt:       puzzle.Prompt,
		AnswerDigest: s.digester.Digest(id, puzzle.Answer),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}
	challengesIssued.Inc()

	s.logger.DebugContext(ctx, "challenge issued",
		slog.String("challenge_id", c.ID),
		slog.Time("expires_at", c.ExpiresAt),
	)
	return c, nil
}

// Get returns a challenge's public fields.
func (s *ChallengeService) Get(ctx context.Context, id string) (*domain.Challenge, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Current returns the most recently issued unsolved, unexpired challenge of
// the session.
func (s *ChallengeService) Current(ctx context.Context, sessionID string) (*domain.Challenge, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	return s.repo.LatestForSession(ctx, sessionID, s.now())
}

// Verify consumes the challenge if the answer is correct. A non-accepted
// outcome is returned together with its error kind.
func (s *ChallengeService) Verify(ctx context.Context, in VerifyInput) (outcome domain.VerificationOutcome, err error) {
	ctx, span := tracing.Start(ctx, "service", "ChallengeService.Verify",
		attribute.String("challenge.id", in.ChallengeID))
	defer func() {
		span.SetAttributes(attribute.String("challenge.outcome", string(outcome)))
		tracing.End(span, err)
	}()

	if in.ChallengeID == "" {
		return "", apperrors.InvalidInput("challenge_id is required")
	}

	now := s.now()
	if in.SessionID != "" {
		outcome, err = s.checkSession(ctx, in.ChallengeID, in.SessionID, now)
		if err != nil {
			return "", err
		}
	}

	if outcome == "" {
		digest := s.digester.Digest(in.ChallengeID, in.Answer)
		outcome, err = s.repo.Solve(ctx, in.ChallengeID, digest, now)
		if err != nil {
			return "", fmt.Errorf("solve challenge: %w", err)
		}
	}

	challengeVerifications.WithLabelValues(string(outcome)).Inc()
	s.logger.InfoContext(ctx, "challenge verified",
		slog.String("challenge_id", in.ChallengeID),
		slog.String("outcome", string(outcome)),
	)
	return outcome, outcome.Err(in.ChallengeID)
}

// checkSession returns a non-empty outcome when the challenge cannot be
// answered from this session: it belongs to another session (not found) or
// a newer challenge has superseded it (expired).
func (s *ChallengeService) checkSession(ctx context.Context, id, sessionID string, now time.Time) (domain.VerificationOutcome, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.OutcomeNotFound, nil
		}
		return "", fmt.Errorf("get challenge: %w", err)
	}
	if c.SessionID != sessionID {
		return domain.OutcomeNotFound, nil
	}
	if !c.Current(now) {
		return "", nil
	}

	latest, err := s.repo.LatestForSession(ctx, sessionID, now)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("current challenge: %w", err)
	}
	if latest.ID != c.ID && latest.CreatedAt.After(c.CreatedAt) {
		return domain.OutcomeExpired, nil
	}
	return "", nil
}

// RunSweeper reclaims expired challenges every interval until ctx is done.
func (s *ChallengeService) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ChallengeService) sweep(ctx context.Context) int {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.WarnContext(ctx, "challenge sweep failed", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		challengesSwept.Add(float64(n))
		s.logger.DebugContext(ctx, "expired challenges reclaimed", slog.Int("count", n))
	}
	return n
}
