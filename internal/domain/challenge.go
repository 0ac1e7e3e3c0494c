package domain

import (
	"time"

	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
)

// Challenge is one outstanding anti-automation puzzle bound to a session.
// The expected answer is only ever held as a keyed digest.
type Challenge struct {
	ID           string    `json:"challenge_id"`
	SessionID    string    `json:"-"`
	Prompt       string    `json:"prompt"`
	AnswerDigest []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Solved       bool      `json:"-"`
}

// Expired reports whether now is past the challenge's time-to-live. Expiry
// applies whether or not the challenge was solved.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Current reports whether the challenge may still be presented to its session.
func (c *Challenge) Current(now time.Time) bool {
	return !c.Solved && !c.Expired(now)
}

// VerificationOutcome is the result of one compare-and-set attempt on a
// challenge.
type VerificationOutcome string

const (
	OutcomeAccepted      VerificationOutcome = "accepted"
	OutcomeRejected      VerificationOutcome = "rejected"
	OutcomeExpired       VerificationOutcome = "expired"
	OutcomeAlreadySolved VerificationOutcome = "already_solved"
	OutcomeNotFound      VerificationOutcome = "not_found"
)

// Err converts a non-accepted outcome into its error kind. Accepted yields nil.
func (o VerificationOutcome) Err(challengeID string) error {
	switch o {
	case OutcomeAccepted:
		return nil
	case OutcomeRejected:
		return apperrors.ChallengeRejected(challengeID)
	case OutcomeExpired:
		return apperrors.Expired(challengeID)
	case OutcomeAlreadySolved:
		return apperrors.AlreadySolved(challengeID)
	default:
		return apperrors.NotFound("challenge", challengeID)
	}
}
