package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/service"
	"github.com/PoojiKatru/local-business-finder/pkg/httputil"
	"github.com/PoojiKatru/local-business-finder/pkg/logger"
	"github.com/PoojiKatru/local-business-finder/pkg/validator"
)

// ChallengeHandler handles HTTP requests for challenge endpoints.
type ChallengeHandler struct {
	service *service.ChallengeService
	logger  *slog.Logger
}

// NewChallengeHandler creates a new challenge HTTP handler.
func NewChallengeHandler(svc *service.ChallengeService, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// VerifyChallengeRequest is the JSON request body for verifying an answer.
type VerifyChallengeRequest struct {
	Answer string `json:"answer" validate:"required"`
}

type challengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Prompt      string    `json:"prompt"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type verifyResponse struct {
	ChallengeID string                     `json:"challenge_id"`
	Outcome     domain.VerificationOutcome `json:"outcome"`
}

func toChallengeResponse(c *domain.Challenge) challengeResponse {
	return challengeResponse{
		ChallengeID: c.ID,
		Prompt:      c.Prompt,
		ExpiresAt:   c.ExpiresAt,
	}
}

// --- Handlers ---

// IssueChallenge handles POST /api/v1/challenges
func (h *ChallengeHandler) IssueChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Issue(r.Context(), logger.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: toChallengeResponse(c)})
}

// GetCurrentChallenge handles GET /api/v1/challenges/current
func (h *ChallengeHandler) GetCurrentChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Current(r.Context(), logger.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toChallengeResponse(c)})
}

// GetChallenge handles GET /api/v1/challenges/{id}
func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toChallengeResponse(c)})
}

// VerifyChallenge handles POST /api/v1/challenges/{id}/verify. An accepted
// answer consumes the challenge.
func (h *ChallengeHandler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	var req VerifyChallengeRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	outcome, err := h.service.Verify(r.Context(), service.VerifyInput{
		ChallengeID: id,
		SessionID:   logger.SessionIDFromContext(r.Context()),
		Answer:      req.Answer,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: verifyResponse{ChallengeID: id, Outcome: outcome}})
}
