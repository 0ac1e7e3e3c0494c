package http

import (
	"log/slog"
	"net/http"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/service"
	"github.com/PoojiKatru/local-business-finder/pkg/httputil"
	"github.com/PoojiKatru/local-business-finder/pkg/logger"
	"github.com/PoojiKatru/local-business-finder/pkg/validator"
)

// ReviewHandler handles HTTP requests for review submission.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// SubmitReviewRequest is the JSON request body for submitting a review.
// Rating and text bounds are checked by the admission pipeline after the
// challenge is verified.
type SubmitReviewRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Answer      string `json:"answer" validate:"required"`
	BusinessID  string `json:"business_id"`
	Rating      int    `json:"rating"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

type submitReviewResponse struct {
	ReviewID         string                  `json:"review_id"`
	Review           *domain.Review          `json:"review"`
	Rating           *domain.RatingAggregate `json:"rating,omitempty"`
	AggregatePending bool                    `json:"aggregate_pending"`
}

// SubmitReview handles POST /api/v1/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	res, err := h.service.SubmitReview(r.Context(), service.SubmitReviewInput{
		ChallengeID: req.ChallengeID,
		Answer:      req.Answer,
		SessionID:   logger.SessionIDFromContext(r.Context()),
		BusinessID:  req.BusinessID,
		Rating:      req.Rating,
		Title:       req.Title,
		Content:     req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := submitReviewResponse{
		ReviewID:         res.Review.ID,
		Review:           res.Review,
		AggregatePending: res.AggregatePending,
	}
	if !res.AggregatePending {
		resp.Rating = &res.Aggregate
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: resp})
}
