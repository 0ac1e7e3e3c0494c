package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/service"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/httputil"
	"github.com/PoojiKatru/local-business-finder/pkg/pagination"
)

// BusinessHandler handles HTTP requests for discovery endpoints.
type BusinessHandler struct {
	discovery *service.DiscoveryService
	ratings   *service.RatingService
	logger    *slog.Logger
}

// NewBusinessHandler creates a new business HTTP handler.
func NewBusinessHandler(discovery *service.DiscoveryService, ratings *service.RatingService, logger *slog.Logger) *BusinessHandler {
	return &BusinessHandler{
		discovery: discovery,
		ratings:   ratings,
		logger:    logger,
	}
}

// ListBusinesses handles GET /api/v1/businesses
//
// Query parameters: category, q (or search), sort, offset/limit or
// page/per_page.
func (h *BusinessHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	q, err := parseListingQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	listing, err := h.discovery.ListBusinesses(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: listing})
}

// GetBusiness handles GET /api/v1/businesses/{id}
func (h *BusinessHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	detail, err := h.discovery.GetBusiness(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// GetRating handles GET /api/v1/businesses/{id}/rating. Unknown businesses
// report the zero aggregate.
func (h *BusinessHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	agg, err := h.ratings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: agg})
}

// ListCategories handles GET /api/v1/categories
func (h *BusinessHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.discovery.CategoryCounts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: counts})
}

func parseListingQuery(r *http.Request) (domain.ListingQuery, error) {
	values := r.URL.Query()

	category, ok := domain.ParseCategory(values.Get("category"))
	if !ok {
		return domain.ListingQuery{}, apperrors.InvalidInput("unknown category " + values.Get("category"))
	}
	sortKey, ok := domain.ParseSortKey(values.Get("sort"))
	if !ok {
		return domain.ListingQuery{}, apperrors.InvalidInput("sort must be one of: rating, reviews, name, newest")
	}

	term := values.Get("q")
	if term == "" {
		term = values.Get("search")
	}

	page := pagination.FromRequest(r)
	return domain.ListingQuery{
		Category: category,
		Term:     strings.TrimSpace(term),
		Sort:     sortKey,
		Offset:   page.Offset,
		Limit:    page.Limit,
	}, nil
}
