package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PoojiKatru/local-business-finder/internal/service"
	"github.com/PoojiKatru/local-business-finder/pkg/httputil"
)

// AdminHandler exposes operator actions on rating aggregates.
type AdminHandler struct {
	reconciler *service.Reconciler
	logger     *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(reconciler *service.Reconciler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, logger: logger}
}

// ReconcileBusiness handles POST /api/v1/admin/businesses/{id}/reconcile
func (h *AdminHandler) ReconcileBusiness(w http.ResponseWriter, r *http.Request) {
	agg, err := h.reconciler.ReconcileBusiness(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: agg})
}

// ReconcileAll handles POST /api/v1/admin/reconcile
func (h *AdminHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.reconciler.ReconcileAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int{"reconciled": n}})
}
