package http

import (
	"log/slog"
	"net/http"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/service"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/httputil"
)

// ReportHandler handles HTTP requests for analytics reports.
type ReportHandler struct {
	service *service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new report HTTP handler.
func NewReportHandler(svc *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{service: svc, logger: logger}
}

// GenerateReportRequest is the JSON request body for a report.
type GenerateReportRequest struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

// GenerateReport handles POST /api/v1/reports
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req GenerateReportRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	category, ok := domain.ParseCategory(req.Category)
	if !ok {
		httputil.WriteError(w, r, apperrors.InvalidInput("unknown category "+req.Category), h.logger)
		return
	}

	report, err := h.service.Generate(r.Context(), service.ReportInput{
		Type:     service.ReportType(req.Type),
		Category: category,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
