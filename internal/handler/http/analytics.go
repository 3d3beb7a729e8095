package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Sagar7057/pharma-backend/internal/service"
	"github.com/Sagar7057/pharma-backend/pkg/httputil"
)

// AnalyticsHandler handles HTTP requests for the analytics endpoints.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	logger  *slog.Logger
}

// NewAnalyticsHandler creates a new analytics HTTP handler.
func NewAnalyticsHandler(svc *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc, logger: logger}
}

// Dashboard handles GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	metrics, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: metrics})
}

// RevenueTrend handles GET /api/analytics/revenue-trend
// Accepts a named range or an explicit custom window via from/to dates in
// YYYY-MM-DD form.
func (h *AnalyticsHandler) RevenueTrend(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	input := service.RevenueTrendInput{Range: r.URL.Query().Get("range")}

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "from must be a date in YYYY-MM-DD format"},
			})
			return
		}
		input.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "to must be a date in YYYY-MM-DD format"},
			})
			return
		}
		input.To = &t
	}

	trend, err := h.service.RevenueTrend(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: trend})
}

// QuoteMetrics handles GET /api/analytics/quotes-metrics
func (h *AnalyticsHandler) QuoteMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	metrics, err := h.service.QuoteMetrics(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: metrics})
}

// BrandMetrics handles GET /api/analytics/brands-metrics
func (h *AnalyticsHandler) BrandMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	metrics, err := h.service.BrandMetrics(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: metrics})
}

// CustomerMetrics handles GET /api/analytics/customers-metrics
func (h *AnalyticsHandler) CustomerMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	metrics, err := h.service.CustomerMetrics(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: metrics})
}
