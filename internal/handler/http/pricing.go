package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sagar7057/pharma-backend/internal/service"
	"github.com/Sagar7057/pharma-backend/pkg/httputil"
	"github.com/Sagar7057/pharma-backend/pkg/validator"
)

// PricingHandler handles HTTP requests for price calculation and NPPA checks.
type PricingHandler struct {
	service *service.PricingService
	logger  *slog.Logger
}

// NewPricingHandler creates a new pricing HTTP handler.
func NewPricingHandler(svc *service.PricingService, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CalculatePriceRequest is the JSON request body for a price calculation.
type CalculatePriceRequest struct {
	BrandID        string  `json:"brand_id" validate:"required,uuid"`
	CustomerTypeID *string `json:"customer_type_id" validate:"omitempty,uuid"`
	Quantity       int     `json:"quantity" validate:"gte=1"`
}

// CheckNPPARequest is the JSON request body for an NPPA compliance check.
type CheckNPPARequest struct {
	BrandID       string  `json:"brand_id" validate:"required,uuid"`
	ProposedPrice float64 `json:"proposed_price" validate:"required,gt=0"`
}

// --- Handlers ---

// Calculate handles POST /api/pricing/calculate
func (h *PricingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req CalculatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	calc, err := h.service.Calculate(r.Context(), userID, service.CalculateInput{
		BrandID:        req.BrandID,
		CustomerTypeID: req.CustomerTypeID,
		Quantity:       req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: calc})
}

// CheckNPPA handles POST /api/pricing/check-nppa
func (h *PricingHandler) CheckNPPA(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req CheckNPPARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.CheckCompliance(r.Context(), userID, req.BrandID, req.ProposedPrice)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// NPPAData handles GET /api/pricing/nppa-data/{brandID}
func (h *PricingHandler) NPPAData(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	drug, err := h.service.NPPAInfo(r.Context(), userID, chi.URLParam(r, "brandID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: drug})
}
