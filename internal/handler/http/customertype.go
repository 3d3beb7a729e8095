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

// CustomerTypeHandler handles HTTP requests for customer type endpoints.
type CustomerTypeHandler struct {
	service *service.CustomerTypeService
	logger  *slog.Logger
}

// NewCustomerTypeHandler creates a new customer type HTTP handler.
func NewCustomerTypeHandler(svc *service.CustomerTypeService, logger *slog.Logger) *CustomerTypeHandler {
	return &CustomerTypeHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateCustomerTypeRequest is the JSON request body for adding a customer type.
type CreateCustomerTypeRequest struct {
	Name                 string  `json:"name" validate:"required,min=1,max=100"`
	DefaultMarginPercent float64 `json:"default_margin_percent" validate:"gte=0"`
	Description          string  `json:"description" validate:"omitempty,max=500"`
}

// UpdateCustomerTypeRequest is the JSON request body for a partial update.
type UpdateCustomerTypeRequest struct {
	Name                 *string  `json:"name" validate:"omitempty,min=1,max=100"`
	DefaultMarginPercent *float64 `json:"default_margin_percent" validate:"omitempty,gte=0"`
	Description          *string  `json:"description" validate:"omitempty,max=500"`
}

// --- Handlers ---

// Create handles POST /api/customer-types
func (h *CustomerTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req CreateCustomerTypeRequest
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

	ct, err := h.service.Create(r.Context(), userID, service.CreateCustomerTypeInput{
		Name:                 req.Name,
		DefaultMarginPercent: req.DefaultMarginPercent,
		Description:          req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: ct})
}

// List handles GET /api/customer-types
func (h *CustomerTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	types, err := h.service.List(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: types})
}

// Get handles GET /api/customer-types/{id}
func (h *CustomerTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	ct, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ct})
}

// Update handles PUT /api/customer-types/{id}
func (h *CustomerTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req UpdateCustomerTypeRequest
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

	ct, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), service.UpdateCustomerTypeInput{
		Name:                 req.Name,
		DefaultMarginPercent: req.DefaultMarginPercent,
		Description:          req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ct})
}

// Delete handles DELETE /api/customer-types/{id}
func (h *CustomerTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id, "status": "deleted"}})
}
