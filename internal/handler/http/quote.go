package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sagar7057/pharma-backend/internal/service"
	"github.com/Sagar7057/pharma-backend/pkg/httputil"
	"github.com/Sagar7057/pharma-backend/pkg/validator"
)

// QuoteHandler handles HTTP requests for quote endpoints.
type QuoteHandler struct {
	service *service.QuoteService
	logger  *slog.Logger
}

// NewQuoteHandler creates a new quote HTTP handler.
func NewQuoteHandler(svc *service.QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// QuoteItemRequest is one requested line on a quote. An explicit unit price
// wins over a margin percent; with neither, the brand's MRP is used.
type QuoteItemRequest struct {
	BrandID         string   `json:"brand_id" validate:"required,uuid"`
	Quantity        int      `json:"quantity" validate:"gte=1"`
	UnitPrice       *float64 `json:"unit_price" validate:"omitempty,gt=0"`
	MarginPercent   *float64 `json:"margin_percent" validate:"omitempty,gte=0"`
	DiscountPercent float64  `json:"discount_percent" validate:"gte=0,lte=100"`
}

// CreateQuoteRequest is the JSON request body for creating a quote.
type CreateQuoteRequest struct {
	CustomerName   string             `json:"customer_name" validate:"required,min=1,max=200"`
	CustomerEmail  string             `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone  string             `json:"customer_phone" validate:"omitempty,max=20"`
	CustomerTypeID *string            `json:"customer_type_id" validate:"omitempty,uuid"`
	Notes          string             `json:"notes" validate:"omitempty,max=2000"`
	ValidityDays   int                `json:"validity_days" validate:"gte=0,lte=365"`
	Items          []QuoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateQuoteStatusRequest is the JSON request body for a status change.
type UpdateQuoteStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent accepted rejected expired"`
}

// --- Handlers ---

// Create handles POST /api/quotes
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req CreateQuoteRequest
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

	items := make([]service.QuoteLineItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.QuoteLineItemInput{
			BrandID:         item.BrandID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			MarginPercent:   item.MarginPercent,
			DiscountPercent: item.DiscountPercent,
		})
	}

	quote, err := h.service.Create(r.Context(), userID, service.CreateQuoteInput{
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		CustomerTypeID: req.CustomerTypeID,
		Notes:          req.Notes,
		ValidityDays:   req.ValidityDays,
		Items:          items,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: quote})
}

// List handles GET /api/quotes
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	input := service.ListQuotesInput{}
	q := r.URL.Query()

	input.Status = q.Get("status")
	input.Customer = q.Get("customer")
	input.SortBy = q.Get("sort_by")

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "limit must be a valid integer between 1 and 100"},
			})
			return
		}
		input.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "offset must be a valid non-negative integer"},
			})
			return
		}
		input.Offset = n
	}

	list, err := h.service.List(r.Context(), userID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: list})
}

// Get handles GET /api/quotes/{id}
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	quote, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: quote})
}

// UpdateStatus handles PUT /api/quotes/{id}
func (h *QuoteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req UpdateQuoteStatusRequest
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

	quote, err := h.service.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: quote})
}

// Delete handles DELETE /api/quotes/{id}
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Send handles POST /api/quotes/{id}/send
func (h *QuoteHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	quote, err := h.service.Send(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: quote})
}
