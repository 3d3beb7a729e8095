package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Sagar7057/pharma-backend/internal/service"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
	"github.com/Sagar7057/pharma-backend/pkg/httputil"
	"github.com/Sagar7057/pharma-backend/pkg/validator"
)

// BrandHandler handles HTTP requests for the brand catalog.
type BrandHandler struct {
	service *service.BrandService
	logger  *slog.Logger
}

// NewBrandHandler creates a new brand HTTP handler.
func NewBrandHandler(svc *service.BrandService, logger *slog.Logger) *BrandHandler {
	return &BrandHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateBrandRequest is the JSON request body for adding a brand.
type CreateBrandRequest struct {
	Name                 string   `json:"name" validate:"required,min=1,max=255"`
	Manufacturer         string   `json:"manufacturer" validate:"omitempty,max=255"`
	MRP                  float64  `json:"mrp" validate:"required,gt=0"`
	CostPrice            float64  `json:"cost_price" validate:"required,gt=0"`
	CurrentSellPrice     *float64 `json:"current_sell_price" validate:"omitempty,gt=0"`
	DefaultMarginPercent float64  `json:"default_margin_percent" validate:"gte=0"`
	Category             string   `json:"category" validate:"omitempty,max=100"`
	IsNPPAControlled     bool     `json:"is_nppa_controlled"`
	NPPAMarginLimit      *float64 `json:"nppa_margin_limit" validate:"omitempty,gt=0"`
	SaltName             string   `json:"salt_name" validate:"omitempty,max=255"`
	Strength             string   `json:"strength" validate:"omitempty,max=100"`
	Packing              string   `json:"packing" validate:"omitempty,max=100"`
	GTINCode             string   `json:"gtin_code" validate:"omitempty,max=50"`
}

// UpdateBrandRequest is the JSON request body for a partial brand update.
type UpdateBrandRequest struct {
	Name                 *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Manufacturer         *string  `json:"manufacturer" validate:"omitempty,max=255"`
	MRP                  *float64 `json:"mrp" validate:"omitempty,gt=0"`
	CostPrice            *float64 `json:"cost_price" validate:"omitempty,gt=0"`
	CurrentSellPrice     *float64 `json:"current_sell_price" validate:"omitempty,gt=0"`
	DefaultMarginPercent *float64 `json:"default_margin_percent" validate:"omitempty,gte=0"`
	Category             *string  `json:"category" validate:"omitempty,max=100"`
	IsNPPAControlled     *bool    `json:"is_nppa_controlled"`
	NPPAMarginLimit      *float64 `json:"nppa_margin_limit" validate:"omitempty,gt=0"`
	SaltName             *string  `json:"salt_name" validate:"omitempty,max=255"`
	Strength             *string  `json:"strength" validate:"omitempty,max=100"`
	Packing              *string  `json:"packing" validate:"omitempty,max=100"`
	GTINCode             *string  `json:"gtin_code" validate:"omitempty,max=50"`
}

// --- Handlers ---

// Create handles POST /api/brands
func (h *BrandHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req CreateBrandRequest
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

	brand, err := h.service.Create(r.Context(), userID, service.CreateBrandInput{
		Name:                 req.Name,
		Manufacturer:         req.Manufacturer,
		MRP:                  req.MRP,
		CostPrice:            req.CostPrice,
		CurrentSellPrice:     req.CurrentSellPrice,
		DefaultMarginPercent: req.DefaultMarginPercent,
		Category:             req.Category,
		IsNPPAControlled:     req.IsNPPAControlled,
		NPPAMarginLimit:      req.NPPAMarginLimit,
		SaltName:             req.SaltName,
		Strength:             req.Strength,
		Packing:              req.Packing,
		GTINCode:             req.GTINCode,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: brand})
}

// List handles GET /api/brands
func (h *BrandHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	input := service.ListBrandsInput{}
	q := r.URL.Query()

	input.Search = q.Get("search")
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

// Get handles GET /api/brands/{id}
func (h *BrandHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	brand, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: brand})
}

// Update handles PUT /api/brands/{id}
func (h *BrandHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req UpdateBrandRequest
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

	brand, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), service.UpdateBrandInput{
		Name:                 req.Name,
		Manufacturer:         req.Manufacturer,
		MRP:                  req.MRP,
		CostPrice:            req.CostPrice,
		CurrentSellPrice:     req.CurrentSellPrice,
		DefaultMarginPercent: req.DefaultMarginPercent,
		Category:             req.Category,
		IsNPPAControlled:     req.IsNPPAControlled,
		NPPAMarginLimit:      req.NPPAMarginLimit,
		SaltName:             req.SaltName,
		Strength:             req.Strength,
		Packing:              req.Packing,
		GTINCode:             req.GTINCode,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: brand})
}

// Delete handles DELETE /api/brands/{id}
func (h *BrandHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// ImportCSV handles POST /api/brands/import
func (h *BrandHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: `multipart file field "file" is required`},
		})
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		httputil.WriteError(w, r, apperrors.Validation("file must be a CSV"), h.logger)
		return
	}

	result, err := h.service.ImportCSV(r.Context(), userID, file)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ExportCSV handles GET /api/brands/export
// The CSV is buffered so a storage failure still produces a JSON error
// instead of a torn download.
func (h *BrandHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), userID, &buf); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	filename := fmt.Sprintf("brands_export_%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
