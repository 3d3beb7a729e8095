package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sagar7057/pharma-backend/internal/cache"
	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/internal/repository"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// maxImportErrors caps how many row errors an import report carries.
	maxImportErrors = 10
)

// csvColumns is the header shape shared by catalog import and export.
var csvColumns = []string{"Brand", "Manufacturer", "MRP", "CostPrice", "DefaultMargin"}

// BrandService manages the distributor's brand catalog.
type BrandService struct {
	repo   repository.BrandRepository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewBrandService creates a new brand service.
func NewBrandService(repo repository.BrandRepository, c *cache.Cache, logger *slog.Logger) *BrandService {
	return &BrandService{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// CreateBrandInput contains the fields for adding a brand to the catalog.
type CreateBrandInput struct {
	Name                 string
	Manufacturer         string
	MRP                  float64
	CostPrice            float64
	CurrentSellPrice     *float64
	DefaultMarginPercent float64
	Category             string
	IsNPPAControlled     bool
	NPPAMarginLimit      *float64
	SaltName             string
	Strength             string
	Packing              string
	GTINCode             string
}

// UpdateBrandInput contains the optional fields for updating a brand. Nil
// fields are left unchanged.
type UpdateBrandInput struct {
	Name                 *string
	Manufacturer         *string
	MRP                  *float64
	CostPrice            *float64
	CurrentSellPrice     *float64
	DefaultMarginPercent *float64
	Category             *string
	IsNPPAControlled     *bool
	NPPAMarginLimit      *float64
	SaltName             *string
	Strength             *string
	Packing              *string
	GTINCode             *string
}

// ListBrandsInput carries the search, sort and pagination parameters for
// listing the catalog.
type ListBrandsInput struct {
	Search string
	SortBy string
	Limit  int
	Offset int
}

// BrandList is a page of the catalog with pagination metadata.
type BrandList struct {
	Brands  []domain.Brand `json:"brands"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// Create adds a brand to the user's catalog.
func (s *BrandService) Create(ctx context.Context, userID string, input CreateBrandInput) (*domain.Brand, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("brand name is required")
	}
	if input.MRP <= 0 || input.CostPrice <= 0 {
		return nil, apperrors.Validation("prices must be greater than zero")
	}
	if input.MRP < input.CostPrice {
		return nil, apperrors.Validation("MRP must be greater than or equal to cost price")
	}
	if input.DefaultMarginPercent < 0 {
		return nil, apperrors.Validation("default margin percent cannot be negative")
	}

	now := time.Now().UTC()
	brand := &domain.Brand{
		ID:                   uuid.New().String(),
		UserID:               userID,
		Name:                 name,
		Manufacturer:         strings.TrimSpace(input.Manufacturer),
		MRP:                  input.MRP,
		CostPrice:            input.CostPrice,
		CurrentSellPrice:     input.CurrentSellPrice,
		DefaultMarginPercent: input.DefaultMarginPercent,
		Category:             input.Category,
		IsNPPAControlled:     input.IsNPPAControlled,
		NPPAMarginLimit:      input.NPPAMarginLimit,
		SaltName:             input.SaltName,
		Strength:             input.Strength,
		Packing:              input.Packing,
		GTINCode:             input.GTINCode,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, brand); err != nil {
		return nil, fmt.Errorf("create brand: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "brand created",
		slog.String("user_id", userID),
		slog.String("brand_id", brand.ID),
		slog.String("name", brand.Name))

	return brand, nil
}

// Get returns a single active brand owned by the user.
func (s *BrandService) Get(ctx context.Context, userID, id string) (*domain.Brand, error) {
	brand, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return brand, nil
}

// List returns a page of the user's catalog matching the search and sort
// parameters, served from cache when warm.
func (s *BrandService) List(ctx context.Context, userID string, input ListBrandsInput) (*BrandList, error) {
	if !domain.IsValidSortBy(input.SortBy) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid sort_by %q", input.SortBy))
	}

	limit := clampLimit(input.Limit)
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	key := cache.BrandListKey(userID, input.Search, input.SortBy, limit, offset)

	var cached BrandList
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "brand list cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	filter := repository.BrandFilter{
		SortBy: input.SortBy,
		Limit:  limit,
		Offset: offset,
	}
	if input.Search != "" {
		filter.Search = &input.Search
	}

	brands, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}

	list := &BrandList{
		Brands:  brands,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}

	if err := s.cache.Set(ctx, key, list, cache.TTLBrands); err != nil {
		s.logger.WarnContext(ctx, "brand list cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return list, nil
}

// Update applies a partial update to a brand.
func (s *BrandService) Update(ctx context.Context, userID, id string, input UpdateBrandInput) (*domain.Brand, error) {
	brand, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.Validation("brand name cannot be empty")
		}
		brand.Name = name
	}
	if input.Manufacturer != nil {
		brand.Manufacturer = strings.TrimSpace(*input.Manufacturer)
	}
	if input.MRP != nil {
		brand.MRP = *input.MRP
	}
	if input.CostPrice != nil {
		brand.CostPrice = *input.CostPrice
	}
	if input.CurrentSellPrice != nil {
		brand.CurrentSellPrice = input.CurrentSellPrice
	}
	if input.DefaultMarginPercent != nil {
		brand.DefaultMarginPercent = *input.DefaultMarginPercent
	}
	if input.Category != nil {
		brand.Category = *input.Category
	}
	if input.IsNPPAControlled != nil {
		brand.IsNPPAControlled = *input.IsNPPAControlled
	}
	if input.NPPAMarginLimit != nil {
		brand.NPPAMarginLimit = input.NPPAMarginLimit
	}
	if input.SaltName != nil {
		brand.SaltName = *input.SaltName
	}
	if input.Strength != nil {
		brand.Strength = *input.Strength
	}
	if input.Packing != nil {
		brand.Packing = *input.Packing
	}
	if input.GTINCode != nil {
		brand.GTINCode = *input.GTINCode
	}

	// The price invariants must hold on the merged result, not just the
	// fields present in the request.
	if brand.MRP <= 0 || brand.CostPrice <= 0 {
		return nil, apperrors.Validation("prices must be greater than zero")
	}
	if brand.MRP < brand.CostPrice {
		return nil, apperrors.Validation("MRP must be greater than or equal to cost price")
	}
	if brand.DefaultMarginPercent < 0 {
		return nil, apperrors.Validation("default margin percent cannot be negative")
	}

	if err := s.repo.Update(ctx, brand); err != nil {
		return nil, fmt.Errorf("update brand: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "brand updated",
		slog.String("user_id", userID),
		slog.String("brand_id", brand.ID))

	return brand, nil
}

// Delete deactivates a brand. Existing quote lines keep their snapshot of
// the brand name and prices.
func (s *BrandService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.SoftDelete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "brand deleted",
		slog.String("user_id", userID),
		slog.String("brand_id", id))

	return nil
}

// ImportCSV bulk-loads brands from a CSV stream. Rows that fail validation
// are counted and reported without aborting the rest of the file; rows whose
// brand name already exists are skipped.
func (s *BrandService) ImportCSV(ctx context.Context, userID string, r io.Reader) (*domain.BrandImportResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, apperrors.Validation("csv file is empty or unreadable")
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"Brand", "MRP", "CostPrice"} {
		if _, ok := col[name]; !ok {
			return nil, apperrors.Validation(fmt.Sprintf("missing required column %q", name))
		}
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	result := &domain.BrandImportResult{}
	var rowErrors []string

	for rowNum := 2; ; rowNum++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Failed++
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: malformed row", rowNum))
			continue
		}

		name := field(record, "Brand")
		if name == "" {
			result.Failed++
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: Brand name is required", rowNum))
			continue
		}

		mrp, errMRP := parseCSVNumber(field(record, "MRP"))
		cost, errCost := parseCSVNumber(field(record, "CostPrice"))
		margin, errMargin := parseCSVNumber(field(record, "DefaultMargin"))
		if errMRP != nil || errCost != nil || errMargin != nil {
			result.Failed++
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: invalid numeric value", rowNum))
			continue
		}
		if mrp <= 0 || cost <= 0 {
			result.Failed++
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: Prices must be > 0", rowNum))
			continue
		}
		if mrp < cost {
			result.Failed++
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: MRP must be >= Cost Price", rowNum))
			continue
		}

		if _, err := s.repo.GetByName(ctx, userID, name); err == nil {
			result.Skipped++
			continue
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("check existing brand: %w", err)
		}

		now := time.Now().UTC()
		brand := &domain.Brand{
			ID:                   uuid.New().String(),
			UserID:               userID,
			Name:                 name,
			Manufacturer:         field(record, "Manufacturer"),
			MRP:                  mrp,
			CostPrice:            cost,
			DefaultMarginPercent: margin,
			IsActive:             true,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		if err := s.repo.Create(ctx, brand); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("import brand: %w", err)
		}
		result.Imported++
	}

	result.Total = result.Imported + result.Failed + result.Skipped
	if len(rowErrors) > maxImportErrors {
		rowErrors = rowErrors[:maxImportErrors]
	}
	result.Errors = rowErrors

	if result.Imported > 0 {
		s.invalidateCaches(ctx, userID)
	}

	s.logger.InfoContext(ctx, "brand catalog imported",
		slog.String("user_id", userID),
		slog.Int("imported", result.Imported),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped))

	return result, nil
}

// ExportCSV streams the user's active catalog as CSV using the same column
// shape the importer accepts, so an export can be re-imported as-is.
func (s *BrandService) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	brands, err := s.repo.ListAllActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("list brands for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range brands {
		record := []string{
			b.Name,
			b.Manufacturer,
			formatCSVNumber(b.MRP),
			formatCSVNumber(b.CostPrice),
			formatCSVNumber(b.DefaultMarginPercent),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	s.logger.InfoContext(ctx, "brand catalog exported",
		slog.String("user_id", userID),
		slog.Int("count", len(brands)))

	return nil
}

// invalidateCaches drops every cached view derived from the catalog: brand
// lists, price calculations, analytics rollups and the dashboard.
func (s *BrandService) invalidateCaches(ctx context.Context, userID string) {
	prefixes := []string{
		cache.BrandListPrefix(userID),
		cache.PricingPrefix(userID),
		cache.AnalyticsPrefix(userID),
	}
	for _, prefix := range prefixes {
		if err := s.cache.DeleteByPrefix(ctx, prefix); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		}
	}
	if err := s.cache.Delete(ctx, cache.DashboardKey(userID)); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("key", cache.DashboardKey(userID)),
			slog.String("error", err.Error()))
	}
}

// clampLimit normalizes a requested page size into [1, maxPageSize].
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// parseCSVNumber parses an optional numeric CSV field; empty means zero.
func parseCSVNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatCSVNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
