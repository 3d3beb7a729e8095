package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/internal/repository"
	"github.com/Sagar7057/pharma-backend/pkg/database"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
	"github.com/Sagar7057/pharma-backend/pkg/pagination"
)

const brandColumns = `id, user_id, name, manufacturer, mrp, cost_price, current_sell_price, default_margin_percent,
		category, is_nppa_controlled, nppa_margin_limit, salt_name, strength, packing, gtin_code, is_active, created_at, updated_at`

// brandSortColumns whitelists the ORDER BY expressions for the list endpoint.
func brandSortColumns() map[string]string {
	return map[string]string{
		domain.SortByName:   "name ASC",
		domain.SortByMRP:    "mrp DESC",
		domain.SortByMargin: "default_margin_percent DESC",
	}
}

// BrandRepository implements repository.BrandRepository using PostgreSQL.
type BrandRepository struct {
	pool database.DBTX
}

// NewBrandRepository creates a new PostgreSQL-backed brand repository.
func NewBrandRepository(pool database.DBTX) *BrandRepository {
	return &BrandRepository{pool: pool}
}

// Create inserts a new brand into the database.
func (r *BrandRepository) Create(ctx context.Context, b *domain.Brand) error {
	query := `
		INSERT INTO brands (id, user_id, name, manufacturer, mrp, cost_price, current_sell_price, default_margin_percent,
			category, is_nppa_controlled, nppa_margin_limit, salt_name, strength, packing, gtin_code, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.UserID,
		b.Name,
		b.Manufacturer,
		b.MRP,
		b.CostPrice,
		b.CurrentSellPrice,
		b.DefaultMarginPercent,
		b.Category,
		b.IsNPPAControlled,
		b.NPPAMarginLimit,
		b.SaltName,
		b.Strength,
		b.Packing,
		b.GTINCode,
		b.IsActive,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("brand", "name", b.Name)
		}
		return fmt.Errorf("insert brand: %w", err)
	}

	return nil
}

// GetByID retrieves an active brand owned by the user.
func (r *BrandRepository) GetByID(ctx context.Context, userID, id string) (*domain.Brand, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM brands
		WHERE id = $1 AND user_id = $2 AND is_active`, brandColumns)

	return r.scanBrand(ctx, query, id, userID)
}

// GetByName retrieves an active brand owned by the user by exact name.
func (r *BrandRepository) GetByName(ctx context.Context, userID, name string) (*domain.Brand, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM brands
		WHERE user_id = $1 AND name = $2 AND is_active`, brandColumns)

	return r.scanBrand(ctx, query, userID, name)
}

// List returns active brands matching the filter with the total count.
func (r *BrandRepository) List(ctx context.Context, userID string, filter repository.BrandFilter) (brands []domain.Brand, totalCount int, err error) {
	conditions := []string{"user_id = $1", "is_active"}
	args := []any{userID}
	argIndex := 2

	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	orderBy := pagination.SortColumn(filter.SortBy, brandSortColumns(), "created_at DESC")

	// Use count(*) OVER() for the total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM brands
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		brandColumns, strings.Join(conditions, " AND "), orderBy, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "ListBrands", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	brands = make([]domain.Brand, 0)

	for rows.Next() {
		var b domain.Brand
		if err := scanBrandFields(rows.Scan, &b, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan brand row: %w", err)
		}
		brands = append(brands, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate brand rows: %w", err)
	}

	return brands, totalCount, nil
}

// ListAllActive returns every active brand for the user, ordered by name.
func (r *BrandRepository) ListAllActive(ctx context.Context, userID string) ([]domain.Brand, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM brands
		WHERE user_id = $1 AND is_active
		ORDER BY name ASC`, brandColumns)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list all brands: %w", err)
	}
	defer rows.Close()

	var brands []domain.Brand
	for rows.Next() {
		var b domain.Brand
		if err := scanBrandFields(rows.Scan, &b); err != nil {
			return nil, fmt.Errorf("scan brand row: %w", err)
		}
		brands = append(brands, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brand rows: %w", err)
	}

	if brands == nil {
		brands = []domain.Brand{}
	}

	return brands, nil
}

// Update modifies an existing brand in the database.
func (r *BrandRepository) Update(ctx context.Context, b *domain.Brand) error {
	b.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE brands
		SET name = $1, manufacturer = $2, mrp = $3, cost_price = $4, current_sell_price = $5,
		    default_margin_percent = $6, category = $7, is_nppa_controlled = $8, nppa_margin_limit = $9,
		    salt_name = $10, strength = $11, packing = $12, gtin_code = $13, updated_at = $14
		WHERE id = $15 AND user_id = $16 AND is_active`

	ct, err := r.pool.Exec(ctx, query,
		b.Name,
		b.Manufacturer,
		b.MRP,
		b.CostPrice,
		b.CurrentSellPrice,
		b.DefaultMarginPercent,
		b.Category,
		b.IsNPPAControlled,
		b.NPPAMarginLimit,
		b.SaltName,
		b.Strength,
		b.Packing,
		b.GTINCode,
		b.UpdatedAt,
		b.ID,
		b.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("brand", "name", b.Name)
		}
		return fmt.Errorf("update brand: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("brand", b.ID)
	}

	return nil
}

// SoftDelete deactivates a brand without removing its row, so historical
// quote line items keep resolving.
func (r *BrandRepository) SoftDelete(ctx context.Context, userID, id string) error {
	query := `
		UPDATE brands
		SET is_active = false, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND is_active`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("soft delete brand: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("brand", id)
	}

	return nil
}

// scanBrand is a helper that executes a query expected to return a single brand row.
func (r *BrandRepository) scanBrand(ctx context.Context, query string, args ...any) (*domain.Brand, error) {
	var b domain.Brand

	err := scanBrandFields(r.pool.QueryRow(ctx, query, args...).Scan, &b)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan brand: %w", err)
	}

	return &b, nil
}

// scanBrandFields scans one brand row in column order, appending any extra
// scan targets (such as a window-function total) after the brand columns.
func scanBrandFields(scan func(dest ...any) error, b *domain.Brand, extra ...any) error {
	dest := []any{
		&b.ID,
		&b.UserID,
		&b.Name,
		&b.Manufacturer,
		&b.MRP,
		&b.CostPrice,
		&b.CurrentSellPrice,
		&b.DefaultMarginPercent,
		&b.Category,
		&b.IsNPPAControlled,
		&b.NPPAMarginLimit,
		&b.SaltName,
		&b.Strength,
		&b.Packing,
		&b.GTINCode,
		&b.IsActive,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}
