package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/pkg/database"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

// CustomerTypeRepository implements repository.CustomerTypeRepository using PostgreSQL.
type CustomerTypeRepository struct {
	pool database.DBTX
}

// NewCustomerTypeRepository creates a new PostgreSQL-backed customer type repository.
func NewCustomerTypeRepository(pool database.DBTX) *CustomerTypeRepository {
	return &CustomerTypeRepository{pool: pool}
}

// Create inserts a new customer type into the database.
func (r *CustomerTypeRepository) Create(ctx context.Context, ct *domain.CustomerType) error {
	query := `
		INSERT INTO customer_types (id, user_id, name, default_margin_percent, description, is_predefined, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		ct.ID,
		ct.UserID,
		ct.Name,
		ct.DefaultMarginPercent,
		ct.Description,
		ct.IsPredefined,
		ct.CreatedAt,
		ct.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("customer type", "name", ct.Name)
		}
		return fmt.Errorf("insert customer type: %w", err)
	}

	return nil
}

// GetByID retrieves a customer type owned by the user.
func (r *CustomerTypeRepository) GetByID(ctx context.Context, userID, id string) (*domain.CustomerType, error) {
	query := `
		SELECT id, user_id, name, default_margin_percent, description, is_predefined, created_at, updated_at
		FROM customer_types
		WHERE id = $1 AND user_id = $2`

	var ct domain.CustomerType
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&ct.ID,
		&ct.UserID,
		&ct.Name,
		&ct.DefaultMarginPercent,
		&ct.Description,
		&ct.IsPredefined,
		&ct.CreatedAt,
		&ct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan customer type: %w", err)
	}

	return &ct, nil
}

// List returns the user's customer types, predefined first then by name.
func (r *CustomerTypeRepository) List(ctx context.Context, userID string) ([]domain.CustomerType, error) {
	query := `
		SELECT id, user_id, name, default_margin_percent, description, is_predefined, created_at, updated_at
		FROM customer_types
		WHERE user_id = $1
		ORDER BY is_predefined DESC, name ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list customer types: %w", err)
	}
	defer rows.Close()

	var types []domain.CustomerType
	for rows.Next() {
		var ct domain.CustomerType
		if err := rows.Scan(
			&ct.ID,
			&ct.UserID,
			&ct.Name,
			&ct.DefaultMarginPercent,
			&ct.Description,
			&ct.IsPredefined,
			&ct.CreatedAt,
			&ct.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer type row: %w", err)
		}
		types = append(types, ct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer type rows: %w", err)
	}

	if types == nil {
		types = []domain.CustomerType{}
	}

	return types, nil
}

// Update modifies an existing customer type in the database.
func (r *CustomerTypeRepository) Update(ctx context.Context, ct *domain.CustomerType) error {
	ct.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE customer_types
		SET name = $1, default_margin_percent = $2, description = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6`

	res, err := r.pool.Exec(ctx, query,
		ct.Name,
		ct.DefaultMarginPercent,
		ct.Description,
		ct.UpdatedAt,
		ct.ID,
		ct.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("customer type", "name", ct.Name)
		}
		return fmt.Errorf("update customer type: %w", err)
	}

	if res.RowsAffected() == 0 {
		return apperrors.NotFound("customer type", ct.ID)
	}

	return nil
}

// Delete removes a customer type from the database. Predefined protection is
// enforced in the service layer before this is called.
func (r *CustomerTypeRepository) Delete(ctx context.Context, userID, id string) error {
	query := `DELETE FROM customer_types WHERE id = $1 AND user_id = $2`

	ct, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete customer type: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("customer type", id)
	}

	return nil
}

// SeedDefaults inserts the given types for the user, skipping any whose name
// already exists, so repeated signup-time seeding stays idempotent.
func (r *CustomerTypeRepository) SeedDefaults(ctx context.Context, userID string, types []domain.CustomerType) error {
	query := `
		INSERT INTO customer_types (id, user_id, name, default_margin_percent, description, is_predefined, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, name) DO NOTHING`

	for _, ct := range types {
		_, err := r.pool.Exec(ctx, query,
			ct.ID,
			userID,
			ct.Name,
			ct.DefaultMarginPercent,
			ct.Description,
			ct.IsPredefined,
			ct.CreatedAt,
			ct.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("seed customer type %q: %w", ct.Name, err)
		}
	}

	return nil
}
