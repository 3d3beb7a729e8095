package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/pkg/database"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

// PricingRuleRepository implements repository.PricingRuleRepository using PostgreSQL.
type PricingRuleRepository struct {
	pool database.DBTX
}

// NewPricingRuleRepository creates a new PostgreSQL-backed pricing rule repository.
func NewPricingRuleRepository(pool database.DBTX) *PricingRuleRepository {
	return &PricingRuleRepository{pool: pool}
}

// FindActiveRule returns the newest active rule for the brand and customer
// type whose validity window covers today.
func (r *PricingRuleRepository) FindActiveRule(ctx context.Context, userID, brandID, customerTypeID string) (*domain.PricingRule, error) {
	query := `
		SELECT id, user_id, brand_id, customer_type_id, margin_percent, fixed_sell_price, volume_discount_percent,
		       min_quantity, max_quantity, valid_from, valid_until, is_active, created_at, updated_at
		FROM pricing_rules
		WHERE user_id = $1 AND brand_id = $2 AND customer_type_id = $3 AND is_active
		  AND (valid_from IS NULL OR valid_from <= CURRENT_DATE)
		  AND (valid_until IS NULL OR valid_until >= CURRENT_DATE)
		ORDER BY created_at DESC
		LIMIT 1`

	var rule domain.PricingRule
	err := r.pool.QueryRow(ctx, query, userID, brandID, customerTypeID).Scan(
		&rule.ID,
		&rule.UserID,
		&rule.BrandID,
		&rule.CustomerTypeID,
		&rule.MarginPercent,
		&rule.FixedSellPrice,
		&rule.VolumeDiscountPercent,
		&rule.MinQuantity,
		&rule.MaxQuantity,
		&rule.ValidFrom,
		&rule.ValidUntil,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan pricing rule: %w", err)
	}

	return &rule, nil
}

// NPPARepository implements repository.NPPARepository using PostgreSQL.
type NPPARepository struct {
	pool database.DBTX
}

// NewNPPARepository creates a new PostgreSQL-backed NPPA reference repository.
func NewNPPARepository(pool database.DBTX) *NPPARepository {
	return &NPPARepository{pool: pool}
}

// GetByDrugName retrieves a reference row by drug name, case-insensitively.
func (r *NPPARepository) GetByDrugName(ctx context.Context, name string) (*domain.NPPADrug, error) {
	query := `
		SELECT id, drug_name, salt_name, strength, max_margin_percent, price_cap, created_at
		FROM nppa_controlled_drugs
		WHERE LOWER(drug_name) = LOWER($1)
		ORDER BY strength ASC
		LIMIT 1`

	var d domain.NPPADrug
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&d.ID,
		&d.DrugName,
		&d.SaltName,
		&d.Strength,
		&d.MaxMarginPercent,
		&d.PriceCap,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan nppa drug: %w", err)
	}

	return &d, nil
}
