package domain

import (
	"time"
)

// PricingRule overrides the default margin for a brand when quoting a
// specific customer type. A fixed sell price takes precedence over the margin
// percent. The volume discount applies when the quoted quantity falls inside
// the [MinQuantity, MaxQuantity] window.
type PricingRule struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	BrandID               string     `json:"brand_id"`
	CustomerTypeID        string     `json:"customer_type_id"`
	MarginPercent         *float64   `json:"margin_percent,omitempty"`
	FixedSellPrice        *float64   `json:"fixed_sell_price,omitempty"`
	VolumeDiscountPercent *float64   `json:"volume_discount_percent,omitempty"`
	MinQuantity           *int       `json:"min_quantity,omitempty"`
	MaxQuantity           *int       `json:"max_quantity,omitempty"`
	ValidFrom             *time.Time `json:"valid_from,omitempty"`
	ValidUntil            *time.Time `json:"valid_until,omitempty"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// AppliesTo reports whether the rule's volume discount window covers the
// given quantity. An unset MaxQuantity leaves the window open-ended.
func (r *PricingRule) AppliesTo(quantity int) bool {
	if r.VolumeDiscountPercent == nil || r.MinQuantity == nil {
		return false
	}
	if quantity < *r.MinQuantity {
		return false
	}
	if r.MaxQuantity != nil && quantity > *r.MaxQuantity {
		return false
	}
	return true
}

// PriceCalculation holds the unit economics the pricing engine produces for
// one brand, customer type, and quantity.
type PriceCalculation struct {
	BrandID               string   `json:"brand_id"`
	BrandName             string   `json:"brand_name"`
	Quantity              int      `json:"quantity"`
	CostPrice             float64  `json:"cost_price"`
	MRP                   float64  `json:"mrp"`
	UnitPrice             float64  `json:"unit_price"`
	MarginPercent         float64  `json:"margin_percent"`
	MarginPerUnit         float64  `json:"margin_per_unit"`
	TotalPrice            float64  `json:"total_price"`
	TotalMargin           float64  `json:"total_margin"`
	VolumeDiscountApplied bool     `json:"volume_discount_applied"`
	VolumeDiscountPercent float64  `json:"volume_discount_percent,omitempty"`
	IsNPPAControlled      bool     `json:"is_nppa_controlled"`
	NPPACompliant         bool     `json:"nppa_compliant"`
	NPPAMarginLimit       *float64 `json:"nppa_margin_limit,omitempty"`
	NPPAMessage           string   `json:"nppa_message,omitempty"`
}

// ComplianceResult is the verdict of an NPPA margin check against a proposed
// sell price.
type ComplianceResult struct {
	BrandID          string   `json:"brand_id"`
	BrandName        string   `json:"brand_name"`
	IsNPPAControlled bool     `json:"is_nppa_controlled"`
	Compliant        bool     `json:"compliant"`
	MarginPercent    float64  `json:"margin_percent"`
	MarginLimit      *float64 `json:"margin_limit,omitempty"`
	Message          string   `json:"message"`
}

// NPPADrug is a reference row for a government price-controlled formulation.
type NPPADrug struct {
	ID               string    `json:"id"`
	DrugName         string    `json:"drug_name"`
	SaltName         string    `json:"salt_name,omitempty"`
	Strength         string    `json:"strength,omitempty"`
	MaxMarginPercent float64   `json:"max_margin_percent"`
	PriceCap         *float64  `json:"price_cap,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
