package domain

import (
	"time"
)

// Brand sort keys accepted by the list endpoint.
const (
	SortByName   = "name"
	SortByMRP    = "mrp"
	SortByMargin = "margin"
)

// Brand represents a pharma brand in a distributor's catalog. Prices are in
// rupees; margin fields are percentages.
type Brand struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	Name                 string    `json:"name"`
	Manufacturer         string    `json:"manufacturer,omitempty"`
	MRP                  float64   `json:"mrp"`
	CostPrice            float64   `json:"cost_price"`
	CurrentSellPrice     *float64  `json:"current_sell_price,omitempty"`
	DefaultMarginPercent float64   `json:"default_margin_percent"`
	Category             string    `json:"category,omitempty"`
	IsNPPAControlled     bool      `json:"is_nppa_controlled"`
	NPPAMarginLimit      *float64  `json:"nppa_margin_limit,omitempty"`
	SaltName             string    `json:"salt_name,omitempty"`
	Strength             string    `json:"strength,omitempty"`
	Packing              string    `json:"packing,omitempty"`
	GTINCode             string    `json:"gtin_code,omitempty"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ValidSortByValues returns the sort keys accepted by the brand list endpoint.
func ValidSortByValues() []string {
	return []string{SortByName, SortByMRP, SortByMargin}
}

// IsValidSortBy checks whether the given sort key is accepted. The empty
// string selects the default ordering (newest first).
func IsValidSortBy(sortBy string) bool {
	if sortBy == "" {
		return true
	}
	for _, v := range ValidSortByValues() {
		if v == sortBy {
			return true
		}
	}
	return false
}

// BrandImportResult summarizes a CSV catalog import.
type BrandImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Skipped  int      `json:"skipped"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors,omitempty"`
}
