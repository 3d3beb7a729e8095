package domain

import (
	"time"
)

// CustomerType represents a margin tier a distributor sells to. The four
// predefined types are seeded on signup and cannot be deleted.
type CustomerType struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	Name                 string    `json:"name"`
	DefaultMarginPercent float64   `json:"default_margin_percent"`
	Description          string    `json:"description,omitempty"`
	IsPredefined         bool      `json:"is_predefined"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultCustomerTypes returns the predefined margin tiers seeded for every
// new account.
func DefaultCustomerTypes() []CustomerType {
	return []CustomerType{
		{Name: "Hospital", DefaultMarginPercent: 15, Description: "Hospitals and nursing homes", IsPredefined: true},
		{Name: "Retail Pharmacy", DefaultMarginPercent: 12, Description: "Standalone retail chemists", IsPredefined: true},
		{Name: "Modern Trade", DefaultMarginPercent: 8, Description: "Pharmacy chains and supermarkets", IsPredefined: true},
		{Name: "Chemist Association", DefaultMarginPercent: 10, Description: "Association bulk purchases", IsPredefined: true},
	}
}
