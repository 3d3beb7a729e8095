package domain

import (
	"time"
)

// Quote status constants.
const (
	QuoteStatusDraft    = "draft"
	QuoteStatusSent     = "sent"
	QuoteStatusAccepted = "accepted"
	QuoteStatusRejected = "rejected"
	QuoteStatusExpired  = "expired"
)

// Quote represents a priced offer to a customer.
type Quote struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	QuoteNumber    string          `json:"quote_number"`
	CustomerName   string          `json:"customer_name"`
	CustomerEmail  string          `json:"customer_email,omitempty"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	CustomerTypeID *string         `json:"customer_type_id,omitempty"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	QuoteDate      time.Time       `json:"quote_date"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	TotalAmount    float64         `json:"total_amount"`
	TotalMargin    float64         `json:"total_margin"`
	Items          []QuoteLineItem `json:"items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// QuoteLineItem represents one priced brand line on a quote.
type QuoteLineItem struct {
	ID              string    `json:"id"`
	QuoteID         string    `json:"quote_id"`
	BrandID         string    `json:"brand_id"`
	BrandName       string    `json:"brand_name,omitempty"`
	Quantity        int       `json:"quantity"`
	UnitPrice       float64   `json:"unit_price"`
	MarginPercent   float64   `json:"margin_percent"`
	DiscountPercent float64   `json:"discount_percent"`
	LineTotal       float64   `json:"line_total"`
	MarginEarned    float64   `json:"margin_earned"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsDraft returns true while the quote may still be deleted.
func (q *Quote) IsDraft() bool {
	return q.Status == QuoteStatusDraft
}

// ValidQuoteStatuses returns the set of valid quote statuses.
func ValidQuoteStatuses() []string {
	return []string{QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired}
}

// IsValidQuoteStatus checks whether the given status is a valid quote status.
func IsValidQuoteStatus(status string) bool {
	for _, s := range ValidQuoteStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
