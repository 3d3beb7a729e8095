package cache

import (
	"fmt"
	"time"
)

// TTLs per key family. Volatile rollups expire fast; near-static reference
// data is held longer.
const (
	TTLDashboard     = 5 * time.Minute
	TTLBrands        = 10 * time.Minute
	TTLQuotes        = 5 * time.Minute
	TTLAnalytics     = 15 * time.Minute
	TTLCustomerTypes = time.Hour
	TTLPricing       = 10 * time.Minute
	TTLProfile       = 30 * time.Minute
)

// ProfileKey caches one user's profile document.
func ProfileKey(userID string) string {
	return "profile:user_" + userID
}

// DashboardKey caches the headline dashboard rollup.
func DashboardKey(userID string) string {
	return "dashboard:user_" + userID
}

// BrandListKey caches one page of the brand listing. Every filter knob is part
// of the key so distinct pages never collide.
func BrandListKey(userID, search, sortBy string, limit, offset int) string {
	return fmt.Sprintf("brands:user_%s:search_%s:sort_%s:limit_%d:offset_%d", userID, search, sortBy, limit, offset)
}

// BrandListPrefix matches every cached brand page for the user.
func BrandListPrefix(userID string) string {
	return "brands:user_" + userID + ":"
}

// CustomerTypesKey caches the user's customer type listing.
func CustomerTypesKey(userID string) string {
	return "customer_types:user_" + userID
}

// QuoteListKey caches one page of the quote listing.
func QuoteListKey(userID, status, customer, sortBy string, limit, offset int) string {
	return fmt.Sprintf("quotes:user_%s:status_%s:customer_%s:sort_%s:limit_%d:offset_%d", userID, status, customer, sortBy, limit, offset)
}

// QuoteListPrefix matches every cached quote page for the user.
func QuoteListPrefix(userID string) string {
	return "quotes:user_" + userID + ":"
}

// PricingKey caches one pricing engine result.
func PricingKey(userID, brandID, customerTypeID string, quantity int) string {
	return fmt.Sprintf("pricing:user_%s:brand_%s:ct_%s:qty_%d", userID, brandID, customerTypeID, quantity)
}

// PricingPrefix matches every cached pricing result for the user.
func PricingPrefix(userID string) string {
	return "pricing:user_" + userID + ":"
}

// AnalyticsKey caches one analytics section; section distinguishes the
// endpoint (revenue, quotes, brands, customers) and qualifier carries any
// range parameters.
func AnalyticsKey(userID, section, qualifier string) string {
	if qualifier == "" {
		return fmt.Sprintf("analytics:user_%s:%s", userID, section)
	}
	return fmt.Sprintf("analytics:user_%s:%s:%s", userID, section, qualifier)
}

// AnalyticsPrefix matches every cached analytics section for the user.
func AnalyticsPrefix(userID string) string {
	return "analytics:user_" + userID + ":"
}
