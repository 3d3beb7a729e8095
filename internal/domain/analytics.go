package domain

import (
	"time"
)

// Revenue trend range keys.
const (
	RangeToday  = "today"
	RangeWeek   = "week"
	RangeMonth  = "month"
	RangeLast30 = "last_30"
	RangeLast90 = "last_90"
	RangeYear   = "year"
	RangeCustom = "custom"
)

// ValidRanges returns the named date ranges the revenue trend accepts.
func ValidRanges() []string {
	return []string{RangeToday, RangeWeek, RangeMonth, RangeLast30, RangeLast90, RangeYear, RangeCustom}
}

// IsValidRange checks whether the given range key is accepted. The empty
// string selects the default (last 30 days).
func IsValidRange(r string) bool {
	if r == "" {
		return true
	}
	for _, v := range ValidRanges() {
		if v == r {
			return true
		}
	}
	return false
}

// DashboardMetrics is the headline rollup shown on the home screen.
type DashboardMetrics struct {
	TotalRevenue     float64        `json:"total_revenue"`
	TotalQuotes      int            `json:"total_quotes"`
	TotalMargin      float64        `json:"total_margin"`
	QuotesLast30Days int            `json:"quotes_last_30_days"`
	AvgQuoteValue    float64        `json:"avg_quote_value"`
	ConversionRate   float64        `json:"conversion_rate"`
	ActiveBrands     int            `json:"active_brands"`
	PendingQuotes    int            `json:"pending_quotes"`
	ExpiredQuotes    int            `json:"expired_quotes"`
	StatusBreakdown  map[string]int `json:"status_breakdown"`
}

// RevenueTrendPoint is one daily bucket of the revenue trend.
type RevenueTrendPoint struct {
	Date       time.Time `json:"date"`
	Revenue    float64   `json:"revenue"`
	Margin     float64   `json:"margin"`
	QuoteCount int       `json:"quote_count"`
}

// RevenueTrend is the trend series for a resolved date range.
type RevenueTrend struct {
	Range  string              `json:"range"`
	From   time.Time           `json:"from"`
	To     time.Time           `json:"to"`
	Points []RevenueTrendPoint `json:"points"`
}

// StatusMetric is the rollup for a single quote status.
type StatusMetric struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Value  float64 `json:"value"`
	Margin float64 `json:"margin"`
}

// QuoteMetrics is the per-status quote rollup.
type QuoteMetrics struct {
	ByStatus       []StatusMetric `json:"by_status"`
	TotalCount     int            `json:"total_count"`
	TotalValue     float64        `json:"total_value"`
	TotalMargin    float64        `json:"total_margin"`
	ConversionRate float64        `json:"conversion_rate"`
}

// BrandRank is one entry of a top-brands ranking.
type BrandRank struct {
	BrandID       string  `json:"brand_id"`
	BrandName     string  `json:"brand_name"`
	Revenue       float64 `json:"revenue"`
	MarginPercent float64 `json:"margin_percent"`
	QuotedCount   int     `json:"quoted_count"`
}

// BrandMetrics is the catalog rollup.
type BrandMetrics struct {
	TotalBrands    int         `json:"total_brands"`
	ActiveBrands   int         `json:"active_brands"`
	NPPAControlled int         `json:"nppa_controlled"`
	TopByRevenue   []BrandRank `json:"top_by_revenue"`
	TopByMargin    []BrandRank `json:"top_by_margin"`
}

// CustomerTypeMetric is the quote rollup for one customer type.
type CustomerTypeMetric struct {
	CustomerTypeID   string  `json:"customer_type_id"`
	CustomerTypeName string  `json:"customer_type_name"`
	QuoteCount       int     `json:"quote_count"`
	TotalValue       float64 `json:"total_value"`
}

// CustomerMetrics is the customer-side rollup.
type CustomerMetrics struct {
	ByType          []CustomerTypeMetric `json:"by_type"`
	AvgOrderValue   float64              `json:"avg_order_value"`
	RepeatCustomers int                  `json:"repeat_customers"`
}
