package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/pkg/database"
)

// topBrandLimit caps how many brands the ranking queries return.
const topBrandLimit = 5

// AnalyticsRepository implements repository.AnalyticsRepository using
// PostgreSQL aggregate queries. All rollups are scoped to one user.
type AnalyticsRepository struct {
	pool database.DBTX
}

// NewAnalyticsRepository creates a new PostgreSQL-backed analytics repository.
func NewAnalyticsRepository(pool database.DBTX) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// Dashboard computes the headline metrics. Revenue and margin come from
// accepted quotes only; counts cover every status.
func (r *AnalyticsRepository) Dashboard(ctx context.Context, userID string) (*domain.DashboardMetrics, error) {
	byStatus, err := r.statusRollup(ctx, userID)
	if err != nil {
		return nil, err
	}

	m := &domain.DashboardMetrics{
		StatusBreakdown: make(map[string]int, len(byStatus)),
	}

	var totalValue float64
	var acceptedCount int
	for _, s := range byStatus {
		m.TotalQuotes += s.Count
		m.StatusBreakdown[s.Status] = s.Count
		totalValue += s.Value

		switch s.Status {
		case domain.QuoteStatusAccepted:
			acceptedCount = s.Count
			m.TotalRevenue = s.Value
			m.TotalMargin = s.Margin
		case domain.QuoteStatusDraft, domain.QuoteStatusSent:
			m.PendingQuotes += s.Count
		case domain.QuoteStatusExpired:
			m.ExpiredQuotes = s.Count
		}
	}

	if m.TotalQuotes > 0 {
		m.AvgQuoteValue = totalValue / float64(m.TotalQuotes)
		m.ConversionRate = float64(acceptedCount) / float64(m.TotalQuotes) * 100
	}

	recentQuery := `
		SELECT count(*)
		FROM quotes
		WHERE user_id = $1 AND quote_date >= NOW() - INTERVAL '30 days'`

	if err := r.pool.QueryRow(ctx, recentQuery, userID).Scan(&m.QuotesLast30Days); err != nil {
		return nil, fmt.Errorf("count recent quotes: %w", err)
	}

	brandsQuery := `
		SELECT count(*)
		FROM brands
		WHERE user_id = $1 AND is_active`

	if err := r.pool.QueryRow(ctx, brandsQuery, userID).Scan(&m.ActiveBrands); err != nil {
		return nil, fmt.Errorf("count active brands: %w", err)
	}

	return m, nil
}

// RevenueTrend buckets quoted value by calendar day over [from, to].
func (r *AnalyticsRepository) RevenueTrend(ctx context.Context, userID string, from, to time.Time) (points []domain.RevenueTrendPoint, err error) {
	query := `
		SELECT DATE(quote_date) AS day,
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_margin), 0),
		       count(*)
		FROM quotes
		WHERE user_id = $1 AND quote_date >= $2 AND quote_date <= $3
		GROUP BY day
		ORDER BY day ASC`

	ctx, end := database.TraceQuery(ctx, "RevenueTrend", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query revenue trend: %w", err)
	}
	defer rows.Close()

	points = make([]domain.RevenueTrendPoint, 0)
	for rows.Next() {
		var p domain.RevenueTrendPoint
		if err := rows.Scan(&p.Date, &p.Revenue, &p.Margin, &p.QuoteCount); err != nil {
			return nil, fmt.Errorf("scan revenue trend row: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue trend rows: %w", err)
	}

	return points, nil
}

// QuoteMetrics rolls quotes up by status.
func (r *AnalyticsRepository) QuoteMetrics(ctx context.Context, userID string) (*domain.QuoteMetrics, error) {
	byStatus, err := r.statusRollup(ctx, userID)
	if err != nil {
		return nil, err
	}

	m := &domain.QuoteMetrics{ByStatus: byStatus}

	var acceptedCount int
	for _, s := range byStatus {
		m.TotalCount += s.Count
		m.TotalValue += s.Value
		m.TotalMargin += s.Margin
		if s.Status == domain.QuoteStatusAccepted {
			acceptedCount = s.Count
		}
	}

	if m.TotalCount > 0 {
		m.ConversionRate = float64(acceptedCount) / float64(m.TotalCount) * 100
	}

	return m, nil
}

// BrandMetrics rolls the catalog up and ranks brands by the value of the
// quote line items that reference them.
func (r *AnalyticsRepository) BrandMetrics(ctx context.Context, userID string) (*domain.BrandMetrics, error) {
	countQuery := `
		SELECT count(*),
		       count(*) FILTER (WHERE is_active),
		       count(*) FILTER (WHERE is_active AND is_nppa_controlled)
		FROM brands
		WHERE user_id = $1`

	m := &domain.BrandMetrics{}
	err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&m.TotalBrands, &m.ActiveBrands, &m.NPPAControlled)
	if err != nil {
		return nil, fmt.Errorf("count brands: %w", err)
	}

	m.TopByRevenue, err = r.topBrands(ctx, userID, "revenue DESC")
	if err != nil {
		return nil, err
	}

	m.TopByMargin, err = r.topBrands(ctx, userID, "margin_percent DESC")
	if err != nil {
		return nil, err
	}

	return m, nil
}

// CustomerMetrics rolls quotes up by customer type. Types with no quotes
// still appear with zero counts.
func (r *AnalyticsRepository) CustomerMetrics(ctx context.Context, userID string) (*domain.CustomerMetrics, error) {
	byTypeQuery := `
		SELECT ct.id, ct.name, count(q.id), COALESCE(SUM(q.total_amount), 0)
		FROM customer_types ct
		LEFT JOIN quotes q ON q.customer_type_id = ct.id AND q.user_id = ct.user_id
		WHERE ct.user_id = $1
		GROUP BY ct.id, ct.name
		ORDER BY COALESCE(SUM(q.total_amount), 0) DESC, ct.name ASC`

	rows, err := r.pool.Query(ctx, byTypeQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query customer type rollup: %w", err)
	}
	defer rows.Close()

	m := &domain.CustomerMetrics{ByType: make([]domain.CustomerTypeMetric, 0)}
	for rows.Next() {
		var t domain.CustomerTypeMetric
		if err := rows.Scan(&t.CustomerTypeID, &t.CustomerTypeName, &t.QuoteCount, &t.TotalValue); err != nil {
			return nil, fmt.Errorf("scan customer type row: %w", err)
		}
		m.ByType = append(m.ByType, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer type rows: %w", err)
	}

	avgQuery := `
		SELECT COALESCE(AVG(total_amount), 0)
		FROM quotes
		WHERE user_id = $1 AND status = $2`

	if err := r.pool.QueryRow(ctx, avgQuery, userID, domain.QuoteStatusAccepted).Scan(&m.AvgOrderValue); err != nil {
		return nil, fmt.Errorf("average accepted quote value: %w", err)
	}

	repeatQuery := `
		SELECT count(*)
		FROM (
			SELECT customer_name
			FROM quotes
			WHERE user_id = $1
			GROUP BY customer_name
			HAVING count(*) > 1
		) repeats`

	if err := r.pool.QueryRow(ctx, repeatQuery, userID).Scan(&m.RepeatCustomers); err != nil {
		return nil, fmt.Errorf("count repeat customers: %w", err)
	}

	return m, nil
}

// statusRollup aggregates count, value and margin per quote status.
func (r *AnalyticsRepository) statusRollup(ctx context.Context, userID string) (metrics []domain.StatusMetric, err error) {
	query := `
		SELECT status, count(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(total_margin), 0)
		FROM quotes
		WHERE user_id = $1
		GROUP BY status
		ORDER BY status ASC`

	ctx, end := database.TraceQuery(ctx, "QuoteStatusRollup", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query status rollup: %w", err)
	}
	defer rows.Close()

	metrics = make([]domain.StatusMetric, 0)
	for rows.Next() {
		var s domain.StatusMetric
		if err := rows.Scan(&s.Status, &s.Count, &s.Value, &s.Margin); err != nil {
			return nil, fmt.Errorf("scan status rollup row: %w", err)
		}
		metrics = append(metrics, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rollup rows: %w", err)
	}

	return metrics, nil
}

// topBrands ranks brands by aggregated line item value. Brands are joined
// through quote_line_items so only quoted brands rank.
func (r *AnalyticsRepository) topBrands(ctx context.Context, userID, orderBy string) (ranks []domain.BrandRank, err error) {
	query := fmt.Sprintf(`
		SELECT b.id, b.name,
		       COALESCE(SUM(li.line_total), 0) AS revenue,
		       CASE WHEN SUM(li.line_total) > 0
		            THEN SUM(li.margin_earned) / SUM(li.line_total) * 100
		            ELSE 0 END AS margin_percent,
		       count(DISTINCT li.quote_id) AS quoted_count
		FROM brands b
		JOIN quote_line_items li ON li.brand_id = b.id
		JOIN quotes q ON q.id = li.quote_id
		WHERE q.user_id = $1
		GROUP BY b.id, b.name
		ORDER BY %s
		LIMIT $2`, orderBy)

	ctx, end := database.TraceQuery(ctx, "TopBrands", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID, topBrandLimit)
	if err != nil {
		return nil, fmt.Errorf("query top brands: %w", err)
	}
	defer rows.Close()

	ranks = make([]domain.BrandRank, 0)
	for rows.Next() {
		var b domain.BrandRank
		if err := rows.Scan(&b.BrandID, &b.BrandName, &b.Revenue, &b.MarginPercent, &b.QuotedCount); err != nil {
			return nil, fmt.Errorf("scan top brand row: %w", err)
		}
		ranks = append(ranks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top brand rows: %w", err)
	}

	return ranks, nil
}
