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

const quoteColumns = `id, user_id, quote_number, customer_name, customer_email, customer_phone, customer_type_id,
		status, notes, quote_date, expiry_date, total_amount, total_margin, created_at, updated_at`

// quoteSortColumns whitelists the ORDER BY expressions for the list endpoint.
func quoteSortColumns() map[string]string {
	return map[string]string{
		"amount": "total_amount DESC",
		"status": "status ASC",
	}
}

// QuoteRepository implements repository.QuoteRepository using PostgreSQL.
type QuoteRepository struct {
	pool database.DBTX
}

// NewQuoteRepository creates a new PostgreSQL-backed quote repository.
func NewQuoteRepository(pool database.DBTX) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

// Create inserts a quote and its line items atomically within a transaction.
func (r *QuoteRepository) Create(ctx context.Context, q *domain.Quote) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	quoteQuery := `
		INSERT INTO quotes (id, user_id, quote_number, customer_name, customer_email, customer_phone, customer_type_id,
			status, notes, quote_date, expiry_date, total_amount, total_margin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, quoteQuery,
		q.ID,
		q.UserID,
		q.QuoteNumber,
		q.CustomerName,
		q.CustomerEmail,
		q.CustomerPhone,
		q.CustomerTypeID,
		q.Status,
		q.Notes,
		q.QuoteDate,
		q.ExpiryDate,
		q.TotalAmount,
		q.TotalMargin,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("quote", "quote_number", q.QuoteNumber)
		}
		return fmt.Errorf("insert quote: %w", err)
	}

	itemQuery := `
		INSERT INTO quote_line_items (id, quote_id, brand_id, quantity, unit_price, margin_percent, discount_percent, line_total, margin_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, item := range q.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID,
			item.QuoteID,
			item.BrandID,
			item.Quantity,
			item.UnitPrice,
			item.MarginPercent,
			item.DiscountPercent,
			item.LineTotal,
			item.MarginEarned,
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert quote line item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a quote with its line items, user-scoped.
func (r *QuoteRepository) GetByID(ctx context.Context, userID, id string) (*domain.Quote, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM quotes
		WHERE id = $1 AND user_id = $2`, quoteColumns)

	var q domain.Quote
	err := scanQuoteFields(r.pool.QueryRow(ctx, query, id, userID).Scan, &q)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan quote: %w", err)
	}

	items, err := r.loadQuoteItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	q.Items = items

	return &q, nil
}

// List returns quotes matching the filter with the total count. Line items
// are not loaded.
func (r *QuoteRepository) List(ctx context.Context, userID string, filter repository.QuoteFilter) (quotes []domain.Quote, totalCount int, err error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argIndex := 2

	if filter.Status != nil && *filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Customer != nil && *filter.Customer != "" {
		conditions = append(conditions, fmt.Sprintf("customer_name ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.Customer+"%")
		argIndex++
	}

	orderBy := pagination.SortColumn(filter.SortBy, quoteSortColumns(), "quote_date DESC")

	// Use count(*) OVER() for the total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM quotes
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		quoteColumns, strings.Join(conditions, " AND "), orderBy, argIndex, argIndex+1,
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

	ctx, end := database.TraceQuery(ctx, "ListQuotes", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	quotes = make([]domain.Quote, 0)

	for rows.Next() {
		var q domain.Quote
		if err := scanQuoteFields(rows.Scan, &q, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan quote row: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate quote rows: %w", err)
	}

	return quotes, totalCount, nil
}

// UpdateStatus changes the status of a quote.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, userID, id, status string) error {
	query := `
		UPDATE quotes
		SET status = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4`

	ct, err := r.pool.Exec(ctx, query, status, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("update quote status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("quote", id)
	}

	return nil
}

// Delete removes a quote and its line items atomically. Draft-only deletion
// is enforced in the service layer.
func (r *QuoteRepository) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM quote_line_items WHERE quote_id = $1`, id); err != nil {
		return fmt.Errorf("delete quote line items: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM quotes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("quote", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// loadQuoteItems retrieves all line items for a quote, joined with the brand
// name for display.
func (r *QuoteRepository) loadQuoteItems(ctx context.Context, quoteID string) ([]domain.QuoteLineItem, error) {
	query := `
		SELECT li.id, li.quote_id, li.brand_id, b.name, li.quantity, li.unit_price,
		       li.margin_percent, li.discount_percent, li.line_total, li.margin_earned, li.created_at
		FROM quote_line_items li
		JOIN brands b ON b.id = li.brand_id
		WHERE li.quote_id = $1
		ORDER BY li.created_at ASC, li.id ASC`

	rows, err := r.pool.Query(ctx, query, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query quote line items: %w", err)
	}
	defer rows.Close()

	var items []domain.QuoteLineItem
	for rows.Next() {
		var item domain.QuoteLineItem
		if err := rows.Scan(
			&item.ID,
			&item.QuoteID,
			&item.BrandID,
			&item.BrandName,
			&item.Quantity,
			&item.UnitPrice,
			&item.MarginPercent,
			&item.DiscountPercent,
			&item.LineTotal,
			&item.MarginEarned,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan quote line item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote line item rows: %w", err)
	}

	if items == nil {
		items = []domain.QuoteLineItem{}
	}

	return items, nil
}

// scanQuoteFields scans one quote row in column order, appending any extra
// scan targets (such as a window-function total) after the quote columns.
func scanQuoteFields(scan func(dest ...any) error, q *domain.Quote, extra ...any) error {
	dest := []any{
		&q.ID,
		&q.UserID,
		&q.QuoteNumber,
		&q.CustomerName,
		&q.CustomerEmail,
		&q.CustomerPhone,
		&q.CustomerTypeID,
		&q.Status,
		&q.Notes,
		&q.QuoteDate,
		&q.ExpiryDate,
		&q.TotalAmount,
		&q.TotalMargin,
		&q.CreatedAt,
		&q.UpdatedAt,
	}
	dest = append(dest, extra...)
	return scan(dest...)
}
