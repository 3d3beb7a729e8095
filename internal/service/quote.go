package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Sagar7057/pharma-backend/internal/cache"
	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/internal/event"
	"github.com/Sagar7057/pharma-backend/internal/mailer"
	"github.com/Sagar7057/pharma-backend/internal/repository"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

const (
	defaultValidityDays = 30

	// quoteNumberAttempts bounds retries when a generated quote number
	// collides with an existing one.
	quoteNumberAttempts = 3

	quoteNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// QuoteService creates, lists and dispatches customer quotes.
type QuoteService struct {
	quoteRepo repository.QuoteRepository
	brandRepo repository.BrandRepository
	userRepo  repository.UserRepository
	mailer    mailer.Mailer
	cache     *cache.Cache
	producer  *event.Producer
	logger    *slog.Logger
}

// NewQuoteService creates a new quote service.
func NewQuoteService(
	quoteRepo repository.QuoteRepository,
	brandRepo repository.BrandRepository,
	userRepo repository.UserRepository,
	m mailer.Mailer,
	c *cache.Cache,
	producer *event.Producer,
	logger *slog.Logger,
) *QuoteService {
	return &QuoteService{
		quoteRepo: quoteRepo,
		brandRepo: brandRepo,
		userRepo:  userRepo,
		mailer:    m,
		cache:     c,
		producer:  producer,
		logger:    logger,
	}
}

// QuoteLineItemInput describes one requested line. An explicit unit price
// wins over a margin percent; with neither, the brand's MRP is used.
type QuoteLineItemInput struct {
	BrandID         string
	Quantity        int
	UnitPrice       *float64
	MarginPercent   *float64
	DiscountPercent float64
}

// CreateQuoteInput contains the fields for creating a quote.
type CreateQuoteInput struct {
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	CustomerTypeID *string
	Notes          string
	ValidityDays   int
	Items          []QuoteLineItemInput
}

// ListQuotesInput carries the filter, sort and pagination parameters for
// listing quotes.
type ListQuotesInput struct {
	Status   string
	Customer string
	SortBy   string
	Limit    int
	Offset   int
}

// QuoteList is a page of quotes with pagination metadata.
type QuoteList struct {
	Quotes  []domain.Quote `json:"quotes"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// Create prices the requested lines against the catalog and stores the quote
// as a draft.
func (s *QuoteService) Create(ctx context.Context, userID string, input CreateQuoteInput) (*domain.Quote, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, apperrors.InvalidInput("customer name is required")
	}
	if len(input.Items) == 0 {
		return nil, apperrors.Validation("at least one line item is required")
	}

	validityDays := input.ValidityDays
	if validityDays <= 0 {
		validityDays = defaultValidityDays
	}

	now := time.Now().UTC()
	expiry := now.AddDate(0, 0, validityDays)

	quote := &domain.Quote{
		ID:             uuid.New().String(),
		UserID:         userID,
		QuoteNumber:    generateQuoteNumber(userID, now),
		CustomerName:   strings.TrimSpace(input.CustomerName),
		CustomerEmail:  strings.TrimSpace(input.CustomerEmail),
		CustomerPhone:  strings.TrimSpace(input.CustomerPhone),
		CustomerTypeID: input.CustomerTypeID,
		Status:         domain.QuoteStatusDraft,
		Notes:          input.Notes,
		QuoteDate:      now,
		ExpiryDate:     &expiry,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var totalAmount, totalMargin float64
	for i, item := range input.Items {
		if item.BrandID == "" {
			return nil, apperrors.Validation(fmt.Sprintf("line %d: brand id is required", i+1))
		}
		if item.Quantity < 1 {
			return nil, apperrors.Validation(fmt.Sprintf("line %d: quantity must be at least 1", i+1))
		}
		if item.DiscountPercent < 0 || item.DiscountPercent > 100 {
			return nil, apperrors.Validation(fmt.Sprintf("line %d: discount percent must be between 0 and 100", i+1))
		}

		brand, err := s.brandRepo.GetByID(ctx, userID, item.BrandID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Validation(fmt.Sprintf("line %d: brand %s not found in catalog", i+1, item.BrandID))
			}
			return nil, fmt.Errorf("load brand: %w", err)
		}

		cost := brand.CostPrice
		var unitPrice float64
		switch {
		case item.UnitPrice != nil && *item.UnitPrice > 0:
			unitPrice = *item.UnitPrice
		case item.MarginPercent != nil:
			unitPrice = cost * (1 + *item.MarginPercent/100)
			if unitPrice > brand.MRP {
				unitPrice = brand.MRP
			}
		default:
			unitPrice = brand.MRP
		}

		// The discount is baked into the stored unit price.
		if item.DiscountPercent > 0 {
			unitPrice *= 1 - item.DiscountPercent/100
		}

		marginPerUnit := unitPrice - cost
		actualMargin := 0.0
		if cost > 0 {
			actualMargin = marginPerUnit / cost * 100
		}

		line := domain.QuoteLineItem{
			ID:              uuid.New().String(),
			QuoteID:         quote.ID,
			BrandID:         brand.ID,
			BrandName:       brand.Name,
			Quantity:        item.Quantity,
			UnitPrice:       round2(unitPrice),
			MarginPercent:   round2(actualMargin),
			DiscountPercent: item.DiscountPercent,
			LineTotal:       round2(unitPrice * float64(item.Quantity)),
			MarginEarned:    round2(marginPerUnit * float64(item.Quantity)),
			CreatedAt:       now,
		}
		quote.Items = append(quote.Items, line)

		totalAmount += line.LineTotal
		totalMargin += line.MarginEarned
	}

	quote.TotalAmount = round2(totalAmount)
	quote.TotalMargin = round2(totalMargin)

	for attempt := 1; ; attempt++ {
		err := s.quoteRepo.Create(ctx, quote)
		if err == nil {
			break
		}
		if errors.Is(err, apperrors.ErrAlreadyExists) && attempt < quoteNumberAttempts {
			quote.QuoteNumber = generateQuoteNumber(userID, now)
			continue
		}
		return nil, fmt.Errorf("create quote: %w", err)
	}

	// Publish quote created event (non-blocking on failure).
	if err := s.producer.PublishQuoteCreated(ctx, quote); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish quote created event",
			slog.String("quote_id", quote.ID),
			slog.String("error", err.Error()))
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "quote created",
		slog.String("user_id", userID),
		slog.String("quote_id", quote.ID),
		slog.String("quote_number", quote.QuoteNumber),
		slog.Float64("total_amount", quote.TotalAmount))

	return quote, nil
}

// Get returns a quote with its line items.
func (s *QuoteService) Get(ctx context.Context, userID, id string) (*domain.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return quote, nil
}

// List returns a page of quotes matching the filter, served from cache when
// warm. Line items are not loaded.
func (s *QuoteService) List(ctx context.Context, userID string, input ListQuotesInput) (*QuoteList, error) {
	if input.Status != "" && !domain.IsValidQuoteStatus(input.Status) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid status filter %q", input.Status))
	}
	if input.SortBy != "" && input.SortBy != "amount" && input.SortBy != "status" {
		return nil, apperrors.Validation(fmt.Sprintf("invalid sort_by %q", input.SortBy))
	}

	limit := clampLimit(input.Limit)
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	key := cache.QuoteListKey(userID, input.Status, input.Customer, input.SortBy, limit, offset)

	var cached QuoteList
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "quote list cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	filter := repository.QuoteFilter{
		SortBy: input.SortBy,
		Limit:  limit,
		Offset: offset,
	}
	if input.Status != "" {
		filter.Status = &input.Status
	}
	if input.Customer != "" {
		filter.Customer = &input.Customer
	}

	quotes, total, err := s.quoteRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}

	list := &QuoteList{
		Quotes:  quotes,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}

	if err := s.cache.Set(ctx, key, list, cache.TTLQuotes); err != nil {
		s.logger.WarnContext(ctx, "quote list cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return list, nil
}

// UpdateStatus moves a quote through its lifecycle and returns the updated
// quote.
func (s *QuoteService) UpdateStatus(ctx context.Context, userID, id, status string) (*domain.Quote, error) {
	if !domain.IsValidQuoteStatus(status) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid status %q", status))
	}

	if err := s.quoteRepo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, fmt.Errorf("update quote status: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "quote status updated",
		slog.String("user_id", userID),
		slog.String("quote_id", id),
		slog.String("status", status))

	return s.Get(ctx, userID, id)
}

// Delete removes a quote. Only drafts can be deleted; anything already sent
// stays on the books for analytics.
func (s *QuoteService) Delete(ctx context.Context, userID, id string) error {
	quote, err := s.quoteRepo.GetByID(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get quote: %w", err)
	}

	if !quote.IsDraft() {
		return apperrors.Validation("only draft quotes can be deleted")
	}

	if err := s.quoteRepo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "quote deleted",
		slog.String("user_id", userID),
		slog.String("quote_id", id))

	return nil
}

// Send emails the quote to its customer and moves a draft to sent. A quote
// already in sent can be sent again; later statuses cannot.
func (s *QuoteService) Send(ctx context.Context, userID, id string) (*domain.Quote, error) {
	quote, err := s.quoteRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	if quote.CustomerEmail == "" {
		return nil, apperrors.Validation("quote has no customer email")
	}
	if quote.Status != domain.QuoteStatusDraft && quote.Status != domain.QuoteStatusSent {
		return nil, apperrors.Validation(fmt.Sprintf("cannot send a quote in status %q", quote.Status))
	}

	sender, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load sender profile: %w", err)
	}

	if err := s.mailer.Send(ctx, buildQuoteMessage(quote, sender)); err != nil {
		return nil, fmt.Errorf("send quote mail: %w", err)
	}

	if quote.Status == domain.QuoteStatusDraft {
		if err := s.quoteRepo.UpdateStatus(ctx, userID, id, domain.QuoteStatusSent); err != nil {
			return nil, fmt.Errorf("mark quote sent: %w", err)
		}
		quote.Status = domain.QuoteStatusSent
	}

	// Publish quote sent event (non-blocking on failure).
	if err := s.producer.PublishQuoteSent(ctx, quote, sender); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish quote sent event",
			slog.String("quote_id", quote.ID),
			slog.String("error", err.Error()))
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "quote sent to customer",
		slog.String("user_id", userID),
		slog.String("quote_id", quote.ID),
		slog.String("quote_number", quote.QuoteNumber),
		slog.String("customer_email", quote.CustomerEmail),
		slog.String("mailer", s.mailer.Name()))

	return quote, nil
}

// invalidateCaches drops cached quote pages plus the rollups that count
// quotes: the dashboard and every analytics entry.
func (s *QuoteService) invalidateCaches(ctx context.Context, userID string) {
	for _, prefix := range []string{cache.QuoteListPrefix(userID), cache.AnalyticsPrefix(userID)} {
		if err := s.cache.DeleteByPrefix(ctx, prefix); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		}
	}
	if err := s.cache.Delete(ctx, cache.DashboardKey(userID)); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("key", cache.DashboardKey(userID)),
			slog.String("error", err.Error()))
	}
}

// generateQuoteNumber builds a human-readable quote number: a user prefix,
// the date, and a random suffix, e.g. QT-4F2A91BC-20250110-X7K2M9.
func generateQuoteNumber(userID string, now time.Time) string {
	ref := strings.ToUpper(strings.ReplaceAll(userID, "-", ""))
	if len(ref) > 8 {
		ref = ref[:8]
	}

	entropy := uuid.New()
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = quoteNumberAlphabet[int(entropy[i])%len(quoteNumberAlphabet)]
	}

	return fmt.Sprintf("QT-%s-%s-%s", ref, now.Format("20060102"), suffix)
}

// buildQuoteMessage renders the plain-text quote email.
func buildQuoteMessage(quote *domain.Quote, sender *domain.User) *mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nPlease find your quote %s below.\n\n", quote.CustomerName, quote.QuoteNumber)
	for _, item := range quote.Items {
		fmt.Fprintf(&b, "  %s  x%d  @ Rs %.2f  =  Rs %.2f\n", item.BrandName, item.Quantity, item.UnitPrice, item.LineTotal)
	}
	fmt.Fprintf(&b, "\nTotal: Rs %.2f\n", quote.TotalAmount)
	if quote.ExpiryDate != nil {
		fmt.Fprintf(&b, "Valid until: %s\n", quote.ExpiryDate.Format("02 Jan 2006"))
	}
	if quote.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", quote.Notes)
	}
	fmt.Fprintf(&b, "\nRegards,\n%s\n%s\n", sender.FullName, sender.CompanyName)

	return &mailer.Message{
		To:      quote.CustomerEmail,
		ToName:  quote.CustomerName,
		Subject: fmt.Sprintf("Quote %s from %s", quote.QuoteNumber, sender.CompanyName),
		Body:    b.String(),
	}
}
