package repository

import (
	"context"
	"time"

	"github.com/Sagar7057/pharma-backend/internal/domain"
)

// BrandFilter narrows and orders a brand listing.
type BrandFilter struct {
	Search *string
	SortBy string
	Limit  int
	Offset int
}

// QuoteFilter narrows and orders a quote listing.
type QuoteFilter struct {
	Status   *string
	Customer *string
	SortBy   string
	Limit    int
	Offset   int
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email. The lookup is case-insensitive.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error
}

// BrandRepository defines the interface for brand catalog persistence.
// All operations are scoped to the owning user.
type BrandRepository interface {
	// Create inserts a new brand into the store.
	Create(ctx context.Context, brand *domain.Brand) error

	// GetByID retrieves an active brand owned by the user.
	GetByID(ctx context.Context, userID, id string) (*domain.Brand, error)

	// GetByName retrieves an active brand owned by the user by exact name.
	GetByName(ctx context.Context, userID, name string) (*domain.Brand, error)

	// List returns active brands matching the filter with the total count.
	List(ctx context.Context, userID string, filter BrandFilter) ([]domain.Brand, int, error)

	// ListAllActive returns every active brand for the user, ordered by name.
	ListAllActive(ctx context.Context, userID string) ([]domain.Brand, error)

	// Update modifies an existing brand in the store.
	Update(ctx context.Context, brand *domain.Brand) error

	// SoftDelete deactivates a brand without removing its row.
	SoftDelete(ctx context.Context, userID, id string) error
}

// CustomerTypeRepository defines the interface for customer type persistence.
type CustomerTypeRepository interface {
	// Create inserts a new customer type into the store.
	Create(ctx context.Context, ct *domain.CustomerType) error

	// GetByID retrieves a customer type owned by the user.
	GetByID(ctx context.Context, userID, id string) (*domain.CustomerType, error)

	// List returns the user's customer types, predefined first then by name.
	List(ctx context.Context, userID string) ([]domain.CustomerType, error)

	// Update modifies an existing customer type in the store.
	Update(ctx context.Context, ct *domain.CustomerType) error

	// Delete removes a customer type from the store.
	Delete(ctx context.Context, userID, id string) error

	// SeedDefaults inserts the given types for the user, skipping any whose
	// name already exists.
	SeedDefaults(ctx context.Context, userID string, types []domain.CustomerType) error
}

// PricingRuleRepository defines the interface for pricing rule lookups.
type PricingRuleRepository interface {
	// FindActiveRule returns the active rule for the brand and customer type
	// whose validity window covers today, or ErrNotFound when none applies.
	FindActiveRule(ctx context.Context, userID, brandID, customerTypeID string) (*domain.PricingRule, error)
}

// NPPARepository defines the interface for NPPA reference data lookups.
type NPPARepository interface {
	// GetByDrugName retrieves a reference row by drug name, case-insensitively.
	GetByDrugName(ctx context.Context, name string) (*domain.NPPADrug, error)
}

// QuoteRepository defines the interface for quote persistence operations.
type QuoteRepository interface {
	// Create inserts a quote and its line items atomically.
	Create(ctx context.Context, quote *domain.Quote) error

	// GetByID retrieves a quote with its line items, user-scoped.
	GetByID(ctx context.Context, userID, id string) (*domain.Quote, error)

	// List returns quotes matching the filter with the total count. Line
	// items are not loaded.
	List(ctx context.Context, userID string, filter QuoteFilter) ([]domain.Quote, int, error)

	// UpdateStatus changes the status of a quote.
	UpdateStatus(ctx context.Context, userID, id, status string) error

	// Delete removes a quote and its line items atomically.
	Delete(ctx context.Context, userID, id string) error
}

// AnalyticsRepository defines the read-side rollup queries.
type AnalyticsRepository interface {
	// Dashboard computes the headline metrics for the user.
	Dashboard(ctx context.Context, userID string) (*domain.DashboardMetrics, error)

	// RevenueTrend buckets revenue by day over [from, to].
	RevenueTrend(ctx context.Context, userID string, from, to time.Time) ([]domain.RevenueTrendPoint, error)

	// QuoteMetrics rolls quotes up by status.
	QuoteMetrics(ctx context.Context, userID string) (*domain.QuoteMetrics, error)

	// BrandMetrics rolls the catalog up, ranking brands by quoted revenue.
	BrandMetrics(ctx context.Context, userID string) (*domain.BrandMetrics, error)

	// CustomerMetrics rolls quotes up by customer type.
	CustomerMetrics(ctx context.Context, userID string) (*domain.CustomerMetrics, error)
}
