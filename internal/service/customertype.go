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
	"github.com/Sagar7057/pharma-backend/internal/repository"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

// CustomerTypeService manages the per-account customer segments that drive
// default pricing margins.
type CustomerTypeService struct {
	repo   repository.CustomerTypeRepository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCustomerTypeService creates a new customer type service.
func NewCustomerTypeService(repo repository.CustomerTypeRepository, c *cache.Cache, logger *slog.Logger) *CustomerTypeService {
	return &CustomerTypeService{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

// CreateCustomerTypeInput contains the fields for creating a customer type.
type CreateCustomerTypeInput struct {
	Name                 string
	DefaultMarginPercent float64
	Description          string
}

// UpdateCustomerTypeInput contains the optional fields for updating a
// customer type. Nil fields are left unchanged.
type UpdateCustomerTypeInput struct {
	Name                 *string
	DefaultMarginPercent *float64
	Description          *string
}

// Create adds a custom customer type for the user.
func (s *CustomerTypeService) Create(ctx context.Context, userID string, input CreateCustomerTypeInput) (*domain.CustomerType, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.DefaultMarginPercent < 0 {
		return nil, apperrors.Validation("default margin percent cannot be negative")
	}

	now := time.Now().UTC()
	ct := &domain.CustomerType{
		ID:                   uuid.New().String(),
		UserID:               userID,
		Name:                 name,
		DefaultMarginPercent: input.DefaultMarginPercent,
		Description:          input.Description,
		IsPredefined:         false,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, ct); err != nil {
		return nil, fmt.Errorf("create customer type: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "customer type created",
		slog.String("user_id", userID),
		slog.String("customer_type_id", ct.ID),
		slog.String("name", ct.Name))

	return ct, nil
}

// Get returns a single customer type owned by the user.
func (s *CustomerTypeService) Get(ctx context.Context, userID, id string) (*domain.CustomerType, error) {
	ct, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get customer type: %w", err)
	}
	return ct, nil
}

// List returns all of the user's customer types, predefined first.
func (s *CustomerTypeService) List(ctx context.Context, userID string) ([]domain.CustomerType, error) {
	key := cache.CustomerTypesKey(userID)

	var cached []domain.CustomerType
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "customer type cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	types, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list customer types: %w", err)
	}

	if err := s.cache.Set(ctx, key, types, cache.TTLCustomerTypes); err != nil {
		s.logger.WarnContext(ctx, "customer type cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return types, nil
}

// Update modifies a customer type. Predefined types can be renamed or have
// their margins tuned; only deletion is restricted.
func (s *CustomerTypeService) Update(ctx context.Context, userID, id string, input UpdateCustomerTypeInput) (*domain.CustomerType, error) {
	ct, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get customer type: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.Validation("name cannot be empty")
		}
		ct.Name = name
	}
	if input.DefaultMarginPercent != nil {
		if *input.DefaultMarginPercent < 0 {
			return nil, apperrors.Validation("default margin percent cannot be negative")
		}
		ct.DefaultMarginPercent = *input.DefaultMarginPercent
	}
	if input.Description != nil {
		ct.Description = *input.Description
	}
	ct.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, ct); err != nil {
		return nil, fmt.Errorf("update customer type: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "customer type updated",
		slog.String("user_id", userID),
		slog.String("customer_type_id", ct.ID))

	return ct, nil
}

// Delete removes a custom customer type. Predefined types cannot be deleted.
func (s *CustomerTypeService) Delete(ctx context.Context, userID, id string) error {
	ct, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("get customer type: %w", err)
	}

	if ct.IsPredefined {
		return apperrors.Validation("cannot delete predefined customer type")
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete customer type: %w", err)
	}

	s.invalidateCaches(ctx, userID)

	s.logger.InfoContext(ctx, "customer type deleted",
		slog.String("user_id", userID),
		slog.String("customer_type_id", id))

	return nil
}

// invalidateCaches drops the cached type list plus the pricing and analytics
// entries that depend on type margins.
func (s *CustomerTypeService) invalidateCaches(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, cache.CustomerTypesKey(userID)); err != nil {
		s.logger.WarnContext(ctx, "customer type cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
	for _, prefix := range []string{cache.PricingPrefix(userID), cache.AnalyticsPrefix(userID)} {
		if err := s.cache.DeleteByPrefix(ctx, prefix); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()))
		}
	}
}
