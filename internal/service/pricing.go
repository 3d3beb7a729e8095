package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Sagar7057/pharma-backend/internal/cache"
	"github.com/Sagar7057/pharma-backend/internal/domain"
	"github.com/Sagar7057/pharma-backend/internal/repository"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

// PricingService computes sell prices and NPPA compliance verdicts.
//
// The margin source precedence is: pricing rule fixed price, then rule margin,
// then the customer type's default margin, then the brand's default margin.
// The sell price is always capped at MRP, and the reported margin is
// recomputed from the capped price so the caller sees what they would
// actually earn.
type PricingService struct {
	brandRepo repository.BrandRepository
	typeRepo  repository.CustomerTypeRepository
	ruleRepo  repository.PricingRuleRepository
	nppaRepo  repository.NPPARepository
	cache     *cache.Cache
	logger    *slog.Logger
}

// NewPricingService creates a new pricing service.
func NewPricingService(
	brandRepo repository.BrandRepository,
	typeRepo repository.CustomerTypeRepository,
	ruleRepo repository.PricingRuleRepository,
	nppaRepo repository.NPPARepository,
	c *cache.Cache,
	logger *slog.Logger,
) *PricingService {
	return &PricingService{
		brandRepo: brandRepo,
		typeRepo:  typeRepo,
		ruleRepo:  ruleRepo,
		nppaRepo:  nppaRepo,
		cache:     c,
		logger:    logger,
	}
}

// CalculateInput identifies the brand, optional customer type and quantity
// to price.
type CalculateInput struct {
	BrandID        string
	CustomerTypeID *string
	Quantity       int
}

// Calculate prices one brand for a quantity and optional customer type.
func (s *PricingService) Calculate(ctx context.Context, userID string, input CalculateInput) (*domain.PriceCalculation, error) {
	if input.BrandID == "" {
		return nil, apperrors.InvalidInput("brand id is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}

	customerTypeID := ""
	if input.CustomerTypeID != nil {
		customerTypeID = *input.CustomerTypeID
	}
	key := cache.PricingKey(userID, input.BrandID, customerTypeID, input.Quantity)

	var cached domain.PriceCalculation
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "pricing cache read failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	brand, err := s.brandRepo.GetByID(ctx, userID, input.BrandID)
	if err != nil {
		return nil, fmt.Errorf("load brand: %w", err)
	}

	var (
		marginPercent  float64
		fixedSellPrice *float64
		volumeDiscount float64
		volumeApplied  bool
		ruleFound      bool
	)

	if customerTypeID != "" {
		rule, err := s.ruleRepo.FindActiveRule(ctx, userID, input.BrandID, customerTypeID)
		switch {
		case err == nil:
			ruleFound = true
			if rule.FixedSellPrice != nil {
				fixedSellPrice = rule.FixedSellPrice
			} else if rule.MarginPercent != nil {
				marginPercent = *rule.MarginPercent
			}
			if rule.AppliesTo(input.Quantity) {
				volumeApplied = true
				volumeDiscount = *rule.VolumeDiscountPercent
			}
		case errors.Is(err, apperrors.ErrNotFound):
			// No rule for this pair; fall back to default margins.
		default:
			return nil, fmt.Errorf("find pricing rule: %w", err)
		}
	}

	if !ruleFound {
		var typeMargin float64
		if customerTypeID != "" {
			ct, err := s.typeRepo.GetByID(ctx, userID, customerTypeID)
			switch {
			case err == nil:
				typeMargin = ct.DefaultMarginPercent
			case errors.Is(err, apperrors.ErrNotFound):
				// Unknown type prices like an untyped customer.
			default:
				return nil, fmt.Errorf("load customer type: %w", err)
			}
		}
		if typeMargin > 0 {
			marginPercent = typeMargin
		} else {
			marginPercent = brand.DefaultMarginPercent
		}
	}

	unitPrice := brand.CostPrice * (1 + marginPercent/100)
	if fixedSellPrice != nil {
		unitPrice = *fixedSellPrice
	}
	if volumeApplied {
		unitPrice *= 1 - volumeDiscount/100
	}
	if unitPrice > brand.MRP {
		unitPrice = brand.MRP
	}

	// The discount and MRP cap move the price, so report the margin the
	// capped price actually yields.
	finalMargin := 0.0
	if brand.CostPrice > 0 {
		finalMargin = (unitPrice - brand.CostPrice) / brand.CostPrice * 100
	}
	marginPerUnit := unitPrice - brand.CostPrice

	compliant := true
	message := "Compliant"
	if brand.IsNPPAControlled && brand.NPPAMarginLimit != nil && finalMargin > *brand.NPPAMarginLimit {
		compliant = false
		message = fmt.Sprintf("Margin %.2f%% exceeds NPPA limit of %v%%", finalMargin, *brand.NPPAMarginLimit)
	}

	calc := &domain.PriceCalculation{
		BrandID:               brand.ID,
		BrandName:             brand.Name,
		Quantity:              input.Quantity,
		CostPrice:             brand.CostPrice,
		MRP:                   brand.MRP,
		UnitPrice:             round2(unitPrice),
		MarginPercent:         round2(finalMargin),
		MarginPerUnit:         round2(marginPerUnit),
		TotalPrice:            round2(unitPrice * float64(input.Quantity)),
		TotalMargin:           round2(marginPerUnit * float64(input.Quantity)),
		VolumeDiscountApplied: volumeApplied,
		VolumeDiscountPercent: volumeDiscount,
		IsNPPAControlled:      brand.IsNPPAControlled,
		NPPACompliant:         compliant,
		NPPAMarginLimit:       brand.NPPAMarginLimit,
		NPPAMessage:           message,
	}

	if err := s.cache.Set(ctx, key, calc, cache.TTLPricing); err != nil {
		s.logger.WarnContext(ctx, "pricing cache write failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}

	return calc, nil
}

// CheckCompliance evaluates a proposed sell price against the brand's NPPA
// margin limit without persisting anything.
func (s *PricingService) CheckCompliance(ctx context.Context, userID, brandID string, proposedPrice float64) (*domain.ComplianceResult, error) {
	if brandID == "" {
		return nil, apperrors.InvalidInput("brand id is required")
	}
	if proposedPrice <= 0 {
		return nil, apperrors.Validation("proposed price must be greater than zero")
	}

	brand, err := s.brandRepo.GetByID(ctx, userID, brandID)
	if err != nil {
		return nil, fmt.Errorf("load brand: %w", err)
	}

	margin := 0.0
	if brand.CostPrice > 0 {
		margin = (proposedPrice - brand.CostPrice) / brand.CostPrice * 100
	}

	result := &domain.ComplianceResult{
		BrandID:          brand.ID,
		BrandName:        brand.Name,
		IsNPPAControlled: brand.IsNPPAControlled,
		MarginPercent:    round2(margin),
		MarginLimit:      brand.NPPAMarginLimit,
	}

	switch {
	case !brand.IsNPPAControlled:
		result.Compliant = true
		result.Message = "Price is NPPA compliant"
	case brand.NPPAMarginLimit == nil:
		result.Compliant = true
		result.Message = "NPPA controlled but no margin limit set"
	case margin > *brand.NPPAMarginLimit:
		result.Compliant = false
		result.Message = fmt.Sprintf("Margin %.2f%% exceeds NPPA limit of %v%%", margin, *brand.NPPAMarginLimit)
	default:
		result.Compliant = true
		result.Message = "Price is NPPA compliant"
	}

	return result, nil
}

// NPPAInfo returns the government reference row matching the brand's name.
func (s *PricingService) NPPAInfo(ctx context.Context, userID, brandID string) (*domain.NPPADrug, error) {
	brand, err := s.brandRepo.GetByID(ctx, userID, brandID)
	if err != nil {
		return nil, fmt.Errorf("load brand: %w", err)
	}

	drug, err := s.nppaRepo.GetByDrugName(ctx, brand.Name)
	if err != nil {
		return nil, fmt.Errorf("lookup NPPA reference: %w", err)
	}

	return drug, nil
}

// round2 rounds a money or percent value to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
