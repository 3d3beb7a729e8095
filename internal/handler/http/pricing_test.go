package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sagar7057/pharma-backend/internal/domain"
	apperrors "github.com/Sagar7057/pharma-backend/pkg/errors"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

// ============================================================================
// Calculate
// ============================================================================

func TestPricingHandler_Calculate_DefaultMargin(t *testing.T) {
	env := newTestEnv(t)
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(sampleBrand(), nil)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), CalculatePriceRequest{
		BrandID:  testBrandID,
		Quantity: 10,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	// Cost 22 at the brand's 12% margin.
	var calc domain.PriceCalculation
	decodeData(t, resp, &calc)
	assert.Equal(t, 24.64, calc.UnitPrice)
	assert.Equal(t, 12.0, calc.MarginPercent)
	assert.Equal(t, 246.4, calc.TotalPrice)
	assert.Equal(t, 26.4, calc.TotalMargin)
	assert.True(t, calc.NPPACompliant)
}

func TestPricingHandler_Calculate_CachedSecondRead(t *testing.T) {
	env := newTestEnv(t)
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(sampleBrand(), nil).Once()

	body := CalculatePriceRequest{BrandID: testBrandID, Quantity: 10}
	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), body)
	assert.Equal(t, http.StatusOK, rec.Code)
	env.brandRepo.AssertExpectations(t)
}

func TestPricingHandler_Calculate_CappedAtMRP(t *testing.T) {
	env := newTestEnv(t)
	brand := sampleBrand()
	brand.DefaultMarginPercent = 50
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(brand, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), CalculatePriceRequest{
		BrandID:  testBrandID,
		Quantity: 1,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	// 22 * 1.5 = 33 exceeds the 30 MRP, so the price pins to MRP and the
	// reported margin shrinks to what MRP yields.
	var calc domain.PriceCalculation
	decodeData(t, resp, &calc)
	assert.Equal(t, 30.0, calc.UnitPrice)
	assert.Equal(t, 36.36, calc.MarginPercent)
}

func TestPricingHandler_Calculate_NPPABreach(t *testing.T) {
	env := newTestEnv(t)
	brand := sampleBrand()
	brand.IsNPPAControlled = true
	brand.NPPAMarginLimit = fptr(20)
	brand.DefaultMarginPercent = 30
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(brand, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), CalculatePriceRequest{
		BrandID:  testBrandID,
		Quantity: 1,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	var calc domain.PriceCalculation
	decodeData(t, resp, &calc)
	assert.False(t, calc.NPPACompliant)
	assert.Contains(t, calc.NPPAMessage, "exceeds NPPA limit")
}

func TestPricingHandler_Calculate_CustomerTypeMargin(t *testing.T) {
	env := newTestEnv(t)
	ct := sampleCustomerType()
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(sampleBrand(), nil)
	env.ruleRepo.On("FindActiveRule", mock.Anything, testUserID, testBrandID, testTypeID).Return(nil, apperrors.ErrNotFound)
	env.typeRepo.On("GetByID", mock.Anything, testUserID, testTypeID).Return(ct, nil)

	typeID := testTypeID
	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), CalculatePriceRequest{
		BrandID:        testBrandID,
		CustomerTypeID: &typeID,
		Quantity:       1,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	// The retailer type's 15% overrides the brand's 12% default.
	var calc domain.PriceCalculation
	decodeData(t, resp, &calc)
	assert.Equal(t, 25.3, calc.UnitPrice)
	assert.Equal(t, 15.0, calc.MarginPercent)
}

func TestPricingHandler_Calculate_VolumeDiscountRule(t *testing.T) {
	env := newTestEnv(t)
	rule := &domain.PricingRule{
		ID:                    "550e8400-e29b-41d4-a716-446655440055",
		UserID:                testUserID,
		BrandID:               testBrandID,
		CustomerTypeID:        testTypeID,
		MarginPercent:         fptr(20),
		VolumeDiscountPercent: fptr(5),
		MinQuantity:           iptr(100),
		IsActive:              true,
	}
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(sampleBrand(), nil)
	env.ruleRepo.On("FindActiveRule", mock.Anything, testUserID, testBrandID, testTypeID).Return(rule, nil)

	typeID := testTypeID
	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), CalculatePriceRequest{
		BrandID:        testBrandID,
		CustomerTypeID: &typeID,
		Quantity:       100,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	// 22 * 1.20 = 26.40, then the 5% volume discount lands at 25.08.
	var calc domain.PriceCalculation
	decodeData(t, resp, &calc)
	assert.Equal(t, 25.08, calc.UnitPrice)
	assert.True(t, calc.VolumeDiscountApplied)
	assert.Equal(t, 5.0, calc.VolumeDiscountPercent)
}

func TestPricingHandler_Calculate_InvalidBrandID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), CalculatePriceRequest{
		BrandID:  "not-a-uuid",
		Quantity: 1,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Fields, "brand_id")
}

func TestPricingHandler_Calculate_ZeroQuantity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/calculate", env.token(t), CalculatePriceRequest{
		BrandID:  testBrandID,
		Quantity: 0,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ============================================================================
// NPPA compliance
// ============================================================================

func TestPricingHandler_CheckNPPA_Compliant(t *testing.T) {
	env := newTestEnv(t)
	brand := sampleBrand()
	brand.IsNPPAControlled = true
	brand.NPPAMarginLimit = fptr(20)
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(brand, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/check-nppa", env.token(t), CheckNPPARequest{
		BrandID:       testBrandID,
		ProposedPrice: 25,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	// (25-22)/22 = 13.64%, inside the 20% limit.
	var result domain.ComplianceResult
	decodeData(t, resp, &result)
	assert.True(t, result.Compliant)
	assert.Equal(t, 13.64, result.MarginPercent)
}

func TestPricingHandler_CheckNPPA_Breach(t *testing.T) {
	env := newTestEnv(t)
	brand := sampleBrand()
	brand.IsNPPAControlled = true
	brand.NPPAMarginLimit = fptr(10)
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(brand, nil)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/check-nppa", env.token(t), CheckNPPARequest{
		BrandID:       testBrandID,
		ProposedPrice: 28,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	var result domain.ComplianceResult
	decodeData(t, resp, &result)
	assert.False(t, result.Compliant)
	assert.Contains(t, result.Message, "exceeds NPPA limit")
}

func TestPricingHandler_CheckNPPA_Uncontrolled(t *testing.T) {
	env := newTestEnv(t)
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(sampleBrand(), nil)

	rec := env.doJSON(t, http.MethodPost, "/api/pricing/check-nppa", env.token(t), CheckNPPARequest{
		BrandID:       testBrandID,
		ProposedPrice: 29,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	var result domain.ComplianceResult
	decodeData(t, resp, &result)
	assert.True(t, result.Compliant)
	assert.False(t, result.IsNPPAControlled)
}

// ============================================================================
// NPPA reference data
// ============================================================================

func TestPricingHandler_NPPAData(t *testing.T) {
	env := newTestEnv(t)
	brand := sampleBrand()
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(brand, nil)
	env.nppaRepo.On("GetByDrugName", mock.Anything, brand.Name).Return(&domain.NPPADrug{
		ID:               "550e8400-e29b-41d4-a716-446655440066",
		DrugName:         brand.Name,
		SaltName:         "Paracetamol",
		MaxMarginPercent: 16,
	}, nil)

	rec := env.doJSON(t, http.MethodGet, "/api/pricing/nppa-data/"+testBrandID, env.token(t), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)

	var drug domain.NPPADrug
	decodeData(t, resp, &drug)
	assert.Equal(t, brand.Name, drug.DrugName)
	assert.Equal(t, 16.0, drug.MaxMarginPercent)
}

func TestPricingHandler_NPPAData_NoReferenceRow(t *testing.T) {
	env := newTestEnv(t)
	brand := sampleBrand()
	env.brandRepo.On("GetByID", mock.Anything, testUserID, testBrandID).Return(brand, nil)
	env.nppaRepo.On("GetByDrugName", mock.Anything, brand.Name).Return(nil, apperrors.ErrNotFound)

	rec := env.doJSON(t, http.MethodGet, "/api/pricing/nppa-data/"+testBrandID, env.token(t), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
