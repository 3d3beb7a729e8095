package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

// ============================================================================
// PricingRule.AppliesTo Tests
// ============================================================================

func TestAppliesTo_InsideWindow(t *testing.T) {
	r := &PricingRule{
		VolumeDiscountPercent: ptrFloat(5),
		MinQuantity:           ptrInt(100),
		MaxQuantity:           ptrInt(500),
	}
	assert.True(t, r.AppliesTo(100))
	assert.True(t, r.AppliesTo(250))
	assert.True(t, r.AppliesTo(500))
}

func TestAppliesTo_OutsideWindow(t *testing.T) {
	r := &PricingRule{
		VolumeDiscountPercent: ptrFloat(5),
		MinQuantity:           ptrInt(100),
		MaxQuantity:           ptrInt(500),
	}
	assert.False(t, r.AppliesTo(99))
	assert.False(t, r.AppliesTo(501))
}

func TestAppliesTo_OpenEndedMax(t *testing.T) {
	r := &PricingRule{
		VolumeDiscountPercent: ptrFloat(7.5),
		MinQuantity:           ptrInt(50),
	}
	assert.True(t, r.AppliesTo(50))
	assert.True(t, r.AppliesTo(10000))
	assert.False(t, r.AppliesTo(49))
}

func TestAppliesTo_NoDiscountConfigured(t *testing.T) {
	r := &PricingRule{MinQuantity: ptrInt(10)}
	assert.False(t, r.AppliesTo(100))
}

func TestAppliesTo_NoMinQuantity(t *testing.T) {
	r := &PricingRule{VolumeDiscountPercent: ptrFloat(5)}
	assert.False(t, r.AppliesTo(100))
}
