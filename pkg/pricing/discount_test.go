package pricing

import (
	"testing"

	"classbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateQuantityDiscount(t *testing.T) {
	tiers := []model.DiscountTier{
		{MinQuantity: 3, DiscountPercent: 10, Type: model.DiscountNormal},
		{MinQuantity: 1, DiscountPercent: 50, Type: model.DiscountTrial},
		{MinQuantity: 5, DiscountPercent: 20, Type: model.DiscountNormal},
	}

	tests := []struct {
		name          string
		quantity      int
		trialEligible bool
		applied       bool
		percent       float64
		unit          float64
		total         float64
	}{
		{name: "trial tier for eligible single", quantity: 1, trialEligible: true, applied: true, percent: 50, unit: 7.5, total: 7.5},
		{name: "trial tier ignored for regulars", quantity: 2, unit: 15, total: 30},
		{name: "normal tier", quantity: 3, applied: true, percent: 10, unit: 13.5, total: 40.5},
		{name: "largest tier wins", quantity: 7, trialEligible: true, applied: true, percent: 20, unit: 12, total: 84},
		{name: "zero quantity", quantity: 0, unit: 15, total: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateQuantityDiscount(15, tt.quantity, tiers, tt.trialEligible)
			assert.Equal(t, tt.applied, got.DiscountApplied)
			assert.InDelta(t, tt.unit, got.DiscountedPrice, 0.001)
			assert.InDelta(t, tt.total, got.TotalAmount, 0.001)
			assert.InDelta(t, 15*float64(tt.quantity), got.TotalAmountBeforeDiscount, 0.001)
			if tt.applied {
				require.NotNil(t, got.AppliedDiscountPercent)
				assert.Equal(t, tt.percent, *got.AppliedDiscountPercent)
			} else {
				assert.Nil(t, got.AppliedDiscountPercent)
			}
		})
	}
}

func TestCalculateQuantityDiscount_NoFallThroughToSmallerTier(t *testing.T) {
	tiers := []model.DiscountTier{
		{MinQuantity: 1, DiscountPercent: 5, Type: model.DiscountNormal},
		{MinQuantity: 2, DiscountPercent: 40, Type: model.DiscountTrial},
	}

	got := CalculateQuantityDiscount(10, 2, tiers, false)
	assert.False(t, got.DiscountApplied)
	assert.InDelta(t, 20.0, got.TotalAmount, 0.001)
}

func TestCalculateQuantityDiscount_RoundsOnce(t *testing.T) {
	third := []model.DiscountTier{{MinQuantity: 3, DiscountPercent: 33.333, Type: model.DiscountNormal}}

	tests := []struct {
		name        string
		unitPrice   float64
		quantity    int
		tiers       []model.DiscountTier
		unit        float64
		totalBefore float64
		total       float64
	}{
		{name: "undiscounted total", unitPrice: 19.999, quantity: 3, unit: 20, totalBefore: 60, total: 60},
		{name: "undiscounted total differs from rounded unit", unitPrice: 3.333, quantity: 3, unit: 3.33, totalBefore: 10, total: 10},
		{name: "discounted total", unitPrice: 9.99, quantity: 3, tiers: third, unit: 6.66, totalBefore: 29.97, total: 19.98},
		{name: "discounted total differs from rounded unit", unitPrice: 10, quantity: 3, tiers: third, unit: 6.67, totalBefore: 30, total: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateQuantityDiscount(tt.unitPrice, tt.quantity, tt.tiers, false)
			assert.InDelta(t, tt.unit, got.DiscountedPrice, 0.0001)
			assert.InDelta(t, tt.totalBefore, got.TotalAmountBeforeDiscount, 0.0001)
			assert.InDelta(t, tt.total, got.TotalAmount, 0.0001)
		})
	}
}

func TestCalculateQuantityDiscount_UnitPriceNeverRisesWithQuantity(t *testing.T) {
	tiers := []model.DiscountTier{
		{MinQuantity: 10, DiscountPercent: 20, Type: model.DiscountNormal},
		{MinQuantity: 2, DiscountPercent: 5, Type: model.DiscountNormal},
		{MinQuantity: 5, DiscountPercent: 12.5, Type: model.DiscountNormal},
	}

	for _, trialEligible := range []bool{false, true} {
		previous := CalculateQuantityDiscount(17.5, 1, tiers, trialEligible).DiscountedPrice
		for quantity := 2; quantity <= 15; quantity++ {
			got := CalculateQuantityDiscount(17.5, quantity, tiers, trialEligible)
			assert.LessOrEqual(t, got.DiscountedPrice, previous, "quantity %d", quantity)
			previous = got.DiscountedPrice
		}
	}
}

func TestCalculateQuantityDiscount_DoesNotReorderInput(t *testing.T) {
	tiers := []model.DiscountTier{
		{MinQuantity: 1, DiscountPercent: 5, Type: model.DiscountNormal},
		{MinQuantity: 4, DiscountPercent: 15, Type: model.DiscountNormal},
	}
	CalculateQuantityDiscount(10, 4, tiers, false)
	assert.Equal(t, 1, tiers[0].MinQuantity)
}

func TestQuote(t *testing.T) {
	_, err := Quote(&model.ClassOption{Name: "Yin"}, 1, true)
	assert.ErrorIs(t, err, ErrNoDropIn)

	got, err := Quote(&model.ClassOption{DropIn: &model.DropIn{Price: 12, Currency: "GBP"}}, 2, false)
	require.NoError(t, err)
	assert.Equal(t, "GBP", got.Currency)
	assert.InDelta(t, 24.0, got.TotalAmount, 0.001)
}
