// Package pricing computes quantity discounts for drop-in purchases.
package pricing

import (
	"errors"
	"math"
	"sort"

	"classbook/pkg/model"
)

var ErrNoDropIn = errors.New("class option has no drop-in price")

type Result struct {
	OriginalPrice             float64  `json:"original_price"`
	DiscountedPrice           float64  `json:"discounted_price"`
	TotalAmountBeforeDiscount float64  `json:"total_amount_before_discount"`
	TotalAmount               float64  `json:"total_amount"`
	DiscountApplied           bool     `json:"discount_applied"`
	AppliedDiscountPercent    *float64 `json:"applied_discount_percent,omitempty"`
	Currency                  string   `json:"currency,omitempty"`
}

// CalculateQuantityDiscount picks the tier with the largest MinQuantity not
// exceeding quantity. That tier applies when its percent is positive and it is
// either a normal tier or a trial tier with a trial-eligible buyer. Only the
// best matching tier is considered; an inapplicable trial tier does not fall
// through to a smaller normal tier. Rounding to cents happens once, on output.
func CalculateQuantityDiscount(unitPrice float64, quantity int, tiers []model.DiscountTier, trialEligible bool) Result {
	totalBefore := unitPrice * float64(quantity)
	result := Result{
		OriginalPrice:             unitPrice,
		DiscountedPrice:           round2(unitPrice),
		TotalAmountBeforeDiscount: round2(totalBefore),
		TotalAmount:               round2(totalBefore),
	}

	tier := bestTier(quantity, tiers)
	if tier == nil || tier.DiscountPercent <= 0 {
		return result
	}
	if tier.Type == model.DiscountTrial && !trialEligible {
		return result
	}
	if tier.Type != model.DiscountNormal && tier.Type != model.DiscountTrial {
		return result
	}

	discounted := unitPrice * (100 - tier.DiscountPercent) / 100
	percent := tier.DiscountPercent
	result.DiscountedPrice = round2(discounted)
	result.TotalAmount = round2(discounted * float64(quantity))
	result.DiscountApplied = true
	result.AppliedDiscountPercent = &percent
	return result
}

// Quote prices quantity drop-in visits of a class option.
func Quote(option *model.ClassOption, quantity int, trialEligible bool) (Result, error) {
	if option == nil || option.DropIn == nil {
		return Result{}, ErrNoDropIn
	}
	result := CalculateQuantityDiscount(option.DropIn.Price, quantity, option.DropIn.DiscountTiers, trialEligible)
	result.Currency = option.DropIn.Currency
	return result, nil
}

func bestTier(quantity int, tiers []model.DiscountTier) *model.DiscountTier {
	if quantity <= 0 || len(tiers) == 0 {
		return nil
	}
	sorted := make([]model.DiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity > sorted[j].MinQuantity
	})
	for i := range sorted {
		if quantity >= sorted[i].MinQuantity {
			return &sorted[i]
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
