// Package pricing resolves the effective unit price of a catalog item
// from its quantity brackets and computes order-level discounts.
package pricing

import (
	"fmt"
	"math"

	"github.com/verzog/merchant/internal/domain"
)

// PricingError reports a pricing resolution failure.
type PricingError struct {
	Code    string
	Message string
}

// Pricing error codes.
const (
	ErrCodeNoTiers   = "no_tiers"
	ErrCodeNoBracket = "no_bracket"
	ErrCodeBadRange  = "bad_range"
)

func (e *PricingError) Error() string {
	return fmt.Sprintf("pricing: %s: %s", e.Code, e.Message)
}

// UnitPrice selects the untaxed unit price for the ordered quantity.
// The whole quantity is billed at the bracket it lands in; brackets do
// not stack.
func UnitPrice(tiers []domain.PriceTier, qty int) (float64, error) {
	if len(tiers) == 0 {
		return 0, &PricingError{Code: ErrCodeNoTiers, Message: "item has no price schedule"}
	}
	if qty <= 0 {
		return 0, &PricingError{Code: ErrCodeNoBracket, Message: fmt.Sprintf("quantity %d has no bracket", qty)}
	}
	for _, tier := range tiers {
		if tier.Covers(qty) {
			return tier.Price, nil
		}
	}
	return 0, &PricingError{Code: ErrCodeNoBracket, Message: fmt.Sprintf("quantity %d has no bracket", qty)}
}

// ValidateTiers checks a price schedule for contiguity: each bracket
// must start where the previous one ended, and only the last bracket
// may be open-ended.
func ValidateTiers(tiers []domain.PriceTier) error {
	if len(tiers) == 0 {
		return &PricingError{Code: ErrCodeNoTiers, Message: "item has no price schedule"}
	}
	next := tiers[0].From
	for i, tier := range tiers {
		if tier.From != next {
			return &PricingError{Code: ErrCodeBadRange,
				Message: fmt.Sprintf("bracket %d starts at %d, expected %d", i, tier.From, next)}
		}
		if tier.Range == 0 {
			if i != len(tiers)-1 {
				return &PricingError{Code: ErrCodeBadRange,
					Message: fmt.Sprintf("bracket %d is open-ended but not last", i)}
			}
			return nil
		}
		next = tier.From + tier.Range
	}
	return nil
}

// Discount is an order-level rebate: once the taxed total reaches the
// threshold, the rate applies to the whole total.
type Discount struct {
	// Threshold is the taxed order total that activates the discount.
	Threshold float64
	// Rate is the percentage taken off.
	Rate float64
}

// Amount returns the discount owed on a taxed order total, rounded to
// cents. Zero below the threshold or when no rate is configured.
func (d Discount) Amount(taxedTotal float64) float64 {
	if d.Rate <= 0 || taxedTotal < d.Threshold || d.Threshold <= 0 {
		return 0
	}
	return Round(taxedTotal * d.Rate / 100)
}

// Round normalizes a currency amount to cents.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
