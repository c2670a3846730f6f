package pricing

import (
	"errors"
	"math"
)

// ErrInvalidInput is returned when a caller passes NaN or negative amounts.
var ErrInvalidInput = errors.New("pricing: invalid input")

// Breakdown aggregates the components of a tax-compliant order total.
// Values carry full float precision; call Rounded before display or storage.
type Breakdown struct {
	ItemsTotal      float64 `json:"itemsTotal"`
	PlatformFeeRate float64 `json:"platformFeeRate"`
	PlatformFee     float64 `json:"platformFee"`
	ShippingFee     float64 `json:"shippingFee"`
	VATBase         float64 `json:"vatBase"`
	VATAmount       float64 `json:"vatAmount"`
	FinalPrice      float64 `json:"finalPrice"`
}

// Compute calculates the order price breakdown. Shipping is deliberately
// excluded from the VAT base: vatBase = itemsTotal + platformFee. An
// earlier revision taxed shipping too; the exclusion follows the stated
// compliance intent and is a policy decision, not a bug fix.
func Compute(itemsTotal, platformFeeRate, shippingFee, vatRate float64) (Breakdown, error) {
	if !validAmount(itemsTotal) || !validAmount(shippingFee) {
		return Breakdown{}, ErrInvalidInput
	}
	if !validRate(platformFeeRate) || !validRate(vatRate) {
		return Breakdown{}, ErrInvalidInput
	}

	platformFee := itemsTotal * platformFeeRate
	vatBase := itemsTotal + platformFee
	vatAmount := vatBase * vatRate
	finalPrice := itemsTotal + platformFee + shippingFee + vatAmount

	return Breakdown{
		ItemsTotal:      itemsTotal,
		PlatformFeeRate: platformFeeRate,
		PlatformFee:     platformFee,
		ShippingFee:     shippingFee,
		VATBase:         vatBase,
		VATAmount:       vatAmount,
		FinalPrice:      finalPrice,
	}, nil
}

// Rounded returns a copy with all monetary components rounded to two
// decimals. Rounding happens only here, at the boundary, so recomputation
// from cached components does not drift.
func (b Breakdown) Rounded() Breakdown {
	b.ItemsTotal = Round2(b.ItemsTotal)
	b.PlatformFee = Round2(b.PlatformFee)
	b.ShippingFee = Round2(b.ShippingFee)
	b.VATBase = Round2(b.VATBase)
	b.VATAmount = Round2(b.VATAmount)
	b.FinalPrice = Round2(b.FinalPrice)
	return b
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validRate(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v < 1
}
