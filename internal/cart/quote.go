package cart

import (
	"errors"

	"github.com/palengke-dev/farmgate-api/internal/delivery"
	"github.com/palengke-dev/farmgate-api/internal/geo"
	"github.com/palengke-dev/farmgate-api/internal/pricing"
)

// ErrEmptyCart is returned when a quote or breakdown is requested for a
// cart with no lines.
var ErrEmptyCart = errors.New("cart: no items")

// Quote is the delivery and pricing view for one cart snapshot.
type Quote struct {
	DistanceKm  float64           `json:"distanceKm"`
	Options     []delivery.Option `json:"options"`
	Selected    delivery.Option   `json:"selected"`
	ETAMinutes  int               `json:"etaMinutes"`
	ItemsTotal  float64           `json:"itemsTotal"`
	ShippingFee float64           `json:"shippingFee"`
	Breakdown   pricing.Breakdown `json:"breakdown"`
	Currency    string            `json:"currency"`
}

// QuoteService composes distance, delivery options and the price
// breakdown. It is pure: everything it needs arrives in the call.
type QuoteService struct {
	PlatformFeeRate float64
	VATRate         float64
	Currency        string
}

// Distance returns the cart's delivery distance: the farthest known
// farmer location from the buyer. Unknown locations contribute nothing;
// with no known pair at all the distance is zero and the smart fee
// degrades to its base.
func (s QuoteService) Distance(items []LineItem, buyer *geo.Coordinate) float64 {
	if buyer == nil {
		return 0
	}
	var max float64
	for _, li := range items {
		if li.FarmerLocation == nil {
			continue
		}
		if d := geo.DistanceKm(*buyer, *li.FarmerLocation); d > max {
			max = d
		}
	}
	return max
}

// Quote evaluates delivery options and the full price breakdown for the
// cart. When any line requires cold chain the option set collapses and
// the cold-chain option is both selected and priced into the breakdown.
func (s QuoteService) Quote(items []LineItem, buyer *geo.Coordinate) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrEmptyCart
	}

	coldChain := false
	itemsTotal := 0.0
	lines := make([]LineItem, len(items))
	for i, li := range items {
		li = NormalizeLine(li)
		lines[i] = li
		itemsTotal += li.UnitPrice * float64(li.Quantity)
		if li.RequiresColdChain {
			coldChain = true
		}
	}

	dist := s.Distance(lines, buyer)
	options := delivery.Options(dist, coldChain)
	selected := options[0]
	for _, opt := range options {
		if opt.AutoSelected {
			selected = opt
			break
		}
	}

	breakdown, err := pricing.Compute(itemsTotal, s.PlatformFeeRate, selected.BasePrice, s.VATRate)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		DistanceKm:  dist,
		Options:     options,
		Selected:    selected,
		ETAMinutes:  delivery.SmartETAMinutes(dist),
		ItemsTotal:  itemsTotal,
		ShippingFee: selected.BasePrice,
		Breakdown:   breakdown.Rounded(),
		Currency:    s.Currency,
	}, nil
}

// Breakdown prices the cart with an explicit shipping fee, for callers
// that already picked a delivery option.
func (s QuoteService) Breakdown(items []LineItem, shippingFee float64) (pricing.Breakdown, error) {
	if len(items) == 0 {
		return pricing.Breakdown{}, ErrEmptyCart
	}
	itemsTotal := 0.0
	for _, li := range items {
		itemsTotal += li.UnitPrice * float64(li.Quantity)
	}
	b, err := pricing.Compute(itemsTotal, s.PlatformFeeRate, shippingFee, s.VATRate)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return b.Rounded(), nil
}
