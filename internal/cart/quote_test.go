package cart

import (
	"math"
	"testing"

	"github.com/palengke-dev/farmgate-api/internal/delivery"
	"github.com/palengke-dev/farmgate-api/internal/geo"
)

var (
	buyerManila = geo.Coordinate{Lat: 14.5995, Lng: 120.9842}
	farmBulacan = geo.Coordinate{Lat: 14.7943, Lng: 120.8799}
	farmLaguna  = geo.Coordinate{Lat: 14.1700, Lng: 121.2413}
)

func testSvc() QuoteService {
	return QuoteService{PlatformFeeRate: 0.02, VATRate: 0.12, Currency: "PHP"}
}

func TestQuoteEmptyCart(t *testing.T) {
	if _, err := testSvc().Quote(nil, &buyerManila); err != ErrEmptyCart {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestDistanceUsesFarthestKnownFarm(t *testing.T) {
	svc := testSvc()
	items := []LineItem{
		{ProductID: "a", Quantity: 1, FarmerLocation: &farmBulacan},
		{ProductID: "b", Quantity: 1, FarmerLocation: &farmLaguna},
		{ProductID: "c", Quantity: 1}, // unknown farm
	}
	d := svc.Distance(items, &buyerManila)
	want := math.Max(
		geo.DistanceKm(buyerManila, farmBulacan),
		geo.DistanceKm(buyerManila, farmLaguna),
	)
	if math.Abs(d-want) > 1e-9 {
		t.Fatalf("distance = %v, want farthest farm %v", d, want)
	}
	if svc.Distance(items, nil) != 0 {
		t.Fatal("unknown buyer location should yield zero distance")
	}
}

func TestQuoteBreakdownComposition(t *testing.T) {
	svc := testSvc()
	items := []LineItem{{ProductID: "a", UnitPrice: 100, Quantity: 2}}

	q, err := svc.Quote(items, nil)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.ItemsTotal != 200 {
		t.Fatalf("items total = %v, want 200", q.ItemsTotal)
	}
	// Zero distance: smart fee is the 20 peso base.
	if q.ShippingFee != 20 {
		t.Fatalf("shipping fee = %v, want smart base 20", q.ShippingFee)
	}
	wantFinal := 200 + 4 + 20 + (200+4)*0.12
	if math.Abs(q.Breakdown.FinalPrice-wantFinal) > 0.005 {
		t.Fatalf("final price = %v, want %v", q.Breakdown.FinalPrice, wantFinal)
	}
}

func TestQuoteColdChainForcesSelection(t *testing.T) {
	svc := testSvc()
	items := []LineItem{
		{ProductID: "fish", UnitPrice: 250, Quantity: 1, RequiresColdChain: true, FarmerLocation: &farmBulacan},
	}
	q, err := svc.Quote(items, &buyerManila)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(q.Options) != 1 {
		t.Fatalf("cold chain must collapse to one option, got %d", len(q.Options))
	}
	if q.Selected.Type != delivery.TypeColdChain || !q.Selected.AutoSelected {
		t.Fatalf("cold-chain option must be auto-selected, got %+v", q.Selected)
	}
	if q.Breakdown.ShippingFee != q.Selected.BasePrice {
		t.Fatal("breakdown must be priced with the forced option")
	}
}

func TestQuoteLeavesCallerSnapshotUntouched(t *testing.T) {
	svc := testSvc()
	items := []LineItem{{ProductID: "a", UnitPrice: 100, Quantity: 2, Category: "Rice"}}

	if _, err := svc.Quote(items, nil); err != nil {
		t.Fatalf("quote: %v", err)
	}
	// Normalisation defaults (unit, MOQ, lowercased category) must apply to
	// a working copy, not the snapshot the caller handed in.
	if items[0].Unit != "" || items[0].MinimumOrderQuantity != 0 || items[0].Category != "Rice" {
		t.Fatalf("caller's line was mutated: %+v", items[0])
	}
}

func TestBreakdownWithExplicitFee(t *testing.T) {
	svc := testSvc()
	b, err := svc.Breakdown([]LineItem{{ProductID: "a", UnitPrice: 100, Quantity: 2}}, 50)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if b.PlatformFee != 4.00 || b.VATAmount != 24.48 || b.FinalPrice != 278.48 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
}
