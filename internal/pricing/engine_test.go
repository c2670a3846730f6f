package pricing

import (
	"math"
	"testing"
)

func TestComputeDTIScenario(t *testing.T) {
	b, err := Compute(200.00, 0.02, 50.00, 0.12)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	r := b.Rounded()
	if r.PlatformFee != 4.00 {
		t.Fatalf("expected platform fee 4.00, got %v", r.PlatformFee)
	}
	if r.VATBase != 204.00 {
		t.Fatalf("expected VAT base 204.00, got %v", r.VATBase)
	}
	if r.VATAmount != 24.48 {
		t.Fatalf("expected VAT 24.48, got %v", r.VATAmount)
	}
	if r.FinalPrice != 278.48 {
		t.Fatalf("expected final 278.48, got %v", r.FinalPrice)
	}
}

func TestFinalPriceIdentity(t *testing.T) {
	cases := []struct {
		items, rate, shipping, vat float64
	}{
		{0, 0.02, 0, 0.12},
		{99.99, 0.05, 35, 0.12},
		{1234.56, 0.02, 120.75, 0.12},
		{0.01, 0.02, 0.01, 0.12},
	}
	for _, c := range cases {
		b, err := Compute(c.items, c.rate, c.shipping, c.vat)
		if err != nil {
			t.Fatalf("compute(%v): %v", c, err)
		}
		sum := b.ItemsTotal + b.PlatformFee + b.ShippingFee + b.VATAmount
		if math.Abs(sum-b.FinalPrice) > 0.01 {
			t.Fatalf("final price identity broken: %v vs %v", sum, b.FinalPrice)
		}
	}
}

func TestShippingExcludedFromVATBase(t *testing.T) {
	b, err := Compute(100, 0.02, 500, 0.12)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if b.VATBase != 102 {
		t.Fatalf("shipping leaked into VAT base: %v", b.VATBase)
	}
}

func TestComputeIdempotent(t *testing.T) {
	a, _ := Compute(321.45, 0.02, 42.50, 0.12)
	b, _ := Compute(321.45, 0.02, 42.50, 0.12)
	if a != b {
		t.Fatalf("recomputation diverged: %+v vs %+v", a, b)
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	if _, err := Compute(-1, 0.02, 0, 0.12); err == nil {
		t.Fatal("expected error for negative items total")
	}
	if _, err := Compute(math.NaN(), 0.02, 0, 0.12); err == nil {
		t.Fatal("expected error for NaN items total")
	}
	if _, err := Compute(100, 1.5, 0, 0.12); err == nil {
		t.Fatal("expected error for fee rate >= 1")
	}
	if _, err := Compute(100, 0.02, -5, 0.12); err == nil {
		t.Fatal("expected error for negative shipping")
	}
}
