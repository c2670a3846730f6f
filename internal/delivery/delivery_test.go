package delivery

import "testing"

func TestMotorcycleFee(t *testing.T) {
	if fee := Fee(Motorcycle, 10); fee != 70 {
		t.Fatalf("expected fee 70 at 10km, got %v", fee)
	}
	if fee := Fee(Motorcycle, 0); fee != 20 {
		t.Fatalf("expected base fee only at 0km, got %v", fee)
	}
}

func TestFeeNonDecreasing(t *testing.T) {
	for _, class := range []VehicleClass{Motorcycle, Tricycle, Van} {
		prev := Fee(class, 0)
		for km := 1.0; km <= 100; km++ {
			cur := Fee(class, km)
			if cur < prev {
				t.Fatalf("%s fee decreased from %v to %v at %vkm", class, prev, cur, km)
			}
			prev = cur
		}
	}
}

func TestUnknownClassDefaultsToMotorcycle(t *testing.T) {
	if Fee(VehicleClass("hovercraft"), 5) != Fee(Motorcycle, 5) {
		t.Fatal("unknown vehicle class should use the motorcycle rate card")
	}
}

func TestETA(t *testing.T) {
	if eta := ETAMinutes(Motorcycle, 10); eta != 45 {
		t.Fatalf("expected 45 minutes at 10km, got %d", eta)
	}
	if eta := SmartETAMinutes(0); eta != 15 {
		t.Fatalf("expected base minutes at 0km, got %d", eta)
	}
}

func TestOptionsSmartRepriced(t *testing.T) {
	opts := Options(10, false)
	if len(opts) != 4 {
		t.Fatalf("expected 4 options, got %d", len(opts))
	}
	var found bool
	for _, o := range opts {
		if o.Type == TypeSmart {
			found = true
			if o.BasePrice != SmartFee(10) {
				t.Fatalf("smart option not repriced: %v", o.BasePrice)
			}
		}
	}
	if !found {
		t.Fatal("smart option missing")
	}
}

func TestColdChainCollapse(t *testing.T) {
	opts := Options(10, true)
	if len(opts) != 1 {
		t.Fatalf("expected the option set to collapse to one, got %d", len(opts))
	}
	if opts[0].Type != TypeColdChain || !opts[0].AutoSelected {
		t.Fatalf("expected auto-selected cold-chain option, got %+v", opts[0])
	}
}
