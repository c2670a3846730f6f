package delivery

import "math"

// VehicleClass selects a coefficient set for the shipping calculator.
type VehicleClass string

const (
	Motorcycle VehicleClass = "motorcycle"
	Tricycle   VehicleClass = "tricycle"
	Van        VehicleClass = "van"
)

// RateCard holds the affine coefficients for one vehicle class. Fees are in
// pesos, durations in minutes; both grow linearly with distance so sellers
// and buyers can reason about proximity pricing.
type RateCard struct {
	BaseFee      float64
	PerKmFee     float64
	BaseMinutes  float64
	PerKmMinutes float64
}

var rateCards = map[VehicleClass]RateCard{
	Motorcycle: {BaseFee: 20, PerKmFee: 5, BaseMinutes: 15, PerKmMinutes: 3},
	Tricycle:   {BaseFee: 30, PerKmFee: 7, BaseMinutes: 20, PerKmMinutes: 4},
	Van:        {BaseFee: 80, PerKmFee: 12, BaseMinutes: 30, PerKmMinutes: 3},
}

// smartRate is the fixed coefficient set for the simplified smart delivery
// path used by cart quotes.
var smartRate = RateCard{BaseFee: 20, PerKmFee: 5, BaseMinutes: 15, PerKmMinutes: 3}

// Rates returns the rate card for a vehicle class, defaulting to motorcycle
// for unknown classes.
func Rates(class VehicleClass) RateCard {
	if rc, ok := rateCards[class]; ok {
		return rc
	}
	return rateCards[Motorcycle]
}

// Fee computes the delivery fee for a distance using the class rate card.
// Callers must guarantee distanceKm >= 0; negative input is a contract
// violation and produces a nonsensical result rather than a silent clamp.
func Fee(class VehicleClass, distanceKm float64) float64 {
	rc := Rates(class)
	return rc.BaseFee + rc.PerKmFee*distanceKm
}

// ETAMinutes computes the estimated delivery duration for a distance,
// rounded up to a whole minute.
func ETAMinutes(class VehicleClass, distanceKm float64) int {
	rc := Rates(class)
	return int(math.Ceil(rc.BaseMinutes + rc.PerKmMinutes*distanceKm))
}

// SmartFee computes the fee on the simplified smart delivery path.
func SmartFee(distanceKm float64) float64 {
	return smartRate.BaseFee + smartRate.PerKmFee*distanceKm
}

// SmartETAMinutes computes the ETA on the simplified smart delivery path.
func SmartETAMinutes(distanceKm float64) int {
	return int(math.Ceil(smartRate.BaseMinutes + smartRate.PerKmMinutes*distanceKm))
}
