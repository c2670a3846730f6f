package benchmark

import "strings"

// Quality grades a listing for benchmark adjustment.
type Quality string

const (
	QualityPremium  Quality = "premium"
	QualityStandard Quality = "standard"
	QualityEconomy  Quality = "economy"
)

// defaultCategory backs unknown categories so benchmarking never fails.
const defaultCategory = "default"

// basePrices is the static per-kilo reference table in pesos. It is the
// fallback when no live market data exists for a category.
var basePrices = map[string]float64{
	"vegetables": 80,
	"fruits":     120,
	"rice":       55,
	"grains":     70,
	"poultry":    180,
	"livestock":  280,
	"seafood":    250,
	"herbs":      150,
	"default":    100,
}

var qualityMultipliers = map[Quality]float64{
	QualityPremium:  1.3,
	QualityStandard: 1.0,
	QualityEconomy:  0.8,
}

// Allowed price band relative to the benchmark average.
const (
	minAllowedRatio = 0.6
	maxAllowedRatio = 1.4
)

// Reference is a price benchmark with its advisory bounds.
type Reference struct {
	Category     string  `json:"category"`
	Quality      Quality `json:"quality"`
	AveragePrice float64 `json:"averagePrice"`
	MinAllowed   float64 `json:"minAllowed"`
	MaxAllowed   float64 `json:"maxAllowed"`
}

// Static returns the table-driven benchmark for a category and quality.
// Unknown categories fall back to the default row; unknown qualities are
// treated as standard.
func Static(category string, quality Quality) Reference {
	key := normalizeCategory(category)
	base, ok := basePrices[key]
	if !ok {
		key = defaultCategory
		base = basePrices[defaultCategory]
	}
	mult, ok := qualityMultipliers[quality]
	if !ok {
		quality = QualityStandard
		mult = 1.0
	}
	avg := base * mult
	return Reference{
		Category:     key,
		Quality:      quality,
		AveragePrice: avg,
		MinAllowed:   avg * minAllowedRatio,
		MaxAllowed:   avg * maxAllowedRatio,
	}
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
