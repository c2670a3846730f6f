package cart

import (
	"fmt"
	"strings"

	"github.com/palengke-dev/farmgate-api/internal/geo"
)

// LineItem is one product selection in a cart snapshot. Quantities are
// validated against the line's constraints, never silently corrected.
type LineItem struct {
	ProductID            string
	Name                 string
	UnitPrice            float64
	Quantity             int
	Unit                 string
	MinimumOrderQuantity int
	SellerID             string
	FarmerLocation       *geo.Coordinate
	RequiresColdChain    bool
	Category             string
	// Stock is nil when unknown (client snapshot without live stock).
	Stock *int
}

// NormalizeLine applies boundary defaults. Callers pass every inbound
// line through here exactly once, before validation or quoting.
func NormalizeLine(li LineItem) LineItem {
	if li.MinimumOrderQuantity < 1 {
		li.MinimumOrderQuantity = 1
	}
	if li.Unit == "" {
		li.Unit = "kg"
	}
	li.Category = strings.ToLower(strings.TrimSpace(li.Category))
	return li
}

// LineReport is the validation outcome for a single line.
type LineReport struct {
	ProductID string `json:"productId"`
	Valid     bool   `json:"valid"`
	Message   string `json:"message,omitempty"`
}

// CartReport aggregates every violated line so the buyer can fix the
// whole cart in one pass.
type CartReport struct {
	Valid  bool         `json:"valid"`
	Errors []LineReport `json:"errors,omitempty"`
}

func (li LineItem) label() string {
	if li.Name != "" {
		return li.Name
	}
	return li.ProductID
}

// ValidateLine checks the quantity against the minimum order quantity and,
// when stock is known, against availability.
func ValidateLine(li LineItem) LineReport {
	li = NormalizeLine(li)
	if li.Quantity < li.MinimumOrderQuantity {
		return LineReport{
			ProductID: li.ProductID,
			Message: fmt.Sprintf("%s: quantity %d is below the minimum order of %d %s",
				li.label(), li.Quantity, li.MinimumOrderQuantity, li.Unit),
		}
	}
	if li.Stock != nil && li.Quantity > *li.Stock {
		return LineReport{
			ProductID: li.ProductID,
			Message: fmt.Sprintf("%s: only %d %s in stock, requested %d",
				li.label(), *li.Stock, li.Unit, li.Quantity),
		}
	}
	return LineReport{ProductID: li.ProductID, Valid: true}
}

// ValidateCart validates every line and collects all failures rather than
// stopping at the first one.
func ValidateCart(items []LineItem) CartReport {
	report := CartReport{Valid: true}
	for _, li := range items {
		if r := ValidateLine(li); !r.Valid {
			report.Valid = false
			report.Errors = append(report.Errors, r)
		}
	}
	return report
}
