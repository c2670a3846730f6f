package delivery

// OptionType identifies a delivery method.
type OptionType string

const (
	TypeSmart     OptionType = "smart"
	TypePriority  OptionType = "priority"
	TypeStandard  OptionType = "standard"
	TypeSaver     OptionType = "saver"
	TypeColdChain OptionType = "cold-chain"
)

// Option describes one selectable delivery method. The smart option's price
// is not static: it is overwritten with the computed fee for the current
// cart's distance before the set is returned.
type Option struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Type              OptionType `json:"type"`
	BasePrice         float64    `json:"basePrice"`
	DurationLabel     string     `json:"durationLabel"`
	RequiresColdChain bool       `json:"requiresColdChain"`
	AutoSelected      bool       `json:"autoSelected"`
}

func standardOptions() []Option {
	return []Option{
		{ID: "smart", Name: "Smart Delivery", Type: TypeSmart, BasePrice: 0, DurationLabel: "same day"},
		{ID: "priority", Name: "Priority", Type: TypePriority, BasePrice: 150, DurationLabel: "within 3 hours"},
		{ID: "standard", Name: "Standard", Type: TypeStandard, BasePrice: 80, DurationLabel: "next day"},
		{ID: "saver", Name: "Saver", Type: TypeSaver, BasePrice: 50, DurationLabel: "2-3 days"},
	}
}

func coldChainOption() Option {
	return Option{
		ID:                "cold-chain",
		Name:              "Cold Chain",
		Type:              TypeColdChain,
		BasePrice:         200,
		DurationLabel:     "same day, refrigerated",
		RequiresColdChain: true,
		AutoSelected:      true,
	}
}

// Options returns the delivery option set for a cart. When any line
// requires cold-chain handling the set collapses to exactly the cold-chain
// option, auto-selected; otherwise the smart option is repriced with the
// computed fee for distanceKm.
func Options(distanceKm float64, requiresColdChain bool) []Option {
	if requiresColdChain {
		return []Option{coldChainOption()}
	}
	opts := standardOptions()
	for i := range opts {
		if opts[i].Type == TypeSmart {
			opts[i].BasePrice = SmartFee(distanceKm)
		}
	}
	return opts
}
