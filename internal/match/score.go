package match

import (
	"errors"
	"fmt"
	"math"

	"github.com/palengke-dev/farmgate-api/internal/geo"
)

// ErrBadWeights is returned when scoring weights do not sum to one.
var ErrBadWeights = errors.New("match: weights must sum to 1.0")

const (
	// DefaultMaxDistanceKm is the proximity normalisation threshold.
	DefaultMaxDistanceKm = 50.0
	// neutralProximity is used when the buyer location is unknown. It
	// distinguishes "no signal" from "known to be far away" (score 0).
	neutralProximity = 0.5
	// DefaultSmartThreshold flags a listing as a smart match in the UI.
	DefaultSmartThreshold = 0.6
)

// Weights holds the relative importance of each scoring factor.
type Weights struct {
	Proximity float64
	Price     float64
	Demand    float64
	Rating    float64
}

// DefaultWeights returns the production scoring weights.
func DefaultWeights() Weights {
	return Weights{Proximity: 0.4, Price: 0.3, Demand: 0.2, Rating: 0.1}
}

// NewWeights validates a weight set. The sum must be 1.0 within 1e-9.
func NewWeights(proximity, price, demand, rating float64) (Weights, error) {
	w := Weights{Proximity: proximity, Price: price, Demand: demand, Rating: rating}
	sum := proximity + price + demand + rating
	if math.Abs(sum-1.0) > 1e-9 {
		return Weights{}, fmt.Errorf("%w: got %v", ErrBadWeights, sum)
	}
	return w, nil
}

// Product is the normalised scoring input. Defaulting of raw catalog rows
// happens once at the boundary, not inside the scoring math.
type Product struct {
	ID             string
	Category       string
	UnitPrice      float64
	SoldCount      int
	Stock          int
	Rating         float64
	FarmerLocation *geo.Coordinate
}

// Reason identifies the dominant factor behind a composite score.
type Reason string

const (
	ReasonProximity Reason = "nearby-farm"
	ReasonPrice     Reason = "great-value"
	ReasonDemand    Reason = "in-demand"
	ReasonRating    Reason = "top-rated"
)

// Score carries the per-factor breakdown and weighted composite, all in
// [0,1]. It is a view-time derived value and is never persisted.
type Score struct {
	Proximity    float64 `json:"proximityScore"`
	Price        float64 `json:"priceScore"`
	Demand       float64 `json:"demandScore"`
	Rating       float64 `json:"ratingScore"`
	Composite    float64 `json:"compositeScore"`
	Reason       Reason  `json:"matchReason"`
	IsSmartMatch bool    `json:"isSmartMatch"`
}

// Scorer computes smart-match scores for catalog listings.
type Scorer struct {
	Weights        Weights
	MaxDistanceKm  float64
	SmartThreshold float64
}

// NewScorer validates the weights and applies defaults for the distance
// threshold and smart-match cutoff.
func NewScorer(w Weights, maxDistanceKm, smartThreshold float64) (Scorer, error) {
	if _, err := NewWeights(w.Proximity, w.Price, w.Demand, w.Rating); err != nil {
		return Scorer{}, err
	}
	if maxDistanceKm <= 0 {
		maxDistanceKm = DefaultMaxDistanceKm
	}
	if smartThreshold <= 0 {
		smartThreshold = DefaultSmartThreshold
	}
	return Scorer{Weights: w, MaxDistanceKm: maxDistanceKm, SmartThreshold: smartThreshold}, nil
}

// Score computes the smart-match score for one product. Pure: it reads its
// inputs and nothing else, so catalogs can be scored concurrently and tests
// can vary one factor at a time. buyerLoc may be nil when geolocation is
// unavailable; categoryAvgPrice <= 0 means no price reference exists.
func (s Scorer) Score(p Product, buyerLoc *geo.Coordinate, categoryAvgPrice float64) Score {
	score := Score{
		Proximity: s.proximityScore(p, buyerLoc),
		Price:     priceScore(p.UnitPrice, categoryAvgPrice),
		Demand:    demandScore(p.SoldCount, p.Stock),
		Rating:    ratingScore(p.Rating),
	}
	score.Composite = s.Weights.Proximity*score.Proximity +
		s.Weights.Price*score.Price +
		s.Weights.Demand*score.Demand +
		s.Weights.Rating*score.Rating
	score.Reason = attributeReason(score)
	score.IsSmartMatch = score.Composite > s.SmartThreshold
	return score
}

func (s Scorer) proximityScore(p Product, buyerLoc *geo.Coordinate) float64 {
	if buyerLoc == nil || p.FarmerLocation == nil {
		return neutralProximity
	}
	d := geo.DistanceKm(*buyerLoc, *p.FarmerLocation)
	return math.Max(0, 1-d/s.MaxDistanceKm)
}

// priceScore favours listings moderately below the category average: a
// value signal, not a race to the bottom. Ratio <= 0.7 scores 0.7, ratio
// >= 1.3 scores 0.3, linear in between.
func priceScore(price, categoryAvg float64) float64 {
	if categoryAvg <= 0 || price < 0 {
		return neutralProximity
	}
	ratio := price / categoryAvg
	switch {
	case ratio <= 0.7:
		return 0.7
	case ratio >= 1.3:
		return 0.3
	default:
		// Linear interpolation from (0.7, 0.7) down to (1.3, 0.3).
		return 0.7 - (ratio-0.7)/(1.3-0.7)*0.4
	}
}

// demandScore is a sell-through proxy. Exhausted stock scores zero: a
// listing that cannot be fulfilled cannot be recommended.
func demandScore(sold, stock int) float64 {
	if stock <= 0 {
		return 0
	}
	if sold <= 0 {
		return 0
	}
	return math.Min(1, 2*float64(sold)/float64(sold+stock))
}

func ratingScore(rating float64) float64 {
	return math.Min(1, math.Max(0, rating/5))
}

// attributeReason picks the numerically dominant component. Ties resolve by
// priority proximity > price > demand > rating. This is an explainable
// heuristic, not a rigorous attribution.
func attributeReason(s Score) Reason {
	best, reason := s.Proximity, ReasonProximity
	if s.Price > best {
		best, reason = s.Price, ReasonPrice
	}
	if s.Demand > best {
		best, reason = s.Demand, ReasonDemand
	}
	if s.Rating > best {
		reason = ReasonRating
	}
	return reason
}
