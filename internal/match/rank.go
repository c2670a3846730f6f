package match

import (
	"sort"

	"github.com/palengke-dev/farmgate-api/internal/geo"
)

// Ranked pairs a product with its computed score.
type Ranked struct {
	Product Product
	Score   Score
}

// Rank scores every product against the buyer context and returns them
// sorted by composite score, highest first. categoryAvg maps category name
// to its average price; a missing entry yields the neutral price score.
func (s Scorer) Rank(products []Product, buyerLoc *geo.Coordinate, categoryAvg map[string]float64) []Ranked {
	ranked := make([]Ranked, 0, len(products))
	for _, p := range products {
		avg := categoryAvg[p.Category]
		ranked = append(ranked, Ranked{Product: p, Score: s.Score(p, buyerLoc, avg)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Composite > ranked[j].Score.Composite
	})
	return ranked
}
