package benchmark

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/palengke-dev/farmgate-api/internal/obs"
	"github.com/palengke-dev/farmgate-api/internal/resilience"
)

// ListingStore exposes the read-only catalog access benchmarking needs.
type ListingStore interface {
	ActiveListingPrices(ctx context.Context, category string) ([]float64, error)
}

// Validation is the advisory result of a seller price check. Sellers are
// informed, never blocked; the caller decides whether to warn or ignore.
type Validation struct {
	IsValid    bool    `json:"isValid"`
	Suggestion float64 `json:"suggestion,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// Service resolves price references from live market data with a static
// table fallback. Any store failure degrades to the static benchmark:
// pricing stays available when the live data source is unreachable.
type Service struct {
	Store   ListingStore
	Cache   *Cache
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

// Benchmark returns the static category benchmark adjusted for quality.
func (s *Service) Benchmark(category string, quality Quality) Reference {
	return Static(category, quality)
}

// PlatformAverage computes the live mean of active listed prices in the
// category. Falls back to the static benchmark when no listings exist, the
// store errors, or the circuit is open.
func (s *Service) PlatformAverage(ctx context.Context, category string) Reference {
	static := Static(category, QualityStandard)
	if s == nil || s.Store == nil {
		return static
	}

	key := CacheKey(static.Category)
	if s.Cache != nil {
		var cached Reference
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached
		}
	}

	if s.Breaker != nil && !s.Breaker.Allow(ctx) {
		return s.fallback(static, "breaker_open")
	}
	prices, err := s.Store.ActiveListingPrices(ctx, static.Category)
	if s.Breaker != nil {
		s.Breaker.Report(ctx, err == nil)
	}
	if err != nil {
		s.Logger.Warn().Err(err).Str("category", static.Category).Msg("platform average unavailable, using static benchmark")
		return s.fallback(static, "store_error")
	}
	if len(prices) == 0 {
		return s.fallback(static, "no_listings")
	}

	ref, ok := FromPrices(static.Category, prices)
	if !ok {
		return static
	}
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, key, ref)
	}
	return ref
}

func (s *Service) fallback(static Reference, reason string) Reference {
	if obs.BenchmarkFallbackTotal != nil {
		obs.BenchmarkFallbackTotal.WithLabelValues(reason).Inc()
	}
	return static
}

// FromPrices builds a live reference from listing prices. ok is false when
// there is no data to average.
func FromPrices(category string, prices []float64) (Reference, bool) {
	if len(prices) == 0 {
		return Reference{}, false
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	avg := sum / float64(len(prices))
	return Reference{
		Category:     category,
		Quality:      QualityStandard,
		AveragePrice: avg,
		MinAllowed:   avg * minAllowedRatio,
		MaxAllowed:   avg * maxAllowedRatio,
	}, true
}

// ValidatePrice flags seller prices outside the advisory band around the
// category reference.
func (s *Service) ValidatePrice(ctx context.Context, price float64, category string) Validation {
	ref := s.PlatformAverage(ctx, category)
	if price < ref.MinAllowed {
		return Validation{
			IsValid:    false,
			Suggestion: ref.AveragePrice,
			Reason:     fmt.Sprintf("price is below %.0f%% of the %s benchmark (%.2f)", minAllowedRatio*100, ref.Category, ref.AveragePrice),
		}
	}
	if price > ref.MaxAllowed {
		return Validation{
			IsValid:    false,
			Suggestion: ref.AveragePrice,
			Reason:     fmt.Sprintf("price is above %.0f%% of the %s benchmark (%.2f)", maxAllowedRatio*100, ref.Category, ref.AveragePrice),
		}
	}
	return Validation{IsValid: true}
}

// CacheKey is the redis key for a category's cached live reference. The
// background refresher writes the same key the service reads.
func CacheKey(category string) string {
	return "benchmark:platform-average:" + category
}
