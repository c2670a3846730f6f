package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersPlacedTotal counts checkout outcomes.
	OrdersPlacedTotal *prometheus.CounterVec
	// PriceFlaggedTotal counts advisory price validation failures.
	PriceFlaggedTotal *prometheus.CounterVec
	// BenchmarkFallbackTotal counts live-average lookups that degraded to
	// the static benchmark table.
	BenchmarkFallbackTotal *prometheus.CounterVec
	// BenchmarkRefreshTotal counts background cache refresh outcomes.
	BenchmarkRefreshTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the marketplace
// domain collectors. Safe to call more than once.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersPlacedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Count of order placement outcomes.",
		}, []string{"result"})
		PriceFlaggedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_flagged_total",
			Help:      "Count of seller prices flagged outside the benchmark band.",
		}, []string{"category"})
		BenchmarkFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "benchmark_fallback_total",
			Help:      "Count of platform-average lookups that fell back to the static table.",
		}, []string{"reason"})
		BenchmarkRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "benchmark_refresh_total",
			Help:      "Count of background benchmark cache refresh outcomes.",
		}, []string{"result"})

		registerOrReuse(reg, OrdersPlacedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersPlacedTotal = v
			}
		})
		registerOrReuse(reg, PriceFlaggedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceFlaggedTotal = v
			}
		})
		registerOrReuse(reg, BenchmarkFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BenchmarkFallbackTotal = v
			}
		})
		registerOrReuse(reg, BenchmarkRefreshTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BenchmarkRefreshTotal = v
			}
		})
	})
}
