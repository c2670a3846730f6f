package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/palengke-dev/farmgate-api/internal/benchmark"
	"github.com/palengke-dev/farmgate-api/internal/obs"
)

// TaskBenchmarkRefresh recomputes the per-category platform averages and
// re-primes the cache so quote-path reads stay warm.
const TaskBenchmarkRefresh = "benchmark:refresh"

// NewBenchmarkRefreshTask builds the periodic refresh task.
func NewBenchmarkRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskBenchmarkRefresh, nil)
}

// CatalogStore is the read access the refresher needs.
type CatalogStore interface {
	Categories(ctx context.Context) ([]string, error)
	ActiveListingPrices(ctx context.Context, category string) ([]float64, error)
}

// BenchmarkRefresher recomputes live price references per category.
type BenchmarkRefresher struct {
	Store  CatalogStore
	Cache  *benchmark.Cache
	Logger zerolog.Logger
}

// Handle implements asynq.HandlerFunc for TaskBenchmarkRefresh. Categories
// that fail are skipped so one bad category does not starve the rest.
func (r *BenchmarkRefresher) Handle(ctx context.Context, _ *asynq.Task) error {
	categories, err := r.Store.Categories(ctx)
	if err != nil {
		if obs.BenchmarkRefreshTotal != nil {
			obs.BenchmarkRefreshTotal.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("worker: list categories: %w", err)
	}

	var refreshed int
	for _, category := range categories {
		prices, err := r.Store.ActiveListingPrices(ctx, category)
		if err != nil {
			r.Logger.Warn().Err(err).Str("category", category).Msg("benchmark refresh skipped category")
			continue
		}
		ref, ok := benchmark.FromPrices(category, prices)
		if !ok {
			continue
		}
		if err := r.Cache.SetJSON(ctx, benchmark.CacheKey(category), ref); err != nil {
			r.Logger.Warn().Err(err).Str("category", category).Msg("benchmark cache write failed")
			continue
		}
		refreshed++
	}

	if obs.BenchmarkRefreshTotal != nil {
		obs.BenchmarkRefreshTotal.WithLabelValues("ok").Inc()
	}
	r.Logger.Info().Int("categories", refreshed).Msg("benchmark cache refreshed")
	return nil
}
