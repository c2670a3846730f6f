package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	// Pricing. The platform fee historically moved from 5% to 2%; both the
	// fee and VAT rates are configuration, never literals in the engine.
	PlatformFeeRate float64
	VATRate         float64
	CurrencyCode    string

	// Order number allocation.
	OrderNumberPrefix     string
	OrderNumberMaxRetries int
	OrderLockTTL          time.Duration

	// Smart match.
	MatchMaxDistanceKm  float64
	MatchWeights        MatchWeights
	SmartMatchThreshold float64

	// Benchmark / catalog caching.
	BenchmarkCacheTTL time.Duration
	CatalogCacheTTL   time.Duration

	// Quote endpoint rate limiting.
	QuoteRateLimitMax    int
	QuoteRateLimitWindow time.Duration

	// Circuit breaker guarding live platform-average queries.
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	// Catalog paging.
	CatalogDefaultLimit int
	CatalogMaxLimit     int
}

// MatchWeights carries raw scoring weights; match.NewWeights validates them.
type MatchWeights struct {
	Proximity float64
	Price     float64
	Demand    float64
	Rating    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		PlatformFeeRate: parseFloat(k.String("PRICING_PLATFORM_FEE_RATE"), 0.02),
		VATRate:         parseFloat(k.String("PRICING_VAT_RATE"), 0.12),
		CurrencyCode:    valueOrDefault(k.String("PRICING_CURRENCY"), "PHP"),

		OrderNumberPrefix:     valueOrDefault(k.String("ORDER_NUMBER_PREFIX"), "FTM"),
		OrderNumberMaxRetries: parseInt(k.String("ORDER_NUMBER_MAX_RETRIES"), 5),
		OrderLockTTL:          parseDuration(k.String("ORDER_LOCK_TTL"), "5s"),

		MatchMaxDistanceKm: parseFloat(k.String("MATCH_MAX_DISTANCE_KM"), 50),
		MatchWeights: MatchWeights{
			Proximity: parseFloat(k.String("MATCH_WEIGHT_PROXIMITY"), 0.4),
			Price:     parseFloat(k.String("MATCH_WEIGHT_PRICE"), 0.3),
			Demand:    parseFloat(k.String("MATCH_WEIGHT_DEMAND"), 0.2),
			Rating:    parseFloat(k.String("MATCH_WEIGHT_RATING"), 0.1),
		},
		SmartMatchThreshold: parseFloat(k.String("MATCH_SMART_THRESHOLD"), 0.6),

		BenchmarkCacheTTL: parseDuration(k.String("BENCHMARK_CACHE_TTL"), "5m"),
		CatalogCacheTTL:   parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),

		QuoteRateLimitMax:    parseInt(k.String("QUOTE_RATE_LIMIT_MAX"), 30),
		QuoteRateLimitWindow: parseDuration(k.String("QUOTE_RATE_LIMIT_WINDOW"), "1m"),

		BreakerMinRequests:  parseInt(k.String("BREAKER_MIN_REQUESTS"), 10),
		BreakerFailureRatio: parseFloat(k.String("BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("BREAKER_OPEN_FOR"), "30s"),

		CatalogDefaultLimit: parseInt(k.String("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     parseInt(k.String("CATALOG_MAX_LIMIT"), 100),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.PlatformFeeRate < 0 || cfg.PlatformFeeRate >= 1 {
		return nil, fmt.Errorf("PRICING_PLATFORM_FEE_RATE out of range: %v", cfg.PlatformFeeRate)
	}
	if cfg.VATRate < 0 || cfg.VATRate >= 1 {
		return nil, fmt.Errorf("PRICING_VAT_RATE out of range: %v", cfg.VATRate)
	}
	if cfg.OrderNumberMaxRetries < 1 {
		cfg.OrderNumberMaxRetries = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
