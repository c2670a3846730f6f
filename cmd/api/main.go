package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/palengke-dev/farmgate-api/internal/benchmark"
	"github.com/palengke-dev/farmgate-api/internal/cart"
	"github.com/palengke-dev/farmgate-api/internal/catalog"
	"github.com/palengke-dev/farmgate-api/internal/checkout"
	"github.com/palengke-dev/farmgate-api/internal/config"
	"github.com/palengke-dev/farmgate-api/internal/events"
	"github.com/palengke-dev/farmgate-api/internal/health"
	"github.com/palengke-dev/farmgate-api/internal/lock"
	"github.com/palengke-dev/farmgate-api/internal/match"
	"github.com/palengke-dev/farmgate-api/internal/obs"
	"github.com/palengke-dev/farmgate-api/internal/ordernum"
	"github.com/palengke-dev/farmgate-api/internal/ratelimit"
	"github.com/palengke-dev/farmgate-api/internal/resilience"
	"github.com/palengke-dev/farmgate-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "farmgate")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "farmgate-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "farmgate-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	st := store.New(pool)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Redis only carries caches, locks and rate limits; quoting and
		// checkout still work without it.
		logger.Warn().Err(err).Msg("ping redis, continuing degraded")
	}

	validate := validator.New()

	weights, err := match.NewWeights(
		cfg.MatchWeights.Proximity,
		cfg.MatchWeights.Price,
		cfg.MatchWeights.Demand,
		cfg.MatchWeights.Rating,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid match weights")
	}
	scorer, err := match.NewScorer(weights, cfg.MatchMaxDistanceKm, cfg.SmartMatchThreshold)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise scorer")
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store:        st,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Scorer:       scorer,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := &catalog.Handler{Svc: catalogService}

	benchmarkSvc := &benchmark.Service{
		Store: st,
		Cache: benchmark.NewCache(redisClient, cfg.BenchmarkCacheTTL),
		Breaker: resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
			WithTarget("listing-prices").
			WithLogger(logger),
		Logger: logger,
	}

	bus := &events.Bus{Store: st}

	quoteSvc := cart.QuoteService{
		PlatformFeeRate: cfg.PlatformFeeRate,
		VATRate:         cfg.VATRate,
		Currency:        cfg.CurrencyCode,
	}
	cartHandler := &cart.Handler{Svc: quoteSvc, Validate: validate}

	allocator := &ordernum.Allocator{
		Store:      st,
		Lock:       lock.Locker{R: redisClient},
		Prefix:     cfg.OrderNumberPrefix,
		MaxRetries: cfg.OrderNumberMaxRetries,
		LockTTL:    cfg.OrderLockTTL,
		Logger:     logger,
	}
	checkoutSvc := &checkout.Service{
		Store:  st,
		Alloc:  allocator,
		Quotes: quoteSvc,
		Bus:    bus,
		Logger: logger,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc, Validate: validate}

	benchmarkHandler := &benchmark.Handler{Svc: benchmarkSvc, Bus: bus, Validate: validate}

	quoteLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient},
		Config: ratelimit.Config{
			Key:    ratelimit.ClientIP,
			Window: cfg.QuoteRateLimitWindow,
			Max:    cfg.QuoteRateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable, failing open")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      readinessChecker{db: pool, redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)

		v.Get("/prices/benchmark", benchmarkHandler.Benchmark)
		v.Post("/prices/validate", benchmarkHandler.ValidatePrice)

		v.Route("/carts", func(c chi.Router) {
			c.Use(quoteLimit.Middleware)
			c.Post("/quote", cartHandler.Quote)
			c.Post("/validate", cartHandler.ValidateCart)
			c.Post("/breakdown", cartHandler.Breakdown)
		})

		v.Post("/checkout", checkoutHandler.Place)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		health.SetReady(false)
		drain := envDurationMillis("SHUTDOWN_DRAIN_MS", 2000)
		time.Sleep(drain)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func (c readinessChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.Ping(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
