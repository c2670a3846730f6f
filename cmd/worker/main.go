package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/palengke-dev/farmgate-api/internal/benchmark"
	"github.com/palengke-dev/farmgate-api/internal/config"
	"github.com/palengke-dev/farmgate-api/internal/obs"
	"github.com/palengke-dev/farmgate-api/internal/store"
	"github.com/palengke-dev/farmgate-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().
		Str("env", cfg.AppEnv).
		Str("service", "farmgate-worker").
		Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "farmgate"), nil)

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
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "farmgate-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	st := store.New(pool)

	redisConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	refresher := &worker.BenchmarkRefresher{
		Store:  st,
		Cache:  benchmark.NewCache(newRedisClient(redisConn), cfg.BenchmarkCacheTTL),
		Logger: logger,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskBenchmarkRefresh, refresher.Handle)

	srv := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: envInt("WORKER_CONCURRENCY", 4),
		Logger:      asynqLogger{logger},
	})

	interval := envOrDefault("BENCHMARK_REFRESH_INTERVAL", "@every 5m")
	scheduler := asynq.NewScheduler(redisConn, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(interval, worker.NewBenchmarkRefreshTask()); err != nil {
		logger.Fatal().Err(err).Msg("register benchmark refresh schedule")
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler exited")
			stop()
		}
	}()

	logger.Info().Str("interval", interval).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}

	<-shutdownCtx.Done()
	logger.Info().Msg("worker shutting down")
	scheduler.Shutdown()
	srv.Shutdown()
}

func newRedisClient(conn asynq.RedisConnOpt) *redis.Client {
	client, ok := conn.MakeRedisClient().(*redis.Client)
	if !ok {
		panic("unsupported redis connection type")
	}
	return client
}

// asynqLogger adapts zerolog to asynq's logging interface.
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msgf("%v", args) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info().Msgf("%v", args) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msgf("%v", args) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msgf("%v", args) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msgf("%v", args) }

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
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
