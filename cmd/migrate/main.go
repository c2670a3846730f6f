package main

import (
	"errors"
	"flag"
	"os"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/palengke-dev/farmgate-api/internal/config"
	"github.com/palengke-dev/farmgate-api/internal/obs"
)

func main() {
	var (
		dir  = flag.String("dir", "db/migrations", "migrations directory")
		down = flag.Bool("down", false, "roll back one migration instead of migrating up")
	)
	flag.Parse()

	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "console"), envOrDefault("OBS_LOG_LEVEL", "info"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	m, err := migrate.New("file://"+*dir, pgxURL(cfg.DatabaseURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("open migrations")
	}
	defer m.Close()

	if *down {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal().Err(err).Msg("roll back migration")
		}
		logger.Info().Msg("rolled back one migration")
		return
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	version, dirty, _ := m.Version()
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
}

// pgxURL rewrites the postgres scheme so migrate picks the pgx v5 driver.
func pgxURL(dsn string) string {
	if rest, ok := strings.CutPrefix(dsn, "postgresql://"); ok {
		return "pgx5://" + rest
	}
	if rest, ok := strings.CutPrefix(dsn, "postgres://"); ok {
		return "pgx5://" + rest
	}
	return dsn
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
