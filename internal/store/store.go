package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store is the relational persistence layer. All queries go through the
// shared pgx pool; transactions are scoped to single methods.
type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Ping verifies database connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.Pool == nil {
		return errors.New("store: pool not configured")
	}
	return s.Pool.Ping(ctx)
}
