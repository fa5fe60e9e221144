package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store aggregates repositories backed by PostgreSQL. It holds the single
// shared connection pool; construct one in main and pass it down.
type Store struct {
	pool *pgxpool.Pool

	Events       EventRepository
	AccessTokens AccessTokenRepository
}

// New wires concrete repository implementations with the shared pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:         pool,
		Events:       &eventRepo{pool: pool},
		AccessTokens: &accessTokenRepo{pool: pool},
	}
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.pool.Ping(ctx)
}

// Migrate applies any pending embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return ApplyMigrations(ctx, s.pool)
}
