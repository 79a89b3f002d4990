package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	maxRetries    = 5
	retryInterval = 2 * time.Second
)

// PoolOptions sizes the shared connection pool. The score worker's
// subscription does not count against it; see Listener.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// NewPool connects to PostgreSQL, retrying while the database comes up.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions, logger zerolog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				logger.Info().
					Int32("max_conns", config.MaxConns).
					Int32("min_conns", config.MinConns).
					Msg("database connected")
				return pool, nil
			}
			pool.Close()
			err = pingErr
		}

		logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", maxRetries).
			Msg("database connection attempt failed")
		if attempt < maxRetries {
			select {
			case <-time.After(retryInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxRetries, err)
}
