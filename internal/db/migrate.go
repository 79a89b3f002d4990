package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	// Advisory lock key so that concurrently starting replicas migrate once.
	// 0x7265616c74 is "realt" in ASCII.
	migrationLockID             = 0x7265616c74
	migrationLockReleaseTimeout = 5 * time.Second
)

// Migrate applies the embedded schema migrations under an advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for migration: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), migrationLockReleaseTimeout)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			logger.Error().Err(err).Msg("release migration lock")
		}
	}()

	return runMigrations(ctx, conn.Conn(), logger)
}

func runMigrations(ctx context.Context, conn *pgx.Conn, logger zerolog.Logger) error {
	migrationFS, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, "public.schema_version")
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := migrator.LoadMigrations(migrationFS); err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if current, err := migrator.GetCurrentVersion(ctx); err == nil {
		logger.Info().Int32("version", current).Int("available", len(migrator.Migrations)).Msg("running database migrations")
	}

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
