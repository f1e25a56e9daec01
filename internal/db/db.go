// Package db provides PostgreSQL access for searches, research artifacts,
// interview stages and questions.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// ConnectOptions bounds the startup retry.
type ConnectOptions struct {
	MaxElapsed      time.Duration
	InitialInterval time.Duration
}

// DefaultConnectOptions retries for up to 30 seconds.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{MaxElapsed: 30 * time.Second, InitialInterval: 500 * time.Millisecond}
}

// Connect establishes a connection pool to the database. The initial ping is
// retried with exponential backoff so the service can start alongside the
// database container.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	return ConnectWithOptions(ctx, databaseURL, DefaultConnectOptions())
}

// ConnectWithOptions is Connect with an explicit retry budget.
func ConnectWithOptions(ctx context.Context, databaseURL string, opts ConnectOptions) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = opts.InitialInterval
	expo.MaxElapsedTime = opts.MaxElapsed

	attempt := 0
	ping := func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			slog.Warn("database not ready", slog.Int("attempt", attempt), slog.Any("error", err))
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(expo, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
