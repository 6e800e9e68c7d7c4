// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection defaults.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 250 * time.Millisecond
)

type connectOptions struct {
	retries  uint64
	backoff  time.Duration
	maxConns int32
	logger   *slog.Logger
}

// ConnectOption configures Connect.
type ConnectOption func(*connectOptions)

// WithRetries sets how many times a failed ping is retried.
func WithRetries(n uint64) ConnectOption {
	return func(o *connectOptions) { o.retries = n }
}

// WithBackoff sets the base of the exponential backoff between pings.
func WithBackoff(d time.Duration) ConnectOption {
	return func(o *connectOptions) {
		if d > 0 {
			o.backoff = d
		}
	}
}

// WithMaxConns caps the pool size. Zero keeps the pgxpool default.
func WithMaxConns(n int32) ConnectOption {
	return func(o *connectOptions) { o.maxConns = n }
}

// WithLogger sets the logger used to report failed attempts.
func WithLogger(logger *slog.Logger) ConnectOption {
	return func(o *connectOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Connect opens a pgx pool and waits until the database answers a ping,
// retrying with exponential backoff. The pool is closed on failure.
func Connect(ctx context.Context, databaseURL string, opts ...ConnectOption) (*pgxpool.Pool, error) {
	o := connectOptions{
		retries: DefaultConnectRetries,
		backoff: DefaultConnectBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("host", cfg.ConnConfig.Host).Wrap(err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(o.retries, retry.NewExponential(o.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			o.logger.Warn("database not ready",
				"host", cfg.ConnConfig.Host,
				"attempt", attempt,
				"error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_UNAVAILABLE").
			With("host", cfg.ConnConfig.Host).
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
