// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package store manages the PostgreSQL connection pool and schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Backoff bounds for the startup ping loop.
var (
	pingBackoffBase = 250 * time.Millisecond
	pingBackoffCap  = 5 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Connect opens a pool for databaseURL and blocks until the database
// answers a ping or timeout elapses.
func Connect(ctx context.Context, databaseURL string, timeout time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := waitForPing(ctx, pool, timeout); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// waitForPing retries p.Ping with capped exponential backoff.
func waitForPing(ctx context.Context, p pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := retry.WithCappedDuration(pingBackoffCap, retry.NewExponential(pingBackoffBase))

	attempts := 0
	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := p.Ping(ctx); err != nil {
			lastErr = err
			slog.DebugContext(ctx, "database not ready", "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		return oops.Code("DB_CONNECT_FAILED").
			With("attempts", attempts).
			With("timeout", timeout.String()).
			Wrap(err)
	}
	return nil
}
