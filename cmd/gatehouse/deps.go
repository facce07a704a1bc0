// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
)

// Deps contains injectable dependencies for the CLI commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// DatabaseFactory opens the account store.
	// Default: connectDatabase (pgx pool + postgres.AccountRepository)
	DatabaseFactory func(ctx context.Context, url string, timeout time.Duration) (Database, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// HTTPServerFactory creates the public API server.
	// Default: web.NewServer
	HTTPServerFactory func(addr string, handler http.Handler) Server

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, gatherer prometheus.Gatherer, ready observability.ReadinessChecker) Server

	// Hasher hashes and verifies passwords.
	// Default: auth.NewBcryptHasher
	Hasher auth.PasswordHasher

	// LogWriter receives log output.
	// Default: os.Stderr
	LogWriter io.Writer
}

// withDefaults returns a copy of d with every nil field populated.
func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = connectDatabase
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.HTTPServerFactory == nil {
		out.HTTPServerFactory = func(addr string, handler http.Handler) Server {
			return web.NewServer(addr, handler)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, gatherer prometheus.Gatherer, ready observability.ReadinessChecker) Server {
			return observability.NewServer(addr, gatherer, ready)
		}
	}
	if out.Hasher == nil {
		out.Hasher = auth.NewBcryptHasher()
	}
	if out.LogWriter == nil {
		out.LogWriter = os.Stderr
	}
	return &out
}

// Database is an open account store.
type Database interface {
	Ping(ctx context.Context) error
	Accounts() auth.AccountDirectory
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Pending() ([]uint, error)
	Close() error
}

// Server wraps the lifecycle shared by web.Server and observability.Server.
type Server interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// pgDatabase is the PostgreSQL-backed Database.
type pgDatabase struct {
	pool     *pgxpool.Pool
	accounts *postgres.AccountRepository
}

func connectDatabase(ctx context.Context, url string, timeout time.Duration) (Database, error) {
	pool, err := store.Connect(ctx, url, timeout)
	if err != nil {
		return nil, err
	}
	return &pgDatabase{pool: pool, accounts: postgres.NewAccountRepository(pool)}, nil
}

func (d *pgDatabase) Ping(ctx context.Context) error  { return d.pool.Ping(ctx) }
func (d *pgDatabase) Accounts() auth.AccountDirectory { return d.accounts }
func (d *pgDatabase) Close()                          { d.pool.Close() }
