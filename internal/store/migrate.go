// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateIface is the subset of *migrate.Migrate used by Migrator.
type migrateIface interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m migrateIface
}

// NewMigrator creates a Migrator for databaseURL. postgres:// and
// postgresql:// URLs are rewritten to the pgx5:// scheme the driver expects.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "open embedded migrations").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, MigrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}
	return &Migrator{m: m}, nil
}

// MigrateURL rewrites a libpq-style URL to the pgx5:// scheme.
// Other schemes are returned unchanged.
func MigrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies all pending migrations. Being already current is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down rolls back every migration. This drops the accounts table.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Version returns the applied version and whether the last migration
// failed partway. An empty database reports version 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It is the
// recovery path for a dirty database.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	switch {
	case srcErr != nil && dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	case srcErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	case dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// Pending returns the embedded versions newer than the applied version,
// in ascending order.
func (m *Migrator) Pending() ([]uint, error) {
	current, _, err := m.Version()
	if err != nil {
		return nil, oops.With("operation", "list pending migrations").Wrap(err)
	}
	all, err := migrationVersions(migrationsFS)
	if err != nil {
		return nil, err
	}
	var pending []uint
	for _, v := range all {
		if v > current {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// migrationVersions lists the versions of the *.up.sql files in fsys.
// Files not named NNNNNN_name.up.sql are ignored.
func migrationVersions(fsys fs.ReadDirFS) ([]uint, error) {
	entries, err := fsys.ReadDir("migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").Wrap(err)
	}

	var versions []uint
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		var v uint
		if _, err := fmt.Sscanf(name, "%06d_", &v); err != nil {
			continue
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return slices.Compact(versions), nil
}
