// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package postgres implements auth.AccountDirectory on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool used by the repository.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id, name, email, password_hash, is_admin, last_login_at, created_at, updated_at`

// AccountRepository implements auth.AccountDirectory using PostgreSQL.
type AccountRepository struct {
	pool poolIface
	now  func() time.Time
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool, now: time.Now}
}

var _ auth.AccountDirectory = (*AccountRepository)(nil)

// Create stores a new account. The accounts_email_key constraint turns a
// duplicate email into auth.ErrEmailTaken.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		account.ID.String(),
		account.Name,
		account.Email,
		account.PasswordHash,
		account.IsAdmin,
		account.LastLoginAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_EMAIL_TAKEN").
			With("email", account.Email).
			Wrap(auth.ErrEmailTaken)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("email", account.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by exact email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// RecordLogin sets last_login_at.
func (r *AccountRepository) RecordLogin(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET last_login_at = $2, updated_at = $2 WHERE id = $1
	`, id.String(), at)
	if err != nil {
		return oops.Code("ACCOUNT_RECORD_LOGIN_FAILED").
			With("operation", "record login").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetAdmin updates is_admin.
func (r *AccountRepository) SetAdmin(ctx context.Context, id ulid.ULID, isAdmin bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET is_admin = $2, updated_at = $3 WHERE id = $1
	`, id.String(), isAdmin, r.now().UTC())
	if err != nil {
		return oops.Code("ACCOUNT_SET_ADMIN_FAILED").
			With("operation", "set admin").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr   string
		account auth.Account
	)
	if err := row.Scan(
		&idStr,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.IsAdmin,
		&account.LastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").With("id", idStr).Wrap(err)
	}
	account.ID = id
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
