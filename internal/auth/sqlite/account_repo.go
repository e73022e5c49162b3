// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/okiri/okiri/internal/auth"
)

// createdAtLayout is SQLite's datetime('now') text format, always UTC.
const createdAtLayout = time.DateTime

// AccountRepository implements auth.AccountRepository using SQLite.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Get retrieves an account by exact email.
func (r *AccountRepository) Get(ctx context.Context, email string) (*auth.Account, error) {
	var (
		account   auth.Account
		createdAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT email, password, provider, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&account.Email, &account.PasswordHash, &account.Provider, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "select user").
			With("email", email).
			Wrap(err)
	}

	// Rows written by older app releases may lack a timestamp.
	if createdAt.Valid && createdAt.String != "" {
		t, err := time.ParseInLocation(createdAtLayout, createdAt.String, time.UTC)
		if err != nil {
			return nil, oops.Code("ACCOUNT_GET_FAILED").
				With("operation", "parse created_at").
				With("created_at", createdAt.String).
				Wrap(err)
		}
		account.CreatedAt = t
	}
	return &account, nil
}

// Insert stores a new account in one statement.
func (r *AccountRepository) Insert(ctx context.Context, account *auth.Account) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, password, provider, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, account.Email, account.PasswordHash, account.Provider, account.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert user").
			With("email", account.Email).
			Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code("ACCOUNT_INSERT_FAILED").With("operation", "rows affected").Wrap(err)
	}
	if n == 0 {
		return oops.Code("ACCOUNT_EXISTS").With("email", account.Email).Wrap(auth.ErrAlreadyExists)
	}
	return nil
}

// UpdatePassword overwrites the password material of an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE email = ?`, passwordHash, email)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update password").
			With("email", email).
			Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "rows affected").Wrap(err)
	}
	if n == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return nil
}

var _ auth.AccountRepository = (*AccountRepository)(nil)
