// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/okiri/okiri/internal/auth"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Get retrieves an account by exact email.
func (r *AccountRepository) Get(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT email, password, provider, created_at
		FROM users
		WHERE email = $1
	`, email)

	var (
		account   auth.Account
		createdAt time.Time
	)
	err := row.Scan(&account.Email, &account.PasswordHash, &account.Provider, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "select user").
			With("email", email).
			Wrap(err)
	}
	account.CreatedAt = createdAt.UTC()
	return &account, nil
}

// Insert stores a new account. The conflict clause makes the existence check
// and the write a single statement.
func (r *AccountRepository) Insert(ctx context.Context, account *auth.Account) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO users (email, password, provider, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, account.Email, account.PasswordHash, account.Provider, account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_EXISTS").With("email", account.Email).Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert user").
			With("email", account.Email).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_EXISTS").With("email", account.Email).Wrap(auth.ErrAlreadyExists)
	}
	return nil
}

// UpdatePassword overwrites the password material of an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password = $2 WHERE email = $1
	`, email, passwordHash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update password").
			With("email", email).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
