// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// ProviderEmail marks accounts registered locally with email and password.
const ProviderEmail = "email"

// Account represents a registered user.
//
// Email is the primary key and is stored verbatim: no case folding or
// trimming is applied, so "A@x.com" and "a@x.com" are distinct accounts.
type Account struct {
	Email        string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
}

// NewAccount creates an Account with a validated email.
// passwordHash is opaque password material produced by a PasswordHasher.
func NewAccount(email, passwordHash string, createdAt time.Time) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidInput).
			With("field", "password").
			Errorf("password material cannot be empty")
	}
	return &Account{
		Email:        email,
		PasswordHash: passwordHash,
		Provider:     ProviderEmail,
		CreatedAt:    createdAt,
	}, nil
}

// ValidateEmail rejects emails that are empty once surrounding whitespace is removed.
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyEmail()
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Get retrieves an account by exact email.
	// Returns ErrNotFound if no account has the given email.
	Get(ctx context.Context, email string) (*Account, error)

	// Insert stores a new account atomically.
	// Returns ErrAlreadyExists if an account with the same email is present.
	Insert(ctx context.Context, account *Account) error

	// UpdatePassword overwrites the password material of an account.
	// Returns ErrNotFound if no account has the given email.
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}
