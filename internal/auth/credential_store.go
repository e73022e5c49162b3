// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"
)

// CredentialStore owns registered accounts and their password material.
type CredentialStore struct {
	accounts AccountRepository
	hasher   PasswordHasher
	clock    Clock
	logger   *slog.Logger
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(accounts AccountRepository, hasher PasswordHasher, clock Clock, logger *slog.Logger) (*CredentialStore, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{accounts: accounts, hasher: hasher, clock: clock, logger: logger}, nil
}

// Exists reports whether an account is registered under email.
func (s *CredentialStore) Exists(ctx context.Context, email string) (bool, error) {
	_, err := s.accounts.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("CREDENTIAL_EXISTS_FAILED").
			With("email", email).
			Wrap(err)
	}
	return true, nil
}

// Lookup returns the account registered under email.
// Returns an AUTH_NOT_FOUND error wrapping ErrNotFound when absent.
func (s *CredentialStore) Lookup(ctx context.Context, email string) (*Account, error) {
	account, err := s.accounts.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAccountNotFound(email)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_LOOKUP_FAILED").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// Create registers a new account. The insert is atomic in the repository, so
// two concurrent registrations for one email yield exactly one success.
func (s *CredentialStore) Create(ctx context.Context, email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return oops.Code("CREDENTIAL_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, hash, s.clock.Now())
	if err != nil {
		return err
	}

	if err := s.accounts.Insert(ctx, account); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ErrAccountExists(email)
		}
		return oops.Code("CREDENTIAL_CREATE_FAILED").
			With("operation", "insert account").
			With("email", email).
			Wrap(err)
	}
	return nil
}

// Verify reports whether password matches the account registered under email.
// Unknown emails verify as false. Legacy plaintext material is re-hashed after
// a successful match; a failed upgrade is logged and does not fail the login.
func (s *CredentialStore) Verify(ctx context.Context, email, password string) (bool, error) {
	account, err := s.accounts.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("CREDENTIAL_VERIFY_FAILED").
			With("operation", "get account").
			With("email", email).
			Wrap(err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return false, oops.Code("CREDENTIAL_VERIFY_FAILED").
			With("operation", "verify password").
			With("email", email).
			Wrap(err)
	}
	if !ok {
		return false, nil
	}

	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.upgrade(ctx, email, password)
	}
	return true, nil
}

// UpdatePassword overwrites the password material for email.
// Policy and distinctness are the caller's responsibility.
func (s *CredentialStore) UpdatePassword(ctx context.Context, email, newPassword string) error {
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, email, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrAccountNotFound(email)
		}
		return oops.Code("CREDENTIAL_UPDATE_FAILED").
			With("operation", "update password").
			With("email", email).
			Wrap(err)
	}
	return nil
}

// MatchesCurrent reports whether candidate, compared after trimming
// surrounding whitespace, equals the account's current password.
//
// Stored material is a one-way hash of the untrimmed password, so the trimmed
// candidate and the candidate as typed are both checked. A current password
// that itself carries surrounding whitespace only matches when typed with it.
func (s *CredentialStore) MatchesCurrent(account *Account, candidate string) (bool, error) {
	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		// Legacy material is the plaintext password itself.
		return strings.TrimSpace(candidate) == strings.TrimSpace(account.PasswordHash), nil
	}

	for _, c := range candidateForms(candidate) {
		ok, err := s.hasher.Verify(c, account.PasswordHash)
		if err != nil {
			return false, oops.Code("CREDENTIAL_COMPARE_FAILED").
				With("email", account.Email).
				Wrap(err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *CredentialStore) upgrade(ctx context.Context, email, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePassword(ctx, email, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password material upgrade failed", "email", email, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "upgraded legacy password material", "email", email)
}

func candidateForms(candidate string) []string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == candidate || trimmed == "" {
		return []string{candidate}
	}
	return []string{trimmed, candidate}
}
