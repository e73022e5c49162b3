// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package memory provides in-memory auth repositories for tests and
// single-process use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/okiri/okiri/internal/auth"
)

// AccountRepository is an in-memory auth.AccountRepository.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]auth.Account
}

// NewAccountRepository creates an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]auth.Account)}
}

// Get returns a copy of the account stored under email.
func (r *AccountRepository) Get(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &a, nil
}

// Insert stores account unless the email is taken.
func (r *AccountRepository) Insert(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.Email]; ok {
		return auth.ErrAlreadyExists
	}
	r.accounts[account.Email] = *account
	return nil
}

// UpdatePassword replaces the password material for email.
func (r *AccountRepository) UpdatePassword(_ context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[email]
	if !ok {
		return auth.ErrNotFound
	}
	a.PasswordHash = passwordHash
	r.accounts[email] = a
	return nil
}

// VerificationRepository is an in-memory auth.VerificationRepository.
type VerificationRepository struct {
	mu       sync.RWMutex
	requests map[string]auth.VerificationRequest
}

// NewVerificationRepository creates an empty VerificationRepository.
func NewVerificationRepository() *VerificationRepository {
	return &VerificationRepository{requests: make(map[string]auth.VerificationRequest)}
}

// Get returns a copy of the request stored under email.
func (r *VerificationRepository) Get(_ context.Context, email string) (*auth.VerificationRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &req, nil
}

// Upsert stores req, replacing any prior request for the same email.
func (r *VerificationRepository) Upsert(_ context.Context, req *auth.VerificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.Email] = *req
	return nil
}

// DeleteExpired drops requests sent before cutoff.
func (r *VerificationRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for email, req := range r.requests {
		if req.SentAt.Before(cutoff) {
			delete(r.requests, email)
			n++
		}
	}
	return n, nil
}

var (
	_ auth.AccountRepository      = (*AccountRepository)(nil)
	_ auth.VerificationRepository = (*VerificationRepository)(nil)
)
