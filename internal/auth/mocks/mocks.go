// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package mocks provides testify mocks for the auth repository and
// collaborator interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/okiri/okiri/internal/auth"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAccountRepository is a mock implementation of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t testingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Get provides a mock function.
func (m *MockAccountRepository) Get(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*auth.Account) //nolint:errcheck // nil is a valid return
	return account, args.Error(1)
}

// Insert provides a mock function.
func (m *MockAccountRepository) Insert(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

// UpdatePassword provides a mock function.
func (m *MockAccountRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return m.Called(ctx, email, passwordHash).Error(0)
}

// MockVerificationRepository is a mock implementation of auth.VerificationRepository.
type MockVerificationRepository struct {
	mock.Mock
}

// NewMockVerificationRepository creates a mock that asserts its expectations on cleanup.
func NewMockVerificationRepository(t testingT) *MockVerificationRepository {
	m := &MockVerificationRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Get provides a mock function.
func (m *MockVerificationRepository) Get(ctx context.Context, email string) (*auth.VerificationRequest, error) {
	args := m.Called(ctx, email)
	req, _ := args.Get(0).(*auth.VerificationRequest) //nolint:errcheck // nil is a valid return
	return req, args.Error(1)
}

// Upsert provides a mock function.
func (m *MockVerificationRepository) Upsert(ctx context.Context, req *auth.VerificationRequest) error {
	return m.Called(ctx, req).Error(0)
}

// DeleteExpired provides a mock function.
func (m *MockVerificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	n, _ := args.Get(0).(int64) //nolint:errcheck // zero is a valid return
	return n, args.Error(1)
}

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, material string) (bool, error) {
	args := m.Called(password, material)
	return args.Bool(0), args.Error(1)
}

// NeedsUpgrade provides a mock function.
func (m *MockPasswordHasher) NeedsUpgrade(material string) bool {
	return m.Called(material).Bool(0)
}

// MockCodeDispatcher is a mock implementation of auth.CodeDispatcher.
type MockCodeDispatcher struct {
	mock.Mock
}

// NewMockCodeDispatcher creates a mock that asserts its expectations on cleanup.
func NewMockCodeDispatcher(t testingT) *MockCodeDispatcher {
	m := &MockCodeDispatcher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Dispatch provides a mock function.
func (m *MockCodeDispatcher) Dispatch(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

var (
	_ auth.AccountRepository      = (*MockAccountRepository)(nil)
	_ auth.VerificationRepository = (*MockVerificationRepository)(nil)
	_ auth.PasswordHasher         = (*MockPasswordHasher)(nil)
	_ auth.CodeDispatcher         = (*MockCodeDispatcher)(nil)
)
