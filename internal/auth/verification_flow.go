// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// VerificationFlow issues and checks one-time codes that gate password resets.
// Each email has at most one live request; issuing replaces it.
type VerificationFlow struct {
	accounts       AccountRepository
	requests       VerificationRepository
	dispatcher     CodeDispatcher
	clock          Clock
	logger         *slog.Logger
	resendInterval time.Duration
	codeTTL        time.Duration
	generate       func() (string, error)
}

// FlowOption configures a VerificationFlow during construction.
type FlowOption func(*VerificationFlow)

// WithDispatcher sets the channel used to deliver issued codes.
// If not provided, codes are written to the log.
func WithDispatcher(d CodeDispatcher) FlowOption {
	return func(f *VerificationFlow) {
		f.dispatcher = d
	}
}

// WithClock sets the time source used for the resend and expiry windows.
func WithClock(c Clock) FlowOption {
	return func(f *VerificationFlow) {
		f.clock = c
	}
}

// WithWindows overrides the resend interval and code lifetime.
// Non-positive values keep the defaults.
func WithWindows(resendInterval, codeTTL time.Duration) FlowOption {
	return func(f *VerificationFlow) {
		if resendInterval > 0 {
			f.resendInterval = resendInterval
		}
		if codeTTL > 0 {
			f.codeTTL = codeTTL
		}
	}
}

// WithFlowLogger sets the logger for dispatch failures.
func WithFlowLogger(l *slog.Logger) FlowOption {
	return func(f *VerificationFlow) {
		f.logger = l
	}
}

// withCodeGenerator replaces the random code source. Used by tests.
func withCodeGenerator(gen func() (string, error)) FlowOption {
	return func(f *VerificationFlow) {
		f.generate = gen
	}
}

// NewVerificationFlow creates a VerificationFlow. Returns an error if a
// repository is nil.
func NewVerificationFlow(accounts AccountRepository, requests VerificationRepository, opts ...FlowOption) (*VerificationFlow, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if requests == nil {
		return nil, oops.Errorf("verification repository is required")
	}

	f := &VerificationFlow{
		accounts:       accounts,
		requests:       requests,
		clock:          SystemClock{},
		logger:         slog.Default(),
		resendInterval: DefaultResendInterval,
		codeTTL:        DefaultCodeTTL,
		generate:       GenerateCode,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.dispatcher == nil {
		f.dispatcher = NewLogDispatcher(f.logger)
	}
	return f, nil
}

// Issue generates a new code for email, stores it and hands it to the dispatcher.
// Fails with AUTH_NOT_FOUND when no account exists and AUTH_RATE_LIMITED when
// the previous code is younger than the resend interval.
func (f *VerificationFlow) Issue(ctx context.Context, email string) (string, error) {
	if _, err := f.accounts.Get(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrAccountNotFound(email)
		}
		return "", oops.Code("VERIFICATION_ISSUE_FAILED").
			With("operation", "get account").
			With("email", email).
			Wrap(err)
	}

	now := f.clock.Now()

	prior, err := f.requests.Get(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", oops.Code("VERIFICATION_ISSUE_FAILED").
			With("operation", "get prior request").
			With("email", email).
			Wrap(err)
	}

	if res := CheckResend(prior, now, f.resendInterval); !res.Allowed {
		return "", ErrResendTooSoon(email, res.RetryAfter)
	}

	code, err := f.generate()
	if err != nil {
		return "", oops.Code("VERIFICATION_ISSUE_FAILED").
			With("operation", "generate code").
			Wrap(err)
	}

	req := &VerificationRequest{Email: email, Code: code, SentAt: now}
	if err := f.requests.Upsert(ctx, req); err != nil {
		return "", oops.Code("VERIFICATION_ISSUE_FAILED").
			With("operation", "store request").
			With("email", email).
			Wrap(err)
	}

	if err := f.dispatcher.Dispatch(ctx, email, code); err != nil {
		f.logger.WarnContext(ctx, "verification code dispatch failed", "email", email, "error", err)
	}

	codesIssued.Inc()
	return code, nil
}

// Check reports whether code is the live code for email. The request is not
// consumed and may be checked repeatedly until it expires.
func (f *VerificationFlow) Check(ctx context.Context, email, code string) (bool, error) {
	req, err := f.requests.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("VERIFICATION_CHECK_FAILED").
			With("email", email).
			Wrap(err)
	}

	if !req.Matches(code) {
		return false, nil
	}
	if req.IsExpired(f.clock.Now(), f.codeTTL) {
		return false, nil
	}
	return true, nil
}

// Purge removes requests that expired before now and returns how many were deleted.
func (f *VerificationFlow) Purge(ctx context.Context) (int64, error) {
	n, err := f.requests.DeleteExpired(ctx, f.clock.Now().Add(-f.codeTTL))
	if err != nil {
		return 0, oops.Code("VERIFICATION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}
