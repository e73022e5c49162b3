// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"errors"
	"time"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when an insert collides with an existing key.
var ErrAlreadyExists = errors.New("already exists")

// Error codes returned across the service boundary.
const (
	CodeInvalidInput      = "AUTH_INVALID_INPUT"
	CodeWeakPassword      = "AUTH_WEAK_PASSWORD"
	CodePasswordUnchanged = "AUTH_PASSWORD_UNCHANGED"
	CodeAlreadyExists     = "AUTH_ALREADY_EXISTS"
	CodeNotFound          = "AUTH_NOT_FOUND"
	CodeRateLimited       = "AUTH_RATE_LIMITED"
	CodeInternal          = "AUTH_INTERNAL"
)

const genericMessage = "Something went wrong. Try again later."

// ErrEmptyEmail creates the error for a blank email address.
func ErrEmptyEmail() error {
	return oops.Code(CodeInvalidInput).
		With("field", "email").
		With("message", "email cannot be empty").
		Errorf("email cannot be empty")
}

// ErrAccountExists creates the error for a duplicate registration.
func ErrAccountExists(email string) error {
	return oops.Code(CodeAlreadyExists).
		With("email", email).
		With("message", "account already exists").
		Wrap(ErrAlreadyExists)
}

// ErrAccountNotFound creates the error for an unknown email.
func ErrAccountNotFound(email string) error {
	return oops.Code(CodeNotFound).
		With("email", email).
		With("message", "email not registered").
		Wrap(ErrNotFound)
}

// ErrPasswordUnchanged creates the error for a reset that reuses the current password.
func ErrPasswordUnchanged() error {
	return oops.Code(CodePasswordUnchanged).
		With("message", "new password must differ from current password").
		Errorf("new password must differ from current password")
}

// ErrResendTooSoon creates the error for a code requested inside the resend window.
func ErrResendTooSoon(email string, retryAfter time.Duration) error {
	return oops.Code(CodeRateLimited).
		With("email", email).
		With("retry_after", retryAfter).
		With("message", "a code was sent recently, wait before requesting another").
		Errorf("verification code resend rate limited")
}

// ErrInternal collapses a storage failure into an opaque error. The cause is
// deliberately not wrapped so storage details stay behind the boundary.
func ErrInternal(operation string) error {
	return oops.Code(CodeInternal).
		With("operation", operation).
		With("message", genericMessage).
		Errorf("internal error")
}

// ErrorCode returns the oops code attached to err, or "" when there is none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string) //nolint:errcheck // type assertion, not an error
	return code
}

// UserMessage extracts a user-facing message from an error returned by Service.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return genericMessage
	}
	if msg, ok := oopsErr.Context()["message"].(string); ok && msg != "" {
		return msg
	}
	return genericMessage
}

// IsValidation reports whether err is a validation or business-rule failure
// the caller can show to the user as-is.
func IsValidation(err error) bool {
	switch ErrorCode(err) {
	case CodeInvalidInput, CodeWeakPassword, CodePasswordUnchanged, CodeAlreadyExists, CodeNotFound, CodeRateLimited:
		return true
	default:
		return false
	}
}
