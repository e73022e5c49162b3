// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/pkg/errutil"
)

func TestErrorBuilders(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    string
		message string
	}{
		{"empty email", auth.ErrEmptyEmail(), auth.CodeInvalidInput, "email cannot be empty"},
		{"account exists", auth.ErrAccountExists("a@x.com"), auth.CodeAlreadyExists, "account already exists"},
		{"account not found", auth.ErrAccountNotFound("a@x.com"), auth.CodeNotFound, "email not registered"},
		{"password unchanged", auth.ErrPasswordUnchanged(), auth.CodePasswordUnchanged, "new password must differ from current password"},
		{"resend too soon", auth.ErrResendTooSoon("a@x.com", time.Minute), auth.CodeRateLimited, "a code was sent recently, wait before requesting another"},
		{"internal", auth.ErrInternal("register"), auth.CodeInternal, "Something went wrong. Try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errutil.AssertErrorCode(t, tt.err, tt.code)
			assert.Equal(t, tt.code, auth.ErrorCode(tt.err))
			assert.Equal(t, tt.message, auth.UserMessage(tt.err))
		})
	}
}

func TestErrorBuilders_Sentinels(t *testing.T) {
	assert.ErrorIs(t, auth.ErrAccountExists("a@x.com"), auth.ErrAlreadyExists)
	assert.ErrorIs(t, auth.ErrAccountNotFound("a@x.com"), auth.ErrNotFound)
	errutil.AssertErrorContext(t, auth.ErrResendTooSoon("a@x.com", 90*time.Second), "retry_after", 90*time.Second)
}

func TestErrInternal_HidesCause(t *testing.T) {
	err := auth.ErrInternal("login")
	assert.NotContains(t, err.Error(), "sql")
	assert.NotErrorIs(t, err, auth.ErrNotFound)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, auth.UserMessage(nil))
	assert.Equal(t, "Something went wrong. Try again later.", auth.UserMessage(errors.New("boom")))
	assert.Equal(t, "Something went wrong. Try again later.", auth.UserMessage(oops.Code("X").Errorf("no message")))
}

func TestErrorCode_NonOops(t *testing.T) {
	assert.Empty(t, auth.ErrorCode(errors.New("plain")))
	assert.Empty(t, auth.ErrorCode(nil))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, auth.IsValidation(auth.ErrEmptyEmail()))
	assert.True(t, auth.IsValidation(auth.CheckPassword("x")))
	assert.True(t, auth.IsValidation(auth.ErrAccountExists("a@x.com")))
	assert.True(t, auth.IsValidation(auth.ErrPasswordUnchanged()))
	assert.True(t, auth.IsValidation(auth.ErrAccountNotFound("a@x.com")))
	assert.True(t, auth.IsValidation(auth.ErrResendTooSoon("a@x.com", time.Second)))
	assert.False(t, auth.IsValidation(auth.ErrInternal("x")))
	assert.False(t, auth.IsValidation(errors.New("plain")))
}
