// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/pkg/errutil"
)

func TestNewAccount(t *testing.T) {
	now := time.Now()

	t.Run("valid account", func(t *testing.T) {
		account, err := auth.NewAccount("a@x.com", "$argon2id$material", now)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", account.Email)
		assert.Equal(t, "$argon2id$material", account.PasswordHash)
		assert.Equal(t, auth.ProviderEmail, account.Provider)
		assert.Equal(t, now, account.CreatedAt)
	})

	t.Run("email is kept verbatim", func(t *testing.T) {
		account, err := auth.NewAccount("  A@X.com ", "material", now)
		require.NoError(t, err)
		assert.Equal(t, "  A@X.com ", account.Email)
	})

	t.Run("empty password material", func(t *testing.T) {
		_, err := auth.NewAccount("a@x.com", "", now)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
	})
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"plain", "a@x.com", false},
		{"no at sign is accepted", "not-an-email", false},
		{"empty", "", true},
		{"spaces only", "   ", true},
		{"tabs and newlines", "\t\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateEmail(tt.email)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
			assert.Equal(t, "email cannot be empty", auth.UserMessage(err))
		})
	}
}
