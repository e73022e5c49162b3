// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/mocks"
)

func TestService_InternalFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	accounts := mocks.NewMockAccountRepository(t)
	store, err := auth.NewCredentialStore(accounts, fastHasher(), nil, logger)
	require.NoError(t, err)
	flow, err := auth.NewVerificationFlow(accounts, mocks.NewMockVerificationRepository(t))
	require.NoError(t, err)
	svc, err := auth.NewService(store, flow, auth.WithLogger(logger))
	require.NoError(t, err)

	accounts.On("Get", ctx, "a@x.com").Return(nil, errors.New("database disk image is malformed"))

	_, err = svc.Login(ctx, "a@x.com", "Abcdef1!")
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "auth store failure", entry["msg"])
	assert.Equal(t, "CREDENTIAL_VERIFY_FAILED", entry["code"])
	assert.Contains(t, entry["error"], "database disk image is malformed")
}

func TestService_DoesNotLogPasswords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.Register(ctx, "a@x.com", "Abcdef1!"))
	_, err := f.svc.Login(ctx, "a@x.com", "Wrong1!x")
	require.NoError(t, err)
	require.NoError(t, f.svc.ResetPassword(ctx, "a@x.com", "Zyxwvu9?"))

	assert.NotContains(t, f.logs.String(), "Abcdef1!")
	assert.NotContains(t, f.logs.String(), "Wrong1!x")
	assert.NotContains(t, f.logs.String(), "Zyxwvu9?")
	assert.Contains(t, f.logs.String(), "account registered")
	assert.Contains(t, f.logs.String(), "password reset")
}
