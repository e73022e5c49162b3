// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/authtest"
	"github.com/okiri/okiri/internal/auth/memory"
)

// fastHasher keeps argon2id cheap enough for table tests.
func fastHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time:    1,
		Memory:  1024,
		Threads: 1,
		SaltLen: 16,
		KeyLen:  32,
	})
}

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	accounts   *memory.AccountRepository
	requests   *memory.VerificationRepository
	clock      *authtest.FakeClock
	dispatcher *authtest.RecordingDispatcher
	store      *auth.CredentialStore
	flow       *auth.VerificationFlow
	svc        *auth.Service
	logs       *bytes.Buffer
}

func newFixture(t *testing.T, opts ...auth.FlowOption) *fixture {
	t.Helper()

	f := &fixture{
		accounts:   memory.NewAccountRepository(),
		requests:   memory.NewVerificationRepository(),
		clock:      authtest.NewFakeClock(epoch),
		dispatcher: &authtest.RecordingDispatcher{},
		logs:       &bytes.Buffer{},
	}
	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	f.store, err = auth.NewCredentialStore(f.accounts, fastHasher(), f.clock, logger)
	require.NoError(t, err)

	flowOpts := append([]auth.FlowOption{
		auth.WithClock(f.clock),
		auth.WithDispatcher(f.dispatcher),
		auth.WithFlowLogger(logger),
	}, opts...)
	f.flow, err = auth.NewVerificationFlow(f.accounts, f.requests, flowOpts...)
	require.NoError(t, err)

	f.svc, err = auth.NewService(f.store, f.flow, auth.WithLogger(logger))
	require.NoError(t, err)
	return f
}
