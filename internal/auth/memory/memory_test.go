// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/memory"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()

	_, err := repo.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	account := &auth.Account{Email: "a@x.com", PasswordHash: "h1", Provider: auth.ProviderEmail}
	require.NoError(t, repo.Insert(ctx, account))
	assert.ErrorIs(t, repo.Insert(ctx, account), auth.ErrAlreadyExists)

	got, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.PasswordHash)

	t.Run("emails are case sensitive", func(t *testing.T) {
		_, err := repo.Get(ctx, "A@x.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("returned accounts are copies", func(t *testing.T) {
		got.PasswordHash = "mutated"
		again, err := repo.Get(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "h1", again.PasswordHash)
	})

	t.Run("update password", func(t *testing.T) {
		require.NoError(t, repo.UpdatePassword(ctx, "a@x.com", "h2"))
		again, err := repo.Get(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, "h2", again.PasswordHash)
		assert.ErrorIs(t, repo.UpdatePassword(ctx, "b@x.com", "h2"), auth.ErrNotFound)
	})
}

func TestAccountRepository_ConcurrentInsertHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Insert(ctx, &auth.Account{Email: "race@x.com", PasswordHash: "h"})
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, auth.ErrAlreadyExists)
	}
	assert.Equal(t, 1, wins)
}

func TestVerificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewVerificationRepository()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "a@x.com", Code: "111111", SentAt: base}))
	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "a@x.com", Code: "222222", SentAt: base.Add(time.Minute)}))

	got, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Code)
	assert.True(t, got.SentAt.Equal(base.Add(time.Minute)))

	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "old@x.com", Code: "333333", SentAt: base.Add(-time.Hour)}))

	n, err := repo.DeleteExpired(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "old@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = repo.Get(ctx, "a@x.com")
	assert.NoError(t, err)
}
