// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/postgres"
)

func TestAccountRepository_Integration(t *testing.T) {
	ctx := context.Background()
	truncate(ctx, t)
	repo := postgres.NewAccountRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	account := &auth.Account{Email: "a@x.com", PasswordHash: "$argon2id$h1", Provider: auth.ProviderEmail, CreatedAt: now}
	require.NoError(t, repo.Insert(ctx, account))
	assert.ErrorIs(t, repo.Insert(ctx, account), auth.ErrAlreadyExists)

	got, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, account, got)

	_, err = repo.Get(ctx, "A@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound, "emails are case sensitive")

	require.NoError(t, repo.UpdatePassword(ctx, "a@x.com", "$argon2id$h2"))
	got, err = repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$h2", got.PasswordHash)
	assert.Equal(t, now, got.CreatedAt, "created_at never changes")

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "b@x.com", "x"), auth.ErrNotFound)
}

func TestAccountRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	truncate(ctx, t)
	repo := postgres.NewAccountRepository(testPool)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Insert(ctx, &auth.Account{Email: "race@x.com", PasswordHash: "h", Provider: auth.ProviderEmail, CreatedAt: time.Now()})
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

func TestVerificationRepository_Integration(t *testing.T) {
	ctx := context.Background()
	truncate(ctx, t)
	repo := postgres.NewVerificationRepository(testPool)
	base := time.Now().UTC().Truncate(time.Microsecond)

	_, err := repo.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "a@x.com", Code: "111111", SentAt: base.Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "a@x.com", Code: "222222", SentAt: base}))
	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "b@x.com", Code: "333333", SentAt: base.Add(-time.Hour)}))

	got, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "222222", got.Code)
	assert.Equal(t, base, got.SentAt)

	n, err := repo.DeleteExpired(ctx, base.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "b@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}
