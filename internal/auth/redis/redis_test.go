// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/auth/redis"
	"github.com/okiri/okiri/pkg/errutil"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := redis.NewAccountRepository(client, "")
	created := time.Date(2026, 2, 1, 8, 30, 15, 0, time.UTC)

	_, err := repo.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	account := &auth.Account{Email: "a@x.com", PasswordHash: "$argon2id$h1", Provider: auth.ProviderEmail, CreatedAt: created}
	require.NoError(t, repo.Insert(ctx, account))
	assert.True(t, mr.Exists("okiri:user:a@x.com"))
	assert.Equal(t, "$argon2id$h1", mr.HGet("okiri:user:a@x.com", "password"))

	err = repo.Insert(ctx, &auth.Account{Email: "a@x.com", PasswordHash: "other", Provider: auth.ProviderEmail})
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)
	errutil.AssertErrorCode(t, err, "ACCOUNT_EXISTS")

	got, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, account, got)

	_, err = repo.Get(ctx, "A@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, repo.UpdatePassword(ctx, "a@x.com", "$argon2id$h2"))
	got, err = repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$h2", got.PasswordHash)
	assert.Equal(t, created, got.CreatedAt)

	err = repo.UpdatePassword(ctx, "b@x.com", "x")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.False(t, mr.Exists("okiri:user:b@x.com"), "update must not create an account")
}

func TestAccountRepository_CustomPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := redis.NewAccountRepository(client, "test:")

	require.NoError(t, repo.Insert(context.Background(), &auth.Account{Email: "a@x.com", PasswordHash: "h", Provider: auth.ProviderEmail}))
	assert.True(t, mr.Exists("test:user:a@x.com"))
}

func TestAccountRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := redis.NewAccountRepository(client, "")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Insert(ctx, &auth.Account{Email: "race@x.com", PasswordHash: "h", Provider: auth.ProviderEmail})
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

func TestAccountRepository_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := redis.NewAccountRepository(client, "")
	mr.Close()

	_, err := repo.Get(ctx, "a@x.com")
	errutil.AssertErrorCode(t, err, "ACCOUNT_GET_FAILED")
	assert.NotErrorIs(t, err, auth.ErrNotFound)
}

func TestVerificationRepository(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := redis.NewVerificationRepository(client, "")
	base := time.Date(2026, 2, 1, 8, 30, 15, 123_000_000, time.UTC)

	_, err := repo.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "a@x.com", Code: "111111", SentAt: base.Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "a@x.com", Code: "222222", SentAt: base}))
	require.NoError(t, repo.Upsert(ctx, &auth.VerificationRequest{Email: "b@x.com", Code: "333333", SentAt: base.Add(-time.Hour)}))

	got, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, &auth.VerificationRequest{Email: "a@x.com", Code: "222222", SentAt: base}, got)

	n, err := repo.DeleteExpired(ctx, base.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "b@x.com")
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.False(t, mr.Exists("okiri:code:b@x.com"))

	members, err := mr.ZMembers("okiri:codes:sent")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, members)

	t.Run("cutoff is exclusive", func(t *testing.T) {
		n, err := repo.DeleteExpired(ctx, base)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
