// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package redis provides Redis implementations of auth repositories.
//
// Accounts live in hashes at <prefix>user:<email>. Verification requests live
// in hashes at <prefix>code:<email> and are indexed by send time in the sorted
// set <prefix>codes:sent so expired entries can be purged without a scan.
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/okiri/okiri/internal/auth"
)

// DefaultPrefix namespaces every key written by the repositories.
const DefaultPrefix = "okiri:"

// maxTxRetries bounds optimistic-lock retries when a watched key changes.
const maxTxRetries = 4

const (
	fieldPassword  = "password"
	fieldProvider  = "provider"
	fieldCreatedAt = "created_at"
	fieldCode      = "code"
	fieldSentAt    = "sent_at"
)

type keys struct {
	prefix string
}

func (k keys) user(email string) string { return k.prefix + "user:" + email }
func (k keys) code(email string) string { return k.prefix + "code:" + email }
func (k keys) sentIndex() string        { return k.prefix + "codes:sent" }

// AccountRepository implements auth.AccountRepository using Redis.
type AccountRepository struct {
	client goredis.UniversalClient
	keys   keys
}

// NewAccountRepository creates a new AccountRepository. An empty prefix uses DefaultPrefix.
func NewAccountRepository(client goredis.UniversalClient, prefix string) *AccountRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &AccountRepository{client: client, keys: keys{prefix: prefix}}
}

// Get retrieves an account by exact email.
func (r *AccountRepository) Get(ctx context.Context, email string) (*auth.Account, error) {
	fields, err := r.client.HGetAll(ctx, r.keys.user(email)).Result()
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "hgetall user").
			With("email", email).
			Wrap(err)
	}
	if len(fields) == 0 {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}

	account := &auth.Account{
		Email:        email,
		PasswordHash: fields[fieldPassword],
		Provider:     fields[fieldProvider],
	}
	if raw := fields[fieldCreatedAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, oops.Code("ACCOUNT_GET_FAILED").
				With("operation", "parse created_at").
				With("created_at", raw).
				Wrap(err)
		}
		account.CreatedAt = time.UnixMilli(ms).UTC()
	}
	return account, nil
}

// Insert stores a new account. The existence check and the write run in one
// WATCH transaction.
func (r *AccountRepository) Insert(ctx context.Context, account *auth.Account) error {
	key := r.keys.user(account.Email)

	err := withRetry(ctx, r.client, key, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return auth.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldPassword, account.PasswordHash,
				fieldProvider, account.Provider,
				fieldCreatedAt, strconv.FormatInt(account.CreatedAt.UnixMilli(), 10),
			)
			return nil
		})
		return err
	})
	if errors.Is(err, auth.ErrAlreadyExists) {
		return oops.Code("ACCOUNT_EXISTS").With("email", account.Email).Wrap(auth.ErrAlreadyExists)
	}
	if err != nil {
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert user").
			With("email", account.Email).
			Wrap(err)
	}
	return nil
}

// UpdatePassword overwrites the password material of an account.
func (r *AccountRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	key := r.keys.user(email)

	err := withRetry(ctx, r.client, key, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return auth.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldPassword, passwordHash)
			return nil
		})
		return err
	})
	if errors.Is(err, auth.ErrNotFound) {
		return oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update password").
			With("email", email).
			Wrap(err)
	}
	return nil
}

// VerificationRepository implements auth.VerificationRepository using Redis.
type VerificationRepository struct {
	client goredis.UniversalClient
	keys   keys
}

// NewVerificationRepository creates a new VerificationRepository. An empty
// prefix uses DefaultPrefix.
func NewVerificationRepository(client goredis.UniversalClient, prefix string) *VerificationRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &VerificationRepository{client: client, keys: keys{prefix: prefix}}
}

// Get retrieves the live request for an email.
func (r *VerificationRepository) Get(ctx context.Context, email string) (*auth.VerificationRequest, error) {
	fields, err := r.client.HGetAll(ctx, r.keys.code(email)).Result()
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "hgetall code").
			With("email", email).
			Wrap(err)
	}
	if len(fields) == 0 {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}

	ms, err := strconv.ParseInt(fields[fieldSentAt], 10, 64)
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "parse sent_at").
			With("email", email).
			Wrap(err)
	}
	return &auth.VerificationRequest{
		Email:  email,
		Code:   fields[fieldCode],
		SentAt: time.UnixMilli(ms).UTC(),
	}, nil
}

// Upsert stores req, replacing any prior request for the same email.
func (r *VerificationRepository) Upsert(ctx context.Context, req *auth.VerificationRequest) error {
	sentAt := req.SentAt.UnixMilli()
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, r.keys.code(req.Email),
			fieldCode, req.Code,
			fieldSentAt, strconv.FormatInt(sentAt, 10),
		)
		pipe.ZAdd(ctx, r.keys.sentIndex(), goredis.Z{Score: float64(sentAt), Member: req.Email})
		return nil
	})
	if err != nil {
		return oops.Code("VERIFICATION_UPSERT_FAILED").
			With("operation", "upsert verification code").
			With("email", req.Email).
			Wrap(err)
	}
	return nil
}

// deleteExpiredScript removes every request indexed before ARGV[1] (exclusive)
// and returns how many were removed. ARGV[2] is the code key prefix.
var deleteExpiredScript = goredis.NewScript(`
local emails = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, email in ipairs(emails) do
	redis.call('DEL', ARGV[2] .. email)
	redis.call('ZREM', KEYS[1], email)
end
return #emails
`)

// DeleteExpired removes requests sent before cutoff and returns the count.
func (r *VerificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := deleteExpiredScript.Run(ctx, r.client,
		[]string{r.keys.sentIndex()},
		cutoff.UnixMilli(), r.keys.code(""),
	).Int64()
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verification codes").
			Wrap(err)
	}
	return n, nil
}

// withRetry runs fn under WATCH on key, retrying when another client changes
// the key mid-transaction.
func withRetry(ctx context.Context, client goredis.UniversalClient, key string, fn func(*goredis.Tx) error) error {
	var err error
	for range maxTxRetries {
		err = client.Watch(ctx, fn, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return err
}

var (
	_ auth.AccountRepository      = (*AccountRepository)(nil)
	_ auth.VerificationRepository = (*VerificationRepository)(nil)
)
