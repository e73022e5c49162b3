// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/okiri/okiri/internal/auth"
)

// VerificationRepository implements auth.VerificationRepository using PostgreSQL.
type VerificationRepository struct {
	pool poolIface
}

// NewVerificationRepository creates a new VerificationRepository.
func NewVerificationRepository(pool poolIface) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// Get retrieves the live request for an email.
func (r *VerificationRepository) Get(ctx context.Context, email string) (*auth.VerificationRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT email, code, sent_at
		FROM verification_codes
		WHERE email = $1
	`, email)

	var (
		req    auth.VerificationRequest
		sentAt time.Time
	)
	err := row.Scan(&req.Email, &req.Code, &sentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "select verification code").
			With("email", email).
			Wrap(err)
	}
	req.SentAt = sentAt.UTC()
	return &req, nil
}

// Upsert stores req, replacing any prior request for the same email.
func (r *VerificationRepository) Upsert(ctx context.Context, req *auth.VerificationRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO verification_codes (email, code, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, sent_at = EXCLUDED.sent_at
	`, req.Email, req.Code, req.SentAt)
	if err != nil {
		return oops.Code("VERIFICATION_UPSERT_FAILED").
			With("operation", "upsert verification code").
			With("email", req.Email).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes requests sent before cutoff and returns the count.
func (r *VerificationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM verification_codes WHERE sent_at < $1
	`, cutoff)
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verification codes").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.VerificationRepository = (*VerificationRepository)(nil)
