// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/okiri/okiri/internal/auth"
)

// VerificationRepository implements auth.VerificationRepository using SQLite.
// sent_at is stored as Unix milliseconds.
type VerificationRepository struct {
	db DBTX
}

// NewVerificationRepository creates a new VerificationRepository.
func NewVerificationRepository(db DBTX) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Get retrieves the live request for an email.
func (r *VerificationRepository) Get(ctx context.Context, email string) (*auth.VerificationRequest, error) {
	var (
		req    auth.VerificationRequest
		sentAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT email, code, sent_at FROM verification_codes WHERE email = ?`,
		email,
	).Scan(&req.Email, &req.Code, &sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("VERIFICATION_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERIFICATION_GET_FAILED").
			With("operation", "select verification code").
			With("email", email).
			Wrap(err)
	}
	req.SentAt = time.UnixMilli(sentAt).UTC()
	return &req, nil
}

// Upsert stores req, replacing any prior request for the same email.
func (r *VerificationRepository) Upsert(ctx context.Context, req *auth.VerificationRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_codes (email, code, sent_at) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET code = excluded.code, sent_at = excluded.sent_at
	`, req.Email, req.Code, req.SentAt.UnixMilli())
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE sent_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired verification codes").
			Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, oops.Code("VERIFICATION_DELETE_EXPIRED_FAILED").With("operation", "rows affected").Wrap(err)
	}
	return n, nil
}

var _ auth.VerificationRepository = (*VerificationRepository)(nil)
