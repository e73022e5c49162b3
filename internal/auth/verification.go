// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Verification code configuration.
const (
	CodeLength = 6
	codeMin    = 100000
	codeMax    = 999999

	// DefaultResendInterval is the minimum time between two issued codes for one email.
	DefaultResendInterval = 5 * time.Minute

	// DefaultCodeTTL is how long an issued code stays valid.
	DefaultCodeTTL = 30 * time.Minute
)

// VerificationRequest is the single outstanding one-time code for an email.
type VerificationRequest struct {
	Email  string
	Code   string
	SentAt time.Time
}

// Age returns how long ago the code was issued.
func (r *VerificationRequest) Age(now time.Time) time.Duration {
	return now.Sub(r.SentAt)
}

// IsExpired reports whether the code is older than ttl.
// A code exactly ttl old is still valid.
func (r *VerificationRequest) IsExpired(now time.Time, ttl time.Duration) bool {
	return r.Age(now) > ttl
}

// Matches compares the supplied code with the stored one in constant time.
func (r *VerificationRequest) Matches(code string) bool {
	if code == "" || r.Code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(r.Code)) == 1
}

// GenerateCode returns a uniformly random 6-digit code in 100000..999999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", oops.Code("VERIFICATION_CODE_GENERATE_FAILED").Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// VerificationRepository manages one-time code persistence.
type VerificationRepository interface {
	// Get retrieves the current request for an email.
	// Returns ErrNotFound if none exists.
	Get(ctx context.Context, email string) (*VerificationRequest, error)

	// Upsert stores a request, replacing any prior request for the same email.
	Upsert(ctx context.Context, req *VerificationRequest) error

	// DeleteExpired removes requests issued before cutoff and returns the count.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
