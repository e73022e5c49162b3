// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"time"
)

// ResendResult contains the result of a resend window check.
type ResendResult struct {
	// Allowed indicates a new code may be issued now.
	Allowed bool

	// RetryAfter is the time left until the next code may be issued.
	RetryAfter time.Duration
}

// CheckResend evaluates whether a new code may be issued given the prior
// request for the same email. prior may be nil when no code was ever issued.
// A request exactly interval old no longer blocks a resend.
func CheckResend(prior *VerificationRequest, now time.Time, interval time.Duration) ResendResult {
	if prior == nil {
		return ResendResult{Allowed: true}
	}

	age := prior.Age(now)
	if age >= interval {
		return ResendResult{Allowed: true}
	}

	// Clock skew can make a stored SentAt land in the future; the whole
	// interval still applies from now.
	if age < 0 {
		age = 0
	}
	return ResendResult{RetryAfter: interval - age}
}

// ResendAvailableAt returns when the next code may be issued after prior.
func ResendAvailableAt(prior *VerificationRequest, interval time.Duration) time.Time {
	if prior == nil {
		return time.Time{}
	}
	return prior.SentAt.Add(interval)
}
