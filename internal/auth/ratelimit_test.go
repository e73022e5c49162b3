// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/okiri/okiri/internal/auth"
)

func TestCheckResend(t *testing.T) {
	prior := &auth.VerificationRequest{Email: "a@x.com", Code: "123456", SentAt: epoch}

	tests := []struct {
		name       string
		prior      *auth.VerificationRequest
		elapsed    time.Duration
		allowed    bool
		retryAfter time.Duration
	}{
		{"no prior request", nil, 0, true, 0},
		{"immediately after", prior, 0, false, 5 * time.Minute},
		{"one minute after", prior, time.Minute, false, 4 * time.Minute},
		{"just under the interval", prior, 5*time.Minute - time.Millisecond, false, time.Millisecond},
		{"exactly the interval", prior, 5 * time.Minute, true, 0},
		{"well past the interval", prior, time.Hour, true, 0},
		{"prior sent in the future", prior, -time.Minute, false, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := auth.CheckResend(tt.prior, epoch.Add(tt.elapsed), auth.DefaultResendInterval)
			assert.Equal(t, tt.allowed, res.Allowed)
			assert.Equal(t, tt.retryAfter, res.RetryAfter)
		})
	}
}

func TestResendAvailableAt(t *testing.T) {
	assert.True(t, auth.ResendAvailableAt(nil, auth.DefaultResendInterval).IsZero())

	prior := &auth.VerificationRequest{SentAt: epoch}
	assert.Equal(t, epoch.Add(5*time.Minute), auth.ResendAvailableAt(prior, auth.DefaultResendInterval))
}
