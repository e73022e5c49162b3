// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import "time"

// Clock supplies the current time. Windows such as the resend interval and
// code expiry are computed against it on every call.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
