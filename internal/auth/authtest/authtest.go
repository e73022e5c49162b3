// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package authtest provides test doubles for the auth package.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/okiri/okiri/internal/auth"
)

// FakeClock is a manually advanced auth.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock set to start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Delivery is one code handed to a RecordingDispatcher.
type Delivery struct {
	Email string
	Code  string
}

// RecordingDispatcher remembers every dispatched code.
type RecordingDispatcher struct {
	mu         sync.Mutex
	deliveries []Delivery
	Err        error
}

// Dispatch records the delivery and returns Err.
func (d *RecordingDispatcher) Dispatch(_ context.Context, email, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, Delivery{Email: email, Code: code})
	return d.Err
}

// Deliveries returns a copy of the recorded deliveries.
func (d *RecordingDispatcher) Deliveries() []Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Delivery, len(d.deliveries))
	copy(out, d.deliveries)
	return out
}

// Last returns the most recent code sent to email, or "" if none.
func (d *RecordingDispatcher) Last(email string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.deliveries) - 1; i >= 0; i-- {
		if d.deliveries[i].Email == email {
			return d.deliveries[i].Code
		}
	}
	return ""
}

var (
	_ auth.Clock          = (*FakeClock)(nil)
	_ auth.CodeDispatcher = (*RecordingDispatcher)(nil)
)
