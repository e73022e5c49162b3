// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"context"
	"log/slog"
)

// CodeDispatcher delivers an issued verification code to the account owner.
// Delivery is fire-and-forget: a failed dispatch is logged by the caller and
// does not roll back the issued code.
type CodeDispatcher interface {
	Dispatch(ctx context.Context, email, code string) error
}

// LogDispatcher writes issued codes to the log instead of delivering them.
// It is the default when no delivery channel is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a LogDispatcher. A nil logger uses slog.Default().
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the code at info level.
func (d *LogDispatcher) Dispatch(ctx context.Context, email, code string) error {
	d.logger.InfoContext(ctx, "verification code issued", "email", email, "code", code)
	return nil
}

var _ CodeDispatcher = (*LogDispatcher)(nil)
