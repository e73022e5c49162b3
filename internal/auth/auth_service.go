// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okiri/okiri/pkg/errutil"
)

var tracer = otel.Tracer("okiri/auth")

// Operation names used in metrics and spans.
const (
	OpRegister      = "register"
	OpLogin         = "login"
	OpSendCode      = "send_code"
	OpConfirmReset  = "confirm_reset"
	OpResetPassword = "reset_password"
)

// Service is the entry point UI callers use for registration, login and
// password recovery. Validation and business-rule failures come back as
// coded errors (see UserMessage); storage failures are logged here and
// returned as AUTH_INTERNAL without detail.
type Service struct {
	credentials *CredentialStore
	flow        *VerificationFlow
	logger      *slog.Logger
}

// ServiceOption configures a Service during construction.
type ServiceOption func(*Service)

// WithLogger sets the logger used for internal failures.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service. Returns an error if a dependency is nil.
func NewService(credentials *CredentialStore, flow *VerificationFlow, opts ...ServiceOption) (*Service, error) {
	if credentials == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if flow == nil {
		return nil, oops.Errorf("verification flow is required")
	}
	s := &Service{
		credentials: credentials,
		flow:        flow,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an account. Checks run in a fixed order: non-empty email,
// no existing account, then the password policy (first failing rule only).
func (s *Service) Register(ctx context.Context, email, password string) (err error) {
	ctx, span := s.start(ctx, OpRegister)
	defer func() { s.finish(span, OpRegister, statusFor(err), err) }()

	if err = ValidateEmail(email); err != nil {
		return err
	}

	exists, lookupErr := s.credentials.Exists(ctx, email)
	if lookupErr != nil {
		return s.internal(ctx, OpRegister, lookupErr)
	}
	if exists {
		return ErrAccountExists(email)
	}

	if err = CheckPassword(password); err != nil {
		return err
	}

	if createErr := s.credentials.Create(ctx, email, password); createErr != nil {
		// A concurrent registration can still win the insert.
		if IsValidation(createErr) {
			return createErr
		}
		return s.internal(ctx, OpRegister, createErr)
	}

	s.logger.InfoContext(ctx, "account registered", "email", email)
	return nil
}

// Login reports whether email and password identify a registered account.
// The password policy is not re-checked and failures are not rate limited.
func (s *Service) Login(ctx context.Context, email, password string) (ok bool, err error) {
	ctx, span := s.start(ctx, OpLogin)
	defer func() { s.finish(span, OpLogin, boolStatus(ok, err), err) }()

	ok, verifyErr := s.credentials.Verify(ctx, email, password)
	if verifyErr != nil {
		return false, s.internal(ctx, OpLogin, verifyErr)
	}

	s.logger.DebugContext(ctx, "login attempt", "email", email, "ok", ok)
	return ok, nil
}

// SendCode issues a reset code for email and returns the reason when it
// cannot: AUTH_NOT_FOUND, AUTH_RATE_LIMITED (with retry_after) or AUTH_INTERNAL.
func (s *Service) SendCode(ctx context.Context, email string) (err error) {
	ctx, span := s.start(ctx, OpSendCode)
	defer func() { s.finish(span, OpSendCode, statusFor(err), err) }()

	if _, issueErr := s.flow.Issue(ctx, email); issueErr != nil {
		switch ErrorCode(issueErr) {
		case CodeNotFound:
			s.logger.WarnContext(ctx, "reset code requested for unregistered email", "email", email)
			return issueErr
		case CodeRateLimited:
			s.logger.WarnContext(ctx, "reset code resend blocked", "email", email)
			return issueErr
		default:
			return s.internal(ctx, OpSendCode, issueErr)
		}
	}
	return nil
}

// RequestReset issues a reset code and reports success. Unknown emails and
// rate-limited resends both yield false; the reason is only logged.
func (s *Service) RequestReset(ctx context.Context, email string) bool {
	return s.SendCode(ctx, email) == nil
}

// ConfirmReset reports whether code is the live reset code for email.
// It stores nothing; the caller decides what to do with the answer.
func (s *Service) ConfirmReset(ctx context.Context, email, code string) (ok bool) {
	ctx, span := s.start(ctx, OpConfirmReset)
	var err error
	defer func() { s.finish(span, OpConfirmReset, boolStatus(ok, err), err) }()

	ok, err = s.flow.Check(ctx, email, code)
	if err != nil {
		errutil.LogError(ctx, s.logger, "reset code check failed", err)
		return false
	}
	return ok
}

// ResetPassword replaces the password for email. The new password must
// differ from the current one when both are compared with surrounding
// whitespace trimmed, and must satisfy the password policy.
//
// A prior successful ConfirmReset is not required here; sequencing is the
// caller's responsibility.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string) (err error) {
	ctx, span := s.start(ctx, OpResetPassword)
	defer func() { s.finish(span, OpResetPassword, statusFor(err), err) }()

	account, lookupErr := s.credentials.Lookup(ctx, email)
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			return lookupErr
		}
		return s.internal(ctx, OpResetPassword, lookupErr)
	}

	same, cmpErr := s.credentials.MatchesCurrent(account, newPassword)
	if cmpErr != nil {
		return s.internal(ctx, OpResetPassword, cmpErr)
	}
	if same {
		return ErrPasswordUnchanged()
	}

	if err = CheckPassword(newPassword); err != nil {
		return err
	}

	if updateErr := s.credentials.UpdatePassword(ctx, email, newPassword); updateErr != nil {
		if errors.Is(updateErr, ErrNotFound) {
			return updateErr
		}
		return s.internal(ctx, OpResetPassword, updateErr)
	}

	s.logger.InfoContext(ctx, "password reset", "email", email)
	return nil
}

// Purge deletes verification requests that can no longer be confirmed.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	n, err := s.flow.Purge(ctx)
	if err != nil {
		return 0, s.internal(ctx, "purge", err)
	}
	return n, nil
}

func (s *Service) internal(ctx context.Context, operation string, cause error) error {
	errutil.LogError(ctx, s.logger, "auth store failure", cause)
	return ErrInternal(operation)
}

func (s *Service) start(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "auth."+operation,
		trace.WithAttributes(attribute.String("auth.operation", operation)),
	)
}

func (s *Service) finish(span trace.Span, operation, status string, err error) {
	recordOperation(operation, status)
	span.SetAttributes(attribute.String("auth.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func boolStatus(ok bool, err error) string {
	if err != nil {
		return statusFor(err)
	}
	if ok {
		return StatusSuccess
	}
	return StatusRejected
}
