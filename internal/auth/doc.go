// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package auth provides local account authentication and password recovery.
//
// # Domain Types
//
// Account and VerificationRequest are the persisted records. Accounts are
// keyed by the exact email string; a VerificationRequest is the single live
// one-time code for an email and is replaced whenever a new code is issued.
//
// # Components
//
//   - CredentialStore - registration, credential checks and password updates
//   - VerificationFlow - issuing and checking one-time reset codes
//   - CheckPassword - the ordered password policy
//   - Service - the entry point UI callers use
//
// Storage lives behind AccountRepository and VerificationRepository. The
// memory, sqlite, postgres and redis subpackages provide implementations.
//
// Service returns coded oops errors. Use ErrorCode to branch and UserMessage
// for display text; storage failures surface as AUTH_INTERNAL only.
package auth
