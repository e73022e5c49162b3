// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

// WithCodeGenerator exposes withCodeGenerator to external tests.
var WithCodeGenerator = withCodeGenerator
