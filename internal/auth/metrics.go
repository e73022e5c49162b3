// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status values for operation metrics.
const (
	StatusSuccess     = "success"
	StatusRejected    = "rejected"
	StatusInvalid     = "invalid"
	StatusError       = "error"
	StatusNotFound    = "not_found"
	StatusRateLimited = "rate_limited"
)

// Operations is the counter of Service calls by operation and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Operations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "okiri_auth_operations_total",
		Help: "Total number of auth operations by outcome",
	},
	[]string{"operation", "status"},
)

var codesIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "okiri_verification_codes_issued_total",
		Help: "Total number of verification codes issued",
	},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Operations)
	reg.MustRegister(codesIssued)
}

func recordOperation(operation, status string) {
	Operations.WithLabelValues(operation, status).Inc()
}

// statusFor maps an error returned by Service to a metrics status.
func statusFor(err error) string {
	if err == nil {
		return StatusSuccess
	}
	switch ErrorCode(err) {
	case CodeNotFound:
		return StatusNotFound
	case CodeRateLimited:
		return StatusRateLimited
	case CodeInvalidInput, CodeWeakPassword, CodePasswordUnchanged, CodeAlreadyExists:
		return StatusInvalid
	default:
		return StatusError
	}
}
