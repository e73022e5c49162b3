// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package auth

import (
	"unicode/utf8"

	"github.com/samber/oops"
)

// MinPasswordLength is the minimum number of characters in a compliant password.
const MinPasswordLength = 8

// Password policy rule names, reported in the "rule" error context.
const (
	RuleLength    = "length"
	RuleUppercase = "uppercase"
	RuleLowercase = "lowercase"
	RuleDigit     = "digit"
	RuleSpecial   = "special"
)

type passwordRule struct {
	name    string
	message string
	ok      func(string) bool
}

// passwordRules are evaluated in order; only the first failure is reported.
var passwordRules = []passwordRule{
	{RuleLength, "password must be at least 8 characters", func(s string) bool { return utf8.RuneCountInString(s) >= MinPasswordLength }},
	{RuleUppercase, "password must include at least one uppercase letter", containsAny(isUpper)},
	{RuleLowercase, "password must include at least one lowercase letter", containsAny(isLower)},
	{RuleDigit, "password must include at least one number", containsAny(isDigit)},
	{RuleSpecial, "password must include at least one special character", containsAny(isSpecial)},
}

// CheckPassword returns an error for the first policy rule the password violates.
func CheckPassword(password string) error {
	for _, rule := range passwordRules {
		if !rule.ok(password) {
			return oops.Code(CodeWeakPassword).
				With("rule", rule.name).
				With("message", rule.message).
				Errorf("%s", rule.message)
		}
	}
	return nil
}

func containsAny(pred func(rune) bool) func(string) bool {
	return func(s string) bool {
		for _, r := range s {
			if pred(r) {
				return true
			}
		}
		return false
	}
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// isSpecial matches anything outside [A-Za-z0-9], including non-ASCII runes and spaces.
func isSpecial(r rune) bool { return !isUpper(r) && !isLower(r) && !isDigit(r) }
