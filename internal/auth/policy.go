// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

// Password shape limits, inclusive.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 20
)

// Password rule messages. One is reported per violated rule.
const (
	MsgPasswordTooShort    = "The string should have a minimum length of 8 characters"
	MsgPasswordTooLong     = "The string should have a maximum length of 20 characters"
	MsgPasswordNoUppercase = "The string should have a minimum of 1 uppercase letter"
	MsgPasswordNoLowercase = "The string should have a minimum of 1 lowercase letter"
	MsgPasswordNoDigit     = "The string should have a minimum of 1 digit"
	MsgPasswordHasSpaces   = "The string should not have spaces"
)

// CredentialPolicy validates registration and login input.
type CredentialPolicy struct {
	accounts AccountDirectory
}

// NewCredentialPolicy creates a CredentialPolicy backed by accounts for the
// email uniqueness check.
func NewCredentialPolicy(accounts AccountDirectory) *CredentialPolicy {
	return &CredentialPolicy{accounts: accounts}
}

// ValidateRegistration checks registration input in order: missing fields,
// password shape, email syntax, email uniqueness. The first failing stage
// ends validation. The returned error is non-nil only for directory faults.
func (p *CredentialPolicy) ValidateRegistration(ctx context.Context, name, email, password string) (ValidationResult, error) {
	if r := missingFields(map[string]bool{
		MsgNameRequired:     name == "",
		MsgEmailRequired:    email == "",
		MsgPasswordRequired: password == "",
	}, MsgNameRequired, MsgEmailRequired, MsgPasswordRequired); !r.OK() {
		return r, nil
	}

	if violations := PasswordViolations(password); len(violations) > 0 {
		return ValidationResult{
			Status: StatusBadInput,
			Errors: append([]string{MsgInvalidPassword}, violations...),
		}, nil
	}

	if !ValidEmail(email) {
		return ValidationResult{Status: StatusBadInput, Errors: []string{MsgInvalidEmail}}, nil
	}

	_, err := p.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ValidationResult{Status: StatusBadInput, Errors: []string{MsgEmailExists}}, nil
	case errors.Is(err, ErrNotFound):
		return ValidationResult{}, nil
	default:
		return ValidationResult{}, oops.Code("AUTH_EMAIL_LOOKUP_FAILED").
			With("operation", "check email uniqueness").
			Wrap(err)
	}
}

// ValidateLogin checks login input. The password is not shape-checked so
// that accounts with older, weaker passwords can still sign in.
func (p *CredentialPolicy) ValidateLogin(email, password string) ValidationResult {
	if r := missingFields(map[string]bool{
		MsgEmailRequired:    email == "",
		MsgPasswordRequired: password == "",
	}, MsgEmailRequired, MsgPasswordRequired); !r.OK() {
		return r
	}

	if !ValidEmail(email) {
		return ValidationResult{Status: StatusBadInput, Errors: []string{MsgInvalidEmail}}
	}
	return ValidationResult{}
}

// missingFields reports every missing field in order, prefixed by the
// combined message.
func missingFields(missing map[string]bool, order ...string) ValidationResult {
	var errs []string
	for _, msg := range order {
		if missing[msg] {
			errs = append(errs, msg)
		}
	}
	if len(errs) == 0 {
		return ValidationResult{}
	}
	return ValidationResult{
		Status: StatusBadInput,
		Errors: append([]string{MsgAllFieldsRequired}, errs...),
	}
}

// PasswordViolations returns one message per unmet password rule, or nil
// when the password satisfies all of them. Letter and digit classes are ASCII.
func PasswordViolations(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSpace bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case unicode.IsSpace(r):
			hasSpace = true
		}
	}

	var violations []string
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		violations = append(violations, MsgPasswordTooShort)
	}
	if n > MaxPasswordLength {
		violations = append(violations, MsgPasswordTooLong)
	}
	if !hasUpper {
		violations = append(violations, MsgPasswordNoUppercase)
	}
	if !hasLower {
		violations = append(violations, MsgPasswordNoLowercase)
	}
	if !hasDigit {
		violations = append(violations, MsgPasswordNoDigit)
	}
	if hasSpace {
		violations = append(violations, MsgPasswordHasSpaces)
	}
	return violations
}

// ValidEmail reports whether email is a syntactically valid mailbox whose
// domain contains a dot. No DNS lookups are made.
func ValidEmail(email string) bool {
	if email == "" || is.Email.Validate(email) != nil {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && !strings.HasSuffix(domain, ".")
}
