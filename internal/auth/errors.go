// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"errors"
	"slices"
	"strings"
)

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by an AccountDirectory when a write collides
// with the unique email constraint.
var ErrEmailTaken = errors.New("email already taken")

// ErrInvalidToken is returned when a token fails signature, payload or
// expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// User-facing messages. These strings are part of the HTTP contract.
const (
	MsgAllFieldsRequired = "All fields are required"
	MsgNameRequired      = "Name is required"
	MsgEmailRequired     = "Email is required"
	MsgPasswordRequired  = "Password is required"
	MsgInvalidPassword   = "Invalid password"
	MsgInvalidEmail      = "Invalid email"
	MsgEmailExists       = "Email already exists"
	MsgUserNotFound      = "User not found"
	MsgWrongPassword     = "Wrong password"
	MsgForbidden         = "Forbidden"
	MsgUnauthorized      = "Unauthorized"
)

// Status classifies the outcome of a validation or flow step.
type Status int

// Status values.
const (
	StatusOK Status = iota
	StatusBadInput
	StatusNotFound
	StatusForbidden
	StatusUnauthorized
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBadInput:
		return "bad_input"
	case StatusNotFound:
		return "not_found"
	case StatusForbidden:
		return "forbidden"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// ValidationResult is a status plus the ordered list of messages that
// produced it. The zero value is an ok result.
type ValidationResult struct {
	Status Status
	Errors []string
}

// OK reports whether the result carries no violations.
func (r ValidationResult) OK() bool {
	return r.Status == StatusOK
}

// Err converts a failed result into a *ValidationError, or nil when ok.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Status: r.Status, Errors: r.Errors}
}

// ValidationError is the failure value returned by flows and the access gate.
// It is an expected outcome, not an infrastructure fault.
type ValidationError struct {
	Status Status
	Errors []string
}

func newValidationError(status Status, msgs ...string) *ValidationError {
	return &ValidationError{Status: status, Errors: msgs}
}

func (e *ValidationError) Error() string {
	return e.Status.String() + ": " + strings.Join(e.Errors, "; ")
}

// Has reports whether msg is among the error messages.
func (e *ValidationError) Has(msg string) bool {
	return slices.Contains(e.Errors, msg)
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsEmailTaken reports whether err is solely the duplicate-email outcome.
func IsEmailTaken(err error) bool {
	ve, ok := AsValidationError(err)
	if !ok {
		return false
	}
	return ve.Status == StatusBadInput && len(ve.Errors) == 1 && ve.Errors[0] == MsgEmailExists
}
