// Package apperrors holds the error kinds the HTTP layer knows how to map
// to status codes. Store failures stay plain wrapped errors and fall through
// to a 500.
package apperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// ValidationError reports malformed client input with per-field detail.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Fields)
}

// AuthError covers missing, malformed and expired credentials.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unauthorized: %s: %v", e.Reason, e.Err)
	}
	return "unauthorized: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// DeliveryError is a single failed email send. It is collected per recipient
// during a dispatch run and never aborts the run.
type DeliveryError struct {
	Email string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send email to %s: %v", e.Email, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
