package auth

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials is deliberately identical for unknown email and
	// wrong password, so login reveals nothing about which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUnauthorized means no usable session or token was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means a session exists but the anti-forgery check failed.
	// Distinct from ErrUnauthorized so clients can tell "no session" from
	// "forged request".
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for an unknown account id.
	ErrNotFound = errors.New("account not found")
)

// ValidationError aggregates every violated password-policy rule so the
// caller can render a single combined message.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "password does not meet requirements: " + strings.Join(e.Reasons, "; ")
}
