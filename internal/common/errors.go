// Package common defines shared constants and sentinel errors used across
// client and server layers of certhub. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrPersistence = errors.New("persistence error")

	// Input errors.
	ErrValidation     = errors.New("validation error")
	ErrMalformedInput = errors.New("malformed input")

	// Uniqueness and policy errors.
	ErrConflict        = errors.New("already exists")
	ErrPolicyViolation = errors.New("policy violation")

	// Auth errors.
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrForbidden          = errors.New("forbidden")

	// One-time code errors.
	ErrDomainRejected = errors.New("email domain is not the institutional domain")
	ErrCodeNotFound   = errors.New("verification code not found")
	ErrCodeExpired    = errors.New("verification code expired")
	ErrCodeMismatch   = errors.New("verification code mismatch")

	// Rendering errors never leave the renderer.
	ErrRender = errors.New("render error")
)

// Error kinds reported to API callers.
const (
	KindValidation      = "validation"
	KindConflict        = "conflict"
	KindPolicyViolation = "policy_violation"
	KindAuth            = "auth"
	KindForbidden       = "forbidden"
	KindNotFound        = "not_found"
	KindPersistence     = "persistence"
	KindInternal        = "internal"
)

// Kind classifies err into one of the stable Kind* strings.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrDomainRejected),
		errors.Is(err, ErrCodeNotFound),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrCodeMismatch):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrPolicyViolation):
		return KindPolicyViolation
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrorUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired):
		return KindAuth
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrorNotFound):
		return KindNotFound
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
