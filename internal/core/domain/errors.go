package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidFilter      = errors.New("invalid filter")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrSelfAction         = errors.New("action not allowed on own account")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountBanned      = errors.New("account banned")
	ErrTokenExpired       = errors.New("token expired")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
)

// ErrPayloadViolation is returned when a request payload does not conform to its
// JSON schema. Errors holds one entry per failed keyword.
type ErrPayloadViolation struct {
	Errors []string
}

func (e *ErrPayloadViolation) Error() string {
	return fmt.Sprintf("payload validation failed: %s", strings.Join(e.Errors, "; "))
}
