package services

import (
	"errors"
	"fmt"

	"github.com/tenantdesk/apiserver/internal/store"
)

var (
	// ErrUnauthorized is returned when a caller cannot be authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned by login for any unknown email,
	// wrong password or deactivated account.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when an authenticated caller acts outside its
	// tenant or role.
	ErrForbidden = errors.New("forbidden")

	// ErrStorageDisabled is returned by exports when no object storage
	// backend is configured.
	ErrStorageDisabled = errors.New("object storage is not configured")
)

// invalid builds a validation error that classifies as store.ErrValidation.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrValidation, fmt.Sprintf(format, args...))
}
