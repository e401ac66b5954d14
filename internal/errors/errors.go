package errors

import (
	"errors"
	"fmt"
)

// Common error types for the bizdesk client
var (
	// Session errors
	ErrNoSession      = errors.New("no authentication token found, please log in again")
	ErrNoRefreshToken = errors.New("no refresh token available")

	// Request errors
	ErrTransport       = errors.New("transport failure")
	ErrUnauthenticated = errors.New("authentication failed")
	ErrForbidden       = errors.New("permission denied")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")

	// Storage errors
	ErrSealBroken = errors.New("session file could not be opened with the configured passphrase")

	// Store errors
	ErrAggregate    = errors.New("failed to load data")
	ErrItemNotFound = errors.New("item not found")

	// Navigation errors
	ErrUnknownRoute = errors.New("unknown route")
)

// New returns an error with the given text
func New(text string) error {
	return errors.New(text)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
