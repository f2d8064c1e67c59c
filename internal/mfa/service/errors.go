package service

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyEnabled    = errors.New("MFA already enabled for this user")
	ErrNoSetupInProgress = errors.New("no MFA setup in progress")
	ErrInvalidCode       = errors.New("invalid code")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this user")
	ErrTOTPNotConfigured = errors.New("TOTP not configured for this user")
	ErrNoBackupCodes     = errors.New("no backup codes available")
	ErrNoEmail           = errors.New("no email address on file")
	ErrInvalidMethod     = errors.New("unsupported challenge method")
	ErrPersistence       = errors.New("persistence failure")

	// ErrInvalidCodeFormat is an ErrInvalidCode raised before any crypto work.
	ErrInvalidCodeFormat = fmt.Errorf("%w: code must be 6 digits", ErrInvalidCode)
)

// RateLimitedError is returned by Challenge while the user is locked out.
type RateLimitedError struct {
	RemainingSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %d seconds", e.RemainingSeconds)
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
