package auth

import "errors"

var (
	// ErrLockedOut is returned when the account has exceeded the failed
	// attempt threshold within the lockout window
	ErrLockedOut = errors.New("account temporarily locked")
	// ErrRateLimited is returned when the origin address has exceeded
	// its failure budget
	ErrRateLimited = errors.New("too many attempts from this address")
	// ErrInvalidCredentials is returned when the identity provider
	// rejects the presented credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMFANotConfigured is returned when step-up verification is
	// attempted before a second factor is enrolled
	ErrMFANotConfigured = errors.New("second factor not enrolled")
	// ErrInvalidMFACode is returned when the second-factor code does
	// not verify
	ErrInvalidMFACode = errors.New("invalid verification code")
)
