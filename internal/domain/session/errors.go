package session

import "errors"

var (
	// ErrUnauthorized is returned when a session id or refresh secret
	// does not resolve to a live session
	ErrUnauthorized = errors.New("session not found or no longer valid")
	// ErrSessionLimit is returned when the concurrent-session limit is
	// reached under the reject strategy
	ErrSessionLimit = errors.New("concurrent session limit reached")
)

// SecurityError reports a refresh replay, device mismatch or exhausted
// refresh budget. Raising it always revokes the affected session before
// the error is returned.
type SecurityError struct {
	Reason string
}

func (e *SecurityError) Error() string {
	return "security violation: " + e.Reason
}

// Security error reasons
const (
	ReasonReplay           = "refresh token replay detected"
	ReasonDeviceMismatch   = "device fingerprint mismatch"
	ReasonRefreshExhausted = "refresh count limit exceeded"
)
