// Package idp defines the boundary to the external identity provider.
// The provider owns credentials, password hashing and MFA secrets; this
// service only consumes the identities and signing keys it publishes.
package idp

import (
	"context"
	"errors"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

var (
	// ErrInvalidCredentials is returned when the provider rejects the
	// presented credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProviderUnavailable is returned when the provider cannot be
	// reached within the call deadline
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrInvalidMFACode is returned when the provider rejects the
	// presented second-factor code
	ErrInvalidMFACode = errors.New("invalid second-factor code")
)

// Identity is what the provider asserts about an authenticated subject
type Identity struct {
	Subject string
	Email   string
	Groups  []string
}

// Provider is the identity provider as seen from this service
type Provider interface {
	// VerifyCredentials checks the credentials and returns the asserted
	// identity on success
	VerifyCredentials(ctx context.Context, email, password string) (*Identity, error)

	// HasMFAConfigured reports whether the subject has a second factor
	// enrolled with the provider
	HasMFAConfigured(email string) bool

	// VerifyMFA checks a second-factor code for the subject
	VerifyMFA(ctx context.Context, email, code string) error

	// Keys returns the provider's published signing keys
	Keys(ctx context.Context) (jwk.Set, error)
}
