package idp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// StaticIdentity is one entry in a static identity file
type StaticIdentity struct {
	Subject  string   `yaml:"subject"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Groups   []string `yaml:"groups"`
	MFA      bool     `yaml:"mfa"`
	MFACode  string   `yaml:"mfa_code"`
}

// Static is a file-backed Provider for local development. It performs a
// plain constant-time comparison against the configured passwords; it is
// not a credential store and must never back a production deployment.
type Static struct {
	identities map[string]StaticIdentity
}

// LoadStatic reads a YAML identity file keyed by email
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read identities file: %w", err)
	}

	var identities map[string]StaticIdentity
	if err := yaml.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("failed to parse identities file: %w", err)
	}

	return NewStatic(identities), nil
}

// NewStatic creates a Static provider from the given identities
func NewStatic(identities map[string]StaticIdentity) *Static {
	if identities == nil {
		identities = map[string]StaticIdentity{}
	}
	return &Static{identities: identities}
}

// VerifyCredentials checks the presented credentials against the file
func (s *Static) VerifyCredentials(ctx context.Context, email, password string) (*Identity, error) {
	entry, ok := s.identities[email]
	if !ok {
		// Burn the comparison anyway so unknown accounts are not
		// distinguishable by timing.
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(entry.Password)) != 1 {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		Subject: entry.Subject,
		Email:   entry.Email,
		Groups:  entry.Groups,
	}, nil
}

// HasMFAConfigured reports whether the identity has a second factor enrolled
func (s *Static) HasMFAConfigured(email string) bool {
	entry, ok := s.identities[email]
	return ok && entry.MFA
}

// VerifyMFA checks the presented code against the configured one. A real
// provider validates a TOTP or push challenge here.
func (s *Static) VerifyMFA(ctx context.Context, email, code string) error {
	entry, ok := s.identities[email]
	if !ok || !entry.MFA || entry.MFACode == "" {
		subtle.ConstantTimeCompare([]byte(code), []byte(code))
		return ErrInvalidMFACode
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(entry.MFACode)) != 1 {
		return ErrInvalidMFACode
	}
	return nil
}

// Keys is not available on the static provider; relaxed deployments
// verify against the local key store instead
func (s *Static) Keys(ctx context.Context) (jwk.Set, error) {
	return nil, fmt.Errorf("static provider publishes no keys")
}
