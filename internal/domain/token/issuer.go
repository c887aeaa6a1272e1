package token

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Issuer mints RS256 access tokens carrying the session id and the
// subject's group memberships
type Issuer struct {
	keys     *KeyStore
	issuer   string
	audience []string
	ttl      time.Duration
}

// NewIssuer creates an Issuer signing with the key store's active key
func NewIssuer(keys *KeyStore, issuer string, audience []string, ttl time.Duration) *Issuer {
	return &Issuer{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}
}

// Issue builds and signs an access token for the given subject and session
func (i *Issuer) Issue(subject, email, sessionID string, groups []string) (string, error) {
	now := time.Now()

	tok, err := jwt.NewBuilder().
		Subject(subject).
		Audience(i.audience).
		Issuer(i.issuer).
		IssuedAt(now).
		Expiration(now.Add(i.ttl)).
		Claim("email", email).
		Claim("sid", sessionID).
		Claim("groups", groups).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	key, err := i.keys.GetActiveKey()
	if err != nil {
		return "", err
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}
