package token

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/harborlane/authcore/internal/domain/role"
)

// VerificationPolicy selects how much of the token is checked.
// The policy is decided once, at construction, instead of branching on
// the environment at every call site.
type VerificationPolicy int

const (
	// PolicyStrict verifies signature, issuer and audience. Production.
	PolicyStrict VerificationPolicy = iota
	// PolicyRelaxed verifies signature and expiry but skips issuer and
	// audience checks. Local development only.
	PolicyRelaxed
)

// PolicyFromString parses a policy name from configuration
func PolicyFromString(s string) (VerificationPolicy, error) {
	switch s {
	case "strict", "":
		return PolicyStrict, nil
	case "relaxed":
		return PolicyRelaxed, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown verification policy %q", s)
	}
}

// Claims is the enriched identity extracted from a verified access
// token. It is built once per request and passed down immutably.
type Claims struct {
	Subject     string
	Email       string
	SessionID   string
	Role        role.Role
	Permissions role.PermissionSet
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// KeySource provides the verification keys. In strict mode this is the
// identity provider's JWKS; in relaxed mode the local key store.
type KeySource interface {
	Keys(ctx context.Context) (jwk.Set, error)
}

// Validator verifies access tokens and enriches them with role and
// permission data. It is a pure function of token, configuration,
// current time and the provider's keys; it holds no mutable state.
type Validator struct {
	keys     KeySource
	policy   VerificationPolicy
	issuer   string
	audience []string
	now      func() time.Time
}

// NewValidator creates a Validator for the given policy
func NewValidator(keys KeySource, policy VerificationPolicy, issuer string, audience []string) *Validator {
	return &Validator{
		keys:     keys,
		policy:   policy,
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

// Validate verifies raw and returns the enriched claims. Failure is
// always reported to the caller; there is no unauthenticated fallback.
//
// Expiry is checked before the signature so an expired token reports
// ErrExpired regardless of whether its signature would verify.
func (v *Validator) Validate(ctx context.Context, raw string) (*Claims, error) {
	insecure, err := jwt.Parse([]byte(raw), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	exp, ok := insecure.Expiration()
	if !ok || exp.IsZero() {
		return nil, fmt.Errorf("%w: missing expiration claim", ErrMalformedToken)
	}
	if !v.now().Before(exp) {
		return nil, ErrExpired
	}

	keySet, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load verification keys: %w", err)
	}

	verified, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(keySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if v.policy == PolicyStrict {
		iss, _ := verified.Issuer()
		if v.issuer != "" && iss != v.issuer {
			return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidSignature)
		}

		if len(v.audience) > 0 {
			aud, _ := verified.Audience()
			matched := false
			for _, expected := range v.audience {
				if slices.Contains(aud, expected) {
					matched = true
					break
				}
			}
			if !matched {
				return nil, ErrInvalidAudience
			}
		}
	}

	sub, _ := verified.Subject()
	iat, _ := verified.IssuedAt()

	r := role.ResolveRole(stringSliceClaim(verified, "groups"))

	return &Claims{
		Subject:     sub,
		Email:       stringClaim(verified, "email"),
		SessionID:   stringClaim(verified, "sid"),
		Role:        r,
		Permissions: role.PermissionsFor(r),
		IssuedAt:    iat,
		ExpiresAt:   exp,
	}, nil
}

func stringClaim(tok jwt.Token, name string) string {
	var v any
	if tok.Get(name, &v) != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func stringSliceClaim(tok jwt.Token, name string) []string {
	var v any
	if tok.Get(name, &v) != nil {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
