package token

import (
	"context"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlane/authcore/internal/domain/role"
)

const (
	testIssuer   = "https://auth.example.com"
	testAudience = "example-api"
)

func testKeyStore(t *testing.T) *KeyStore {
	t.Helper()
	ks, err := GenerateKeyStore("test")
	require.NoError(t, err)
	return ks
}

func testIssuerFor(ks *KeyStore, ttl time.Duration) *Issuer {
	return NewIssuer(ks, testIssuer, []string{testAudience}, ttl)
}

func TestValidator_Validate(t *testing.T) {
	ks := testKeyStore(t)
	issuer := testIssuerFor(ks, 15*time.Minute)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	raw, err := issuer.Issue("subject-1", "skipper@example.com", "session-1", []string{"admins"})
	require.NoError(t, err)

	claims, err := validator.Validate(context.Background(), raw)
	require.NoError(t, err)
	require.NotNil(t, claims)

	assert.Equal(t, "subject-1", claims.Subject)
	assert.Equal(t, "skipper@example.com", claims.Email)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, role.RoleAdmin, claims.Role)
	assert.True(t, claims.Permissions.Has(role.PermManageUsers))
	assert.False(t, claims.Permissions.Has(role.PermManageSystem))
	assert.False(t, claims.IssuedAt.IsZero())
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestValidator_Validate_NoGroups(t *testing.T) {
	ks := testKeyStore(t)
	issuer := testIssuerFor(ks, 15*time.Minute)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	raw, err := issuer.Issue("subject-1", "member@example.com", "session-1", nil)
	require.NoError(t, err)

	claims, err := validator.Validate(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, role.RoleMember, claims.Role)
	assert.Empty(t, claims.Permissions)
}

func TestValidator_Validate_Malformed(t *testing.T) {
	ks := testKeyStore(t)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	for _, raw := range []string{
		"",
		"garbage",
		"a.b",
		"not.a.jwt",
		"eyJhbGciOiJub25lIn0.e30.",
	} {
		_, err := validator.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrMalformedToken, "input %q", raw)
	}
}

func TestValidator_Validate_MissingExpiration(t *testing.T) {
	ks := testKeyStore(t)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	tok, err := jwt.NewBuilder().
		Subject("subject-1").
		Issuer(testIssuer).
		Audience([]string{testAudience}).
		Build()
	require.NoError(t, err)

	key, err := ks.GetActiveKey()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), key))
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), string(signed))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestValidator_Validate_Expired(t *testing.T) {
	ks := testKeyStore(t)
	issuer := testIssuerFor(ks, -time.Minute)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	raw, err := issuer.Issue("subject-1", "", "session-1", nil)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrExpired)
}

// An expired token reports expiry even when its signature would not
// verify, so probing with stale tokens reveals nothing about keys.
func TestValidator_Validate_ExpiredWinsOverBadSignature(t *testing.T) {
	ks := testKeyStore(t)
	foreign := testKeyStore(t)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	raw, err := testIssuerFor(foreign, -time.Minute).Issue("subject-1", "", "session-1", nil)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidator_Validate_WrongKey(t *testing.T) {
	ks := testKeyStore(t)
	foreign := testKeyStore(t)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	raw, err := testIssuerFor(foreign, 15*time.Minute).Issue("subject-1", "", "session-1", nil)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidator_Validate_WrongIssuer(t *testing.T) {
	ks := testKeyStore(t)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	other := NewIssuer(ks, "https://evil.example.com", []string{testAudience}, 15*time.Minute)
	raw, err := other.Issue("subject-1", "", "session-1", nil)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidator_Validate_WrongAudience(t *testing.T) {
	ks := testKeyStore(t)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	other := NewIssuer(ks, testIssuer, []string{"other-api"}, 15*time.Minute)
	raw, err := other.Issue("subject-1", "", "session-1", nil)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidAudience)
}

func TestValidator_Validate_AudienceIntersection(t *testing.T) {
	ks := testKeyStore(t)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience, "admin-api"})

	other := NewIssuer(ks, testIssuer, []string{"admin-api"}, 15*time.Minute)
	raw, err := other.Issue("subject-1", "", "session-1", nil)
	require.NoError(t, err)

	_, err = validator.Validate(context.Background(), raw)
	assert.NoError(t, err)
}

func TestValidator_Validate_RelaxedPolicy(t *testing.T) {
	ks := testKeyStore(t)
	validator := NewValidator(ks, PolicyRelaxed, testIssuer, []string{testAudience})

	t.Run("skips issuer and audience checks", func(t *testing.T) {
		other := NewIssuer(ks, "https://dev.localhost", []string{"dev"}, 15*time.Minute)
		raw, err := other.Issue("subject-1", "", "session-1", []string{"support"})
		require.NoError(t, err)

		claims, err := validator.Validate(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, role.RoleSupport, claims.Role)
	})

	t.Run("still verifies the signature", func(t *testing.T) {
		foreign := testKeyStore(t)
		raw, err := testIssuerFor(foreign, 15*time.Minute).Issue("subject-1", "", "session-1", nil)
		require.NoError(t, err)

		_, err = validator.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("still rejects expired tokens", func(t *testing.T) {
		raw, err := testIssuerFor(ks, -time.Minute).Issue("subject-1", "", "session-1", nil)
		require.NoError(t, err)

		_, err = validator.Validate(context.Background(), raw)
		assert.ErrorIs(t, err, ErrExpired)
	})
}

func TestValidator_Validate_ExpiryBoundary(t *testing.T) {
	ks := testKeyStore(t)
	issuer := testIssuerFor(ks, 15*time.Minute)
	validator := NewValidator(ks, PolicyStrict, testIssuer, []string{testAudience})

	raw, err := issuer.Issue("subject-1", "", "session-1", nil)
	require.NoError(t, err)

	claims, err := validator.Validate(context.Background(), raw)
	require.NoError(t, err)

	// Exactly at the expiry instant the token is no longer valid
	validator.now = func() time.Time { return claims.ExpiresAt }
	_, err = validator.Validate(context.Background(), raw)
	assert.ErrorIs(t, err, ErrExpired)

	validator.now = func() time.Time { return claims.ExpiresAt.Add(-time.Second) }
	_, err = validator.Validate(context.Background(), raw)
	assert.NoError(t, err)
}

func TestPolicyFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    VerificationPolicy
		wantErr bool
	}{
		{"strict", PolicyStrict, false},
		{"", PolicyStrict, false},
		{"relaxed", PolicyRelaxed, false},
		{"none", PolicyStrict, true},
	}

	for _, tt := range tests {
		got, err := PolicyFromString(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
		} else {
			require.NoError(t, err, "input %q", tt.in)
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}
