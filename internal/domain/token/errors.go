package token

import "errors"

var (
	// ErrMalformedToken is returned when the token does not decode into
	// header, payload and signature parts
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature does not verify
	// against the identity provider's keys, or the issuer does not match
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrInvalidAudience is returned when the audience claim does not
	// match any configured expected audience
	ErrInvalidAudience = errors.New("invalid token audience")
	// ErrExpired is returned when the token's expiry has passed
	ErrExpired = errors.New("token expired")

	// ErrUnknownKey is returned when the active signing key is not in the key set
	ErrUnknownKey = errors.New("unknown signing key")
)
