package idp

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// JWKSKeys fetches and caches the provider's published JWKS endpoint.
// Refreshes happen in the background per the endpoint's cache headers.
type JWKSKeys struct {
	url   string
	cache *jwk.Cache
}

// NewJWKSKeys registers the JWKS URL with a background-refreshing cache.
// The initial fetch happens on registration so a misconfigured URL fails
// at startup rather than on the first request.
func NewJWKSKeys(ctx context.Context, url string) (*JWKSKeys, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}

	if err := cache.Register(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to register JWKS url %s: %w", url, err)
	}

	return &JWKSKeys{url: url, cache: cache}, nil
}

// Keys returns the cached key set, refetching if the cache entry is stale.
// The lookup is bounded so a dead endpoint fails the call, it never hangs.
func (k *JWKSKeys) Keys(ctx context.Context) (jwk.Set, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	set, err := k.cache.Lookup(ctx, k.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", k.url, err)
	}
	return set, nil
}
