package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// KeyStore holds the local signing keys used to mint access tokens.
// In relaxed verification mode it also serves as the key source for
// validation, standing in for the identity provider's JWKS endpoint.
type KeyStore struct {
	ActiveKid string
	KeySet    jwk.Set
}

// LoadKeys reads RSA private keys named private-<kid>.pem from path and
// builds the key set. activeKid selects the key used for signing.
func LoadKeys(path, activeKid string) (*KeyStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("keys directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keys path %s is not a directory", path)
	}

	keySet := jwk.NewSet()

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keys directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		if !strings.HasPrefix(fileName, "private") || filepath.Ext(fileName) != ".pem" {
			continue
		}

		kid := strings.TrimPrefix(fileName, "private-")
		kid = strings.TrimSuffix(kid, ".pem")
		if kid == "" {
			continue
		}

		privData, err := os.ReadFile(filepath.Join(path, fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", fileName, err)
		}

		priv, err := parseRSAPrivateKey(privData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", fileName, err)
		}

		jwkKey, err := jwk.Import(priv)
		if err != nil {
			return nil, fmt.Errorf("failed to convert private key to JWK: %w", err)
		}

		keyID := fmt.Sprintf("key-%s", kid)
		if err := jwkKey.Set(jwk.KeyIDKey, keyID); err != nil {
			return nil, fmt.Errorf("failed to set key ID: %w", err)
		}
		if err := jwkKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
			return nil, fmt.Errorf("failed to set algorithm: %w", err)
		}

		if err := keySet.AddKey(jwkKey); err != nil {
			return nil, fmt.Errorf("failed to add key to set: %w", err)
		}
	}

	return &KeyStore{
		ActiveKid: activeKid,
		KeySet:    keySet,
	}, nil
}

// GenerateKeyStore creates a single-key store with a fresh RSA key.
// Development only; production loads the provider's published keys.
func GenerateKeyStore(kid string) (*KeyStore, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	jwkKey, err := jwk.Import(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to convert key to JWK: %w", err)
	}
	keyID := fmt.Sprintf("key-%s", kid)
	if err := jwkKey.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, err
	}
	if err := jwkKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		return nil, err
	}

	keySet := jwk.NewSet()
	if err := keySet.AddKey(jwkKey); err != nil {
		return nil, err
	}

	return &KeyStore{ActiveKid: kid, KeySet: keySet}, nil
}

func parseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	pkcs8Key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := pkcs8Key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an RSA private key")
	}
	return rsaKey, nil
}

// GetActiveKey returns the signing key selected by ActiveKid
func (ks *KeyStore) GetActiveKey() (jwk.Key, error) {
	activeKid := ks.ActiveKid
	if !strings.HasPrefix(activeKid, "key-") {
		activeKid = fmt.Sprintf("key-%s", activeKid)
	}

	key, ok := ks.KeySet.LookupKeyID(activeKid)
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// Keys returns the public half of the key set. Satisfies the validator's
// key source so the local store can stand in for the provider's JWKS.
func (ks *KeyStore) Keys(ctx context.Context) (jwk.Set, error) {
	publicSet, err := jwk.PublicSetOf(ks.KeySet)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key set: %w", err)
	}
	return publicSet, nil
}
