package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrivateKeyPEM(t *testing.T, dir, name string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), pem.EncodeToMemory(block), 0600))
}

func TestLoadKeys(t *testing.T) {
	t.Run("loads all private keys in directory", func(t *testing.T) {
		dir := t.TempDir()
		writePrivateKeyPEM(t, dir, "private-2026-01.pem")
		writePrivateKeyPEM(t, dir, "private-2026-02.pem")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("keys"), 0644))

		ks, err := LoadKeys(dir, "2026-02")
		require.NoError(t, err)
		assert.Equal(t, 2, ks.KeySet.Len())

		key, err := ks.GetActiveKey()
		require.NoError(t, err)
		kid, ok := key.KeyID()
		require.True(t, ok)
		assert.Equal(t, "key-2026-02", kid)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadKeys("/nonexistent/keys", "main")
		assert.Error(t, err)
	})

	t.Run("path is a file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "keys")
		require.NoError(t, os.WriteFile(path, []byte("not a directory"), 0644))

		_, err := LoadKeys(path, "main")
		assert.Error(t, err)
	})

	t.Run("corrupt key file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "private-bad.pem"), []byte("not pem"), 0600))

		_, err := LoadKeys(dir, "bad")
		assert.Error(t, err)
	})
}

func TestGenerateKeyStore(t *testing.T) {
	ks, err := GenerateKeyStore("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", ks.ActiveKid)
	assert.Equal(t, 1, ks.KeySet.Len())

	key, err := ks.GetActiveKey()
	require.NoError(t, err)
	kid, ok := key.KeyID()
	require.True(t, ok)
	assert.Equal(t, "key-dev", kid)
}

func TestKeyStore_GetActiveKey(t *testing.T) {
	ks, err := GenerateKeyStore("main")
	require.NoError(t, err)

	t.Run("bare kid", func(t *testing.T) {
		ks.ActiveKid = "main"
		_, err := ks.GetActiveKey()
		assert.NoError(t, err)
	})

	t.Run("prefixed kid", func(t *testing.T) {
		ks.ActiveKid = "key-main"
		_, err := ks.GetActiveKey()
		assert.NoError(t, err)
	})

	t.Run("unknown kid", func(t *testing.T) {
		ks.ActiveKid = "rotated-away"
		_, err := ks.GetActiveKey()
		assert.ErrorIs(t, err, ErrUnknownKey)
	})
}

func TestKeyStore_Keys_PublicOnly(t *testing.T) {
	ks, err := GenerateKeyStore("dev")
	require.NoError(t, err)

	set, err := ks.Keys(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	key, ok := set.Key(0)
	require.True(t, ok)

	// The published set must never leak private material
	var d []byte
	assert.Error(t, key.Get("d", &d), "public set should not carry the private exponent")
}
