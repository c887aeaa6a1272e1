package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlane/authcore/internal/domain/role"
	"github.com/harborlane/authcore/internal/domain/token"
)

func testValidatorApp(t *testing.T, handlers ...fiber.Handler) (*fiber.App, *token.KeyStore) {
	t.Helper()

	ks, err := token.GenerateKeyStore("test")
	require.NoError(t, err)
	validator := token.NewValidator(ks, token.PolicyStrict, "https://auth.example.com", []string{"example-api"})

	app := fiber.New()
	chain := append([]fiber.Handler{Middleware(validator, nil)}, handlers...)
	chain = append(chain, func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		return c.JSON(fiber.Map{"subject": claims.Subject, "role": claims.Role.String()})
	})
	app.Get("/protected", chain...)

	return app, ks
}

func testTokenIssuer(ks *token.KeyStore, ttl time.Duration) *token.Issuer {
	return token.NewIssuer(ks, "https://auth.example.com", []string{"example-api"}, ttl)
}

func TestMiddleware(t *testing.T) {
	app, ks := testValidatorApp(t)
	issuer := testTokenIssuer(ks, 15*time.Minute)

	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		for _, header := range []string{"Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "token abc"} {
			req := httptest.NewRequest("GET", "/protected", nil)
			req.Header.Set("Authorization", header)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "header %q", header)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token passes", func(t *testing.T) {
		raw, err := issuer.Issue("subject-1", "skipper@example.com", "session-1", []string{"admins"})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		raw, err := testTokenIssuer(ks, -time.Minute).Issue("subject-1", "", "session-1", nil)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRequirePermission(t *testing.T) {
	app, ks := testValidatorApp(t, RequirePermission(role.PermManageUsers))
	issuer := testTokenIssuer(ks, 15*time.Minute)

	t.Run("role with the permission passes", func(t *testing.T) {
		raw, err := issuer.Issue("subject-1", "", "session-1", []string{"admins"})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("role without the permission is forbidden", func(t *testing.T) {
		raw, err := issuer.Issue("subject-2", "", "session-2", []string{"support"})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		raw, err := issuer.Issue("subject-3", "", "session-3", nil)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestGetClaims_Unset(t *testing.T) {
	app := fiber.New()
	app.Get("/open", func(c *fiber.Ctx) error {
		assert.Nil(t, GetClaims(c))
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
