package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/harborlane/authcore/internal/cache"
	"github.com/harborlane/authcore/internal/domain/role"
	"github.com/harborlane/authcore/internal/domain/token"
	"github.com/harborlane/authcore/internal/utils"
)

const (
	// ClaimsKey is the key used to store the verified claims in the
	// Fiber context
	ClaimsKey = "claims"
)

// Middleware verifies the bearer token and stores the enriched claims
// in the request context. revocations may be nil.
func Middleware(validator *token.Validator, revocations *cache.RevocationCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, "missing_authorization_header", fiber.StatusUnauthorized)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return utils.ErrorResponse(c, "invalid_authorization_header", fiber.StatusUnauthorized)
		}

		claims, err := validator.Validate(c.UserContext(), parts[1])
		if err != nil {
			return utils.TranslateError(c, err)
		}

		if revocations != nil && claims.SessionID != "" {
			revoked, err := revocations.IsRevoked(c.UserContext(), claims.SessionID)
			if err != nil {
				return utils.ErrorResponse(c, "token_validation_error", fiber.StatusInternalServerError)
			}
			if revoked {
				return utils.ErrorResponse(c, "session_revoked", fiber.StatusUnauthorized)
			}
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// RequirePermission rejects requests whose claims lack the permission
func RequirePermission(perm role.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return utils.ErrorResponse(c, "unauthenticated", fiber.StatusUnauthorized)
		}
		if !claims.Permissions.Has(perm) {
			return utils.ErrorResponse(c, "forbidden", fiber.StatusForbidden)
		}
		return c.Next()
	}
}

// GetClaims extracts the verified claims from the Fiber context
func GetClaims(c *fiber.Ctx) *token.Claims {
	claims, ok := c.Locals(ClaimsKey).(*token.Claims)
	if !ok {
		return nil
	}
	return claims
}
