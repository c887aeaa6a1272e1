package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/harborlane/authcore/internal/domain/audit"
	"github.com/harborlane/authcore/internal/domain/session"
	"github.com/harborlane/authcore/internal/domain/token"
)

// TranslateError maps domain error kinds onto transport status codes.
// This is the single place the API layer makes that translation; the
// domain packages know nothing about HTTP.
func TranslateError(c *fiber.Ctx, err error) error {
	var secErr *session.SecurityError

	switch {
	case errors.Is(err, token.ErrMalformedToken):
		return ErrorResponse(c, "malformed_token", fiber.StatusUnauthorized)
	case errors.Is(err, token.ErrInvalidSignature):
		return ErrorResponse(c, "invalid_token_signature", fiber.StatusUnauthorized)
	case errors.Is(err, token.ErrInvalidAudience):
		return ErrorResponse(c, "invalid_token_audience", fiber.StatusUnauthorized)
	case errors.Is(err, token.ErrExpired):
		return ErrorResponse(c, "token_expired", fiber.StatusUnauthorized)
	case errors.Is(err, session.ErrUnauthorized):
		return ErrorResponse(c, "session_invalid", fiber.StatusUnauthorized)
	case errors.Is(err, session.ErrSessionLimit):
		return ErrorResponse(c, "session_limit_reached", fiber.StatusConflict)
	case errors.As(err, &secErr):
		return ErrorResponse(c, "security_violation", fiber.StatusUnauthorized)
	case errors.Is(err, audit.ErrAuditUnavailable):
		return ErrorResponse(c, "audit_unavailable", fiber.StatusServiceUnavailable)
	default:
		return ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}
}
