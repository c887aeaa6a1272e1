package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/harborlane/authcore/internal/domain/session"
	"github.com/harborlane/authcore/internal/utils"
)

const refreshCookie = "refresh_token"

// Handler exposes the authentication operations over HTTP. It only
// marshals requests and translates error kinds to status codes; all
// policy lives in the services.
type Handler struct {
	service *Service
}

// NewHandler creates an auth Handler
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// LoginRequest is the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and opens a session
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}
	if req.Email == "" || req.Password == "" {
		return utils.ErrorResponse(c, "missing_credentials", fiber.StatusBadRequest)
	}

	device := session.Device{
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
		Fingerprint: session.Fingerprint(c.Get("User-Agent"), c.Get("Accept-Language")),
	}

	res, err := h.service.Login(c.UserContext(), req.Email, req.Password, device)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			return utils.ErrorResponse(c, "invalid_credentials", fiber.StatusUnauthorized)
		case errors.Is(err, ErrLockedOut):
			return utils.ErrorResponse(c, "account_locked", fiber.StatusTooManyRequests)
		case errors.Is(err, ErrRateLimited):
			return utils.ErrorResponse(c, "rate_limited", fiber.StatusTooManyRequests)
		default:
			return utils.TranslateError(c, err)
		}
	}

	h.setRefreshCookie(c, res.SessionID, res.RefreshSecret)

	return utils.SuccessResponse(c, fiber.Map{
		"access_token": res.AccessToken,
		"session_id":   res.SessionID,
		"role":         res.Role.String(),
	}, "Login successful")
}

// Refresh rotates the refresh secret and returns a new access token
func (h *Handler) Refresh(c *fiber.Ctx) error {
	sid, secret, ok := h.refreshCredentials(c)
	if !ok {
		return utils.ErrorResponse(c, "missing_refresh_token", fiber.StatusUnauthorized)
	}

	fingerprint := session.Fingerprint(c.Get("User-Agent"), c.Get("Accept-Language"))

	res, err := h.service.Refresh(c.UserContext(), sid, secret, fingerprint)
	if err != nil {
		return utils.TranslateError(c, err)
	}

	h.setRefreshCookie(c, res.SessionID, res.RefreshSecret)

	return utils.SuccessResponse(c, fiber.Map{
		"access_token": res.AccessToken,
	}, "Token refreshed")
}

// StepUpRequest is the step-up verification request body
type StepUpRequest struct {
	Code string `json:"code"`
}

// StepUp reports the calling session's step-up state
func (h *Handler) StepUp(c *fiber.Ctx) error {
	sid, ok := h.sessionID(c)
	if !ok {
		return utils.ErrorResponse(c, "unauthenticated", fiber.StatusUnauthorized)
	}

	status, err := h.service.StepUpStatus(c.UserContext(), sid)
	if err != nil {
		return utils.TranslateError(c, err)
	}

	return utils.SuccessResponse(c, fiber.Map{"status": status.String()}, "")
}

// StepUpVerify checks a second-factor code and marks the session
func (h *Handler) StepUpVerify(c *fiber.Ctx) error {
	sid, ok := h.sessionID(c)
	if !ok {
		return utils.ErrorResponse(c, "unauthenticated", fiber.StatusUnauthorized)
	}

	var req StepUpRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}
	if req.Code == "" {
		return utils.ErrorResponse(c, "missing_code", fiber.StatusBadRequest)
	}

	status, err := h.service.VerifyStepUp(c.UserContext(), sid, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrMFANotConfigured):
			return utils.ErrorResponse(c, "mfa_setup_required", fiber.StatusForbidden)
		case errors.Is(err, ErrInvalidMFACode):
			return utils.ErrorResponse(c, "invalid_code", fiber.StatusUnauthorized)
		default:
			return utils.TranslateError(c, err)
		}
	}

	return utils.SuccessResponse(c, fiber.Map{"status": status.String()}, "Step-up verified")
}

// Logout destroys the calling session
func (h *Handler) Logout(c *fiber.Ctx) error {
	claims := GetClaims(c)
	if claims == nil || claims.SessionID == "" {
		return utils.ErrorResponse(c, "unauthenticated", fiber.StatusUnauthorized)
	}

	sid, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return utils.ErrorResponse(c, "invalid_session_id", fiber.StatusBadRequest)
	}

	if err := h.service.Logout(c.UserContext(), sid); err != nil {
		return utils.TranslateError(c, err)
	}

	c.ClearCookie(refreshCookie)
	return utils.SuccessResponse(c, nil, "Logged out")
}

// LogoutAll destroys every session the subject holds
func (h *Handler) LogoutAll(c *fiber.Ctx) error {
	claims := GetClaims(c)
	if claims == nil {
		return utils.ErrorResponse(c, "unauthenticated", fiber.StatusUnauthorized)
	}

	if err := h.service.LogoutAll(c.UserContext(), claims.Subject); err != nil {
		return utils.TranslateError(c, err)
	}

	c.ClearCookie(refreshCookie)
	return utils.SuccessResponse(c, nil, "All sessions revoked")
}

// Sessions lists the subject's active sessions
func (h *Handler) Sessions(c *fiber.Ctx) error {
	claims := GetClaims(c)
	if claims == nil {
		return utils.ErrorResponse(c, "unauthenticated", fiber.StatusUnauthorized)
	}

	sessions, err := h.service.Sessions(c.UserContext(), claims.Subject)
	if err != nil {
		return utils.TranslateError(c, err)
	}

	out := make([]fiber.Map, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, fiber.Map{
			"id":           sess.ID,
			"ip_address":   sess.IPAddress,
			"user_agent":   sess.UserAgent,
			"created_at":   sess.CreatedAt,
			"last_used_at": sess.LastUsedAt,
			"expires_at":   sess.ExpiresAt,
			"current":      sess.ID.String() == claims.SessionID,
		})
	}

	return utils.SuccessResponse(c, fiber.Map{"sessions": out}, "")
}

func (h *Handler) setRefreshCookie(c *fiber.Ctx, sid uuid.UUID, secret string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    fmt.Sprintf("%s:%s", sid, secret),
		HTTPOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: "None",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

// sessionID extracts the calling session's id from the verified claims
func (h *Handler) sessionID(c *fiber.Ctx) (uuid.UUID, bool) {
	claims := GetClaims(c)
	if claims == nil || claims.SessionID == "" {
		return uuid.Nil, false
	}

	sid, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, false
	}
	return sid, true
}

func (h *Handler) refreshCredentials(c *fiber.Ctx) (uuid.UUID, string, bool) {
	raw := c.Cookies(refreshCookie)
	if raw == "" {
		raw = c.Get("X-Refresh-Token")
	}

	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return uuid.Nil, "", false
	}

	sid, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", false
	}
	return sid, parts[1], true
}
