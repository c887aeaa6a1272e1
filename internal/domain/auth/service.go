package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harborlane/authcore/internal/domain/attempt"
	"github.com/harborlane/authcore/internal/domain/audit"
	"github.com/harborlane/authcore/internal/domain/role"
	"github.com/harborlane/authcore/internal/domain/session"
	"github.com/harborlane/authcore/internal/domain/token"
	"github.com/harborlane/authcore/internal/idp"
)

// LoginResult is returned from a successful login
type LoginResult struct {
	AccessToken   string
	RefreshSecret string
	SessionID     uuid.UUID
	Subject       string
	Email         string
	Role          role.Role
}

// RefreshResult is returned from a successful token refresh
type RefreshResult struct {
	AccessToken   string
	RefreshSecret string
	SessionID     uuid.UUID
}

// Service orchestrates the authentication flow: lockout checks, the
// identity provider call, session creation and token issuance
type Service struct {
	provider idp.Provider
	sessions session.Service
	tracker  *attempt.Tracker
	issuer   *token.Issuer
	auditor  audit.Recorder
}

// NewService creates an auth Service
func NewService(provider idp.Provider, sessions session.Service, tracker *attempt.Tracker, issuer *token.Issuer, auditor audit.Recorder) *Service {
	return &Service{
		provider: provider,
		sessions: sessions,
		tracker:  tracker,
		issuer:   issuer,
		auditor:  auditor,
	}
}

// Login authenticates the subject and opens a session. Lockout and rate
// limit checks are advisory queries on the tracker; the rejection
// decision is made here, explicitly.
func (s *Service) Login(ctx context.Context, email, password string, device session.Device) (*LoginResult, error) {
	locked, err := s.tracker.IsLockedOut(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed lockout check: %w", err)
	}
	if locked {
		s.recordAttempt(ctx, email, device.IPAddress, false, "account locked")
		s.auditOrWarn(ctx, audit.Entry{
			ActorID:   email,
			Action:    audit.ActionSecurityBlock,
			Outcome:   audit.OutcomeDenied,
			IPAddress: device.IPAddress,
			Metadata:  map[string]any{"reason": "lockout threshold reached"},
		})
		return nil, ErrLockedOut
	}

	limited, err := s.tracker.IsRateLimited(ctx, device.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("failed rate limit check: %w", err)
	}
	if limited {
		s.recordAttempt(ctx, email, device.IPAddress, false, "address rate limited")
		return nil, ErrRateLimited
	}

	identity, err := s.provider.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, idp.ErrInvalidCredentials) {
			s.recordAttempt(ctx, email, device.IPAddress, false, "invalid credentials")
			s.auditOrWarn(ctx, audit.Entry{
				ActorID:   email,
				Action:    audit.ActionLoginFailed,
				Outcome:   audit.OutcomeFailure,
				IPAddress: device.IPAddress,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity provider error: %w", err)
	}

	r := role.ResolveRole(identity.Groups)

	sess, secret, err := s.sessions.Create(ctx, identity.Subject, identity.Email, r, device)
	if err != nil {
		return nil, err
	}

	access, err := s.issuer.Issue(identity.Subject, identity.Email, sess.ID.String(), identity.Groups)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.recordAttempt(ctx, email, device.IPAddress, true, "")
	s.auditOrWarn(ctx, audit.Entry{
		ActorID:   identity.Subject,
		Action:    audit.ActionLoginSuccess,
		Target:    sess.ID.String(),
		Outcome:   audit.OutcomeSuccess,
		IPAddress: device.IPAddress,
	})

	return &LoginResult{
		AccessToken:   access,
		RefreshSecret: secret,
		SessionID:     sess.ID,
		Subject:       identity.Subject,
		Email:         identity.Email,
		Role:          r,
	}, nil
}

// Refresh rotates the refresh secret and issues a fresh access token
// carrying the same identity the session was opened with
func (s *Service) Refresh(ctx context.Context, sessionID uuid.UUID, secret, fingerprint string) (*RefreshResult, error) {
	sess, newSecret, err := s.sessions.Refresh(ctx, sessionID, secret, fingerprint)
	if err != nil {
		return nil, err
	}

	r := role.RoleFromString(sess.Role)
	access, err := s.issuer.Issue(sess.SubjectID, sess.Email, sess.ID.String(), []string{r.GroupName()})
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &RefreshResult{
		AccessToken:   access,
		RefreshSecret: newSecret,
		SessionID:     sess.ID,
	}, nil
}

// StepUpStatus reports whether the session may perform privileged
// operations, and if not, what the caller must do about it
func (s *Service) StepUpStatus(ctx context.Context, sessionID uuid.UUID) (session.StepUpStatus, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return session.StepUpSatisfied, err
	}
	return s.sessions.StepUpStatus(sess, s.provider.HasMFAConfigured(sess.Email)), nil
}

// VerifyStepUp checks the second-factor code with the identity provider
// and marks the session as step-up verified. A rejected code counts as a
// failed attempt so code guessing trips the same lockout as passwords.
func (s *Service) VerifyStepUp(ctx context.Context, sessionID uuid.UUID, code string) (session.StepUpStatus, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return session.StepUpSatisfied, err
	}

	if !s.provider.HasMFAConfigured(sess.Email) {
		return session.StepUpSetupRequired, ErrMFANotConfigured
	}

	if err := s.provider.VerifyMFA(ctx, sess.Email, code); err != nil {
		if errors.Is(err, idp.ErrInvalidMFACode) {
			s.recordAttempt(ctx, sess.Email, sess.IPAddress, false, "invalid second-factor code")
			return session.StepUpVerifyRequired, ErrInvalidMFACode
		}
		return session.StepUpVerifyRequired, fmt.Errorf("identity provider error: %w", err)
	}

	if err := s.sessions.MarkStepUp(ctx, sess.ID); err != nil {
		return session.StepUpVerifyRequired, err
	}
	return session.StepUpSatisfied, nil
}

// Logout destroys the session. Idempotent.
func (s *Service) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessions.Invalidate(ctx, sessionID)
}

// LogoutAll destroys every session the subject holds
func (s *Service) LogoutAll(ctx context.Context, subjectID string) error {
	return s.sessions.InvalidateAll(ctx, subjectID)
}

// Sessions lists the subject's active sessions
func (s *Service) Sessions(ctx context.Context, subjectID string) ([]session.Session, error) {
	return s.sessions.List(ctx, subjectID)
}

// recordAttempt appends to the tracker; a tracker failure must not mask
// the login outcome, so it is only logged
func (s *Service) recordAttempt(ctx context.Context, accountID, ip string, succeeded bool, reason string) {
	if err := s.tracker.Record(ctx, accountID, ip, succeeded, reason); err != nil {
		slog.Error("failed to record login attempt",
			"account", accountID, "ip", ip, "error", err)
	}
}

func (s *Service) auditOrWarn(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Log(ctx, entry); err != nil {
		slog.Error("audit trail unavailable",
			"action", entry.Action, "actor", entry.ActorID, "error", err)
	}
}
