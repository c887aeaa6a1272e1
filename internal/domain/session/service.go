package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	"gorm.io/gorm"

	"github.com/harborlane/authcore/internal/cache"
	"github.com/harborlane/authcore/internal/domain/audit"
	"github.com/harborlane/authcore/internal/domain/role"
)

// LimitStrategy selects what happens when a subject already holds the
// maximum number of active sessions
type LimitStrategy int

const (
	// LimitEvictOldest revokes the least-recently-active session to make
	// room. Default.
	LimitEvictOldest LimitStrategy = iota
	// LimitReject refuses the new session with ErrSessionLimit
	LimitReject
	// LimitAllow places no bound on concurrent sessions
	LimitAllow
)

// ParseLimitStrategy parses a strategy name from configuration
func ParseLimitStrategy(s string) (LimitStrategy, error) {
	switch s {
	case "evict_oldest", "":
		return LimitEvictOldest, nil
	case "reject":
		return LimitReject, nil
	case "allow":
		return LimitAllow, nil
	default:
		return LimitEvictOldest, fmt.Errorf("unknown session limit strategy %q", s)
	}
}

// StepUpStatus reports whether a session may perform privileged
// operations. Setup-required and verify-required are distinct states:
// the first means the subject never configured a second factor, the
// second that this session has not passed it yet.
type StepUpStatus int

const (
	StepUpSatisfied StepUpStatus = iota
	StepUpSetupRequired
	StepUpVerifyRequired
)

// String returns the wire name of the status
func (s StepUpStatus) String() string {
	switch s {
	case StepUpSetupRequired:
		return "setup_required"
	case StepUpVerifyRequired:
		return "verify_required"
	default:
		return "satisfied"
	}
}

// Config holds session lifecycle policy
type Config struct {
	TTL             time.Duration
	MaxRefreshCount int
	MaxConcurrent   int
	Strategy        LimitStrategy
	BindFingerprint bool
	StepUpTTL       time.Duration
}

// Service manages the session lifecycle
type Service interface {
	Create(ctx context.Context, subjectID, email string, r role.Role, device Device) (*Session, string, error)
	Refresh(ctx context.Context, id uuid.UUID, secret, fingerprint string) (*Session, string, error)
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	List(ctx context.Context, subjectID string) ([]Session, error)
	StepUpStatus(sess *Session, mfaConfigured bool) StepUpStatus
	MarkStepUp(ctx context.Context, id uuid.UUID) error
	Invalidate(ctx context.Context, id uuid.UUID) error
	InvalidateAll(ctx context.Context, subjectID string) error
	SweepExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo        Repository
	cfg         Config
	auditor     audit.Recorder
	revocations *cache.RevocationCache
	now         func() time.Time
}

// NewService creates a session Service. revocations may be nil, in which
// case revocation fan-out is skipped.
func NewService(repo Repository, cfg Config, auditor audit.Recorder, revocations *cache.RevocationCache) Service {
	return &service{
		repo:        repo,
		cfg:         cfg,
		auditor:     auditor,
		revocations: revocations,
		now:         time.Now,
	}
}

// generateSecret generates a random refresh secret
func generateSecret() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashSecret hashes the secret using SHA3-256
func hashSecret(secret string) string {
	h := sha3.Sum256([]byte(secret))
	return base64.RawStdEncoding.EncodeToString(h[:])
}

// Fingerprint derives a stable device fingerprint from client headers.
// The raw values are not stored, only the digest.
func Fingerprint(userAgent, acceptLanguage string) string {
	h := sha3.Sum256([]byte(userAgent + "\x00" + acceptLanguage))
	return base64.RawStdEncoding.EncodeToString(h[:])
}

// Create opens a new session for the subject, enforcing the concurrent
// session limit. Enforcement is best effort: two racing logins can both
// observe room and proceed; the eviction policy and sweep correct the
// overshoot on the next create.
func (s *service) Create(ctx context.Context, subjectID, email string, r role.Role, device Device) (*Session, string, error) {
	now := s.now().UTC()

	if s.cfg.Strategy != LimitAllow && s.cfg.MaxConcurrent > 0 {
		count, err := s.repo.CountActive(ctx, subjectID, now)
		if err != nil {
			return nil, "", fmt.Errorf("failed to count active sessions: %w", err)
		}

		if count >= int64(s.cfg.MaxConcurrent) {
			switch s.cfg.Strategy {
			case LimitReject:
				return nil, "", ErrSessionLimit
			case LimitEvictOldest:
				if err := s.evictOldest(ctx, subjectID, count, now); err != nil {
					return nil, "", err
				}
			}
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session secret: %w", err)
	}

	sess := &Session{
		SubjectID:       subjectID,
		Email:           email,
		Role:            r.String(),
		RefreshHash:     hashSecret(secret),
		MaxRefreshCount: s.cfg.MaxRefreshCount,
		ExpiresAt:       now.Add(s.cfg.TTL),
		LastUsedAt:      now,
		IPAddress:       device.IPAddress,
		UserAgent:       device.UserAgent,
		Fingerprint:     device.Fingerprint,
	}
	sess.ID = uuid.New()

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	s.auditOrWarn(ctx, audit.Entry{
		ActorID:   subjectID,
		Action:    audit.ActionSessionCreated,
		Target:    sess.ID.String(),
		Outcome:   audit.OutcomeSuccess,
		IPAddress: device.IPAddress,
	})

	return sess, secret, nil
}

// evictOldest revokes least-recently-active sessions until the subject
// is below the limit
func (s *service) evictOldest(ctx context.Context, subjectID string, count int64, now time.Time) error {
	for count >= int64(s.cfg.MaxConcurrent) {
		oldest, err := s.repo.OldestActive(ctx, subjectID, now)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to find eviction candidate: %w", err)
		}

		if err := s.revokeSession(ctx, oldest); err != nil {
			return err
		}

		s.auditOrWarn(ctx, audit.Entry{
			ActorID:   subjectID,
			Action:    audit.ActionSessionEvicted,
			Target:    oldest.ID.String(),
			Outcome:   audit.OutcomeSuccess,
			IPAddress: oldest.IPAddress,
			Metadata:  map[string]any{"reason": "concurrent session limit"},
		})
		count--
	}
	return nil
}

// Refresh consumes the presented refresh secret and rotates it. The
// rotation is a single conditional update, so each secret is effective
// at most once; a replay revokes the session.
func (s *service) Refresh(ctx context.Context, id uuid.UUID, secret, fingerprint string) (*Session, string, error) {
	now := s.now().UTC()

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", fmt.Errorf("failed to load session: %w", err)
	}

	if !sess.Live(now) {
		return nil, "", ErrUnauthorized
	}

	if s.cfg.BindFingerprint && sess.Fingerprint != "" && sess.Fingerprint != fingerprint {
		return nil, "", s.securityRevoke(ctx, sess, ReasonDeviceMismatch)
	}

	if hashSecret(secret) != sess.RefreshHash {
		// The stored hash has moved past the presented secret: this
		// secret was already consumed.
		return nil, "", s.securityRevoke(ctx, sess, ReasonReplay)
	}

	if sess.RefreshCount >= sess.MaxRefreshCount {
		return nil, "", s.securityRevoke(ctx, sess, ReasonRefreshExhausted)
	}

	newSecret, err := generateSecret()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session secret: %w", err)
	}

	newExpiry := now.Add(s.cfg.TTL)
	ok, err := s.repo.ConsumeRefresh(ctx, id, hashSecret(secret), hashSecret(newSecret), newExpiry, now)
	if err != nil {
		return nil, "", fmt.Errorf("failed to rotate session: %w", err)
	}
	if !ok {
		// A concurrent refresh won the conditional update between our
		// read and write: the presented secret is now consumed.
		return nil, "", s.securityRevoke(ctx, sess, ReasonReplay)
	}

	sess.RefreshHash = hashSecret(newSecret)
	sess.RefreshCount++
	sess.ExpiresAt = newExpiry
	sess.LastUsedAt = now

	s.auditOrWarn(ctx, audit.Entry{
		ActorID:   sess.SubjectID,
		Action:    audit.ActionTokenRefresh,
		Target:    sess.ID.String(),
		Outcome:   audit.OutcomeSuccess,
		IPAddress: sess.IPAddress,
	})

	return sess, newSecret, nil
}

// securityRevoke revokes the session as the defensive action attached to
// every SecurityError, then returns the error
func (s *service) securityRevoke(ctx context.Context, sess *Session, reason string) error {
	if err := s.revokeSession(ctx, sess); err != nil {
		slog.Error("failed to revoke session after security violation",
			"session_id", sess.ID.String(), "reason", reason, "error", err)
	}

	s.auditOrWarn(ctx, audit.Entry{
		ActorID:   sess.SubjectID,
		Action:    audit.ActionSecurityBlock,
		Target:    sess.ID.String(),
		Outcome:   audit.OutcomeDenied,
		IPAddress: sess.IPAddress,
		Metadata:  map[string]any{"reason": reason},
	})

	return &SecurityError{Reason: reason}
}

// Get returns the session when it is live
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !sess.Live(s.now().UTC()) {
		return nil, ErrUnauthorized
	}
	return sess, nil
}

// List returns the subject's active sessions, most recently used first
func (s *service) List(ctx context.Context, subjectID string) ([]Session, error) {
	return s.repo.ActiveBySubject(ctx, subjectID)
}

// StepUpStatus reports the step-up state for privileged operations.
// mfaConfigured comes from the identity provider: whether the subject
// has a second factor enrolled at all.
func (s *service) StepUpStatus(sess *Session, mfaConfigured bool) StepUpStatus {
	if !role.RoleFromString(sess.Role).RequiresMFA() {
		return StepUpSatisfied
	}
	if !mfaConfigured {
		return StepUpSetupRequired
	}
	if sess.MFAVerified && s.now().UTC().Before(sess.MFAExpiresAt) {
		return StepUpSatisfied
	}
	return StepUpVerifyRequired
}

// MarkStepUp records that the session passed step-up verification
func (s *service) MarkStepUp(ctx context.Context, id uuid.UUID) error {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorized
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	until := s.now().UTC().Add(s.cfg.StepUpTTL)
	if err := s.repo.SetStepUp(ctx, id, until); err != nil {
		return fmt.Errorf("failed to record step-up: %w", err)
	}

	s.auditOrWarn(ctx, audit.Entry{
		ActorID:   sess.SubjectID,
		Action:    audit.ActionStepUpVerified,
		Target:    sess.ID.String(),
		Outcome:   audit.OutcomeSuccess,
		IPAddress: sess.IPAddress,
	})
	return nil
}

// Invalidate destroys a session. Idempotent: an unknown or already
// revoked id is not an error.
func (s *service) Invalidate(ctx context.Context, id uuid.UUID) error {
	sess, err := s.repo.FindByIDIncludingRevoked(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if sess.Revoked {
		return nil
	}

	if err := s.revokeSession(ctx, sess); err != nil {
		return err
	}

	s.auditOrWarn(ctx, audit.Entry{
		ActorID:   sess.SubjectID,
		Action:    audit.ActionSessionRevoked,
		Target:    sess.ID.String(),
		Outcome:   audit.OutcomeSuccess,
		IPAddress: sess.IPAddress,
	})
	return nil
}

// InvalidateAll destroys every active session held by the subject
func (s *service) InvalidateAll(ctx context.Context, subjectID string) error {
	sessions, err := s.repo.ActiveBySubject(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to list sessions for %s: %w", subjectID, err)
	}

	revoked, err := s.repo.RevokeAllForSubject(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions for %s: %w", subjectID, err)
	}

	for i := range sessions {
		s.pushRevocation(ctx, &sessions[i])
	}

	s.auditOrWarn(ctx, audit.Entry{
		ActorID:  subjectID,
		Action:   audit.ActionLogoutAll,
		Outcome:  audit.OutcomeSuccess,
		Metadata: map[string]any{"revoked": revoked},
	})
	return nil
}

// SweepExpired removes sessions past their expiry. Housekeeping only:
// it deletes rows no live operation can match, so it is safe to run
// concurrently with anything else.
func (s *service) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().UTC())
}

func (s *service) revokeSession(ctx context.Context, sess *Session) error {
	if err := s.repo.Revoke(ctx, sess.ID); err != nil {
		return fmt.Errorf("failed to revoke session %s: %w", sess.ID, err)
	}
	s.pushRevocation(ctx, sess)
	return nil
}

func (s *service) pushRevocation(ctx context.Context, sess *Session) {
	if s.revocations == nil {
		return
	}
	ttl := time.Until(sess.ExpiresAt)
	if err := s.revocations.RevokeSession(ctx, sess.ID.String(), ttl); err != nil {
		slog.Warn("failed to fan out session revocation",
			"session_id", sess.ID.String(), "error", err)
	}
}

// auditOrWarn logs the entry and surfaces audit-store failures on the
// fallback channel instead of dropping them
func (s *service) auditOrWarn(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Log(ctx, entry); err != nil {
		slog.Error("audit trail unavailable",
			"action", entry.Action, "actor", entry.ActorID, "error", err)
	}
}
