package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborlane/authcore/internal/cache"
)

// Config holds lockout and rate limit thresholds
type Config struct {
	// Threshold is the failed-attempt count within Window that locks an
	// account
	Threshold int
	// Window is the trailing window failures are counted over
	Window time.Duration
	// IPThreshold is the per-origin-address failure count that trips the
	// rate limit, blunting credential stuffing from one source
	IPThreshold int
}

// Tracker records authentication attempts and answers advisory lockout
// and rate limit queries. It never blocks anything itself; callers poll
// the queries and make the policy decision.
//
// A successful attempt does not clear earlier failures. They stop
// counting only when they age out of the trailing window. This is a
// deliberate policy choice: clearing on success would let an attacker
// who guesses one password reset the meter for further guessing.
type Tracker struct {
	repo    Repository
	counter *cache.Counter
	cfg     Config
	now     func() time.Time
}

// NewTracker creates a Tracker. counter may be nil; per-IP queries then
// fall back to store counts.
func NewTracker(repo Repository, cfg Config, counter *cache.Counter) *Tracker {
	return &Tracker{
		repo:    repo,
		counter: counter,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Record appends one attempt. It is a pure side-effecting append and
// succeeds independently of any lockout state.
func (t *Tracker) Record(ctx context.Context, accountID, ip string, succeeded bool, reason string) error {
	now := t.now().UTC()

	rec := &LoginAttempt{
		AccountID: accountID,
		IPAddress: ip,
		Succeeded: succeeded,
		Reason:    reason,
		ExpiresAt: now.Add(t.cfg.Window),
	}

	if err := t.repo.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	if !succeeded && t.counter != nil {
		if _, err := t.counter.Incr(ctx, "ip:"+ip, t.cfg.Window); err != nil {
			slog.Warn("failed to bump attempt counter", "ip", ip, "error", err)
		}
	}

	return nil
}

// IsLockedOut reports whether the account's failed attempts within the
// trailing window meet or exceed the threshold
func (t *Tracker) IsLockedOut(ctx context.Context, accountID string) (bool, error) {
	since := t.now().UTC().Add(-t.cfg.Window)
	count, err := t.repo.CountFailedByAccount(ctx, accountID, since)
	if err != nil {
		return false, fmt.Errorf("failed to count attempts for account: %w", err)
	}
	return count >= int64(t.cfg.Threshold), nil
}

// IsRateLimited reports whether the origin address has exceeded its
// failure budget. Served from the decaying Redis counter when one is
// configured, from the store otherwise.
func (t *Tracker) IsRateLimited(ctx context.Context, ip string) (bool, error) {
	if t.counter != nil {
		count, err := t.counter.Get(ctx, "ip:"+ip)
		if err == nil {
			return count >= int64(t.cfg.IPThreshold), nil
		}
		slog.Warn("attempt counter unavailable, falling back to store", "ip", ip, "error", err)
	}

	since := t.now().UTC().Add(-t.cfg.Window)
	count, err := t.repo.CountFailedByIP(ctx, ip, since)
	if err != nil {
		return false, fmt.Errorf("failed to count attempts for address: %w", err)
	}
	return count >= int64(t.cfg.IPThreshold), nil
}

// Prune removes attempts past their expiry marker. Concurrent count
// queries are unaffected beyond the pruned rows no longer counting.
func (t *Tracker) Prune(ctx context.Context) (int64, error) {
	return t.repo.DeleteExpired(ctx, t.now().UTC())
}
