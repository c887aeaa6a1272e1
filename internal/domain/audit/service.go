package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrAuditUnavailable is returned when an event could not be persisted.
// Callers must surface this loudly; an unaudited security action is a
// compliance gap, not a UX inconvenience.
var ErrAuditUnavailable = errors.New("audit store unavailable")

// Recorder is the write-side interface consumed by the other domains
type Recorder interface {
	Log(ctx context.Context, entry Entry) error
}

// Service persists audit events with a computed risk score
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an audit Service
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Log records an entry. The event is never silently dropped: any store
// failure is reported as ErrAuditUnavailable.
func (s *Service) Log(ctx context.Context, entry Entry) error {
	at := s.now()

	// The column is jsonb; postgres rejects the empty string, so an
	// entry without metadata stores an empty object.
	metadata := "{}"
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = string(data)
	}

	event := &Event{
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		Target:    entry.Target,
		Outcome:   entry.Outcome,
		IPAddress: entry.IPAddress,
		RiskScore: RiskScore(entry.Action, entry.Outcome, at),
		Metadata:  metadata,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}
	return nil
}

// History returns recent events for an actor, newest first
func (s *Service) History(ctx context.Context, actorID string, since time.Time, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.FindByActor(ctx, actorID, since, limit)
}
