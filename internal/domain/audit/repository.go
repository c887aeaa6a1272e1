package audit

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository persists audit events
type Repository interface {
	Create(ctx context.Context, event *Event) error
	FindByActor(ctx context.Context, actorID string, since time.Time, limit int) ([]Event, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed audit repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByActor(ctx context.Context, actorID string, since time.Time, limit int) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND created_at >= ?", actorID, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
