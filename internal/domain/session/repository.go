package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists sessions. ConsumeRefresh is the one operation with
// atomicity requirements: it must be a single conditional update so a
// refresh secret is consumed at most once.
type Repository interface {
	Create(ctx context.Context, sess *Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	FindByIDIncludingRevoked(ctx context.Context, id uuid.UUID) (*Session, error)
	ActiveBySubject(ctx context.Context, subjectID string) ([]Session, error)
	CountActive(ctx context.Context, subjectID string, now time.Time) (int64, error)
	OldestActive(ctx context.Context, subjectID string, now time.Time) (*Session, error)
	ConsumeRefresh(ctx context.Context, id uuid.UUID, oldHash, newHash string, newExpiry, usedAt time.Time) (bool, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForSubject(ctx context.Context, subjectID string) (int64, error)
	SetStepUp(ctx context.Context, id uuid.UUID, until time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed session repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(ctx context.Context, sess *Session) error {
	return r.db.WithContext(ctx).Create(sess).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	err := r.db.WithContext(ctx).
		Where("id = ? AND revoked = false", id).
		First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) FindByIDIncludingRevoked(ctx context.Context, id uuid.UUID) (*Session, error) {
	var sess Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) ActiveBySubject(ctx context.Context, subjectID string) ([]Session, error) {
	var sessions []Session
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND revoked = false AND expires_at > ?", subjectID, time.Now().UTC()).
		Order("last_used_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) CountActive(ctx context.Context, subjectID string, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Session{}).
		Where("subject_id = ? AND revoked = false AND expires_at > ?", subjectID, now).
		Count(&count).Error
	return count, err
}

func (r *repository) OldestActive(ctx context.Context, subjectID string, now time.Time) (*Session, error) {
	var sess Session
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND revoked = false AND expires_at > ?", subjectID, now).
		Order("last_used_at ASC").
		First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ConsumeRefresh rotates the refresh hash with a single conditional
// update. The predicate matches the presented hash and the remaining
// refresh budget, so a replayed or exhausted secret affects zero rows.
func (r *repository) ConsumeRefresh(ctx context.Context, id uuid.UUID, oldHash, newHash string, newExpiry, usedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND refresh_hash = ? AND revoked = false AND refresh_count < max_refresh_count", id, oldHash).
		Updates(map[string]any{
			"refresh_hash":  newHash,
			"refresh_count": gorm.Expr("refresh_count + 1"),
			"expires_at":    newExpiry,
			"last_used_at":  usedAt,
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND revoked = false", id).
		Update("revoked", true).Error
}

func (r *repository) RevokeAllForSubject(ctx context.Context, subjectID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("subject_id = ? AND revoked = false", subjectID).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}

func (r *repository) SetStepUp(ctx context.Context, id uuid.UUID, until time.Time) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND revoked = false", id).
		Updates(map[string]any{
			"mfa_verified":   true,
			"mfa_expires_at": until,
		}).Error
}

func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&Session{})
	return res.RowsAffected, res.Error
}
