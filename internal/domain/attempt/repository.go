package attempt

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository persists login attempts. Counts are read against the live
// table; rows pruned mid-window simply stop counting.
type Repository interface {
	Create(ctx context.Context, attempt *LoginAttempt) error
	CountFailedByAccount(ctx context.Context, accountID string, since time.Time) (int64, error)
	CountFailedByIP(ctx context.Context, ip string, since time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed login attempt repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(ctx context.Context, attempt *LoginAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) CountFailedByAccount(ctx context.Context, accountID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LoginAttempt{}).
		Where("account_id = ? AND succeeded = false AND created_at >= ?", accountID, since).
		Count(&count).Error
	return count, err
}

func (r *repository) CountFailedByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LoginAttempt{}).
		Where("ip_address = ? AND succeeded = false AND created_at >= ?", ip, since).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&LoginAttempt{})
	return res.RowsAffected, res.Error
}
