package attempt

import (
	"time"

	"github.com/harborlane/authcore/internal/database"
)

// LoginAttempt is an append-only record of one authentication attempt.
// Records are never mutated; they age out via ExpiresAt.
type LoginAttempt struct {
	database.BaseModel

	AccountID string    `gorm:"column:account_id;type:text;not null;index"`
	IPAddress string    `gorm:"column:ip_address;size:45;not null;index"`
	Succeeded bool      `gorm:"column:succeeded;not null"`
	Reason    string    `gorm:"column:reason;size:128"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}

func (LoginAttempt) TableName() string {
	return "login_attempts"
}
