package session

import (
	"time"

	"github.com/harborlane/authcore/internal/database"
)

// Session ties a subject to device and activity metadata, an opaque
// rotating refresh secret and an expiry. Only the SHA3-256 digest of the
// refresh secret is stored.
type Session struct {
	database.BaseModel

	SubjectID string `gorm:"column:subject_id;type:text;not null;index"`
	Email     string `gorm:"column:email;type:text;not null"`
	Role      string `gorm:"column:role;size:32;not null"`

	RefreshHash     string `gorm:"column:refresh_hash;not null"`
	RefreshCount    int    `gorm:"column:refresh_count;not null;default:0"`
	MaxRefreshCount int    `gorm:"column:max_refresh_count;not null"`

	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
	LastUsedAt time.Time `gorm:"column:last_used_at;not null"`
	Revoked    bool      `gorm:"column:revoked;not null;default:false"`

	IPAddress   string `gorm:"column:ip_address;size:45"`
	UserAgent   string `gorm:"column:user_agent;type:text"`
	Fingerprint string `gorm:"column:fingerprint;type:text"`

	MFAVerified  bool      `gorm:"column:mfa_verified;not null;default:false"`
	MFAExpiresAt time.Time `gorm:"column:mfa_expires_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// Live reports whether the session can still be used at the given time
func (s *Session) Live(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// Device carries the client metadata recorded on a session
type Device struct {
	IPAddress   string
	UserAgent   string
	Fingerprint string
}
