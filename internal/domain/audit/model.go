package audit

import (
	"github.com/harborlane/authcore/internal/database"
)

// Action tags for security-relevant events
const (
	ActionLoginSuccess   = "LOGIN_SUCCESS"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionTokenRefresh   = "TOKEN_REFRESH"
	ActionSessionCreated = "SESSION_CREATED"
	ActionSessionEvicted = "SESSION_EVICTED"
	ActionSessionRevoked = "SESSION_REVOKED"
	ActionLogoutAll      = "LOGOUT_ALL"
	ActionStepUpVerified = "STEP_UP_VERIFIED"
	ActionSecurityBlock  = "SECURITY_BLOCK"
)

// Outcomes for audit events
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Event is an append-only record of a security-relevant action.
// Events are never mutated or deleted here; retention is external.
type Event struct {
	database.BaseModel

	ActorID   string `gorm:"column:actor_id;type:text;index"`
	Action    string `gorm:"column:action;size:64;not null;index"`
	Target    string `gorm:"column:target;type:text"`
	Outcome   string `gorm:"column:outcome;size:16;not null"`
	IPAddress string `gorm:"column:ip_address;size:45"`
	RiskScore int    `gorm:"column:risk_score;not null;default:0"`
	Metadata  string `gorm:"column:metadata;type:jsonb"`
}

func (Event) TableName() string {
	return "audit_events"
}

// Entry is what callers submit; the service fills in the risk score
// and persistence fields.
type Entry struct {
	ActorID   string
	Action    string
	Target    string
	Outcome   string
	IPAddress string
	Metadata  map[string]any
}
