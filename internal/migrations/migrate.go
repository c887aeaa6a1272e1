package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/harborlane/authcore/internal/domain/attempt"
	"github.com/harborlane/authcore/internal/domain/audit"
	"github.com/harborlane/authcore/internal/domain/session"
)

// RunMigrations brings the schema up to date on boot. The SQL files
// under migrations/ are the authoritative history for cmd/migrate;
// AutoMigrate here keeps local development friction-free.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&session.Session{}, &attempt.LoginAttempt{}, &audit.Event{}); err != nil {
		return fmt.Errorf("failed to make migrations: %w", err)
	}
	return nil
}
