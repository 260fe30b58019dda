package logging

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/raftaar/raftaar-backend/internal/models"
)

const cleanupSchedule = "@daily"

// StartCleanup schedules deletion of system_logs older than retention. The
// returned scheduler is already running; Stop it on shutdown.
func StartCleanup(db *gorm.DB, retention time.Duration) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(cleanupSchedule, func() { purgeLogs(db, retention) }); err != nil {
		return nil, fmt.Errorf("failed to schedule log cleanup: %w", err)
	}
	c.Start()
	return c, nil
}

func purgeLogs(db *gorm.DB, retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		slog.Error("log cleanup failed", "action", "log_cleanup", "error", result.Error.Error())
	} else if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}
}
