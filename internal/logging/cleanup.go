package logging

import (
	"log/slog"
	"time"

	"github.com/peakheight/peakheight-backend/internal/models"
	"gorm.io/gorm"
)

// StartCleanup runs a daily goroutine that deletes system_logs older
// than 30 days and action_usage rows older than 48 hours. Usage rows
// only matter inside the trailing 24h rate window, so anything past
// 48h is dead weight.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logCutoff := time.Now().AddDate(0, 0, -30)
				result := db.Where("timestamp < ?", logCutoff).Delete(&models.SystemLog{})
				if result.Error != nil {
					slog.Error("log cleanup failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("log cleanup completed", "deleted", result.RowsAffected)
				}

				usageCutoff := time.Now().Add(-48 * time.Hour)
				result = db.Where("used_at < ?", usageCutoff).Delete(&models.ActionUsage{})
				if result.Error != nil {
					slog.Error("usage cleanup failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("usage cleanup completed", "deleted", result.RowsAffected)
				}
			case <-done:
				return
			}
		}
	}()
}
