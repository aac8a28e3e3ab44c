package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds composite indexes that gorm struct tags don't express.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// smart-assign load query: active tasks per assignee
		{"tasks", "idx_tasks_assignee_status", "assigned_user_id, status"},
		// recent-actions feed: newest first with id tiebreak
		{"action_logs", "idx_action_logs_timestamp_id", "timestamp, id"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
