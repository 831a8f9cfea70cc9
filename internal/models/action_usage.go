package models

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionHabitLog      ActionType = "habit_log"
	ActionFoodScan      ActionType = "food_scan"
	ActionCommunityPost ActionType = "community_post"
	ActionAIRequest     ActionType = "ai_request"
)

// ActionUsage is one row per gated action. The rate limiter counts rows
// with used_at inside the trailing 24h window; older rows are simply
// ignored and reaped by the retention cleanup.
type ActionUsage struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_action_usage_user_action" json:"user_id"`
	ActionType ActionType `gorm:"size:30;not null;index:idx_action_usage_user_action" json:"action_type"`
	UsedAt     time.Time  `gorm:"not null;index" json:"used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
