package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PostStatusApproved = "approved"
	PostStatusFlagged  = "flagged"
	PostStatusRejected = "rejected"
)

type CommunityPost struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Content          string         `gorm:"type:text;not null" json:"content"`
	ModerationStatus string         `gorm:"size:20;not null;default:'approved';index" json:"moderation_status"`
	LikeCount        int            `gorm:"default:0" json:"like_count"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
