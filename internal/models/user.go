package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User holds the account plus the growth-profile fields that feed
// insight prompts.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	Role           string         `gorm:"size:20;default:'user'" json:"role"`
	AuthProvider   string         `gorm:"size:50;default:'email'" json:"-"`
	HeightCm       *float64       `json:"height_cm"`
	TargetHeightCm *float64       `json:"target_height_cm"`
	BirthDate      *time.Time     `json:"birth_date"`
	Gender         string         `gorm:"size:20" json:"gender"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
