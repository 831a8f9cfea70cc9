package models

import (
	"time"

	"github.com/google/uuid"
)

// HabitType is a closed enum; ValidHabitType is the single place
// new types get added.
type HabitType string

const (
	HabitSleep     HabitType = "sleep"
	HabitPosture   HabitType = "posture"
	HabitStretch   HabitType = "stretch"
	HabitWater     HabitType = "water"
	HabitNutrition HabitType = "nutrition"
)

var HabitTypes = []HabitType{HabitSleep, HabitPosture, HabitStretch, HabitWater, HabitNutrition}

func ValidHabitType(t HabitType) bool {
	for _, h := range HabitTypes {
		if h == t {
			return true
		}
	}
	return false
}

// HabitLog is append-only. Rows are never updated; they go away only
// when the owning account is deleted.
type HabitLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_habit_logs_user_type" json:"user_id"`
	HabitType HabitType `gorm:"size:20;not null;index:idx_habit_logs_user_type" json:"habit_type"`
	Value     float64   `gorm:"not null" json:"value"`
	Unit      string    `gorm:"size:20" json:"unit,omitempty"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	LoggedAt  time.Time `gorm:"not null;index" json:"logged_at"`
	CreatedAt time.Time `json:"created_at"`
}
