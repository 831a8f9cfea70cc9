package dto

import (
	"time"

	"github.com/peakheight/peakheight-backend/internal/models"
)

type LogHabitRequest struct {
	HabitType string  `json:"habit_type"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

type HabitLogsResponse struct {
	Logs  []models.HabitLog `json:"logs"`
	Total int64             `json:"total"`
	Limit int               `json:"limit"`
	Page  int               `json:"page"`
}

type StreakResponse struct {
	HabitType         string     `json:"habit_type"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

type HabitCalendarResponse struct {
	HabitType string   `json:"habit_type"`
	Dates     []string `json:"dates"`
	Days      int      `json:"days"`
}
