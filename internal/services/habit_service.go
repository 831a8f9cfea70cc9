package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/models"
	"github.com/peakheight/peakheight-backend/internal/realtime"
	"gorm.io/gorm"
)

var (
	ErrInvalidHabitType  = errors.New("invalid habit type")
	ErrInvalidHabitValue = errors.New("habit value must be greater than zero")
)

// Streak is derived from habit logs on read and never stored.
type Streak struct {
	CurrentStreak     int
	LongestStreak     int
	LastCompletedDate *time.Time
}

type HabitService struct {
	db      *gorm.DB
	limiter *RateLimitService
	events  *realtime.Hub
	now     func() time.Time
}

func NewHabitService(db *gorm.DB, limiter *RateLimitService, events *realtime.Hub) *HabitService {
	return &HabitService{db: db, limiter: limiter, events: events, now: time.Now}
}

// LogHabit appends one immutable habit log with a server-assigned
// timestamp. The rate limiter is consulted first; on rate limit no
// write happens at all.
func (s *HabitService) LogHabit(userID uuid.UUID, habitType models.HabitType, value float64, unit, notes string) (*models.HabitLog, error) {
	if !models.ValidHabitType(habitType) {
		return nil, ErrInvalidHabitType
	}
	if value <= 0 {
		return nil, ErrInvalidHabitValue
	}

	reservation, err := s.limiter.Reserve(userID, models.ActionHabitLog)
	if err != nil {
		return nil, err
	}

	log := models.HabitLog{
		ID:        uuid.New(),
		UserID:    userID,
		HabitType: habitType,
		Value:     value,
		Unit:      unit,
		Notes:     notes,
		LoggedAt:  s.now().UTC(),
	}

	if err := s.db.Create(&log).Error; err != nil {
		s.limiter.Release(reservation)
		return nil, fmt.Errorf("failed to create habit log: %w", err)
	}

	s.events.Publish(realtime.ChannelHabits, "insert", userID, log)
	if s.events != nil {
		if streak, err := s.ComputeStreak(userID, habitType); err == nil {
			s.events.Publish(realtime.ChannelStreaks, "update", userID, streak)
		}
	}
	return &log, nil
}

// GetHabitLogs returns logs newest-first. habitType, from and to are
// optional; set filters combine with AND.
func (s *HabitService) GetHabitLogs(userID uuid.UUID, habitType models.HabitType, from, to *time.Time, limit, offset int) ([]models.HabitLog, int64, error) {
	query := s.db.Model(&models.HabitLog{}).Where("user_id = ?", userID)
	if habitType != "" {
		if !models.ValidHabitType(habitType) {
			return nil, 0, ErrInvalidHabitType
		}
		query = query.Where("habit_type = ?", habitType)
	}
	if from != nil {
		query = query.Where("logged_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("logged_at <= ?", *to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.HabitLog
	err := query.Order("logged_at DESC").Limit(limit).Offset(offset).Find(&logs).Error
	return logs, total, err
}

// ComputeStreak derives the consecutive-day streak for one habit type.
// Multiple logs on the same calendar day count once; the walk starts
// at today, or yesterday when today has no log yet, so a streak is not
// reported broken before the user had a chance to log.
func (s *HabitService) ComputeStreak(userID uuid.UUID, habitType models.HabitType) (*Streak, error) {
	if !models.ValidHabitType(habitType) {
		return nil, ErrInvalidHabitType
	}

	var logs []models.HabitLog
	err := s.db.Select("logged_at").
		Where("user_id = ? AND habit_type = ?", userID, habitType).
		Order("logged_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load habit logs: %w", err)
	}

	if len(logs) == 0 {
		return &Streak{}, nil
	}

	days := make(map[string]bool, len(logs))
	var newest time.Time
	for _, l := range logs {
		days[dayKey(l.LoggedAt)] = true
		if l.LoggedAt.After(newest) {
			newest = l.LoggedAt
		}
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	anchor := today
	if !days[dayKey(anchor)] {
		anchor = anchor.AddDate(0, 0, -1)
	}

	current := 0
	for d := anchor; days[dayKey(d)]; d = d.AddDate(0, 0, -1) {
		current++
	}

	longest := longestRun(days)

	last := newest.UTC().Truncate(24 * time.Hour)
	return &Streak{
		CurrentStreak:     current,
		LongestStreak:     longest,
		LastCompletedDate: &last,
	}, nil
}

// GetHabitDates returns the distinct calendar dates with at least one
// log in the trailing number of days, oldest first. Feeds the calendar
// view.
func (s *HabitService) GetHabitDates(userID uuid.UUID, habitType models.HabitType, days int) ([]string, error) {
	if !models.ValidHabitType(habitType) {
		return nil, ErrInvalidHabitType
	}
	if days > 90 {
		days = 90
	}
	if days < 7 {
		days = 7
	}

	since := s.now().UTC().AddDate(0, 0, -days)

	var logs []models.HabitLog
	err := s.db.Select("logged_at").
		Where("user_id = ? AND habit_type = ? AND logged_at >= ?", userID, habitType, since).
		Order("logged_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	dates := make([]string, 0, len(logs))
	for _, l := range logs {
		key := dayKey(l.LoggedAt)
		if !seen[key] {
			seen[key] = true
			dates = append(dates, key)
		}
	}
	return dates, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// longestRun finds the maximum consecutive-day run anywhere in the
// date set, independent of whether it touches today.
func longestRun(days map[string]bool) int {
	longest := 0
	for key := range days {
		start, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		// only count runs from their first day
		if days[dayKey(start.AddDate(0, 0, -1))] {
			continue
		}
		run := 0
		for d := start; days[dayKey(d)]; d = d.AddDate(0, 0, 1) {
			run++
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
