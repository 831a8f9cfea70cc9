package services

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/models"
	"gorm.io/gorm"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded, try again later")

// DefaultActionLimits is the per-action ceiling inside the trailing
// 24h window. Premium entitlement bypasses all of them.
var DefaultActionLimits = map[models.ActionType]int{
	models.ActionHabitLog:      50,
	models.ActionFoodScan:      100,
	models.ActionCommunityPost: 10,
	models.ActionAIRequest:     10,
}

// PremiumChecker reports whether a user currently has premium
// entitlement. Satisfied by SubscriptionService.
type PremiumChecker interface {
	HasPremiumAccess(userID uuid.UUID) bool
}

// RateLimitService gates user actions against a rolling 24-hour
// window counted from the action_usages table.
//
// The count and the usage insert run in one transaction, so two
// concurrent requests cannot both pass a check that should admit only
// one.
//
// failOpen is a deliberate availability-over-strictness tradeoff: when
// the usage store itself errors, the action is allowed and the error
// is logged instead of being surfaced to the user.
type RateLimitService struct {
	db       *gorm.DB
	premium  PremiumChecker
	limits   map[models.ActionType]int
	failOpen bool
	now      func() time.Time
}

func NewRateLimitService(db *gorm.DB, premium PremiumChecker, failOpen bool) *RateLimitService {
	return &RateLimitService{
		db:       db,
		premium:  premium,
		limits:   DefaultActionLimits,
		failOpen: failOpen,
		now:      time.Now,
	}
}

// Reserve admits one action and records its usage atomically. It
// returns the usage row ID so the caller can Release the slot if the
// gated action itself fails afterward. A returned uuid.Nil means
// nothing was recorded (premium bypass or fail-open) and Release is a
// no-op.
func (s *RateLimitService) Reserve(userID uuid.UUID, action models.ActionType) (uuid.UUID, error) {
	if s.premium != nil && s.premium.HasPremiumAccess(userID) {
		return uuid.Nil, nil
	}

	limit, limited := s.limits[action]
	if !limited {
		return uuid.Nil, nil
	}

	usage := models.ActionUsage{
		ID:         uuid.New(),
		UserID:     userID,
		ActionType: action,
		UsedAt:     s.now().UTC(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		windowStart := s.now().UTC().Add(-24 * time.Hour)

		var count int64
		if err := tx.Model(&models.ActionUsage{}).
			Where("user_id = ? AND action_type = ? AND used_at > ?", userID, action, windowStart).
			Count(&count).Error; err != nil {
			return err
		}

		if count >= int64(limit) {
			return ErrRateLimitExceeded
		}

		return tx.Create(&usage).Error
	})

	if errors.Is(err, ErrRateLimitExceeded) {
		return uuid.Nil, ErrRateLimitExceeded
	}
	if err != nil {
		if s.failOpen {
			slog.Error("rate limit check failed, allowing action", "action", action, "user_id", userID, "error", err)
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}

	return usage.ID, nil
}

// Release frees a reservation after the gated action failed, so the
// failed attempt does not count against the window.
func (s *RateLimitService) Release(usageID uuid.UUID) {
	if usageID == uuid.Nil {
		return
	}
	if err := s.db.Delete(&models.ActionUsage{}, "id = ?", usageID).Error; err != nil {
		slog.Error("failed to release rate limit reservation", "usage_id", usageID, "error", err)
	}
}

// Remaining reports how many actions of the given type the user may
// still perform in the current window. Premium users always see the
// full limit.
func (s *RateLimitService) Remaining(userID uuid.UUID, action models.ActionType) (int, error) {
	limit, limited := s.limits[action]
	if !limited {
		return 0, nil
	}
	if s.premium != nil && s.premium.HasPremiumAccess(userID) {
		return limit, nil
	}

	windowStart := s.now().UTC().Add(-24 * time.Hour)
	var count int64
	err := s.db.Model(&models.ActionUsage{}).
		Where("user_id = ? AND action_type = ? AND used_at > ?", userID, action, windowStart).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
