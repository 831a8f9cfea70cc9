package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/dto"
	"github.com/peakheight/peakheight-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrTrialUsed            = errors.New("trial already used for this account")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type SubscriptionService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db, now: time.Now}
}

// HandleWebhookEvent applies one RevenueCat event. Unknown event types
// are acknowledged without action so RevenueCat stops retrying them.
func (s *SubscriptionService) HandleWebhookEvent(event *dto.RevenueCatEvent) error {
	switch event.Type {
	case "INITIAL_PURCHASE":
		return s.handleInitialPurchase(event)
	case "RENEWAL":
		return s.handleRenewal(event)
	case "CANCELLATION":
		return s.handleCancellation(event)
	case "UNCANCELLATION":
		return s.handleUncancellation(event)
	case "EXPIRATION":
		return s.handleExpiration(event)
	default:
		return nil
	}
}

func (s *SubscriptionService) handleInitialPurchase(event *dto.RevenueCatEvent) error {
	status := models.SubStatusActive
	if event.PeriodType == "TRIAL" {
		status = models.SubStatusTrial
	}

	sub := models.Subscription{
		ID:                 uuid.New(),
		RevenueCatID:       event.AppUserID,
		ProductID:          event.ProductID,
		Status:             status,
		CurrentPeriodStart: msToTime(event.PurchasedAtMs),
		CurrentPeriodEnd:   msToTime(event.ExpirationAtMs),
		AutoRenew:          true,
	}

	var user models.User
	if err := s.db.Where("id = ?", event.AppUserID).First(&user).Error; err == nil {
		sub.UserID = user.ID
	}

	return s.db.Create(&sub).Error
}

func (s *SubscriptionService) handleRenewal(event *dto.RevenueCatEvent) error {
	var sub models.Subscription
	if err := s.db.Where("revenuecat_id = ?", event.AppUserID).Order("created_at DESC").First(&sub).Error; err != nil {
		return fmt.Errorf("subscription not found for renewal: %w", err)
	}

	return s.db.Model(&sub).Updates(map[string]interface{}{
		"status":               models.SubStatusActive,
		"current_period_start": msToTime(event.PurchasedAtMs),
		"current_period_end":   msToTime(event.ExpirationAtMs),
		"auto_renew":           true,
	}).Error
}

// handleCancellation disables auto-renew only. Access keeps running
// until current_period_end; expiration arrives as its own event.
func (s *SubscriptionService) handleCancellation(event *dto.RevenueCatEvent) error {
	return s.db.Model(&models.Subscription{}).
		Where("revenuecat_id = ?", event.AppUserID).
		Updates(map[string]interface{}{
			"status":     models.SubStatusCancelled,
			"auto_renew": false,
		}).Error
}

func (s *SubscriptionService) handleUncancellation(event *dto.RevenueCatEvent) error {
	return s.db.Model(&models.Subscription{}).
		Where("revenuecat_id = ?", event.AppUserID).
		Updates(map[string]interface{}{
			"status":     models.SubStatusActive,
			"auto_renew": true,
		}).Error
}

func (s *SubscriptionService) handleExpiration(event *dto.RevenueCatEvent) error {
	return s.db.Model(&models.Subscription{}).
		Where("revenuecat_id = ?", event.AppUserID).
		Update("status", models.SubStatusExpired).Error
}

// CheckPremiumAccess returns the entitlement decision plus the record
// it was derived from (nil when the user never subscribed).
func (s *SubscriptionService) CheckPremiumAccess(userID uuid.UUID) (bool, *models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	return sub.Entitled(s.now()), &sub, nil
}

// HasPremiumAccess is the boolean form used by the rate limiter. Store
// errors resolve to "not premium" rather than failing the caller.
func (s *SubscriptionService) HasPremiumAccess(userID uuid.UUID) bool {
	ok, _, err := s.CheckPremiumAccess(userID)
	if err != nil {
		return false
	}
	return ok
}

// TrialEligible is true only for accounts with zero subscription rows
// of any status. One trial per account, ever.
func (s *SubscriptionService) TrialEligible(userID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Subscription{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count == 0, nil
}

// StartTrial creates a trial subscription for a trial-eligible account.
func (s *SubscriptionService) StartTrial(userID uuid.UUID, duration time.Duration) (*models.Subscription, error) {
	eligible, err := s.TrialEligible(userID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, ErrTrialUsed
	}

	now := s.now()
	sub := models.Subscription{
		ID:                 uuid.New(),
		UserID:             userID,
		ProductID:          "trial",
		Status:             models.SubStatusTrial,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(duration),
		AutoRenew:          false,
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create trial: %w", err)
	}
	return &sub, nil
}

func msToTime(ms int64) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond))
}
