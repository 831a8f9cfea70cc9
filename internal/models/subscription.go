package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubStatusTrial     = "trial"
	SubStatusActive    = "active"
	SubStatusCancelled = "cancelled"
	SubStatusExpired   = "expired"
)

type Subscription struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RevenueCatID       string    `gorm:"index;size:255" json:"revenuecat_id"`
	ProductID          string    `gorm:"size:255" json:"product_id"`
	Status             string    `gorm:"not null;default:'trial';size:50" json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	AutoRenew          bool      `gorm:"default:true" json:"auto_renew"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	User               User      `gorm:"foreignKey:UserID" json:"-"`
}

// Entitled reports whether this subscription grants premium access at t.
// Cancellation only turns off auto-renew; access runs to the period end.
func (s *Subscription) Entitled(t time.Time) bool {
	return s.Status != SubStatusExpired && s.CurrentPeriodEnd.After(t)
}
