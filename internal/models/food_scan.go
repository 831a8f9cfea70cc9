package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FoodScan records a barcode lookup result so nutrition aggregates can
// feed insight prompts without re-querying the food API.
type FoodScan struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Barcode     string         `gorm:"size:50;not null;index" json:"barcode"`
	ProductName string         `gorm:"size:255" json:"product_name"`
	Brand       string         `gorm:"size:255" json:"brand,omitempty"`
	Nutrients   datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"nutrients"`
	ScannedAt   time.Time      `gorm:"not null;index" json:"scanned_at"`
	CreatedAt   time.Time      `json:"created_at"`
}
