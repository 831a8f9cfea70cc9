package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type InsightType string

const (
	InsightDailyTip         InsightType = "daily_tip"
	InsightHeightPrediction InsightType = "height_prediction"
	InsightProgressAnalysis InsightType = "progress_analysis"
	InsightNutritionAdvice  InsightType = "nutrition_advice"
)

var InsightTypes = []InsightType{InsightDailyTip, InsightHeightPrediction, InsightProgressAnalysis, InsightNutritionAdvice}

func ValidInsightType(t InsightType) bool {
	for _, i := range InsightTypes {
		if i == t {
			return true
		}
	}
	return false
}

// AIInsight is written once by the insight generator and never mutated.
// Data keeps the structured context the text was generated from.
type AIInsight struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	InsightType     InsightType    `gorm:"size:30;not null;index" json:"insight_type"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	Data            datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"data"`
	ConfidenceScore float64        `gorm:"not null;default:0.5" json:"confidence_score"`
	IsPremium       bool           `gorm:"default:false" json:"is_premium"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}
