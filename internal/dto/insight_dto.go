package dto

import "github.com/peakheight/peakheight-backend/internal/models"

type GenerateInsightRequest struct {
	InsightType string `json:"insight_type"`
}

type InsightListResponse struct {
	Insights []models.AIInsight `json:"insights"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Page     int                `json:"page"`
}

type ModerationResponse struct {
	Action     string             `json:"action"` // approved, flagged, rejected
	Flagged    bool               `json:"flagged"`
	Categories []string           `json:"categories,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}
