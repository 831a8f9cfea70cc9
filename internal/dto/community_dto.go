package dto

import "github.com/peakheight/peakheight-backend/internal/models"

type CreatePostRequest struct {
	Content string `json:"content"`
}

type PostFeedResponse struct {
	Posts []models.CommunityPost `json:"posts"`
	Total int64                  `json:"total"`
	Limit int                    `json:"limit"`
	Page  int                    `json:"page"`
}

type SubscriptionStatusResponse struct {
	HasAccess     bool                 `json:"has_access"`
	TrialEligible bool                 `json:"trial_eligible"`
	Subscription  *models.Subscription `json:"subscription,omitempty"`
}
