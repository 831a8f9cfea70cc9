package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/dto"
	"github.com/peakheight/peakheight-backend/internal/models"
	"github.com/peakheight/peakheight-backend/internal/realtime"
	"gorm.io/gorm"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrNotPostOwner    = errors.New("you can only delete your own posts")
	ErrPostTooShort    = errors.New("post must be at least 3 characters")
	ErrPostTooLong     = errors.New("post must be under 2000 characters")
	ErrContentRejected = errors.New("content does not meet community guidelines")
)

// Moderator classifies content before it is persisted. Satisfied by
// InsightService.
type Moderator interface {
	ModerateContent(text string) (*dto.ModerationResponse, error)
}

type CommunityService struct {
	db        *gorm.DB
	limiter   *RateLimitService
	moderator Moderator
	events    *realtime.Hub
	now       func() time.Time
}

func NewCommunityService(db *gorm.DB, limiter *RateLimitService, moderator Moderator, events *realtime.Hub) *CommunityService {
	return &CommunityService{db: db, limiter: limiter, moderator: moderator, events: events, now: time.Now}
}

// CreatePost moderates then persists. Rejected content is never
// written; flagged content is written with its status so it can be
// hidden from the feed pending review. A moderation backend failure
// does not block posting.
func (s *CommunityService) CreatePost(userID uuid.UUID, content string) (*models.CommunityPost, error) {
	content = strings.TrimSpace(content)
	if len(content) < 3 {
		return nil, ErrPostTooShort
	}
	if len(content) > 2000 {
		return nil, ErrPostTooLong
	}

	reservation, err := s.limiter.Reserve(userID, models.ActionCommunityPost)
	if err != nil {
		return nil, err
	}

	status := models.PostStatusApproved
	if s.moderator != nil {
		verdict, err := s.moderator.ModerateContent(content)
		if err == nil {
			switch verdict.Action {
			case models.PostStatusRejected:
				s.limiter.Release(reservation)
				return nil, ErrContentRejected
			case models.PostStatusFlagged:
				status = models.PostStatusFlagged
			}
		}
	}

	post := models.CommunityPost{
		ID:               uuid.New(),
		UserID:           userID,
		Content:          content,
		ModerationStatus: status,
		CreatedAt:        s.now().UTC(),
	}

	if err := s.db.Create(&post).Error; err != nil {
		s.limiter.Release(reservation)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.events.Publish(realtime.ChannelPosts, "insert", userID, post)
	return &post, nil
}

// GetFeed returns approved posts newest-first.
func (s *CommunityService) GetFeed(limit, offset int) ([]models.CommunityPost, int64, error) {
	query := s.db.Model(&models.CommunityPost{}).Where("moderation_status = ?", models.PostStatusApproved)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.CommunityPost
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, total, err
}

// LikePost increments the like count.
func (s *CommunityService) LikePost(postID uuid.UUID) error {
	result := s.db.Model(&models.CommunityPost{}).
		Where("id = ?", postID).
		UpdateColumn("like_count", gorm.Expr("like_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to like post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// DeletePost soft-deletes a post only when owned by the caller.
func (s *CommunityService) DeletePost(userID, postID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", postID, userID).Delete(&models.CommunityPost{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}
