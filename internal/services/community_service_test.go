package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/dto"
	"github.com/peakheight/peakheight-backend/internal/models"
	"gorm.io/gorm"
)

// stubModerator returns a fixed verdict, or an error when set.
type stubModerator struct {
	action string
	err    error
}

func (s stubModerator) ModerateContent(string) (*dto.ModerationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.ModerationResponse{Action: s.action}, nil
}

func newCommunityService(t *testing.T, db *gorm.DB, moderator Moderator) *CommunityService {
	t.Helper()
	limiter := NewRateLimitService(db, stubPremium{}, false)
	return NewCommunityService(db, limiter, moderator, nil)
}

func TestCreatePostLengthBounds(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusApproved})

	if _, err := svc.CreatePost(userID, "hi"); !errors.Is(err, ErrPostTooShort) {
		t.Fatalf("expected ErrPostTooShort, got %v", err)
	}
	if _, err := svc.CreatePost(userID, "   a   "); !errors.Is(err, ErrPostTooShort) {
		t.Fatalf("whitespace must not count toward length, got %v", err)
	}
	if _, err := svc.CreatePost(userID, strings.Repeat("x", 2001)); !errors.Is(err, ErrPostTooLong) {
		t.Fatalf("expected ErrPostTooLong, got %v", err)
	}
}

func TestCreatePostApproved(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusApproved})

	post, err := svc.CreatePost(userID, "  Did my stretches every day this week!  ")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.Content != "Did my stretches every day this week!" {
		t.Fatalf("content must be trimmed, got %q", post.Content)
	}
	if post.ModerationStatus != models.PostStatusApproved {
		t.Fatalf("expected approved, got %q", post.ModerationStatus)
	}
}

func TestCreatePostRejectedPersistsNothing(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusRejected})

	if _, err := svc.CreatePost(userID, "some rejected content"); !errors.Is(err, ErrContentRejected) {
		t.Fatalf("expected ErrContentRejected, got %v", err)
	}

	var posts int64
	db.Model(&models.CommunityPost{}).Count(&posts)
	if posts != 0 {
		t.Fatalf("rejected content must never be written, got %d rows", posts)
	}

	var usage int64
	db.Model(&models.ActionUsage{}).Count(&usage)
	if usage != 0 {
		t.Fatalf("rejected post must release its rate-limit slot, got %d rows", usage)
	}
}

func TestCreatePostFlaggedIsHiddenFromFeed(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusFlagged})

	post, err := svc.CreatePost(userID, "borderline content here")
	if err != nil {
		t.Fatalf("flagged content must persist: %v", err)
	}
	if post.ModerationStatus != models.PostStatusFlagged {
		t.Fatalf("expected flagged, got %q", post.ModerationStatus)
	}

	posts, total, err := svc.GetFeed(20, 0)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if total != 0 || len(posts) != 0 {
		t.Fatalf("flagged posts must not appear in the feed")
	}
}

func TestCreatePostModerationFailureDoesNotBlock(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{err: ErrUpstreamUnavailable})

	post, err := svc.CreatePost(userID, "posting while moderation is down")
	if err != nil {
		t.Fatalf("moderation failure must not block posting: %v", err)
	}
	if post.ModerationStatus != models.PostStatusApproved {
		t.Fatalf("expected approved on moderation failure, got %q", post.ModerationStatus)
	}
}

func TestCreatePostRateLimited(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusApproved})
	svc.limiter.limits = map[models.ActionType]int{models.ActionCommunityPost: 1}

	if _, err := svc.CreatePost(userID, "first post of the day"); err != nil {
		t.Fatalf("first post: %v", err)
	}
	if _, err := svc.CreatePost(userID, "second post of the day"); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestLikePost(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusApproved})

	post, err := svc.CreatePost(userID, "like this post please")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.LikePost(post.ID); err != nil {
			t.Fatalf("like %d: %v", i+1, err)
		}
	}

	var got models.CommunityPost
	if err := db.First(&got, "id = ?", post.ID).Error; err != nil {
		t.Fatalf("load post: %v", err)
	}
	if got.LikeCount != 3 {
		t.Fatalf("expected 3 likes, got %d", got.LikeCount)
	}

	if err := svc.LikePost(uuid.New()); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestDeletePostOwnerOnly(t *testing.T) {
	db := newTestDB(t)
	owner := newTestUser(t, db)
	other := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusApproved})

	post, err := svc.CreatePost(owner, "my post to delete")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err := svc.DeletePost(other, post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("non-owner delete must fail, got %v", err)
	}
	if err := svc.DeletePost(owner, post.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	_, total, err := svc.GetFeed(20, 0)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if total != 0 {
		t.Fatalf("deleted post must leave the feed")
	}
}

func TestFeedNewestFirst(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newCommunityService(t, db, stubModerator{action: models.PostStatusApproved})

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		svc.now = fixedClock(base.Add(time.Duration(i) * time.Hour))
		if _, err := svc.CreatePost(userID, strings.Repeat("post ", 2)+time.Duration(i).String()); err != nil {
			t.Fatalf("create post %d: %v", i, err)
		}
	}

	posts, total, err := svc.GetFeed(20, 0)
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 posts, got %d", total)
	}
	for i := 1; i < len(posts); i++ {
		if posts[i-1].CreatedAt.Before(posts[i].CreatedAt) {
			t.Fatalf("feed must be newest-first")
		}
	}
}
