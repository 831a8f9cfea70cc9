package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/config"
	"github.com/peakheight/peakheight-backend/internal/dto"
	"github.com/peakheight/peakheight-backend/internal/models"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 7 * 24 * time.Hour,
	}
	return NewAuthService(db, cfg), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "kid@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected a token pair")
	}
	if resp.User.Email != "kid@example.com" {
		t.Fatalf("unexpected user %+v", resp.User)
	}

	// access token carries the user id as subject
	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("access token must verify: %v", err)
	}
	sub, _ := token.Claims.GetSubject()
	if sub != resp.User.ID.String() {
		t.Fatalf("expected sub %s, got %s", resp.User.ID, sub)
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "kid@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "kid@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	if _, err := svc.Register(&dto.RegisterRequest{Email: "a@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(&dto.RegisterRequest{Email: "a@example.com", Password: "different1"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "b@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rotated, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == resp.RefreshToken {
		t.Fatalf("refresh must rotate the token")
	}

	// old token is single-use
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for reused token, got %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "c@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.Logout(&dto.LogoutRequest{RefreshToken: resp.RefreshToken}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, _ := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "d@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	height := 168.5
	target := 180.0
	user, err := svc.UpdateProfile(resp.User.ID, &dto.UpdateProfileRequest{
		HeightCm:       &height,
		TargetHeightCm: &target,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if user.HeightCm == nil || *user.HeightCm != 168.5 {
		t.Fatalf("height not persisted: %+v", user)
	}

	bad := -10.0
	if _, err := svc.UpdateProfile(resp.User.ID, &dto.UpdateProfileRequest{HeightCm: &bad}); err == nil {
		t.Fatalf("negative height must be rejected")
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	svc, db := newAuthService(t)

	resp, err := svc.Register(&dto.RegisterRequest{Email: "e@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	userID := resp.User.ID

	// seed one row in every owned table
	now := time.Now().UTC()
	rows := []interface{}{
		&models.HabitLog{ID: uuid.New(), UserID: userID, HabitType: models.HabitSleep, Value: 8, LoggedAt: now},
		&models.AIInsight{ID: uuid.New(), UserID: userID, InsightType: models.InsightDailyTip, Content: "tip"},
		&models.ActionUsage{ID: uuid.New(), UserID: userID, ActionType: models.ActionHabitLog, UsedAt: now},
		&models.FoodScan{ID: uuid.New(), UserID: userID, Barcode: "40111445", ScannedAt: now},
		&models.Subscription{ID: uuid.New(), UserID: userID, Status: models.SubStatusExpired},
		&models.CommunityPost{ID: uuid.New(), UserID: userID, Content: "hello", ModerationStatus: models.PostStatusApproved},
	}
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed row %T: %v", row, err)
		}
	}

	if err := svc.DeleteAccount(userID, "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password must block deletion, got %v", err)
	}

	if err := svc.DeleteAccount(userID, "longenough"); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	counts := map[string]interface{}{
		"habit_logs":      &models.HabitLog{},
		"ai_insights":     &models.AIInsight{},
		"action_usages":   &models.ActionUsage{},
		"food_scans":      &models.FoodScan{},
		"subscriptions":   &models.Subscription{},
		"community_posts": &models.CommunityPost{},
		"refresh_tokens":  &models.RefreshToken{},
	}
	for table, model := range counts {
		var count int64
		if err := db.Unscoped().Model(model).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("expected %s wiped, found %d rows", table, count)
		}
	}

	var users int64
	db.Unscoped().Model(&models.User{}).Where("id = ?", userID).Count(&users)
	if users != 0 {
		t.Fatalf("expected user row gone")
	}
}
