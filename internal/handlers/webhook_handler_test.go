package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/models"
	"github.com/peakheight/peakheight-backend/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWebhookApp(t *testing.T, auth string) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Subscription{}))

	handler := NewWebhookHandler(services.NewSubscriptionService(db), auth)
	app := fiber.New()
	app.Post("/api/webhooks/revenuecat", handler.HandleRevenueCat)
	return app, db
}

func TestWebhookRejectsBadAuth(t *testing.T) {
	app, _ := newWebhookApp(t, "secret-token")

	body := `{"api_version":"1.0","event":{"type":"EXPIRATION","app_user_id":"u1"}}`
	req := httptest.NewRequest("POST", "/api/webhooks/revenuecat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "wrong-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookNotConfigured(t *testing.T) {
	app, _ := newWebhookApp(t, "")

	req := httptest.NewRequest("POST", "/api/webhooks/revenuecat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestWebhookProcessesEvent(t *testing.T) {
	app, db := newWebhookApp(t, "secret-token")

	user := models.User{ID: uuid.New(), Email: "w@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	body := `{"api_version":"1.0","event":{
		"type":"INITIAL_PURCHASE",
		"app_user_id":"` + user.ID.String() + `",
		"product_id":"premium_monthly",
		"purchased_at_ms":1717243200000,
		"expiration_at_ms":1719835200000
	}}`
	req := httptest.NewRequest("POST", "/api/webhooks/revenuecat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "secret-token")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	require.Equal(t, models.SubStatusActive, sub.Status)
}
