package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/models"
	"gorm.io/gorm"
)

// fakeOpenAI serves chat completions and moderations with canned
// responses.
type fakeOpenAI struct {
	chatContent string
	chatStatus  int
	modFlagged  bool
	modScores   map[string]float64
	chatCalls   int
}

func (f *fakeOpenAI) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			f.chatCalls++
			if f.chatStatus != 0 && f.chatStatus != http.StatusOK {
				w.WriteHeader(f.chatStatus)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": f.chatContent}},
				},
			})
		case "/moderations":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]interface{}{
					{"flagged": f.modFlagged, "category_scores": f.modScores},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newInsightService(t *testing.T, db *gorm.DB, baseURL string, at time.Time) *InsightService {
	t.Helper()
	limiter := NewRateLimitService(db, stubPremium{}, false)
	limiter.now = fixedClock(at)
	subs := NewSubscriptionService(db)
	subs.now = fixedClock(at)

	ai := NewOpenAIClient("test-key", baseURL, "gpt-4o-mini", 5*time.Second)
	svc := NewInsightService(db, ai, limiter, subs, nil, 0.8, 0.5)
	svc.now = fixedClock(at)
	return svc
}

func TestGenerateInsightDailyTip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t)
	userID := newTestUser(t, db)

	fake := &fakeOpenAI{chatContent: "Keep your sleep consistent tonight."}
	srv := fake.server()
	defer srv.Close()

	svc := newInsightService(t, db, srv.URL, now)

	insight, err := svc.GenerateInsight(userID, models.InsightDailyTip)
	if err != nil {
		t.Fatalf("generate insight: %v", err)
	}
	if insight.Content != "Keep your sleep consistent tonight." {
		t.Fatalf("unexpected content %q", insight.Content)
	}
	if insight.IsPremium {
		t.Fatalf("daily tip is a free-tier insight")
	}
	if insight.InsightType != models.InsightDailyTip {
		t.Fatalf("unexpected type %q", insight.InsightType)
	}

	var count int64
	db.Model(&models.AIInsight{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 persisted insight, got %d", count)
	}
}

func TestGenerateInsightInvalidType(t *testing.T) {
	db := newTestDB(t)
	userID := newTestUser(t, db)
	svc := newInsightService(t, db, "http://127.0.0.1:0", time.Now())

	if _, err := svc.GenerateInsight(userID, "horoscope"); !errors.Is(err, ErrInvalidInsightType) {
		t.Fatalf("expected ErrInvalidInsightType, got %v", err)
	}
}

func TestGenerateInsightPremiumGate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t)
	userID := newTestUser(t, db)

	fake := &fakeOpenAI{chatContent: "You are on track."}
	srv := fake.server()
	defer srv.Close()

	svc := newInsightService(t, db, srv.URL, now)

	if _, err := svc.GenerateInsight(userID, models.InsightHeightPrediction); !errors.Is(err, ErrPremiumRequired) {
		t.Fatalf("expected ErrPremiumRequired, got %v", err)
	}
	if fake.chatCalls != 0 {
		t.Fatalf("premium gate must run before the upstream call")
	}

	seedSubscription(t, db, userID, models.SubStatusActive, now.Add(30*24*time.Hour))
	insight, err := svc.GenerateInsight(userID, models.InsightHeightPrediction)
	if err != nil {
		t.Fatalf("generate with entitlement: %v", err)
	}
	if !insight.IsPremium {
		t.Fatalf("height prediction must be marked premium")
	}
}

func TestGenerateInsightUpstreamFailureLeavesNoRows(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t)
	userID := newTestUser(t, db)

	fake := &fakeOpenAI{chatStatus: http.StatusInternalServerError}
	srv := fake.server()
	defer srv.Close()

	svc := newInsightService(t, db, srv.URL, now)

	_, err := svc.GenerateInsight(userID, models.InsightDailyTip)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	var insights int64
	db.Model(&models.AIInsight{}).Count(&insights)
	if insights != 0 {
		t.Fatalf("failed generation must persist nothing, got %d rows", insights)
	}

	// the rate-limit slot must have been released too
	var usage int64
	db.Model(&models.ActionUsage{}).Count(&usage)
	if usage != 0 {
		t.Fatalf("failed generation must not consume the rate limit, got %d rows", usage)
	}
}

func TestGenerateInsightRateLimited(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t)
	userID := newTestUser(t, db)

	fake := &fakeOpenAI{chatContent: "tip"}
	srv := fake.server()
	defer srv.Close()

	svc := newInsightService(t, db, srv.URL, now)
	svc.limiter.limits = map[models.ActionType]int{models.ActionAIRequest: 1}

	if _, err := svc.GenerateInsight(userID, models.InsightDailyTip); err != nil {
		t.Fatalf("first generation: %v", err)
	}
	if _, err := svc.GenerateInsight(userID, models.InsightDailyTip); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}

func TestGenerateInsightPersistsContext(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t)
	userID := newTestUser(t, db)

	height := 170.0
	db.Model(&models.User{}).Where("id = ?", userID).Update("height_cm", height)
	for day := 0; day < 3; day++ {
		log := models.HabitLog{
			ID:        uuid.New(),
			UserID:    userID,
			HabitType: models.HabitSleep,
			Value:     8,
			LoggedAt:  now.AddDate(0, 0, -day),
		}
		if err := db.Create(&log).Error; err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	fake := &fakeOpenAI{chatContent: "tip"}
	srv := fake.server()
	defer srv.Close()

	svc := newInsightService(t, db, srv.URL, now)
	insight, err := svc.GenerateInsight(userID, models.InsightDailyTip)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var ctx InsightContext
	if err := json.Unmarshal(insight.Data, &ctx); err != nil {
		t.Fatalf("decode persisted context: %v", err)
	}
	if ctx.HeightCm == nil || *ctx.HeightCm != 170.0 {
		t.Fatalf("expected height in persisted context, got %+v", ctx)
	}
	if ctx.Streaks[models.HabitSleep] != 3 {
		t.Fatalf("expected sleep streak 3 in context, got %d", ctx.Streaks[models.HabitSleep])
	}
	if ctx.SleepAvgHours != 8 {
		t.Fatalf("expected sleep average 8, got %v", ctx.SleepAvgHours)
	}
}

func TestConfidenceScore(t *testing.T) {
	height := 172.0
	cases := []struct {
		name string
		ctx  InsightContext
		want float64
	}{
		{"empty context", InsightContext{}, 0.5},
		{"height only", InsightContext{HeightCm: &height}, 0.7},
		{"full context caps at one", InsightContext{
			HeightCm:      &height,
			AgeYears:      16,
			SleepAvgHours: 8,
			Nutrition:     &NutritionSummary{ScanCount: 3},
			Streaks:       map[models.HabitType]int{models.HabitSleep: 4},
		}, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := confidenceScore(&tc.ctx)
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestModerateContentThresholds(t *testing.T) {
	db := newTestDB(t)

	cases := []struct {
		name    string
		flagged bool
		scores  map[string]float64
		want    string
	}{
		{"clean", false, map[string]float64{"hate": 0.01}, models.PostStatusApproved},
		{"above flag threshold", false, map[string]float64{"harassment": 0.6}, models.PostStatusFlagged},
		{"flagged by backend", true, map[string]float64{"hate": 0.1}, models.PostStatusFlagged},
		{"above reject threshold", true, map[string]float64{"hate": 0.95}, models.PostStatusRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeOpenAI{modFlagged: tc.flagged, modScores: tc.scores}
			srv := fake.server()
			defer srv.Close()

			svc := newInsightService(t, db, srv.URL, time.Now())
			verdict, err := svc.ModerateContent("some text")
			if err != nil {
				t.Fatalf("moderate: %v", err)
			}
			if verdict.Action != tc.want {
				t.Fatalf("expected action %q, got %q", tc.want, verdict.Action)
			}
		})
	}
}

func TestModerateContentLocalFallback(t *testing.T) {
	db := newTestDB(t)

	ai := NewOpenAIClient("", "http://127.0.0.1:0", "gpt-4o-mini", time.Second)
	svc := NewInsightService(db, ai, NewRateLimitService(db, stubPremium{}, false), NewSubscriptionService(db), nil, 0.8, 0.5)

	verdict, err := svc.ModerateContent("I drank more water today")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if verdict.Action != models.PostStatusApproved {
		t.Fatalf("expected approved, got %q", verdict.Action)
	}

	verdict, err = svc.ModerateContent("buy my crypto scam now")
	if err != nil {
		t.Fatalf("moderate: %v", err)
	}
	if verdict.Action != models.PostStatusRejected {
		t.Fatalf("expected rejected, got %q", verdict.Action)
	}
}
