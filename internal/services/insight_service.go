package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/dto"
	"github.com/peakheight/peakheight-backend/internal/models"
	"github.com/peakheight/peakheight-backend/internal/realtime"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidInsightType = errors.New("invalid insight type")
	ErrPremiumRequired    = errors.New("premium subscription required for this insight type")
	ErrInsightNotFound    = errors.New("insight not found")
)

// premiumInsightTypes require entitlement; daily tips and nutrition
// advice stay on the free tier.
var premiumInsightTypes = map[models.InsightType]bool{
	models.InsightHeightPrediction: true,
	models.InsightProgressAnalysis: true,
}

// InsightContext is the structured state a prompt is built from. It is
// persisted verbatim on the insight record so a generation can be
// audited later.
type InsightContext struct {
	HeightCm       *float64                 `json:"height_cm,omitempty"`
	TargetHeightCm *float64                 `json:"target_height_cm,omitempty"`
	AgeYears       int                      `json:"age_years,omitempty"`
	Gender         string                   `json:"gender,omitempty"`
	SleepAvgHours  float64                  `json:"sleep_avg_hours,omitempty"`
	Streaks        map[models.HabitType]int `json:"streaks,omitempty"`
	Nutrition      *NutritionSummary        `json:"nutrition,omitempty"`
	LogCounts      map[models.HabitType]int `json:"log_counts,omitempty"`
}

type insightTemplate struct {
	system    string
	maxTokens int
}

var insightTemplates = map[models.InsightType]insightTemplate{
	models.InsightDailyTip: {
		system:    "You are a height-growth coach. Given the user's habit data, reply with one short, encouraging, science-grounded daily tip (2-3 sentences, plain text, no markdown).",
		maxTokens: 150,
	},
	models.InsightHeightPrediction: {
		system:    "You are a height-growth analyst. Given the user's profile and habit data, estimate a realistic adult height range and explain the main factors in 3-4 sentences. Plain text, no markdown, no medical guarantees.",
		maxTokens: 250,
	},
	models.InsightProgressAnalysis: {
		system:    "You are a height-growth coach. Analyze the user's habit consistency over the recent period and point out the strongest habit and the one most in need of attention. 3-5 sentences, plain text.",
		maxTokens: 300,
	},
	models.InsightNutritionAdvice: {
		system:    "You are a nutrition coach focused on bone health and growth. Given the user's recent nutrition aggregates, give specific food advice targeting calcium, protein and vitamin D. 2-4 sentences, plain text.",
		maxTokens: 200,
	},
}

type InsightService struct {
	db      *gorm.DB
	ai      *OpenAIClient
	limiter *RateLimitService
	subs    *SubscriptionService
	events  *realtime.Hub
	now     func() time.Time

	rejectThreshold float64
	flagThreshold   float64
	bannedPattern   *regexp.Regexp
}

func NewInsightService(db *gorm.DB, ai *OpenAIClient, limiter *RateLimitService, subs *SubscriptionService, events *realtime.Hub, rejectThreshold, flagThreshold float64) *InsightService {
	return &InsightService{
		db:              db,
		ai:              ai,
		limiter:         limiter,
		subs:            subs,
		events:          events,
		now:             time.Now,
		rejectThreshold: rejectThreshold,
		flagThreshold:   flagThreshold,
		bannedPattern:   compileBannedPattern(),
	}
}

// GenerateInsight runs the full pipeline: rate limit, context, prompt,
// upstream call, confidence score, persist. An upstream failure leaves
// zero rows behind and releases the rate-limit slot; retrying is the
// caller's decision.
func (s *InsightService) GenerateInsight(userID uuid.UUID, insightType models.InsightType) (*models.AIInsight, error) {
	if !models.ValidInsightType(insightType) {
		return nil, ErrInvalidInsightType
	}

	isPremium := premiumInsightTypes[insightType]
	if isPremium && !s.subs.HasPremiumAccess(userID) {
		return nil, ErrPremiumRequired
	}

	reservation, err := s.limiter.Reserve(userID, models.ActionAIRequest)
	if err != nil {
		return nil, err
	}

	ctx, err := s.buildContext(userID)
	if err != nil {
		s.limiter.Release(reservation)
		return nil, err
	}

	tmpl := insightTemplates[insightType]
	content, err := s.ai.Chat(tmpl.system, buildUserPrompt(ctx), tmpl.maxTokens)
	if err != nil {
		s.limiter.Release(reservation)
		return nil, err
	}

	ctxJSON, err := json.Marshal(ctx)
	if err != nil {
		s.limiter.Release(reservation)
		return nil, fmt.Errorf("failed to encode insight context: %w", err)
	}

	insight := models.AIInsight{
		ID:              uuid.New(),
		UserID:          userID,
		InsightType:     insightType,
		Content:         content,
		Data:            datatypes.JSON(ctxJSON),
		ConfidenceScore: confidenceScore(ctx),
		IsPremium:       isPremium,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.db.Create(&insight).Error; err != nil {
		s.limiter.Release(reservation)
		return nil, fmt.Errorf("failed to persist insight: %w", err)
	}

	s.events.Publish(realtime.ChannelInsights, "insert", userID, insight)
	return &insight, nil
}

// GetInsights returns the user's insights newest-first, optionally
// filtered by type.
func (s *InsightService) GetInsights(userID uuid.UUID, insightType models.InsightType, limit, offset int) ([]models.AIInsight, int64, error) {
	query := s.db.Model(&models.AIInsight{}).Where("user_id = ?", userID)
	if insightType != "" {
		if !models.ValidInsightType(insightType) {
			return nil, 0, ErrInvalidInsightType
		}
		query = query.Where("insight_type = ?", insightType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var insights []models.AIInsight
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&insights).Error
	return insights, total, err
}

// ModerateContent classifies text as approved, flagged or rejected.
// The moderations endpoint drives the decision through the configured
// thresholds; without an API key a local pattern check takes over so
// community posting keeps working offline.
func (s *InsightService) ModerateContent(text string) (*dto.ModerationResponse, error) {
	if !s.ai.Configured() {
		return s.moderateLocal(text), nil
	}

	result, err := s.ai.Moderate(text)
	if err != nil {
		return nil, err
	}

	action := models.PostStatusApproved
	var categories []string
	maxScore := 0.0
	for category, score := range result.CategoryScores {
		if score >= s.flagThreshold {
			categories = append(categories, category)
		}
		if score > maxScore {
			maxScore = score
		}
	}

	switch {
	case maxScore >= s.rejectThreshold:
		action = models.PostStatusRejected
	case maxScore >= s.flagThreshold || result.Flagged:
		action = models.PostStatusFlagged
	}

	return &dto.ModerationResponse{
		Action:     action,
		Flagged:    result.Flagged,
		Categories: categories,
		Scores:     result.CategoryScores,
	}, nil
}

func (s *InsightService) moderateLocal(text string) *dto.ModerationResponse {
	if s.bannedPattern.MatchString(text) {
		return &dto.ModerationResponse{Action: models.PostStatusRejected, Flagged: true}
	}
	return &dto.ModerationResponse{Action: models.PostStatusApproved}
}

var bannedWords = []string{
	"fuck", "shit", "bitch", "asshole", "bastard", "cunt",
	"porn", "nude", "nudes",
	"spam", "scam", "phishing", "malware",
}

func compileBannedPattern() *regexp.Regexp {
	pattern := `(?i)\b(`
	for i, word := range bannedWords {
		if i > 0 {
			pattern += "|"
		}
		pattern += regexp.QuoteMeta(word)
	}
	pattern += `)\b`
	return regexp.MustCompile(pattern)
}

// buildContext aggregates profile, recent habit and nutrition state.
func (s *InsightService) buildContext(userID uuid.UUID) (*InsightContext, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	ctx := &InsightContext{
		HeightCm:       user.HeightCm,
		TargetHeightCm: user.TargetHeightCm,
		Gender:         user.Gender,
		Streaks:        make(map[models.HabitType]int),
		LogCounts:      make(map[models.HabitType]int),
	}
	if user.BirthDate != nil {
		ctx.AgeYears = int(s.now().Sub(*user.BirthDate).Hours() / 24 / 365.25)
	}

	since := s.now().UTC().AddDate(0, 0, -30)
	var logs []models.HabitLog
	if err := s.db.Where("user_id = ? AND logged_at >= ?", userID, since).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load habit logs: %w", err)
	}

	sleepTotal, sleepCount := 0.0, 0
	dayLogged := make(map[models.HabitType]map[string]bool)
	for _, l := range logs {
		ctx.LogCounts[l.HabitType]++
		if l.HabitType == models.HabitSleep {
			sleepTotal += l.Value
			sleepCount++
		}
		if dayLogged[l.HabitType] == nil {
			dayLogged[l.HabitType] = make(map[string]bool)
		}
		dayLogged[l.HabitType][dayKey(l.LoggedAt)] = true
	}
	if sleepCount > 0 {
		ctx.SleepAvgHours = sleepTotal / float64(sleepCount)
	}

	// current streak per type, walked back from today/yesterday
	today := s.now().UTC().Truncate(24 * time.Hour)
	for habitType, days := range dayLogged {
		anchor := today
		if !days[dayKey(anchor)] {
			anchor = anchor.AddDate(0, 0, -1)
		}
		run := 0
		for d := anchor; days[dayKey(d)]; d = d.AddDate(0, 0, -1) {
			run++
		}
		ctx.Streaks[habitType] = run
	}

	if nutrition, err := nutritionSummary(s.db, userID, 7, s.now); err == nil && nutrition.ScanCount > 0 {
		ctx.Nutrition = nutrition
	}

	return ctx, nil
}

// buildUserPrompt renders the context deterministically: same context,
// same prompt.
func buildUserPrompt(ctx *InsightContext) string {
	prompt := "User data:\n"
	if ctx.HeightCm != nil {
		prompt += fmt.Sprintf("- current height: %.1f cm\n", *ctx.HeightCm)
	}
	if ctx.TargetHeightCm != nil {
		prompt += fmt.Sprintf("- target height: %.1f cm\n", *ctx.TargetHeightCm)
	}
	if ctx.AgeYears > 0 {
		prompt += fmt.Sprintf("- age: %d years\n", ctx.AgeYears)
	}
	if ctx.Gender != "" {
		prompt += fmt.Sprintf("- gender: %s\n", ctx.Gender)
	}
	if ctx.SleepAvgHours > 0 {
		prompt += fmt.Sprintf("- average sleep (30d): %.1f hours\n", ctx.SleepAvgHours)
	}
	for _, habitType := range models.HabitTypes {
		if streak, ok := ctx.Streaks[habitType]; ok && streak > 0 {
			prompt += fmt.Sprintf("- %s streak: %d days (%d logs in 30d)\n", habitType, streak, ctx.LogCounts[habitType])
		}
	}
	if ctx.Nutrition != nil {
		prompt += fmt.Sprintf("- nutrition (7d avg per scan): %.0f kcal, %.1f g protein, %.0f mg calcium, %.1f ug vitamin D\n",
			ctx.Nutrition.AvgCalories, ctx.Nutrition.AvgProteinG, ctx.Nutrition.AvgCalciumMg, ctx.Nutrition.AvgVitaminDUg)
	}
	return prompt
}

// confidenceScore grows with data completeness: base 0.5, more for the
// high-value fields, capped at 1.0.
func confidenceScore(ctx *InsightContext) float64 {
	score := 0.5
	if ctx.HeightCm != nil {
		score += 0.2
	}
	if ctx.AgeYears > 0 {
		score += 0.1
	}
	if ctx.SleepAvgHours > 0 {
		score += 0.1
	}
	if ctx.Nutrition != nil {
		score += 0.1
	}
	for _, streak := range ctx.Streaks {
		if streak > 0 {
			score += 0.1
			break
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
