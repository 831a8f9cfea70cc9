package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peakheight/peakheight-backend/internal/models"
	"github.com/peakheight/peakheight-backend/internal/realtime"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found for barcode")
	ErrInvalidBarcode  = errors.New("invalid barcode")
)

var barcodePattern = regexp.MustCompile(`^\d{8,14}$`)

// FoodClient looks up products on an Open Food Facts shaped API. No
// auth; availability is not guaranteed, so callers must handle both
// not-found and upstream failure.
type FoodClient struct {
	baseURL string
	http    *http.Client
}

func NewFoodClient(baseURL string, timeout time.Duration) *FoodClient {
	return &FoodClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FoodProduct is the normalized subset of a product record we care
// about. Nutrient values are per 100g.
type FoodProduct struct {
	Barcode     string
	ProductName string
	Brand       string
	Nutrients   map[string]float64
}

type offResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Product struct {
		ProductName string                 `json:"product_name"`
		Brands      string                 `json:"brands"`
		Nutriments  map[string]interface{} `json:"nutriments"`
	} `json:"product"`
}

// Lookup fetches one product by barcode.
func (c *FoodClient) Lookup(barcode string) (*FoodProduct, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, barcode)
	resp, err := c.http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var off offResponse
	if err := json.NewDecoder(resp.Body).Decode(&off); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUpstreamUnavailable, err)
	}
	if off.Status != 1 {
		return nil, ErrProductNotFound
	}

	n := off.Product.Nutriments
	// nutriments are normalized to grams per 100g
	nutrients := map[string]float64{
		"calories":     floatField(n, "energy-kcal_100g"),
		"protein_g":    floatField(n, "proteins_100g"),
		"calcium_mg":   floatField(n, "calcium_100g") * 1000,
		"vitamin_d_ug": floatField(n, "vitamin-d_100g") * 1000000,
	}

	return &FoodProduct{
		Barcode:     barcode,
		ProductName: off.Product.ProductName,
		Brand:       off.Product.Brands,
		Nutrients:   nutrients,
	}, nil
}

func floatField(m map[string]interface{}, key string) float64 {
	if v, ok := m[key]; ok {
		switch f := v.(type) {
		case float64:
			return f
		case int:
			return float64(f)
		}
	}
	return 0
}

// NutritionSummary aggregates recent scans; averages are per scan.
type NutritionSummary struct {
	Days          int     `json:"days"`
	ScanCount     int     `json:"scan_count"`
	AvgCalories   float64 `json:"avg_calories"`
	AvgProteinG   float64 `json:"avg_protein_g"`
	AvgCalciumMg  float64 `json:"avg_calcium_mg"`
	AvgVitaminDUg float64 `json:"avg_vitamin_d_ug"`
}

type FoodService struct {
	db      *gorm.DB
	client  *FoodClient
	limiter *RateLimitService
	events  *realtime.Hub
	now     func() time.Time
}

func NewFoodService(db *gorm.DB, client *FoodClient, limiter *RateLimitService, events *realtime.Hub) *FoodService {
	return &FoodService{db: db, client: client, limiter: limiter, events: events, now: time.Now}
}

// ScanFood looks up a barcode and persists the scan. The rate-limit
// slot is released when the lookup fails, so a missing product does
// not eat into the user's window.
func (s *FoodService) ScanFood(userID uuid.UUID, barcode string) (*models.FoodScan, error) {
	if !barcodePattern.MatchString(barcode) {
		return nil, ErrInvalidBarcode
	}

	reservation, err := s.limiter.Reserve(userID, models.ActionFoodScan)
	if err != nil {
		return nil, err
	}

	product, err := s.client.Lookup(barcode)
	if err != nil {
		s.limiter.Release(reservation)
		return nil, err
	}

	nutrientsJSON, err := json.Marshal(product.Nutrients)
	if err != nil {
		s.limiter.Release(reservation)
		return nil, fmt.Errorf("failed to encode nutrients: %w", err)
	}

	scan := models.FoodScan{
		ID:          uuid.New(),
		UserID:      userID,
		Barcode:     barcode,
		ProductName: product.ProductName,
		Brand:       product.Brand,
		Nutrients:   datatypes.JSON(nutrientsJSON),
		ScannedAt:   s.now().UTC(),
	}

	if err := s.db.Create(&scan).Error; err != nil {
		s.limiter.Release(reservation)
		return nil, fmt.Errorf("failed to persist food scan: %w", err)
	}

	s.events.Publish(realtime.ChannelScans, "insert", userID, scan)
	return &scan, nil
}

// GetScans returns the user's scans newest-first.
func (s *FoodService) GetScans(userID uuid.UUID, limit, offset int) ([]models.FoodScan, int64, error) {
	var total int64
	if err := s.db.Model(&models.FoodScan{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var scans []models.FoodScan
	err := s.db.Where("user_id = ?", userID).
		Order("scanned_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&scans).Error
	return scans, total, err
}

// Summary aggregates the trailing days of scans.
func (s *FoodService) Summary(userID uuid.UUID, days int) (*NutritionSummary, error) {
	if days < 1 {
		days = 7
	}
	if days > 90 {
		days = 90
	}
	return nutritionSummary(s.db, userID, days, s.now)
}

func nutritionSummary(db *gorm.DB, userID uuid.UUID, days int, now func() time.Time) (*NutritionSummary, error) {
	since := now().UTC().AddDate(0, 0, -days)

	var scans []models.FoodScan
	if err := db.Where("user_id = ? AND scanned_at >= ?", userID, since).Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("failed to load food scans: %w", err)
	}

	summary := &NutritionSummary{Days: days, ScanCount: len(scans)}
	if len(scans) == 0 {
		return summary, nil
	}

	for _, scan := range scans {
		var nutrients map[string]float64
		if err := json.Unmarshal(scan.Nutrients, &nutrients); err != nil {
			continue
		}
		summary.AvgCalories += nutrients["calories"]
		summary.AvgProteinG += nutrients["protein_g"]
		summary.AvgCalciumMg += nutrients["calcium_mg"]
		summary.AvgVitaminDUg += nutrients["vitamin_d_ug"]
	}

	n := float64(len(scans))
	summary.AvgCalories /= n
	summary.AvgProteinG /= n
	summary.AvgCalciumMg /= n
	summary.AvgVitaminDUg /= n
	return summary, nil
}
