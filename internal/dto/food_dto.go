package dto

import "github.com/peakheight/peakheight-backend/internal/models"

type ScanFoodRequest struct {
	Barcode string `json:"barcode"`
}

type FoodProductResponse struct {
	Barcode     string             `json:"barcode"`
	ProductName string             `json:"product_name"`
	Brand       string             `json:"brand,omitempty"`
	Nutrients   map[string]float64 `json:"nutrients"`
}

type FoodScansResponse struct {
	Scans []models.FoodScan `json:"scans"`
	Total int64             `json:"total"`
	Limit int               `json:"limit"`
	Page  int               `json:"page"`
}

type NutritionSummaryResponse struct {
	Days          int     `json:"days"`
	ScanCount     int     `json:"scan_count"`
	AvgCalories   float64 `json:"avg_calories"`
	AvgProteinG   float64 `json:"avg_protein_g"`
	AvgCalciumMg  float64 `json:"avg_calcium_mg"`
	AvgVitaminDUg float64 `json:"avg_vitamin_d_ug"`
}
