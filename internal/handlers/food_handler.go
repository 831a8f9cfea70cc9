package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/peakheight/peakheight-backend/internal/dto"
	"github.com/peakheight/peakheight-backend/internal/middleware"
	"github.com/peakheight/peakheight-backend/internal/services"
)

type FoodHandler struct {
	foodService *services.FoodService
	client      *services.FoodClient
}

func NewFoodHandler(foodService *services.FoodService, client *services.FoodClient) *FoodHandler {
	return &FoodHandler{foodService: foodService, client: client}
}

// Lookup is a read-only product fetch. It is not rate limited and
// persists nothing; scanning is the gated operation.
func (h *FoodHandler) Lookup(c *fiber.Ctx) error {
	product, err := h.client.Lookup(c.Params("barcode"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidBarcode):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "food database unavailable, try again later",
		})
	}

	return c.JSON(dto.FoodProductResponse{
		Barcode:     product.Barcode,
		ProductName: product.ProductName,
		Brand:       product.Brand,
		Nutrients:   product.Nutrients,
	})
}

func (h *FoodHandler) Scan(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.ScanFoodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	scan, err := h.foodService.ScanFood(userID, req.Barcode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidBarcode):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrRateLimitExceeded):
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrUpstreamUnavailable):
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
				Error: true, Message: "food database unavailable, try again later",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(scan)
}

func (h *FoodHandler) Scans(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	limit := c.QueryInt("limit", 50)
	page := c.QueryInt("page", 1)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	scans, total, err := h.foodService.GetScans(userID, limit, (page-1)*limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.FoodScansResponse{Scans: scans, Total: total, Limit: limit, Page: page})
}

func (h *FoodHandler) Summary(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	days := c.QueryInt("days", 7)
	if days < 1 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	summary, err := h.foodService.Summary(userID, days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.NutritionSummaryResponse{
		Days:          summary.Days,
		ScanCount:     summary.ScanCount,
		AvgCalories:   summary.AvgCalories,
		AvgProteinG:   summary.AvgProteinG,
		AvgCalciumMg:  summary.AvgCalciumMg,
		AvgVitaminDUg: summary.AvgVitaminDUg,
	})
}
