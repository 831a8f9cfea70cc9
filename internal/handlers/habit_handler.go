package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/peakheight/peakheight-backend/internal/dto"
	"github.com/peakheight/peakheight-backend/internal/middleware"
	"github.com/peakheight/peakheight-backend/internal/models"
	"github.com/peakheight/peakheight-backend/internal/services"
)

type HabitHandler struct {
	habitService *services.HabitService
}

func NewHabitHandler(habitService *services.HabitService) *HabitHandler {
	return &HabitHandler{habitService: habitService}
}

func (h *HabitHandler) LogHabit(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.LogHabitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	log, err := h.habitService.LogHabit(userID, models.HabitType(req.HabitType), req.Value, req.Unit, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidHabitType), errors.Is(err, services.ErrInvalidHabitValue):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrRateLimitExceeded):
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(log)
}

func (h *HabitHandler) GetLogs(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	habitType := models.HabitType(c.Query("habit_type"))
	limit := c.QueryInt("limit", 50)
	page := c.QueryInt("page", 1)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "from must be RFC3339",
			})
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "to must be RFC3339",
			})
		}
		to = &t
	}

	logs, total, err := h.habitService.GetHabitLogs(userID, habitType, from, to, limit, (page-1)*limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidHabitType) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.HabitLogsResponse{Logs: logs, Total: total, Limit: limit, Page: page})
}

func (h *HabitHandler) GetStreak(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	habitType := models.HabitType(c.Params("habitType"))
	streak, err := h.habitService.ComputeStreak(userID, habitType)
	if err != nil {
		if errors.Is(err, services.ErrInvalidHabitType) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.StreakResponse{
		HabitType:         string(habitType),
		CurrentStreak:     streak.CurrentStreak,
		LongestStreak:     streak.LongestStreak,
		LastCompletedDate: streak.LastCompletedDate,
	})
}

func (h *HabitHandler) GetCalendar(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	habitType := models.HabitType(c.Params("habitType"))
	days := c.QueryInt("days", 30)
	if days < 7 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	dates, err := h.habitService.GetHabitDates(userID, habitType, days)
	if err != nil {
		if errors.Is(err, services.ErrInvalidHabitType) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.HabitCalendarResponse{
		HabitType: string(habitType),
		Dates:     dates,
		Days:      days,
	})
}
