package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

type UserResponse struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	HeightCm       *float64   `json:"height_cm"`
	TargetHeightCm *float64   `json:"target_height_cm"`
	BirthDate      *time.Time `json:"birth_date"`
	Gender         string     `json:"gender"`
}

type UpdateProfileRequest struct {
	HeightCm       *float64   `json:"height_cm"`
	TargetHeightCm *float64   `json:"target_height_cm"`
	BirthDate      *time.Time `json:"birth_date"`
	Gender         *string    `json:"gender"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
