package dto

import (
	"strings"

	"github.com/raftaar/raftaar-backend/internal/apperr"
)

type FullName struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

type Vehicle struct {
	Color       string `json:"color"`
	Plate       string `json:"plate"`
	Capacity    int    `json:"capacity"`
	VehicleType string `json:"vehicleType"`
}

var vehicleTypes = map[string]bool{"car": true, "motorcycle": true, "auto": true}

func (v *Vehicle) Validate() error {
	if v == nil {
		return &apperr.Error{Kind: apperr.Validation, Message: "vehicle details are required", Field: "vehicle"}
	}
	if len(strings.TrimSpace(v.Color)) < 3 {
		return &apperr.Error{Kind: apperr.Validation, Message: "Color must be at least 3 characters long", Field: "vehicle.color"}
	}
	if len(strings.TrimSpace(v.Plate)) < 3 {
		return &apperr.Error{Kind: apperr.Validation, Message: "Plate must be at least 3 characters long", Field: "vehicle.plate"}
	}
	if v.Capacity < 1 {
		return &apperr.Error{Kind: apperr.Validation, Message: "Capacity must be at least 1", Field: "vehicle.capacity"}
	}
	if !vehicleTypes[v.VehicleType] {
		return &apperr.Error{Kind: apperr.Validation, Message: "Invalid vehicle type", Field: "vehicle.vehicleType"}
	}
	return nil
}

type RegisterRequest struct {
	FullName     FullName `json:"fullname"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	MobileNumber string   `json:"mobileNumber"`
	ProfilePhoto string   `json:"profilePhoto"`

	// Captains only.
	Vehicle        *Vehicle `json:"vehicle,omitempty"`
	DrivingLicense string   `json:"drivingLicense,omitempty"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VerifyMobileRequest struct {
	MobileNumber string `json:"mobileNumber"`
	OTP          string `json:"otp"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResendOTPRequest struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Contact echoes contact values back; codes are never included.
type Contact struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Store       string `json:"store"`
	DB          string `json:"db"`
	Connections int    `json:"connections"`
}
