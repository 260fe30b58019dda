package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/directory"
	"github.com/raftaar/raftaar-backend/internal/dto"
	"github.com/raftaar/raftaar-backend/internal/middleware"
	"github.com/raftaar/raftaar-backend/internal/models"
	"github.com/raftaar/raftaar-backend/internal/services"
)

// ProfileBinder validates kind-specific registration fields and returns the
// function that copies them onto the record.
type ProfileBinder[A models.Account] func(req *dto.RegisterRequest) (func(A), error)

// VerificationHandler serves the account endpoints of one actor kind. key is
// the name the account is returned under ("user" or "captain").
type VerificationHandler[A models.Account] struct {
	verifier *services.Verifier[A]
	key      string
	bind     ProfileBinder[A]
	tokenTTL time.Duration
}

func NewVerificationHandler[A models.Account](verifier *services.Verifier[A], key string, bind ProfileBinder[A], tokenTTL time.Duration) *VerificationHandler[A] {
	return &VerificationHandler[A]{verifier: verifier, key: key, bind: bind, tokenTTL: tokenTTL}
}

// BindCaptainProfile requires vehicle details.
func BindCaptainProfile(req *dto.RegisterRequest) (func(*models.Captain), error) {
	if err := req.Vehicle.Validate(); err != nil {
		return nil, err
	}
	v := *req.Vehicle
	license := req.DrivingLicense
	return func(c *models.Captain) {
		c.Vehicle = models.Vehicle{
			Color:       v.Color,
			Plate:       v.Plate,
			Capacity:    v.Capacity,
			VehicleType: v.VehicleType,
		}
		if license != "" {
			c.DrivingLicense = license
		}
	}, nil
}

func (h *VerificationHandler[A]) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}

	var profile func(A)
	if h.bind != nil {
		p, err := h.bind(&req)
		if err != nil {
			return writeError(c, err)
		}
		profile = p
	}

	res, err := h.verifier.Register(c.UserContext(), services.RegisterInput{
		FirstName:    req.FullName.FirstName,
		LastName:     req.FullName.LastName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
		ProfilePhoto: req.ProfilePhoto,
	}, profile)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "OTP sent to email and mobile number",
		h.key:      dto.Contact{Email: res.Email, MobileNumber: res.MobileNumber},
		"delivery": res.Delivery,
	})
}

func (h *VerificationHandler[A]) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}
	if err := h.verifier.VerifyChannel(c.UserContext(), services.ChannelEmail, req.Email, req.OTP); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Email verified successfully"})
}

func (h *VerificationHandler[A]) VerifyMobile(c *fiber.Ctx) error {
	var req dto.VerifyMobileRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}
	if err := h.verifier.VerifyChannel(c.UserContext(), services.ChannelMobile, req.MobileNumber, req.OTP); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Mobile number verified successfully"})
}

func (h *VerificationHandler[A]) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}

	res, err := h.verifier.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	if res.VerificationRequired {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":                true,
			"message":              "Please verify your email and/or mobile number",
			"verificationRequired": true,
			h.key:                  dto.Contact{Email: res.Email, MobileNumber: res.MobileNumber},
			"delivery":             res.Delivery,
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    res.Tokens.AccessToken,
		Expires:  time.Now().Add(h.tokenTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{
		"token":         res.Tokens.AccessToken,
		"refresh_token": res.Tokens.RefreshToken,
		h.key:           res.Account,
	})
}

func (h *VerificationHandler[A]) ResendOTP(c *fiber.Ctx) error {
	var req dto.ResendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}

	report, err := h.verifier.ResendOTP(c.UserContext(), req.Email, req.MobileNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "OTP resent to email and/or mobile number",
		"delivery": report,
	})
}

func (h *VerificationHandler[A]) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return writeError(c, errInvalidBody)
	}

	pair, err := h.verifier.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(pair)
}

func (h *VerificationHandler[A]) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody)
	}

	if req.RefreshToken != "" {
		if err := h.verifier.Logout(c.UserContext(), req.RefreshToken); err != nil {
			return writeError(c, err)
		}
	}
	c.ClearCookie("token")
	return c.JSON(dto.MessageResponse{Message: "Logged out"})
}

func (h *VerificationHandler[A]) Profile(c *fiber.Ctx) error {
	id, err := middleware.GetActorID(c)
	if err != nil {
		return writeError(c, apperr.New(apperr.Unauthorized, "Unauthorized"))
	}

	account, err := h.verifier.Profile(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return writeError(c, apperr.New(apperr.Unauthorized, "Unauthorized"))
		}
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{h.key: account})
}
