package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/dto"
)

var errInvalidBody = apperr.New(apperr.Validation, "Invalid request body")

// writeError maps an error to its status and body. Server-side failures are
// logged and answered with a generic message.
func writeError(c *fiber.Ctx, err error) error {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Wrap(apperr.Internal, "Internal server error", err)
	}

	status := apperr.HTTPStatus(appErr.Kind)
	resp := dto.ErrorResponse{
		Error:   true,
		Message: appErr.Message,
		Field:   appErr.Field,
	}

	if appErr.Kind == apperr.CooldownActive {
		resp.RetryAfter = appErr.RetryAfter
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(appErr.RetryAfter))
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", requestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		)
		if appErr.Kind == apperr.Internal {
			resp.Message = "Internal server error"
		}
	}

	return c.Status(status).JSON(resp)
}

// ErrorHandler is the fiber fallback for errors no handler wrote.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else if _, ok := apperr.As(err); ok {
		return writeError(c, err)
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error", "request_id", requestID(c), "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
