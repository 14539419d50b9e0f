package handlerUtil

import (
	"HotelClaimBot/internal/api/hotel"
	"HotelClaimBot/pkg/log"
	"HotelClaimBot/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	if errors.Is(err, hotel.ErrInvalidEvent) || errors.Is(err, hotel.ErrInvalidInput) {
		h.logger.WithFields(fields).Warn("Invalid event")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_EVENT",
		})
	}

	if errors.Is(err, hotel.ErrStoreUnavailable) || errors.Is(err, hotel.ErrSessionUnavailable) {
		h.logger.WithFields(fields).Error("Backing store unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "Service temporarily unavailable",
			Code:  "STORE_UNAVAILABLE",
		})
	}

	if errors.Is(err, hotel.ErrStoreWriteConflict) {
		h.logger.WithFields(fields).Warn("Write conflict")
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error: "Write conflict, please retry",
			Code:  "WRITE_CONFLICT",
		})
	}

	if code, ok := response.StatusCode(err); ok {
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}

	traceID := log.ErrorWithTraceID(h.logger, fields, "Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   utils.StatusMessage(fiber.StatusInternalServerError),
		Code:    "INTERNAL_ERROR",
		Details: "trace_id=" + traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
		"error": utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
