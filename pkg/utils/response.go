package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var exposeErrorDetail = true

// ConfigureResponses hides internal error details from 500 responses when
// running in production.
func ConfigureResponses(production bool) {
	exposeErrorDetail = !production
}

func Success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func ServerError(c *fiber.Ctx, message string, err error) error {
	body := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil && exposeErrorDetail {
		body["detail"] = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

func Paginated(c *fiber.Ctx, data any, page, limit int, total int64) error {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"pagination": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// ErrorHandler renders errors that escape handlers, including Fiber's own
// (404 routes, 413 bodies), in the standard envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusRequestEntityTooLarge {
			return Error(c, fe.Code, "file too large")
		}
		return Error(c, fe.Code, fe.Message)
	}
	return ServerError(c, "internal server error", err)
}
