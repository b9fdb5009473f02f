package middleware

import (
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

const requestIDKey = "requestID"

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = logger.NewRequestID()
		}
		c.Locals(requestIDKey, requestID)
		c.Set(fiber.HeaderXRequestID, requestID)

		err := c.Next()
		if err != nil {
			// Let the app's error handler render the response so the status
			// logged below is the one the client receives.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		statusCode := c.Response().StatusCode()
		details := map[string]any{
			"method":         c.Method(),
			"path":           c.Path(),
			"status_code":    statusCode,
			"latency_ms":     time.Since(start).Milliseconds(),
			"user_agent":     c.Get(fiber.HeaderUserAgent),
			"ip":             c.IP(),
			"request_body":   logger.RequestBodySummary(c),
			"response_bytes": len(c.Response().Body()),
			"request_id":     requestID,
		}

		userID := logger.UserIDFromContext(c)
		switch {
		case userID != nil && statusCode >= 500:
			logger.ErrorWithUser(*userID, "http_request", err, details)
		case userID != nil:
			logger.InfoWithUser(*userID, "http_request", details)
		case statusCode >= 500:
			logger.Error("http_request", err, details)
		default:
			logger.Info("http_request", details)
		}
		return nil
	}
}

// SecurityLogger records denied and missing resource lookups separately so
// probing shows up without trawling every request line.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		statusCode := c.Response().StatusCode()
		var reason string
		switch statusCode {
		case fiber.StatusForbidden:
			reason = "access_denied"
		case fiber.StatusNotFound:
			reason = "not_found"
		default:
			return err
		}

		userID := logger.UserIDFromContext(c)
		details := map[string]any{
			"method": c.Method(),
			"path":   c.Path(),
			"ip":     c.IP(),
			"reason": reason,
		}
		if userID != nil {
			logger.WarnWithUser(*userID, reason, details)
		} else {
			logger.Warn(reason+"_unauthenticated", details)
		}
		return err
	}
}

// RequestID returns the ID assigned by RequestLogger.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
