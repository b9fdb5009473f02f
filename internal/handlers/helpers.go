package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/middleware"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	return middleware.RequestID(c)
}

// serviceError maps service sentinels onto the response envelope. what names
// the resource for 404s ("file", "chart") and action describes the failed
// operation for 500s.
func serviceError(c *fiber.Ctx, err error, what, action string) error {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return utils.Error(c, fiber.StatusBadRequest, ve.Message)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return utils.Error(c, fiber.StatusNotFound, what+" not found")
	case errors.Is(err, services.ErrAccessDenied):
		if user := middleware.GetCurrentUser(c); user != nil {
			logger.WarnWithUser(user.ID.String(), "permission_denied", map[string]any{
				"path":       c.Path(),
				"request_id": getRequestID(c),
			})
		}
		return utils.Error(c, fiber.StatusForbidden, "access denied")
	case errors.Is(err, services.ErrUnsupportedFileType):
		return utils.Error(c, fiber.StatusBadRequest, "unsupported file type")
	case errors.Is(err, services.ErrFileNotProcessed):
		return utils.Error(c, fiber.StatusConflict, "file has not been processed yet")
	case errors.Is(err, services.ErrJobNotRetryable):
		return utils.Error(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotTabular):
		return utils.Error(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidContent), errors.Is(err, services.ErrNonNumericData):
		return utils.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrBlobNotFound):
		return utils.ServerError(c, "file payload is missing", err)
	}
	return utils.ServerError(c, "failed "+action, err)
}

// loadFile fetches a file and checks that user may view it, or modify it
// when modify is set.
func loadFile(c *fiber.Ctx, db *gorm.DB, user *models.User, modify bool) (*models.File, error) {
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, &services.ValidationError{Message: "invalid file id"}
	}
	var file models.File
	if err := db.WithContext(c.UserContext()).First(&file, "id = ?", fileID).Error; err != nil {
		return nil, err
	}
	allowed := services.CanViewFile(user, &file)
	if modify {
		allowed = services.CanModifyFile(user, &file)
	}
	if !allowed {
		return nil, services.ErrAccessDenied
	}
	return &file, nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return services.NormalizeTags(strings.Split(raw, ","))
}

// wantsAll reports whether an admin asked to list every user's records.
func wantsAll(c *fiber.Ctx, user *models.User) bool {
	all := utils.ParseBoolQuery(c, "all")
	return user.IsAdmin() && all != nil && *all
}
