package handlers

import (
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/middleware"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AnalyticsHandler struct {
	Stats         *services.StatsService
	Charts        *services.ChartService
	Notifications *services.NotificationService
}

func NewAnalyticsHandler(stats *services.StatsService, charts *services.ChartService, notifications *services.NotificationService) *AnalyticsHandler {
	return &AnalyticsHandler{Stats: stats, Charts: charts, Notifications: notifications}
}

func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	summary, err := h.Stats.UserSummary(c.UserContext(), currentUser, h.Notifications)
	if err != nil {
		return utils.ServerError(c, "failed computing summary", err)
	}
	return utils.Success(c, fiber.StatusOK, summary)
}

func (h *AnalyticsHandler) Columns(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	file, table, err := h.Charts.LoadTable(c.UserContext(), currentUser, fileID, c.Query("sheet"))
	if err != nil {
		return serviceError(c, err, "file", "reading file data")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"fileId":  file.ID.String(),
		"sheet":   table.Sheet,
		"rows":    len(table.Rows),
		"columns": services.ComputeColumnStats(table),
	})
}
