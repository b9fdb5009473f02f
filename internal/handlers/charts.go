package handlers

import (
	"encoding/json"
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/middleware"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var chartSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"chartType": "chart_type",
}

type ChartsHandler struct {
	DB     *gorm.DB
	Charts *services.ChartService
	Stats  *services.StatsService
}

func NewChartsHandler(db *gorm.DB, charts *services.ChartService, stats *services.StatsService) *ChartsHandler {
	return &ChartsHandler{DB: db, Charts: charts, Stats: stats}
}

// chartRequest is the body of create, replace and patch. Pointer fields let
// patch tell "absent" from "empty".
type chartRequest struct {
	Title        *string                  `json:"title"`
	Description  *string                  `json:"description"`
	ChartType    *models.ChartType        `json:"chartType"`
	Data         *services.ChartDataInput `json:"data"`
	Options      json.RawMessage          `json:"options"`
	SourceFileID *string                  `json:"sourceFileId"`
}

// apply merges the request into chart. With partial unset every field is
// taken from the request, so missing ones become empty and fail validation.
func (r *chartRequest) apply(chart *models.Chart, partial bool) error {
	if r.Title != nil || !partial {
		chart.Title = strings.TrimSpace(deref(r.Title))
	}
	if r.Description != nil || !partial {
		chart.Description = strings.TrimSpace(deref(r.Description))
	}
	if r.ChartType != nil {
		chart.ChartType = *r.ChartType
	} else if !partial {
		chart.ChartType = ""
	}
	if r.Data != nil || !partial {
		data, err := services.BuildChartData(r.Data)
		if err != nil {
			return err
		}
		chart.Data = data
	}
	if len(r.Options) > 0 || !partial {
		chart.Options = nil
		if len(r.Options) > 0 && string(r.Options) != "null" {
			chart.Options = datatypes.JSON(r.Options)
		}
	}
	if r.SourceFileID != nil || !partial {
		chart.SourceFileID = nil
		if raw := strings.TrimSpace(deref(r.SourceFileID)); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return &services.ValidationError{Message: "sourceFileId must be a valid id"}
			}
			chart.SourceFileID = &id
		}
	}
	return services.ValidateChart(chart)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// checkSourceFile verifies the user may reference the chart's source file.
func (h *ChartsHandler) checkSourceFile(c *fiber.Ctx, user *models.User, chart *models.Chart) error {
	if chart.SourceFileID == nil {
		return nil
	}
	var file models.File
	if err := h.DB.WithContext(c.UserContext()).First(&file, "id = ?", *chart.SourceFileID).Error; err != nil {
		return &services.ValidationError{Message: "sourceFileId does not reference an existing file"}
	}
	if !services.CanViewFile(user, &file) {
		return services.ErrAccessDenied
	}
	return nil
}

func (h *ChartsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req chartRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	chart := &models.Chart{OwnerID: currentUser.ID}
	if err := req.apply(chart, false); err != nil {
		return serviceError(c, err, "chart", "creating chart")
	}
	if err := h.checkSourceFile(c, currentUser, chart); err != nil {
		return serviceError(c, err, "chart", "creating chart")
	}

	if err := h.DB.WithContext(c.UserContext()).Create(chart).Error; err != nil {
		return utils.ServerError(c, "failed creating chart", err)
	}
	h.Stats.Invalidate()

	logger.InfoWithUser(currentUser.ID.String(), "chart_created", map[string]any{
		"chart_id":   chart.ID.String(),
		"chart_type": string(chart.ChartType),
		"request_id": getRequestID(c),
	})
	return utils.Success(c, fiber.StatusCreated, chart)
}

func (h *ChartsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)
	query := h.DB.WithContext(c.UserContext()).Model(&models.Chart{})
	if !wantsAll(c, currentUser) {
		query = query.Where("owner_id = ?", currentUser.ID)
	}

	if chartType := models.ChartType(c.Query("chartType")); chartType != "" {
		if !models.ValidChartType(chartType) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid chartType filter")
		}
		query = query.Where("chart_type = ?", chartType)
	}
	if raw := strings.TrimSpace(c.Query("fileId")); raw != "" {
		fileID, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid fileId filter")
		}
		query = query.Where("source_file_id = ?", fileID)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ServerError(c, "failed counting charts", err)
	}

	charts := []models.Chart{}
	order := utils.ParseSort(c, chartSortColumns, "created_at")
	if err := utils.ApplyPagination(query.Order(order), p).Find(&charts).Error; err != nil {
		return utils.ServerError(c, "failed listing charts", err)
	}
	return utils.Paginated(c, charts, p.Page, p.Limit, total)
}

func (h *ChartsHandler) loadChart(c *fiber.Ctx, user *models.User) (*models.Chart, error) {
	chartID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, &services.ValidationError{Message: "invalid chart id"}
	}
	var chart models.Chart
	if err := h.DB.WithContext(c.UserContext()).First(&chart, "id = ?", chartID).Error; err != nil {
		return nil, err
	}
	if !services.CanAccessChart(user, &chart) {
		return nil, services.ErrAccessDenied
	}
	return &chart, nil
}

func (h *ChartsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	chart, err := h.loadChart(c, currentUser)
	if err != nil {
		return serviceError(c, err, "chart", "loading chart")
	}
	return utils.Success(c, fiber.StatusOK, chart)
}

// Replace is PUT: the body is the whole chart.
func (h *ChartsHandler) Replace(c *fiber.Ctx) error {
	return h.update(c, false)
}

// Patch is PATCH: only supplied fields change; the merged chart is
// validated as a whole.
func (h *ChartsHandler) Patch(c *fiber.Ctx) error {
	return h.update(c, true)
}

func (h *ChartsHandler) update(c *fiber.Ctx, partial bool) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	chart, err := h.loadChart(c, currentUser)
	if err != nil {
		return serviceError(c, err, "chart", "loading chart")
	}

	var req chartRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	previousSource := chart.SourceFileID
	if err := req.apply(chart, partial); err != nil {
		return serviceError(c, err, "chart", "updating chart")
	}
	if !sameID(previousSource, chart.SourceFileID) {
		if err := h.checkSourceFile(c, currentUser, chart); err != nil {
			return serviceError(c, err, "chart", "updating chart")
		}
	}

	if err := h.DB.WithContext(c.UserContext()).Model(chart).
		Select("title", "description", "chart_type", "data", "options", "source_file_id").
		Updates(chart).Error; err != nil {
		return utils.ServerError(c, "failed updating chart", err)
	}
	h.Stats.Invalidate()

	logger.InfoWithUser(currentUser.ID.String(), "chart_updated", map[string]any{
		"chart_id":   chart.ID.String(),
		"partial":    partial,
		"request_id": getRequestID(c),
	})
	return utils.Success(c, fiber.StatusOK, chart)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (h *ChartsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	chart, err := h.loadChart(c, currentUser)
	if err != nil {
		return serviceError(c, err, "chart", "loading chart")
	}

	if err := h.DB.WithContext(c.UserContext()).Delete(&models.Chart{}, "id = ?", chart.ID).Error; err != nil {
		return utils.ServerError(c, "failed deleting chart", err)
	}
	h.Stats.Invalidate()

	logger.InfoWithUser(currentUser.ID.String(), "chart_deleted", map[string]any{
		"chart_id":   chart.ID.String(),
		"request_id": getRequestID(c),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "chart deleted"})
}

func (h *ChartsHandler) Generate(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req services.GenerateChartRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	chart, err := h.Charts.Generate(c.UserContext(), currentUser, req)
	if err != nil {
		return serviceError(c, err, "file", "generating chart")
	}

	if !req.Save {
		return utils.Success(c, fiber.StatusOK, chart)
	}
	h.Stats.Invalidate()
	logger.InfoWithUser(currentUser.ID.String(), "chart_generated", map[string]any{
		"chart_id":   chart.ID.String(),
		"file_id":    req.FileID,
		"request_id": getRequestID(c),
	})
	return utils.Success(c, fiber.StatusCreated, chart)
}
