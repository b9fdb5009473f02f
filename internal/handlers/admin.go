package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/middleware"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
	"lastLogin": "last_login",
}

type AdminHandler struct {
	DB            *gorm.DB
	Stats         *services.StatsService
	Files         *services.FileService
	Notifications *services.NotificationService
	FilesHandler  *FilesHandler
}

func NewAdminHandler(db *gorm.DB, stats *services.StatsService, files *services.FileService, notifications *services.NotificationService, filesHandler *FilesHandler) *AdminHandler {
	return &AdminHandler{DB: db, Stats: stats, Files: files, Notifications: notifications, FilesHandler: filesHandler}
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	days := queryInt(c, "days", services.DefaultDashboardDays)
	if days < 1 || days > services.MaxDashboardDays {
		return utils.Error(c, fiber.StatusBadRequest, "days must be between 1 and 365")
	}
	stats, err := h.Stats.Dashboard(c.UserContext(), days)
	if err != nil {
		return utils.ServerError(c, "failed computing dashboard", err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	query := h.DB.WithContext(c.UserContext()).Model(&models.User{})

	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if role := models.UserRole(c.Query("role")); role != "" {
		if !models.ValidUserRole(role) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid role filter")
		}
		query = query.Where("role = ?", role)
	}
	if status := models.UserStatus(c.Query("status")); status != "" {
		if !models.ValidUserStatus(status) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid status filter")
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ServerError(c, "failed counting users", err)
	}
	users := []models.User{}
	order := utils.ParseSort(c, userSortColumns, "created_at")
	if err := utils.ApplyPagination(query.Order(order), p).Find(&users).Error; err != nil {
		return utils.ServerError(c, "failed listing users", err)
	}
	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

type adminUserResponse struct {
	models.User
	FileCount    int64 `json:"fileCount"`
	ChartCount   int64 `json:"chartCount"`
	StorageBytes int64 `json:"storageBytes"`
}

func (h *AdminHandler) loadUser(c *fiber.Ctx) (*models.User, error) {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, &services.ValidationError{Message: "invalid user id"}
	}
	var user models.User
	if err := h.DB.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.loadUser(c)
	if err != nil {
		return serviceError(c, err, "user", "loading user")
	}

	db := h.DB.WithContext(c.UserContext())
	resp := adminUserResponse{User: *user}
	if err := db.Model(&models.File{}).Where("owner_id = ?", user.ID).Count(&resp.FileCount).Error; err != nil {
		return utils.ServerError(c, "failed counting files", err)
	}
	if err := db.Model(&models.Chart{}).Where("owner_id = ?", user.ID).Count(&resp.ChartCount).Error; err != nil {
		return utils.ServerError(c, "failed counting charts", err)
	}
	if err := db.Model(&models.File{}).Where("owner_id = ?", user.ID).
		Select("COALESCE(SUM(size), 0)").Scan(&resp.StorageBytes).Error; err != nil {
		return utils.ServerError(c, "failed summing storage", err)
	}
	return utils.Success(c, fiber.StatusOK, resp)
}

type adminUpdateUserRequest struct {
	Name   *string            `json:"name"`
	Role   *models.UserRole   `json:"role"`
	Status *models.UserStatus `json:"status"`
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	user, err := h.loadUser(c)
	if err != nil {
		return serviceError(c, err, "user", "loading user")
	}

	var req adminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Role != nil {
		if !models.ValidUserRole(*req.Role) {
			return utils.Error(c, fiber.StatusBadRequest, "role must be user or admin")
		}
		if user.ID == currentUser.ID && *req.Role != user.Role {
			return utils.Error(c, fiber.StatusBadRequest, "cannot change your own role")
		}
		updates["role"] = *req.Role
	}
	if req.Status != nil {
		if !models.ValidUserStatus(*req.Status) {
			return utils.Error(c, fiber.StatusBadRequest, "status must be active or inactive")
		}
		if user.ID == currentUser.ID && *req.Status != user.Status {
			return utils.Error(c, fiber.StatusBadRequest, "cannot change your own status")
		}
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}

	if err := h.DB.WithContext(c.UserContext()).Model(user).Updates(updates).Error; err != nil {
		return utils.ServerError(c, "failed updating user", err)
	}
	if err := h.DB.WithContext(c.UserContext()).First(user, "id = ?", user.ID).Error; err != nil {
		return utils.ServerError(c, "failed loading user", err)
	}
	h.Stats.Invalidate()

	logger.InfoWithUser(currentUser.ID.String(), "admin_user_updated", map[string]any{
		"target_user_id": user.ID.String(),
		"fields":         len(updates),
		"request_id":     getRequestID(c),
	})
	return utils.Success(c, fiber.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}
	if userID == currentUser.ID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	if err := h.Files.DeleteUser(c.UserContext(), userID); err != nil {
		return serviceError(c, err, "user", "deleting user")
	}
	h.Stats.Invalidate()

	logger.InfoWithUser(currentUser.ID.String(), "admin_user_deleted", map[string]any{
		"target_user_id": userID.String(),
		"request_id":     getRequestID(c),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}

func (h *AdminHandler) ListFiles(c *fiber.Ctx) error {
	return h.FilesHandler.list(c, false, middleware.GetCurrentUser(c))
}

func (h *AdminHandler) DeleteFile(c *fiber.Ctx) error {
	return h.FilesHandler.Delete(c)
}

func (h *AdminHandler) ListNotifications(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	broadcast := utils.ParseBoolQuery(c, "broadcast")
	items, total, err := h.Notifications.AdminList(c.UserContext(), broadcast != nil && *broadcast, p)
	if err != nil {
		return utils.ServerError(c, "failed listing notifications", err)
	}
	return utils.Paginated(c, items, p.Page, p.Limit, total)
}

type createNotificationRequest struct {
	RecipientID *string                     `json:"recipientId"`
	Title       string                      `json:"title"`
	Message     string                      `json:"message"`
	Type        models.NotificationType     `json:"type"`
	Priority    models.NotificationPriority `json:"priority"`
	Link        *string                     `json:"link"`
	Metadata    map[string]any              `json:"metadata"`
	ExpiresAt   *time.Time                  `json:"expiresAt"`
}

func (h *AdminHandler) CreateNotification(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Title == "" || req.Message == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title and message are required")
	}
	if req.Type != "" && !models.ValidNotificationType(req.Type) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification type")
	}
	if req.Priority != "" && !models.ValidNotificationPriority(req.Priority) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification priority")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return utils.Error(c, fiber.StatusBadRequest, "expiresAt must be in the future")
	}

	in := services.NotificationInput{
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		Priority:  req.Priority,
		Link:      req.Link,
		Metadata:  req.Metadata,
		ExpiresAt: req.ExpiresAt,
	}

	var (
		n   *models.Notification
		err error
	)
	if req.RecipientID != nil && strings.TrimSpace(*req.RecipientID) != "" {
		recipientID, parseErr := parseUUID(*req.RecipientID)
		if parseErr != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid recipientId")
		}
		var recipient models.User
		if err := h.DB.WithContext(c.UserContext()).First(&recipient, "id = ?", recipientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.Error(c, fiber.StatusNotFound, "recipient not found")
			}
			return utils.ServerError(c, "failed loading recipient", err)
		}
		n, err = h.Notifications.Notify(c.UserContext(), recipient.ID, in)
	} else {
		n, err = h.Notifications.Broadcast(c.UserContext(), in)
	}
	if err != nil {
		return utils.ServerError(c, "failed creating notification", err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "admin_notification_created", map[string]any{
		"notification_id": n.ID.String(),
		"broadcast":       n.IsBroadcast(),
		"request_id":      getRequestID(c),
	})
	return utils.Success(c, fiber.StatusCreated, n)
}
