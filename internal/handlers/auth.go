package handlers

import (
	"errors"
	"net/mail"
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

const minPasswordLength = 8

type AuthHandler struct {
	DB            *gorm.DB
	Notifications *services.NotificationService
	Stats         *services.StatsService
}

func NewAuthHandler(db *gorm.DB, notifications *services.NotificationService, stats *services.StatsService) *AuthHandler {
	return &AuthHandler{DB: db, Notifications: notifications, Stats: stats}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < minPasswordLength {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	var existing models.User
	if err := h.DB.First(&existing, "email = ?", req.Email).Error; err == nil {
		return utils.Error(c, fiber.StatusConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ServerError(c, "failed checking existing user", err)
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.ServerError(c, "failed to hash password", err)
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Error(c, fiber.StatusConflict, "email already registered")
		}
		return utils.ServerError(c, "failed creating user", err)
	}

	logger.Info("user_registered", map[string]any{
		"user_id":    user.ID.String(),
		"email":      user.Email,
		"request_id": getRequestID(c),
	})

	if h.Notifications != nil {
		link := "/admin/users/" + user.ID.String()
		if _, err := h.Notifications.Broadcast(c.UserContext(), services.NotificationInput{
			Title:    "New user registered",
			Message:  user.Name + " (" + user.Email + ") created an account",
			Type:     models.NotificationTypeSystem,
			Priority: models.NotificationPriorityLow,
			Link:     &link,
			Metadata: map[string]any{"userId": user.ID.String()},
		}); err != nil {
			logger.Error("registration_broadcast_failed", err, map[string]any{"user_id": user.ID.String()})
		}
	}
	if h.Stats != nil {
		h.Stats.Invalidate()
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.ServerError(c, "failed generating token", err)
	}
	return utils.Success(c, fiber.StatusCreated, fiber.Map{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]any{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]any{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !user.IsActive() {
		logger.Warn("login_failed_inactive", map[string]any{"user_id": user.ID.String()})
		return utils.Error(c, fiber.StatusForbidden, "account is inactive")
	}

	now := time.Now().UTC()
	if err := h.DB.Model(&user).Update("last_login", now).Error; err != nil {
		return utils.ServerError(c, "failed recording login", err)
	}
	user.LastLogin = &now

	logger.Info("user_login", map[string]any{
		"user_id": user.ID.String(),
		"ip":      c.IP(),
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.ServerError(c, "failed generating token", err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

type updateMeRequest struct {
	Name *string `json:"name"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == nil {
		return utils.Error(c, fiber.StatusBadRequest, "no valid fields to update")
	}
	name := strings.TrimSpace(*req.Name)
	if name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name cannot be empty")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("name", name).Error; err != nil {
		return utils.ServerError(c, "failed updating user", err)
	}

	var updated models.User
	if err := h.DB.First(&updated, "id = ?", currentUser.ID).Error; err != nil {
		return utils.ServerError(c, "failed fetching updated user", err)
	}
	return utils.Success(c, fiber.StatusOK, updated)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.NewPassword) < minPasswordLength {
		return utils.Error(c, fiber.StatusBadRequest, "newPassword must be at least 8 characters")
	}

	if !utils.CheckPassword(req.OldPassword, currentUser.PasswordHash) {
		return utils.Error(c, fiber.StatusBadRequest, "oldPassword is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return utils.ServerError(c, "failed hashing password", err)
	}
	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("password_hash", hash).Error; err != nil {
		return utils.ServerError(c, "failed updating password", err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "password_changed", map[string]any{
		"request_id": getRequestID(c),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "password updated"})
}
