package handlers

import (
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/middleware"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type NotificationsHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationsHandler(notifications *services.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{Notifications: notifications}
}

func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)
	unread := utils.ParseBoolQuery(c, "unread")
	items, total, err := h.Notifications.List(c.UserContext(), currentUser, unread != nil && *unread, p)
	if err != nil {
		return utils.ServerError(c, "failed listing notifications", err)
	}
	return utils.Paginated(c, items, p.Page, p.Limit, total)
}

func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	count, err := h.Notifications.UnreadCount(c.UserContext(), currentUser)
	if err != nil {
		return utils.ServerError(c, "failed counting notifications", err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"count": count})
}

func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	n, err := h.Notifications.MarkRead(c.UserContext(), currentUser, id)
	if err != nil {
		return serviceError(c, err, "notification", "marking notification read")
	}
	return utils.Success(c, fiber.StatusOK, n)
}

func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	updated, err := h.Notifications.MarkAllRead(c.UserContext(), currentUser)
	if err != nil {
		return utils.ServerError(c, "failed marking notifications read", err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"updated": updated})
}

func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	if err := h.Notifications.Delete(c.UserContext(), currentUser, id); err != nil {
		return serviceError(c, err, "notification", "deleting notification")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "notification deleted"})
}
