package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationDispatcher
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("", h.GetNotifications)
	g.GET("/unread-count", h.GetUnreadCount)
	g.POST("", h.CreateNotification)
	g.PATCH("/read-all", h.MarkAllAsRead)
	g.PATCH("/:id", h.MarkAsRead)
	g.DELETE("/:id", h.DeleteNotification)
}

// GetNotifications lists the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	list, err := h.notifications.List(c.Request().Context(), actor.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	count, err := h.notifications.UnreadCount(c.Request().Context(), actor.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// CreateNotification sends a reply notice from the caller to another user
func (h *NotificationHandler) CreateNotification(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	n, err := h.notifications.Create(c.Request().Context(), actor, req.UserID, models.ReplyNotice{
		PostID:    req.PostID,
		ReplyID:   req.ReplyID,
		ReplyText: req.ReplyText,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid read value")
	}
	n, err := h.notifications.MarkRead(c.Request().Context(), id, *req.Read)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	modified, err := h.notifications.MarkAllRead(c.Request().Context(), actor.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications marked as read", "modifiedCount": modified})
}

// DeleteNotification removes one of the caller's notifications
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifications.Delete(c.Request().Context(), id, actor); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Notification with ID %d deleted", id)})
}
