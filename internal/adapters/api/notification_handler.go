package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/viadrive/lance/internal/domain/notifications"
	"github.com/viadrive/lance/pkg/auth"
)

// NotificationHandler exposes the user's notification inbox
type NotificationHandler struct {
	service *notifications.Service
	logger  *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service *notifications.Service, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	list, err := h.service.List(c.Request.Context(), userID, limit)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": toNotificationResponses(list)})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, userID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": true})
}
