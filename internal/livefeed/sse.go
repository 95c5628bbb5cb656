package livefeed

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/viadrive/lance/pkg/auth"
)

const heartbeatInterval = 30 * time.Second

// SSEHandler streams live feed events over Server-Sent Events.
type SSEHandler struct {
	hub    *Hub
	logger *slog.Logger
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(hub *Hub, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, logger: logger}
}

// StreamVehicle handles GET /api/live/vehicles/:id. The stream is public:
// anyone can watch an auction's price move.
func (h *SSEHandler) StreamVehicle(c *gin.Context) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	sub := h.hub.SubscribeVehicle(c.Request.Context(), vehicleID)
	defer sub.Close()

	h.stream(c, sub)
}

// StreamUser handles GET /api/live/me, the authenticated user's personal feed.
func (h *SSEHandler) StreamUser(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sub := h.hub.SubscribeUser(c.Request.Context(), userID)
	defer sub.Close()

	h.stream(c, sub)
}

func (h *SSEHandler) stream(c *gin.Context, sub *redis.PubSub) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := sub.Channel()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("message", msg.Payload)
			return true
		case <-heartbeat.C:
			// Comment frame keeps proxies from closing idle streams.
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
