package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/viadrive/lance/internal/scheduler"
)

// CronHandler lets an external cron service drive the auction sweep. The
// in-process scheduler covers the same ground; this endpoint exists for
// deployments where a managed cron is the source of truth.
type CronHandler struct {
	sweeper scheduler.Sweeper
	secret  string
	logger  *slog.Logger
}

// NewCronHandler creates a new cron handler
func NewCronHandler(sweeper scheduler.Sweeper, secret string, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		sweeper: sweeper,
		secret:  secret,
		logger:  logger,
	}
}

// CheckAuctions handles GET /api/cron/check-auctions
func (h *CronHandler) CheckAuctions(c *gin.Context) {
	// An unset secret is a deployment error, not an auth failure.
	if h.secret == "" {
		h.logger.Error("cron secret is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cron secret not configured"})
		return
	}

	provided, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	now := time.Now().UTC()
	result, err := h.sweeper.Sweep(c.Request.Context(), now)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activated": result.Activated,
		"ended":     result.Ended,
		"timestamp": now.Format(time.RFC3339),
	})
}
