package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viadrive/lance/internal/livefeed"
	"github.com/viadrive/lance/pkg/auth"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Signer        *auth.Signer
	Bids          *BidHandler
	Vehicles      *VehicleHandler
	Notifications *NotificationHandler
	Cron          *CronHandler
	Upload        *UploadHandler
	Fipe          *FipeHandler
	Live          *livefeed.SSEHandler

	// StaticUploadsDir, when set, serves stored images under /uploads.
	StaticUploadsDir string
}

// NewRouter assembles the full HTTP surface.
func NewRouter(cfg RouterConfig) *gin.Engine {
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.StaticUploadsDir != "" {
		router.Static("/uploads", cfg.StaticUploadsDir)
	}

	requireAuth := auth.RequireAuth(cfg.Signer)
	requireAdmin := auth.RequireAdmin()

	apiGroup := router.Group("/api")
	{
		// Public surface
		apiGroup.GET("/vehicles", cfg.Vehicles.List)
		apiGroup.GET("/vehicles/:id", cfg.Vehicles.Get)
		apiGroup.GET("/vehicles/:id/bids", cfg.Vehicles.ListBids)

		apiGroup.GET("/fipe/brands", cfg.Fipe.Brands)
		apiGroup.GET("/fipe/models", cfg.Fipe.Models)
		apiGroup.GET("/fipe/years", cfg.Fipe.Years)
		apiGroup.GET("/fipe/price", cfg.Fipe.Price)
		apiGroup.GET("/fipe/search", cfg.Fipe.Search)

		apiGroup.GET("/live/vehicles/:id", cfg.Live.StreamVehicle)
		apiGroup.GET("/live/me", requireAuth, cfg.Live.StreamUser)

		// Secret-gated, not JWT-gated
		apiGroup.GET("/cron/check-auctions", cfg.Cron.CheckAuctions)

		// Authenticated users
		apiGroup.POST("/bids", requireAuth, cfg.Bids.PlaceBid)
		apiGroup.DELETE("/bids", requireAuth, cfg.Bids.RetractBid)

		apiGroup.GET("/notifications", requireAuth, cfg.Notifications.List)
		apiGroup.POST("/notifications/:id/read", requireAuth, cfg.Notifications.MarkRead)
		apiGroup.POST("/notifications/read-all", requireAuth, cfg.Notifications.MarkAllRead)

		// Admin
		apiGroup.POST("/vehicles", requireAuth, requireAdmin, cfg.Vehicles.Create)
		apiGroup.PUT("/vehicles/:id", requireAuth, requireAdmin, cfg.Vehicles.Update)
		apiGroup.DELETE("/vehicles/:id", requireAuth, requireAdmin, cfg.Vehicles.Delete)
		apiGroup.POST("/vehicles/:id/end", requireAuth, requireAdmin, cfg.Vehicles.End)
		apiGroup.POST("/vehicles/:id/cancel", requireAuth, requireAdmin, cfg.Vehicles.Cancel)
		apiGroup.GET("/admin/vehicles", requireAuth, requireAdmin, cfg.Vehicles.ListAdmin)
		apiGroup.POST("/upload", requireAuth, requireAdmin, cfg.Upload.Upload)
	}

	return router
}
