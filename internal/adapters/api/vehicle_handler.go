package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/bids"
)

// VehicleHandler exposes the auction lifecycle over HTTP
type VehicleHandler struct {
	auctions *auctions.Service
	bids     *bids.Service
	logger   *slog.Logger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(auctionService *auctions.Service, bidService *bids.Service, logger *slog.Logger) *VehicleHandler {
	return &VehicleHandler{
		auctions: auctionService,
		bids:     bidService,
		logger:   logger,
	}
}

// List handles GET /api/vehicles, the public listing of open auctions.
func (h *VehicleHandler) List(c *gin.Context) {
	vehicles, err := h.auctions.ListVehicles(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": toVehicleResponses(vehicles)})
}

// ListAdmin handles GET /api/admin/vehicles with optional status, make and
// pagination filters.
func (h *VehicleHandler) ListAdmin(c *gin.Context) {
	filter := auctions.ListFilter{
		Status: c.Query("status"),
		Make:   c.Query("make"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return
		}
		filter.Offset = n
	}

	vehicles, err := h.auctions.ListVehiclesAdmin(c.Request.Context(), filter)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": toVehicleResponses(vehicles)})
}

// Get handles GET /api/vehicles/:id
func (h *VehicleHandler) Get(c *gin.Context) {
	id, ok := h.vehicleID(c)
	if !ok {
		return
	}

	vehicle, err := h.auctions.GetVehicle(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toVehicleResponse(vehicle))
}

// Create handles POST /api/vehicles
func (h *VehicleHandler) Create(c *gin.Context) {
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	vehicle, err := h.auctions.CreateVehicle(c.Request.Context(), auctions.CreateVehicleCommand{
		Title:           req.Title,
		Make:            req.Make,
		Model:           req.Model,
		Year:            req.Year,
		Mileage:         req.Mileage,
		Color:           req.Color,
		Description:     req.Description,
		StartingPrice:   req.StartingPrice,
		MinBidIncrement: req.MinBidIncrement,
		Images:          req.Images,
		AuctionStart:    req.AuctionStart.UTC(),
		AuctionEnd:      req.AuctionEnd.UTC(),
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toVehicleResponse(vehicle))
}

// Update handles PUT /api/vehicles/:id
func (h *VehicleHandler) Update(c *gin.Context) {
	id, ok := h.vehicleID(c)
	if !ok {
		return
	}

	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	vehicle, err := h.auctions.UpdateVehicle(c.Request.Context(), auctions.UpdateVehicleCommand{
		VehicleID:       id,
		Title:           req.Title,
		Make:            req.Make,
		Model:           req.Model,
		Year:            req.Year,
		Mileage:         req.Mileage,
		Color:           req.Color,
		Description:     req.Description,
		StartingPrice:   req.StartingPrice,
		MinBidIncrement: req.MinBidIncrement,
		Images:          req.Images,
		AuctionStart:    req.AuctionStart.UTC(),
		AuctionEnd:      req.AuctionEnd.UTC(),
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toVehicleResponse(vehicle))
}

// Delete handles DELETE /api/vehicles/:id
func (h *VehicleHandler) Delete(c *gin.Context) {
	id, ok := h.vehicleID(c)
	if !ok {
		return
	}

	if err := h.auctions.DeleteVehicle(c.Request.Context(), id); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// End handles POST /api/vehicles/:id/end, the admin force-end.
func (h *VehicleHandler) End(c *gin.Context) {
	id, ok := h.vehicleID(c)
	if !ok {
		return
	}

	vehicle, err := h.auctions.EndVehicle(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toVehicleResponse(vehicle))
}

// Cancel handles POST /api/vehicles/:id/cancel
func (h *VehicleHandler) Cancel(c *gin.Context) {
	id, ok := h.vehicleID(c)
	if !ok {
		return
	}

	vehicle, err := h.auctions.CancelVehicle(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toVehicleResponse(vehicle))
}

// ListBids handles GET /api/vehicles/:id/bids
func (h *VehicleHandler) ListBids(c *gin.Context) {
	id, ok := h.vehicleID(c)
	if !ok {
		return
	}

	// 404 for unknown vehicles rather than an empty list.
	if _, err := h.auctions.GetVehicle(c.Request.Context(), id); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	bidList, err := h.bids.ListBids(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": toBidResponses(bidList)})
}

func (h *VehicleHandler) vehicleID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return uuid.Nil, false
	}
	return id, true
}
