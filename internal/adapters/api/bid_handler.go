package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viadrive/lance/internal/domain/bids"
	"github.com/viadrive/lance/pkg/auth"
)

// BidHandler exposes the bid ledger over HTTP
type BidHandler struct {
	service *bids.Service
	logger  *slog.Logger
}

// NewBidHandler creates a new bid handler
func NewBidHandler(service *bids.Service, logger *slog.Logger) *BidHandler {
	return &BidHandler{service: service, logger: logger}
}

// PlaceBid handles POST /api/bids
func (h *BidHandler) PlaceBid(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), bids.PlaceBidCommand{
		VehicleID: req.VehicleID,
		UserID:    userID,
		Amount:    req.Amount,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toBidResponse(bid))
}

// RetractBid handles DELETE /api/bids
func (h *BidHandler) RetractBid(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req retractBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	newPrice, err := h.service.RetractHighestBid(c.Request.Context(), bids.RetractBidCommand{
		BidID:  req.BidID,
		UserID: userID,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"new_price": newPrice})
}
