package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/bids"
	"github.com/viadrive/lance/internal/domain/notifications"
)

// respondDomainError maps domain sentinel errors onto the HTTP status
// contract. Anything unrecognized is a 500 with a generic body; the real
// error goes to the log, never to the client.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, auctions.ErrVehicleNotFound),
		errors.Is(err, bids.ErrBidNotFound),
		errors.Is(err, notifications.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, bids.ErrNotBidOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, auctions.ErrAuctionNotActive),
		errors.Is(err, auctions.ErrInvalidSchedule),
		errors.Is(err, auctions.ErrInvalidStartPrice),
		errors.Is(err, auctions.ErrInvalidIncrement),
		errors.Is(err, auctions.ErrVehicleImmutable),
		errors.Is(err, auctions.ErrVehicleNotDeletable),
		errors.Is(err, auctions.ErrNotCancellable),
		errors.Is(err, bids.ErrInvalidBidAmount),
		errors.Is(err, bids.ErrBidTooLow),
		errors.Is(err, bids.ErrAuctionExpired),
		errors.Is(err, bids.ErrNotHighestBid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
