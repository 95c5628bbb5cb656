package bids

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/viadrive/lance/pkg/database"
)

// BidRepository defines the interface for bid persistence
type BidRepository interface {
	// SaveBid saves a bid within a transaction
	SaveBid(ctx context.Context, tx pgx.Tx, bid *Bid) error

	// GetBidByID retrieves a bid through the given connection. Passing the
	// transaction keeps the read consistent with the vehicle lock.
	GetBidByID(ctx context.Context, db database.DBTX, bidID uuid.UUID) (*Bid, error)

	// GetHighestBid returns the leading bid for a vehicle: highest amount,
	// earliest created_at on ties. Returns nil when the vehicle has no bids.
	GetHighestBid(ctx context.Context, db database.DBTX, vehicleID uuid.UUID) (*Bid, error)

	// DeleteBid removes a bid within a transaction
	DeleteBid(ctx context.Context, tx pgx.Tx, bidID uuid.UUID) error

	// GetBidsByVehicleID retrieves all bids for a vehicle, newest first
	GetBidsByVehicleID(ctx context.Context, vehicleID uuid.UUID) ([]*Bid, error)
}
