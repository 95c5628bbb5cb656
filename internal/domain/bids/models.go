package bids

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents an accepted price offer on a vehicle
type Bid struct {
	ID        uuid.UUID `db:"id"`
	VehicleID uuid.UUID `db:"vehicle_id"`
	UserID    uuid.UUID `db:"user_id"`
	Amount    int64     `db:"amount"` // in cents
	CreatedAt time.Time `db:"created_at"`
}

// PlaceBidCommand represents the command to place a bid
type PlaceBidCommand struct {
	VehicleID uuid.UUID
	UserID    uuid.UUID
	Amount    int64
}

// RetractBidCommand represents the command to withdraw the highest bid
type RetractBidCommand struct {
	BidID  uuid.UUID
	UserID uuid.UUID
}
