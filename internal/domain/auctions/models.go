package auctions

import (
	"time"

	"github.com/google/uuid"
)

// VehicleStatus represents the lifecycle state of an auction
type VehicleStatus string

const (
	StatusScheduled VehicleStatus = "scheduled"
	StatusActive    VehicleStatus = "active"
	StatusEnded     VehicleStatus = "ended"
	StatusCancelled VehicleStatus = "cancelled"
)

// Vehicle represents a single auctioned vehicle with its bidding window.
// CurrentPrice, Status, WinnerID and FinalPrice are owned by this package;
// nothing else writes them.
type Vehicle struct {
	ID              uuid.UUID     `db:"id"`
	Title           string        `db:"title"`
	Make            string        `db:"make"`
	Model           string        `db:"model"`
	Year            int           `db:"year"`
	Mileage         int           `db:"mileage"`
	Color           string        `db:"color"`
	Description     string        `db:"description"`
	StartingPrice   int64         `db:"starting_price"` // in cents
	CurrentPrice    int64         `db:"current_price"`  // in cents
	MinBidIncrement int64         `db:"min_bid_increment"`
	Images          []string      `db:"images"`
	AuctionStart    time.Time     `db:"auction_start"`
	AuctionEnd      time.Time     `db:"auction_end"`
	Status          VehicleStatus `db:"status"`
	WinnerID        *uuid.UUID    `db:"winner_id"`
	FinalPrice      *int64        `db:"final_price"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

// InitialStatus derives the creation status from the auction start time.
func InitialStatus(auctionStart, now time.Time) VehicleStatus {
	if !auctionStart.After(now) {
		return StatusActive
	}
	return StatusScheduled
}

// IsActive reports whether bids can currently target this vehicle.
func (v *Vehicle) IsActive() bool {
	return v.Status == StatusActive
}

// HasExpired reports whether the bidding window has passed. The comparison is
// strict: a bid arriving at exactly AuctionEnd is still inside the window.
func (v *Vehicle) HasExpired(now time.Time) bool {
	return now.After(v.AuctionEnd)
}

// MinimumBid is the lowest amount the next bid must reach.
func (v *Vehicle) MinimumBid() int64 {
	return v.CurrentPrice + v.MinBidIncrement
}

// CanBeDeleted reports whether the vehicle may be removed. Auctions that ran
// (active or ended) are kept forever.
func (v *Vehicle) CanBeDeleted() bool {
	return v.Status == StatusScheduled || v.Status == StatusCancelled
}

// CanBeCancelled reports whether the auction may be cancelled. Only scheduled
// auctions can; ending an active one goes through the force-end path instead.
func (v *Vehicle) CanBeCancelled() bool {
	return v.Status == StatusScheduled
}

// CanBeEdited reports whether admin edits are allowed. Only scheduled
// vehicles can change: price and schedule edits are safe there because no
// bids exist yet, and a cancelled auction is terminal.
func (v *Vehicle) CanBeEdited() bool {
	return v.Status == StatusScheduled
}
