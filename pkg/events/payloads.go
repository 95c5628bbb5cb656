package events

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Routing keys for the auction.events exchange.
const (
	EventTypeBidPlaced      = "bid.placed"
	EventTypeBidRetracted   = "bid.retracted"
	EventTypeAuctionStarted = "auction.started"
	EventTypeAuctionEnded   = "auction.ended"
)

// BidPlaced is emitted after a bid commits. It carries everything downstream
// consumers need (vehicle title, previous bidder) so they never re-query
// per event.
type BidPlaced struct {
	BidID            uuid.UUID  `json:"bid_id"`
	VehicleID        uuid.UUID  `json:"vehicle_id"`
	VehicleTitle     string     `json:"vehicle_title"`
	UserID           uuid.UUID  `json:"user_id"`
	Amount           int64      `json:"amount"`
	PreviousAmount   int64      `json:"previous_amount"`
	PreviousBidderID *uuid.UUID `json:"previous_bidder_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// BidRetracted is emitted after the highest bid is withdrawn.
type BidRetracted struct {
	BidID        uuid.UUID `json:"bid_id"`
	VehicleID    uuid.UUID `json:"vehicle_id"`
	VehicleTitle string    `json:"vehicle_title"`
	UserID       uuid.UUID `json:"user_id"`
	NewPrice     int64     `json:"new_price"`
	RetractedAt  time.Time `json:"retracted_at"`
}

// AuctionStarted is emitted when a scheduled auction goes active.
type AuctionStarted struct {
	VehicleID    uuid.UUID `json:"vehicle_id"`
	VehicleTitle string    `json:"vehicle_title"`
	StartedAt    time.Time `json:"started_at"`
}

// AuctionEnded is emitted when an auction closes, either by the scheduler or
// an admin force-end. WinnerID/FinalPrice are nil when no bids were placed.
type AuctionEnded struct {
	VehicleID    uuid.UUID  `json:"vehicle_id"`
	VehicleTitle string     `json:"vehicle_title"`
	WinnerID     *uuid.UUID `json:"winner_id,omitempty"`
	FinalPrice   *int64     `json:"final_price,omitempty"`
	EndedAt      time.Time  `json:"ended_at"`
}

// NewOutboxEvent marshals a payload and wraps it as a pending outbox event.
func NewOutboxEvent(eventType string, payload any) (*OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   body,
		Status:    OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Unmarshal decodes an event payload into dst.
func Unmarshal(body []byte, dst any) error {
	return json.Unmarshal(body, dst)
}
