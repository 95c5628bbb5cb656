package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification
type Type string

const (
	TypeOutbid       Type = "outbid"
	TypeWinner       Type = "winner"
	TypeAuctionEnded Type = "auction_ended"
)

// Notification is a persisted user-facing notice. Only the read flag is ever
// mutated after creation.
type Notification struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	Type      Type       `db:"type"`
	Message   string     `db:"message"`
	VehicleID *uuid.UUID `db:"vehicle_id"`
	Read      bool       `db:"read"`
	CreatedAt time.Time  `db:"created_at"`
}
