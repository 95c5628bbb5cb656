package auctions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/viadrive/lance/pkg/database"
)

// ListFilter narrows admin vehicle listings.
type ListFilter struct {
	Status string
	Make   string
	Limit  int
	Offset int
}

// VehicleRepository defines the interface for vehicle persistence
type VehicleRepository interface {
	Create(ctx context.Context, v *Vehicle) error

	GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)

	// GetByIDForUpdate locks the vehicle row for the duration of the
	// transaction. This is the per-vehicle critical section: every operation
	// that reads-then-writes current_price or status takes this lock first.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Vehicle, error)

	// Update rewrites the editable fields of a scheduled vehicle.
	Update(ctx context.Context, v *Vehicle) error

	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateCurrentPrice advances the price within a transaction.
	UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, id uuid.UUID, price int64) error

	// ActivateDue flips every scheduled vehicle whose start time has passed
	// to active, returning the flipped rows.
	ActivateDue(ctx context.Context, tx pgx.Tx, now time.Time) ([]*Vehicle, error)

	// ListExpiredActive returns ids of active vehicles whose end time has passed.
	ListExpiredActive(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// MarkEnded closes the auction within a transaction. The status guard in
	// the UPDATE keeps the transition idempotent.
	MarkEnded(ctx context.Context, tx pgx.Tx, id uuid.UUID, winnerID *uuid.UUID, finalPrice *int64) error

	// MarkCancelled cancels a scheduled auction.
	MarkCancelled(ctx context.Context, id uuid.UUID) error

	// ListOpen returns scheduled and active vehicles, soonest-ending first.
	ListOpen(ctx context.Context) ([]*Vehicle, error)

	// ListAdmin returns vehicles matching the filter, newest first.
	ListAdmin(ctx context.Context, filter ListFilter) ([]*Vehicle, error)
}

// HighestBid is the winning candidate for a vehicle at a point in time.
type HighestBid struct {
	BidID  uuid.UUID
	UserID uuid.UUID
	Amount int64
}

// HighestBidReader resolves the winning candidate for a vehicle. Reading
// through the supplied DBTX lets the end transition see bids committed up to
// the instant it holds the vehicle lock. Returns nil when no bids exist.
type HighestBidReader interface {
	GetWinningBid(ctx context.Context, db database.DBTX, vehicleID uuid.UUID) (*HighestBid, error)
}
