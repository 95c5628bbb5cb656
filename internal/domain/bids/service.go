package bids

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/pkg/database"
	"github.com/viadrive/lance/pkg/events"
)

// Validation errors
var (
	ErrInvalidBidAmount = errors.New("bid amount must be positive")
	ErrBidTooLow        = errors.New("bid amount is below the minimum bid")
	ErrAuctionExpired   = errors.New("auction has already ended")
	ErrBidNotFound      = errors.New("bid not found")
	ErrNotBidOwner      = errors.New("only the bid owner can retract it")
	ErrNotHighestBid    = errors.New("only the current highest bid can be retracted")
)

// VehicleRepository is the slice of vehicle persistence the ledger needs.
type VehicleRepository interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*auctions.Vehicle, error)
	UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, id uuid.UUID, price int64) error
}

// validateBid checks a bid against the vehicle snapshot taken under the row
// lock. Order matters: state errors surface before price errors.
func validateBid(vehicle *auctions.Vehicle, amount int64, now time.Time) error {
	if !vehicle.IsActive() {
		return auctions.ErrAuctionNotActive
	}
	// Wall-clock expiry check, independent of stored status: a lagging
	// scheduler must never extend the bidding window.
	if vehicle.HasExpired(now) {
		return ErrAuctionExpired
	}
	if amount <= 0 {
		return ErrInvalidBidAmount
	}
	if amount < vehicle.MinimumBid() {
		return ErrBidTooLow
	}
	return nil
}

// Service is the bid ledger: the only writer of bid rows and, through
// per-vehicle row locks, the serializer of all price movement.
type Service struct {
	txManager   database.TransactionManager
	bidRepo     BidRepository
	vehicleRepo VehicleRepository
	outboxRepo  events.OutboxRepository
}

// NewService creates a new bid ledger service
func NewService(
	txManager database.TransactionManager,
	bidRepo BidRepository,
	vehicleRepo VehicleRepository,
	outboxRepo events.OutboxRepository,
) *Service {
	return &Service{
		txManager:   txManager,
		bidRepo:     bidRepo,
		vehicleRepo: vehicleRepo,
		outboxRepo:  outboxRepo,
	}
}

// PlaceBid validates and records a bid in one transaction. The vehicle row
// lock makes read-validate-insert atomic: no two bids can both pass
// validation against the same stale price. The outbid notification and the
// live broadcast ride the outbox event, so they happen after commit and
// never under the lock.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	vehicle, err := s.vehicleRepo.GetByIDForUpdate(ctx, tx, cmd.VehicleID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if valErr := validateBid(vehicle, cmd.Amount, now); valErr != nil {
		return nil, valErr
	}

	// Capture the outgoing leader while still holding the lock.
	previous, err := s.bidRepo.GetHighestBid(ctx, tx, cmd.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to read highest bid: %w", err)
	}

	bid := &Bid{
		ID:        uuid.New(),
		VehicleID: cmd.VehicleID,
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		CreatedAt: now,
	}

	if saveErr := s.bidRepo.SaveBid(ctx, tx, bid); saveErr != nil {
		return nil, fmt.Errorf("failed to save bid: %w", saveErr)
	}

	if updateErr := s.vehicleRepo.UpdateCurrentPrice(ctx, tx, cmd.VehicleID, cmd.Amount); updateErr != nil {
		return nil, fmt.Errorf("failed to update current price: %w", updateErr)
	}

	payload := events.BidPlaced{
		BidID:          bid.ID,
		VehicleID:      vehicle.ID,
		VehicleTitle:   vehicle.Title,
		UserID:         bid.UserID,
		Amount:         bid.Amount,
		PreviousAmount: vehicle.CurrentPrice,
		CreatedAt:      bid.CreatedAt,
	}
	if previous != nil {
		prevBidder := previous.UserID
		payload.PreviousBidderID = &prevBidder
	}

	outboxEvent, err := events.NewOutboxEvent(events.EventTypeBidPlaced, payload)
	if err != nil {
		return nil, err
	}
	if saveErr := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); saveErr != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", saveErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	return bid, nil
}

// RetractHighestBid withdraws the current leading bid. The vehicle lock is
// taken before the bid is inspected, so the highest-bid check, the delete
// and the price recomputation cannot interleave with a concurrent PlaceBid.
// Returns the restored current price.
func (s *Service) RetractHighestBid(ctx context.Context, cmd RetractBidCommand) (int64, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	bid, err := s.bidRepo.GetBidByID(ctx, tx, cmd.BidID)
	if err != nil {
		return 0, err
	}

	if bid.UserID != cmd.UserID {
		return 0, ErrNotBidOwner
	}

	vehicle, err := s.vehicleRepo.GetByIDForUpdate(ctx, tx, bid.VehicleID)
	if err != nil {
		return 0, err
	}

	if !vehicle.IsActive() {
		return 0, auctions.ErrAuctionNotActive
	}
	if vehicle.HasExpired(time.Now().UTC()) {
		return 0, ErrAuctionExpired
	}

	highest, err := s.bidRepo.GetHighestBid(ctx, tx, bid.VehicleID)
	if err != nil {
		return 0, fmt.Errorf("failed to read highest bid: %w", err)
	}
	if highest == nil || highest.ID != bid.ID {
		return 0, ErrNotHighestBid
	}

	if delErr := s.bidRepo.DeleteBid(ctx, tx, bid.ID); delErr != nil {
		return 0, fmt.Errorf("failed to delete bid: %w", delErr)
	}

	remaining, err := s.bidRepo.GetHighestBid(ctx, tx, bid.VehicleID)
	if err != nil {
		return 0, fmt.Errorf("failed to read remaining bids: %w", err)
	}

	newPrice := vehicle.StartingPrice
	if remaining != nil {
		newPrice = remaining.Amount
	}

	if updateErr := s.vehicleRepo.UpdateCurrentPrice(ctx, tx, bid.VehicleID, newPrice); updateErr != nil {
		return 0, fmt.Errorf("failed to update current price: %w", updateErr)
	}

	outboxEvent, err := events.NewOutboxEvent(events.EventTypeBidRetracted, events.BidRetracted{
		BidID:        bid.ID,
		VehicleID:    vehicle.ID,
		VehicleTitle: vehicle.Title,
		UserID:       bid.UserID,
		NewPrice:     newPrice,
		RetractedAt:  time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	if saveErr := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); saveErr != nil {
		return 0, fmt.Errorf("failed to save outbox event: %w", saveErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	return newPrice, nil
}

// ListBids returns the bid history for a vehicle, newest first.
func (s *Service) ListBids(ctx context.Context, vehicleID uuid.UUID) ([]*Bid, error) {
	bidList, err := s.bidRepo.GetBidsByVehicleID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bidList, nil
}
