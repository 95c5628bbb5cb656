package auctions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/viadrive/lance/pkg/database"
	"github.com/viadrive/lance/pkg/events"
)

// Validation and state errors
var (
	ErrVehicleNotFound     = errors.New("vehicle not found")
	ErrAuctionNotActive    = errors.New("auction is not active")
	ErrInvalidSchedule     = errors.New("auction start must be before auction end")
	ErrInvalidStartPrice   = errors.New("starting price must be greater than 0")
	ErrInvalidIncrement    = errors.New("minimum bid increment must be greater than 0")
	ErrVehicleImmutable    = errors.New("only scheduled vehicles can be edited")
	ErrVehicleNotDeletable = errors.New("cannot delete an active or ended auction")
	ErrNotCancellable      = errors.New("only scheduled auctions can be cancelled")
)

// CreateVehicleCommand represents the command to create a new vehicle auction
type CreateVehicleCommand struct {
	Title           string
	Make            string
	Model           string
	Year            int
	Mileage         int
	Color           string
	Description     string
	StartingPrice   int64
	MinBidIncrement int64
	Images          []string
	AuctionStart    time.Time
	AuctionEnd      time.Time
}

// UpdateVehicleCommand represents the command to edit a scheduled vehicle
type UpdateVehicleCommand struct {
	VehicleID       uuid.UUID
	Title           string
	Make            string
	Model           string
	Year            int
	Mileage         int
	Color           string
	Description     string
	StartingPrice   int64
	MinBidIncrement int64
	Images          []string
	AuctionStart    time.Time
	AuctionEnd      time.Time
}

// SweepResult reports what one scheduler pass did.
type SweepResult struct {
	Activated int `json:"activated"`
	Ended     int `json:"ended"`
}

// Service owns the auction lifecycle: scheduled -> active -> ended, plus the
// admin-only scheduled -> cancelled transition.
type Service struct {
	txManager   database.TransactionManager
	vehicleRepo VehicleRepository
	bidReader   HighestBidReader
	outboxRepo  events.OutboxRepository
	logger      *slog.Logger
}

// NewService creates a new auction lifecycle service
func NewService(
	txManager database.TransactionManager,
	vehicleRepo VehicleRepository,
	bidReader HighestBidReader,
	outboxRepo events.OutboxRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		txManager:   txManager,
		vehicleRepo: vehicleRepo,
		bidReader:   bidReader,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

func validateSchedule(cmd CreateVehicleCommand) error {
	if cmd.StartingPrice <= 0 {
		return ErrInvalidStartPrice
	}
	if cmd.MinBidIncrement <= 0 {
		return ErrInvalidIncrement
	}
	if !cmd.AuctionStart.Before(cmd.AuctionEnd) {
		return ErrInvalidSchedule
	}
	return nil
}

// CreateVehicle creates a new vehicle auction. The initial status is derived
// from the start time: an auction whose window already opened starts active.
func (s *Service) CreateVehicle(ctx context.Context, cmd CreateVehicleCommand) (*Vehicle, error) {
	if err := validateSchedule(cmd); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	vehicle := &Vehicle{
		ID:              uuid.New(),
		Title:           cmd.Title,
		Make:            cmd.Make,
		Model:           cmd.Model,
		Year:            cmd.Year,
		Mileage:         cmd.Mileage,
		Color:           cmd.Color,
		Description:     cmd.Description,
		StartingPrice:   cmd.StartingPrice,
		CurrentPrice:    cmd.StartingPrice,
		MinBidIncrement: cmd.MinBidIncrement,
		Images:          cmd.Images,
		AuctionStart:    cmd.AuctionStart,
		AuctionEnd:      cmd.AuctionEnd,
		Status:          InitialStatus(cmd.AuctionStart, now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}

	return vehicle, nil
}

// GetVehicle retrieves a vehicle by ID
func (s *Service) GetVehicle(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	return s.vehicleRepo.GetByID(ctx, id)
}

// ListVehicles returns the public listing: open auctions, soonest-ending first.
func (s *Service) ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	vehicles, err := s.vehicleRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// ListVehiclesAdmin returns vehicles matching the filter, all statuses included.
func (s *Service) ListVehiclesAdmin(ctx context.Context, filter ListFilter) ([]*Vehicle, error) {
	vehicles, err := s.vehicleRepo.ListAdmin(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// UpdateVehicle edits a scheduled vehicle. Price and schedule edits are safe
// here because a scheduled auction cannot have bids; current_price is kept in
// lockstep with starting_price.
func (s *Service) UpdateVehicle(ctx context.Context, cmd UpdateVehicleCommand) (*Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetByID(ctx, cmd.VehicleID)
	if err != nil {
		return nil, err
	}

	if !vehicle.CanBeEdited() {
		return nil, ErrVehicleImmutable
	}

	if err := validateSchedule(CreateVehicleCommand{
		StartingPrice:   cmd.StartingPrice,
		MinBidIncrement: cmd.MinBidIncrement,
		AuctionStart:    cmd.AuctionStart,
		AuctionEnd:      cmd.AuctionEnd,
	}); err != nil {
		return nil, err
	}

	vehicle.Title = cmd.Title
	vehicle.Make = cmd.Make
	vehicle.Model = cmd.Model
	vehicle.Year = cmd.Year
	vehicle.Mileage = cmd.Mileage
	vehicle.Color = cmd.Color
	vehicle.Description = cmd.Description
	vehicle.StartingPrice = cmd.StartingPrice
	vehicle.CurrentPrice = cmd.StartingPrice
	vehicle.MinBidIncrement = cmd.MinBidIncrement
	vehicle.Images = cmd.Images
	vehicle.AuctionStart = cmd.AuctionStart
	vehicle.AuctionEnd = cmd.AuctionEnd
	vehicle.UpdatedAt = time.Now().UTC()

	if err := s.vehicleRepo.Update(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}

	return vehicle, nil
}

// DeleteVehicle removes a vehicle that never ran.
func (s *Service) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !vehicle.CanBeDeleted() {
		return ErrVehicleNotDeletable
	}

	if err := s.vehicleRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	return nil
}

// CancelVehicle cancels a scheduled auction.
func (s *Service) CancelVehicle(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !vehicle.CanBeCancelled() {
		return nil, ErrNotCancellable
	}

	if err := s.vehicleRepo.MarkCancelled(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to cancel vehicle: %w", err)
	}

	vehicle.Status = StatusCancelled
	return vehicle, nil
}

// EndVehicle force-ends an active auction (admin action). The winner is
// whatever the ledger holds at the instant the vehicle lock is taken, so a
// bid committed just before the close is honored.
func (s *Service) EndVehicle(ctx context.Context, id uuid.UUID) (*Vehicle, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	vehicle, err := s.vehicleRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if !vehicle.IsActive() {
		return nil, ErrAuctionNotActive
	}

	highest, err := s.bidReader.GetWinningBid(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve highest bid: %w", err)
	}

	var winnerID *uuid.UUID
	var finalPrice *int64
	if highest != nil {
		winnerID = &highest.UserID
		finalPrice = &highest.Amount
	}

	if err := s.vehicleRepo.MarkEnded(ctx, tx, id, winnerID, finalPrice); err != nil {
		return nil, fmt.Errorf("failed to end auction: %w", err)
	}

	outboxEvent, err := events.NewOutboxEvent(events.EventTypeAuctionEnded, events.AuctionEnded{
		VehicleID:    vehicle.ID,
		VehicleTitle: vehicle.Title,
		WinnerID:     winnerID,
		FinalPrice:   finalPrice,
		EndedAt:      time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	vehicle.Status = StatusEnded
	vehicle.WinnerID = winnerID
	vehicle.FinalPrice = finalPrice
	return vehicle, nil
}

// Sweep runs one scheduler pass: activate scheduled auctions whose window
// opened, then end active auctions whose window closed. Ending is per-vehicle;
// one failure never blocks the rest.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	activated, err := s.activateDue(ctx, now)
	if err != nil {
		return result, err
	}
	result.Activated = activated

	expired, err := s.vehicleRepo.ListExpiredActive(ctx, now)
	if err != nil {
		return result, fmt.Errorf("failed to list expired auctions: %w", err)
	}

	for _, id := range expired {
		if _, err := s.EndVehicle(ctx, id); err != nil {
			// Already ended by a concurrent force-end or sweep: nothing to do.
			if errors.Is(err, ErrAuctionNotActive) || errors.Is(err, ErrVehicleNotFound) {
				continue
			}
			s.logger.Error("failed to end expired auction", "vehicle_id", id, "error", err)
			continue
		}
		result.Ended++
	}

	return result, nil
}

func (s *Service) activateDue(ctx context.Context, now time.Time) (int, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	vehicles, err := s.vehicleRepo.ActivateDue(ctx, tx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to activate due auctions: %w", err)
	}

	for _, v := range vehicles {
		outboxEvent, err := events.NewOutboxEvent(events.EventTypeAuctionStarted, events.AuctionStarted{
			VehicleID:    v.ID,
			VehicleTitle: v.Title,
			StartedAt:    now,
		})
		if err != nil {
			return 0, err
		}
		if err := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); err != nil {
			return 0, fmt.Errorf("failed to save outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(vehicles), nil
}
