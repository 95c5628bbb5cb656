//go:build integration

package auctions_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infradb "github.com/viadrive/lance/internal/adapters/database"
	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/bids"
	"github.com/viadrive/lance/pkg/database"
	pkgevents "github.com/viadrive/lance/pkg/events"
	"github.com/viadrive/lance/pkg/testhelpers"
)

type testServices struct {
	Auctions    *auctions.Service
	Bids        *bids.Service
	TxManager   database.TransactionManager
	VehicleRepo *infradb.PostgresVehicleRepository
	OutboxRepo  *infradb.PostgresOutboxRepository
}

func setupServices(pool *pgxpool.Pool) *testServices {
	txManager := database.NewPostgresTransactionManager(pool, 5*time.Second)
	vehicleRepo := infradb.NewPostgresVehicleRepository(pool)
	bidRepo := infradb.NewPostgresBidRepository(pool)
	outboxRepo := infradb.NewPostgresOutboxRepository(pool)
	logger := slog.Default()

	return &testServices{
		Auctions:    auctions.NewService(txManager, vehicleRepo, bidRepo, outboxRepo, logger),
		Bids:        bids.NewService(txManager, bidRepo, vehicleRepo, outboxRepo),
		TxManager:   txManager,
		VehicleRepo: vehicleRepo,
		OutboxRepo:  outboxRepo,
	}
}

func createVehicle(t *testing.T, svc *testServices, mutate func(*auctions.CreateVehicleCommand)) *auctions.Vehicle {
	t.Helper()
	now := time.Now().UTC()
	cmd := auctions.CreateVehicleCommand{
		Title:           "Honda Civic 2018",
		Make:            "Honda",
		Model:           "Civic",
		Year:            2018,
		Mileage:         60000,
		Color:           "prata",
		StartingPrice:   8_000_000,
		MinBidIncrement: 100_000,
		AuctionStart:    now.Add(-time.Hour),
		AuctionEnd:      now.Add(24 * time.Hour),
	}
	if mutate != nil {
		mutate(&cmd)
	}
	vehicle, err := svc.Auctions.CreateVehicle(context.Background(), cmd)
	require.NoError(t, err)
	return vehicle
}

func eventTypes(t *testing.T, svc *testServices) []string {
	t.Helper()
	ctx := context.Background()
	tx, err := svc.TxManager.BeginTx(ctx)
	require.NoError(t, err)
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	events, err := svc.OutboxRepo.GetPendingEvents(ctx, tx, 100)
	require.NoError(t, err)

	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

func TestCreateVehicle_InitialStatus(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)

	open := createVehicle(t, svc, nil)
	assert.Equal(t, auctions.StatusActive, open.Status, "window already open starts active")
	assert.Equal(t, open.StartingPrice, open.CurrentPrice)

	future := createVehicle(t, svc, func(cmd *auctions.CreateVehicleCommand) {
		cmd.AuctionStart = time.Now().UTC().Add(time.Hour)
	})
	assert.Equal(t, auctions.StatusScheduled, future.Status)
}

func TestCreateVehicle_Validation(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.Auctions.CreateVehicle(ctx, auctions.CreateVehicleCommand{
		Title: "x", StartingPrice: 0, MinBidIncrement: 100,
		AuctionStart: now, AuctionEnd: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, auctions.ErrInvalidStartPrice)

	_, err = svc.Auctions.CreateVehicle(ctx, auctions.CreateVehicleCommand{
		Title: "x", StartingPrice: 100, MinBidIncrement: 0,
		AuctionStart: now, AuctionEnd: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, auctions.ErrInvalidIncrement)

	_, err = svc.Auctions.CreateVehicle(ctx, auctions.CreateVehicleCommand{
		Title: "x", StartingPrice: 100, MinBidIncrement: 100,
		AuctionStart: now.Add(time.Hour), AuctionEnd: now,
	})
	assert.ErrorIs(t, err, auctions.ErrInvalidSchedule)
}

func TestEndVehicle_WinnerFromHighestBid(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()

	vehicle := createVehicle(t, svc, nil)
	winner := uuid.New()

	_, err := svc.Bids.PlaceBid(ctx, bids.PlaceBidCommand{
		VehicleID: vehicle.ID, UserID: uuid.New(), Amount: 8_100_000,
	})
	require.NoError(t, err)
	_, err = svc.Bids.PlaceBid(ctx, bids.PlaceBidCommand{
		VehicleID: vehicle.ID, UserID: winner, Amount: 8_500_000,
	})
	require.NoError(t, err)

	ended, err := svc.Auctions.EndVehicle(ctx, vehicle.ID)
	require.NoError(t, err)

	assert.Equal(t, auctions.StatusEnded, ended.Status)
	require.NotNil(t, ended.WinnerID)
	assert.Equal(t, winner, *ended.WinnerID)
	require.NotNil(t, ended.FinalPrice)
	assert.Equal(t, int64(8_500_000), *ended.FinalPrice)

	// Ending twice is rejected by the status guard
	_, err = svc.Auctions.EndVehicle(ctx, vehicle.ID)
	assert.ErrorIs(t, err, auctions.ErrAuctionNotActive)
}

func TestEndVehicle_NoBids(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()

	vehicle := createVehicle(t, svc, nil)

	ended, err := svc.Auctions.EndVehicle(ctx, vehicle.ID)
	require.NoError(t, err)

	assert.Equal(t, auctions.StatusEnded, ended.Status)
	assert.Nil(t, ended.WinnerID)
	assert.Nil(t, ended.FinalPrice)

	var payload pkgevents.AuctionEnded
	ctxTx, err := svc.TxManager.BeginTx(ctx)
	require.NoError(t, err)
	defer func() {
		_ = ctxTx.Rollback(ctx)
	}()
	events, err := svc.OutboxRepo.GetPendingEvents(ctx, ctxTx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, pkgevents.Unmarshal(events[0].Payload, &payload))
	assert.Nil(t, payload.WinnerID)
}

func TestSweep_ActivatesAndEnds(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()
	now := time.Now().UTC()

	// Scheduled, window opens in the past relative to the sweep instant
	due := createVehicle(t, svc, func(cmd *auctions.CreateVehicleCommand) {
		cmd.AuctionStart = now.Add(time.Minute)
		cmd.AuctionEnd = now.Add(48 * time.Hour)
	})
	require.Equal(t, auctions.StatusScheduled, due.Status)

	// Active, window already closed
	expired := createVehicle(t, svc, nil)
	winner := uuid.New()
	_, err := svc.Bids.PlaceBid(ctx, bids.PlaceBidCommand{
		VehicleID: expired.ID, UserID: winner, Amount: 8_200_000,
	})
	require.NoError(t, err)
	_, err = testDB.Pool.Exec(ctx,
		`UPDATE vehicles SET auction_end = $1 WHERE id = $2`, now.Add(-time.Minute), expired.ID)
	require.NoError(t, err)

	// Untouched bystander
	bystander := createVehicle(t, svc, nil)

	result, err := svc.Auctions.Sweep(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 1, result.Ended)

	activated, err := svc.VehicleRepo.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, auctions.StatusActive, activated.Status)

	closed, err := svc.VehicleRepo.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, auctions.StatusEnded, closed.Status)
	require.NotNil(t, closed.WinnerID)
	assert.Equal(t, winner, *closed.WinnerID)

	untouched, err := svc.VehicleRepo.GetByID(ctx, bystander.ID)
	require.NoError(t, err)
	assert.Equal(t, auctions.StatusActive, untouched.Status)

	// A second sweep at the same instant is a no-op
	again, err := svc.Auctions.Sweep(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Activated)
	assert.Equal(t, 0, again.Ended)

	types := eventTypes(t, svc)
	started, endedCount := 0, 0
	for _, typ := range types {
		switch typ {
		case pkgevents.EventTypeAuctionStarted:
			started++
		case pkgevents.EventTypeAuctionEnded:
			endedCount++
		}
	}
	assert.Equal(t, 1, started, "one activation event")
	assert.Equal(t, 1, endedCount, "one close event")
}

func TestCancelAndDeleteGuards(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()

	active := createVehicle(t, svc, nil)

	_, err := svc.Auctions.CancelVehicle(ctx, active.ID)
	assert.ErrorIs(t, err, auctions.ErrNotCancellable)

	err = svc.Auctions.DeleteVehicle(ctx, active.ID)
	assert.ErrorIs(t, err, auctions.ErrVehicleNotDeletable)

	scheduled := createVehicle(t, svc, func(cmd *auctions.CreateVehicleCommand) {
		cmd.AuctionStart = time.Now().UTC().Add(time.Hour)
	})

	cancelled, err := svc.Auctions.CancelVehicle(ctx, scheduled.ID)
	require.NoError(t, err)
	assert.Equal(t, auctions.StatusCancelled, cancelled.Status)

	// Cancelled vehicles can still be deleted
	require.NoError(t, svc.Auctions.DeleteVehicle(ctx, scheduled.ID))

	_, err = svc.Auctions.GetVehicle(ctx, scheduled.ID)
	assert.ErrorIs(t, err, auctions.ErrVehicleNotFound)
}

func TestUpdateVehicle_OnlyBeforeActivation(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()

	scheduled := createVehicle(t, svc, func(cmd *auctions.CreateVehicleCommand) {
		cmd.AuctionStart = time.Now().UTC().Add(time.Hour)
	})

	updated, err := svc.Auctions.UpdateVehicle(ctx, auctions.UpdateVehicleCommand{
		VehicleID:       scheduled.ID,
		Title:           "Honda Civic EXL 2018",
		Make:            "Honda",
		Model:           "Civic",
		Year:            2018,
		Mileage:         55000,
		Color:           "preto",
		StartingPrice:   9_000_000,
		MinBidIncrement: 200_000,
		AuctionStart:    scheduled.AuctionStart,
		AuctionEnd:      scheduled.AuctionEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, "Honda Civic EXL 2018", updated.Title)
	assert.Equal(t, int64(9_000_000), updated.StartingPrice)
	assert.Equal(t, int64(9_000_000), updated.CurrentPrice, "current price follows starting price before activation")

	active := createVehicle(t, svc, nil)
	_, err = svc.Auctions.UpdateVehicle(ctx, auctions.UpdateVehicleCommand{
		VehicleID:       active.ID,
		Title:           "nope",
		Make:            "Honda",
		Model:           "Civic",
		Year:            2018,
		StartingPrice:   1,
		MinBidIncrement: 1,
		AuctionStart:    active.AuctionStart,
		AuctionEnd:      active.AuctionEnd,
	})
	assert.ErrorIs(t, err, auctions.ErrVehicleImmutable)
}

func TestListVehicles_PublicOrdering(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()
	now := time.Now().UTC()

	later := createVehicle(t, svc, func(cmd *auctions.CreateVehicleCommand) {
		cmd.AuctionEnd = now.Add(48 * time.Hour)
	})
	sooner := createVehicle(t, svc, func(cmd *auctions.CreateVehicleCommand) {
		cmd.AuctionEnd = now.Add(2 * time.Hour)
	})
	endedVehicle := createVehicle(t, svc, nil)
	_, err := svc.Auctions.EndVehicle(ctx, endedVehicle.ID)
	require.NoError(t, err)

	list, err := svc.Auctions.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2, "ended auctions are not listed")
	assert.Equal(t, sooner.ID, list[0].ID, "soonest-ending first")
	assert.Equal(t, later.ID, list[1].ID)
}

func TestListVehiclesAdmin_Filters(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	svc := setupServices(testDB.Pool)
	ctx := context.Background()

	createVehicle(t, svc, nil)
	fiat := createVehicle(t, svc, func(cmd *auctions.CreateVehicleCommand) {
		cmd.Make = "Fiat"
		cmd.Title = "Fiat Uno 1995"
	})
	endedVehicle := createVehicle(t, svc, nil)
	_, err := svc.Auctions.EndVehicle(ctx, endedVehicle.ID)
	require.NoError(t, err)

	all, err := svc.Auctions.ListVehiclesAdmin(ctx, auctions.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3, "admin listing includes every status")

	onlyFiat, err := svc.Auctions.ListVehiclesAdmin(ctx, auctions.ListFilter{Make: "Fiat"})
	require.NoError(t, err)
	require.Len(t, onlyFiat, 1)
	assert.Equal(t, fiat.ID, onlyFiat[0].ID)

	onlyEnded, err := svc.Auctions.ListVehiclesAdmin(ctx, auctions.ListFilter{Status: "ended"})
	require.NoError(t, err)
	require.Len(t, onlyEnded, 1)
	assert.Equal(t, endedVehicle.ID, onlyEnded[0].ID)

	paged, err := svc.Auctions.ListVehiclesAdmin(ctx, auctions.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 2)
}
