//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infradb "github.com/viadrive/lance/internal/adapters/database"
	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/bids"
	"github.com/viadrive/lance/internal/domain/notifications"
	pkgdb "github.com/viadrive/lance/pkg/database"
	"github.com/viadrive/lance/pkg/testhelpers"
)

func seedVehicle(t *testing.T, pool *pgxpool.Pool, status auctions.VehicleStatus, start, end time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO vehicles (id, title, make, model, year, mileage, color, description,
			starting_price, current_price, min_bid_increment, images,
			auction_start, auction_end, status, created_at, updated_at)
		VALUES ($1, 'Fiat Uno 1995', 'Fiat', 'Uno', 1995, 180000, 'vermelho', '',
			5000000, 5000000, 100000, '{}', $2, $3, $4, $5, $5)
	`, id, start, end, status, now)
	require.NoError(t, err)
	return id
}

func seedBid(t *testing.T, pool *pgxpool.Pool, vehicleID, userID uuid.UUID, amount int64, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO bids (id, vehicle_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, vehicleID, userID, amount, createdAt)
	require.NoError(t, err)
	return id
}

// Equal amounts cannot be produced through bid validation, but the winner
// query must still resolve deterministically if they exist: earliest wins.
func TestBidRepository_HighestBidTieBreak(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	pool := testDB.Pool
	repo := infradb.NewPostgresBidRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	vehicleID := seedVehicle(t, pool, auctions.StatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	earlier := uuid.New()
	seedBid(t, pool, vehicleID, uuid.New(), 5_100_000, now.Add(-3*time.Minute))
	firstAtTop := seedBid(t, pool, vehicleID, earlier, 5_200_000, now.Add(-2*time.Minute))
	seedBid(t, pool, vehicleID, uuid.New(), 5_200_000, now.Add(-time.Minute))

	highest, err := repo.GetHighestBid(ctx, pool, vehicleID)
	require.NoError(t, err)
	require.NotNil(t, highest)
	assert.Equal(t, firstAtTop, highest.ID)
	assert.Equal(t, earlier, highest.UserID)

	winning, err := repo.GetWinningBid(ctx, pool, vehicleID)
	require.NoError(t, err)
	require.NotNil(t, winning)
	assert.Equal(t, firstAtTop, winning.BidID)
	assert.Equal(t, int64(5_200_000), winning.Amount)
}

func TestBidRepository_NoBids(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	pool := testDB.Pool
	repo := infradb.NewPostgresBidRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	vehicleID := seedVehicle(t, pool, auctions.StatusActive, now.Add(-time.Hour), now.Add(time.Hour))

	highest, err := repo.GetHighestBid(ctx, pool, vehicleID)
	require.NoError(t, err)
	assert.Nil(t, highest, "no bids means nil, not an error")

	_, err = repo.GetBidByID(ctx, pool, uuid.New())
	assert.ErrorIs(t, err, bids.ErrBidNotFound)
}

func TestVehicleRepository_MarkEndedGuard(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	pool := testDB.Pool
	repo := infradb.NewPostgresVehicleRepository(pool)
	txManager := pkgdb.NewPostgresTransactionManager(pool, time.Second)
	ctx := context.Background()

	now := time.Now().UTC()
	vehicleID := seedVehicle(t, pool, auctions.StatusActive, now.Add(-time.Hour), now.Add(-time.Minute))
	winnerID := uuid.New()
	finalPrice := int64(5_500_000)

	tx, err := txManager.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.MarkEnded(ctx, tx, vehicleID, &winnerID, &finalPrice))
	require.NoError(t, tx.Commit(ctx))

	ended, err := repo.GetByID(ctx, vehicleID)
	require.NoError(t, err)
	assert.Equal(t, auctions.StatusEnded, ended.Status)
	require.NotNil(t, ended.WinnerID)
	assert.Equal(t, winnerID, *ended.WinnerID)

	// Second close attempt hits the status guard
	tx2, err := txManager.BeginTx(ctx)
	require.NoError(t, err)
	defer func() {
		_ = tx2.Rollback(ctx)
	}()
	err = repo.MarkEnded(ctx, tx2, vehicleID, nil, nil)
	assert.ErrorIs(t, err, auctions.ErrAuctionNotActive)
}

func TestVehicleRepository_ActivateDue(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	pool := testDB.Pool
	repo := infradb.NewPostgresVehicleRepository(pool)
	txManager := pkgdb.NewPostgresTransactionManager(pool, time.Second)
	ctx := context.Background()

	now := time.Now().UTC()
	dueID := seedVehicle(t, pool, auctions.StatusScheduled, now.Add(-time.Minute), now.Add(24*time.Hour))
	notYetID := seedVehicle(t, pool, auctions.StatusScheduled, now.Add(time.Hour), now.Add(48*time.Hour))

	tx, err := txManager.BeginTx(ctx)
	require.NoError(t, err)
	activated, err := repo.ActivateDue(ctx, tx, now)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.Len(t, activated, 1)
	assert.Equal(t, dueID, activated[0].ID)
	assert.Equal(t, auctions.StatusActive, activated[0].Status)

	notYet, err := repo.GetByID(ctx, notYetID)
	require.NoError(t, err)
	assert.Equal(t, auctions.StatusScheduled, notYet.Status)
}

func TestNotificationRepository_ReadFlags(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	pool := testDB.Pool
	repo := infradb.NewPostgresNotificationRepository(pool)
	ctx := context.Background()

	userID := uuid.New()
	other := uuid.New()
	n := &notifications.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifications.TypeOutbid,
		Message:   "Você foi superado no leilão do Fiat Uno 1995",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, n))

	// Another user cannot flag it
	err := repo.MarkRead(ctx, n.ID, other)
	assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)

	require.NoError(t, repo.MarkRead(ctx, n.ID, userID))

	list, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)

	// Foreign inbox stays empty
	empty, err := repo.ListByUser(ctx, other, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProfileRepository_EmailForUser(t *testing.T) {
	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()

	pool := testDB.Pool
	repo := infradb.NewPostgresProfileRepository(pool)
	ctx := context.Background()

	userID := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO profiles (id, email, name, is_admin, created_at, updated_at)
		VALUES ($1, 'maria@example.com', 'Maria Silva', FALSE, NOW(), NOW())
	`, userID)
	require.NoError(t, err)

	email, err := repo.EmailForUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", email)

	_, err = repo.EmailForUser(ctx, uuid.New())
	assert.Error(t, err)
}
