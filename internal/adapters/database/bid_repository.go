package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/bids"
	pkgdb "github.com/viadrive/lance/pkg/database"
)

// PostgresBidRepository implements bids.BidRepository and
// auctions.HighestBidReader using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// SaveBid saves a bid within a transaction
func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *bids.Bid) error {
	query := `
		INSERT INTO bids (id, vehicle_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.VehicleID,
		bid.UserID,
		bid.Amount,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBidByID retrieves a bid through the given connection
func (r *PostgresBidRepository) GetBidByID(ctx context.Context, db pkgdb.DBTX, bidID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT id, vehicle_id, user_id, amount, created_at
		FROM bids
		WHERE id = $1
	`
	var bid bids.Bid
	err := db.QueryRow(ctx, query, bidID).Scan(
		&bid.ID,
		&bid.VehicleID,
		&bid.UserID,
		&bid.Amount,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bids.ErrBidNotFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return &bid, nil
}

// GetHighestBid returns the leading bid for a vehicle, or nil when there are
// none. Equal amounts cannot happen through validation, but if they did the
// earliest bid wins.
func (r *PostgresBidRepository) GetHighestBid(ctx context.Context, db pkgdb.DBTX, vehicleID uuid.UUID) (*bids.Bid, error) {
	query := `
		SELECT id, vehicle_id, user_id, amount, created_at
		FROM bids
		WHERE vehicle_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`
	var bid bids.Bid
	err := db.QueryRow(ctx, query, vehicleID).Scan(
		&bid.ID,
		&bid.VehicleID,
		&bid.UserID,
		&bid.Amount,
		&bid.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}
	return &bid, nil
}

// GetWinningBid adapts GetHighestBid for the auction close path.
func (r *PostgresBidRepository) GetWinningBid(ctx context.Context, db pkgdb.DBTX, vehicleID uuid.UUID) (*auctions.HighestBid, error) {
	bid, err := r.GetHighestBid(ctx, db, vehicleID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, nil
	}
	return &auctions.HighestBid{
		BidID:  bid.ID,
		UserID: bid.UserID,
		Amount: bid.Amount,
	}, nil
}

// DeleteBid removes a bid within a transaction
func (r *PostgresBidRepository) DeleteBid(ctx context.Context, tx pgx.Tx, bidID uuid.UUID) error {
	result, err := tx.Exec(ctx, `DELETE FROM bids WHERE id = $1`, bidID)
	if err != nil {
		return fmt.Errorf("failed to delete bid: %w", err)
	}
	if result.RowsAffected() == 0 {
		return bids.ErrBidNotFound
	}
	return nil
}

// GetBidsByVehicleID retrieves all bids for a vehicle, newest first
func (r *PostgresBidRepository) GetBidsByVehicleID(ctx context.Context, vehicleID uuid.UUID) ([]*bids.Bid, error) {
	query := `
		SELECT id, vehicle_id, user_id, amount, created_at
		FROM bids
		WHERE vehicle_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var result []*bids.Bid
	for rows.Next() {
		var bid bids.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.VehicleID,
			&bid.UserID,
			&bid.Amount,
			&bid.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}
