package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viadrive/lance/internal/domain/auctions"
	pkgdb "github.com/viadrive/lance/pkg/database"
)

const vehicleColumns = `id, title, make, model, year, mileage, color, description,
		starting_price, current_price, min_bid_increment, images,
		auction_start, auction_end, status, winner_id, final_price,
		created_at, updated_at`

// PostgresVehicleRepository implements auctions.VehicleRepository using pgx
type PostgresVehicleRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresVehicleRepository creates a new PostgreSQL vehicle repository
func NewPostgresVehicleRepository(pool *pgxpool.Pool) *PostgresVehicleRepository {
	return &PostgresVehicleRepository{pool: pool}
}

// Create inserts a new vehicle
func (r *PostgresVehicleRepository) Create(ctx context.Context, v *auctions.Vehicle) error {
	query := `
		INSERT INTO vehicles (id, title, make, model, year, mileage, color, description,
			starting_price, current_price, min_bid_increment, images,
			auction_start, auction_end, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.pool.Exec(ctx, query,
		v.ID, v.Title, v.Make, v.Model, v.Year, v.Mileage, v.Color, v.Description,
		v.StartingPrice, v.CurrentPrice, v.MinBidIncrement, v.Images,
		v.AuctionStart, v.AuctionEnd, v.Status, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return nil
}

// GetByID retrieves a vehicle by its ID (non-transactional read)
func (r *PostgresVehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*auctions.Vehicle, error) {
	return r.getByID(ctx, r.pool, id, false)
}

// GetByIDForUpdate retrieves a vehicle and locks its row for the transaction.
// This is the per-vehicle critical section: concurrent bids, retractions and
// close transitions on the same vehicle serialize here, while other vehicles
// proceed in parallel.
func (r *PostgresVehicleRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*auctions.Vehicle, error) {
	return r.getByID(ctx, tx, id, true)
}

func (r *PostgresVehicleRepository) getByID(ctx context.Context, db pkgdb.DBTX, id uuid.UUID, forUpdate bool) (*auctions.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	v, err := scanVehicle(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auctions.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// Update rewrites the editable fields of a vehicle
func (r *PostgresVehicleRepository) Update(ctx context.Context, v *auctions.Vehicle) error {
	query := `
		UPDATE vehicles
		SET title = $1, make = $2, model = $3, year = $4, mileage = $5, color = $6,
			description = $7, starting_price = $8, current_price = $9,
			min_bid_increment = $10, images = $11, auction_start = $12,
			auction_end = $13, updated_at = $14
		WHERE id = $15
	`
	result, err := r.pool.Exec(ctx, query,
		v.Title, v.Make, v.Model, v.Year, v.Mileage, v.Color,
		v.Description, v.StartingPrice, v.CurrentPrice,
		v.MinBidIncrement, v.Images, v.AuctionStart,
		v.AuctionEnd, v.UpdatedAt, v.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrVehicleNotFound
	}
	return nil
}

// Delete removes a vehicle row
func (r *PostgresVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrVehicleNotFound
	}
	return nil
}

// UpdateCurrentPrice advances the current price within a transaction
func (r *PostgresVehicleRepository) UpdateCurrentPrice(ctx context.Context, tx pgx.Tx, id uuid.UUID, price int64) error {
	query := `
		UPDATE vehicles
		SET current_price = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := tx.Exec(ctx, query, price, id)
	if err != nil {
		return fmt.Errorf("failed to update current price: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrVehicleNotFound
	}
	return nil
}

// ActivateDue flips scheduled vehicles whose window opened to active
func (r *PostgresVehicleRepository) ActivateDue(ctx context.Context, tx pgx.Tx, now time.Time) ([]*auctions.Vehicle, error) {
	query := `
		UPDATE vehicles
		SET status = 'active', updated_at = NOW()
		WHERE status = 'scheduled' AND auction_start <= $1
		RETURNING ` + vehicleColumns

	rows, err := tx.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to activate due vehicles: %w", err)
	}
	defer rows.Close()

	return collectVehicles(rows)
}

// ListExpiredActive returns ids of active vehicles past their end time
func (r *PostgresVehicleRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM vehicles WHERE status = 'active' AND auction_end <= $1`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired vehicles: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vehicle ids: %w", err)
	}
	return ids, nil
}

// MarkEnded closes the auction. The status guard makes the transition
// idempotent: a second close attempt affects zero rows.
func (r *PostgresVehicleRepository) MarkEnded(ctx context.Context, tx pgx.Tx, id uuid.UUID, winnerID *uuid.UUID, finalPrice *int64) error {
	query := `
		UPDATE vehicles
		SET status = 'ended', winner_id = $1, final_price = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'active'
	`
	result, err := tx.Exec(ctx, query, winnerID, finalPrice, id)
	if err != nil {
		return fmt.Errorf("failed to end auction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrAuctionNotActive
	}
	return nil
}

// MarkCancelled cancels a scheduled auction
func (r *PostgresVehicleRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE vehicles
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to cancel auction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return auctions.ErrNotCancellable
	}
	return nil
}

// ListOpen returns scheduled and active vehicles, soonest-ending first
func (r *PostgresVehicleRepository) ListOpen(ctx context.Context) ([]*auctions.Vehicle, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE status IN ('active', 'scheduled')
		ORDER BY auction_end ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open vehicles: %w", err)
	}
	defer rows.Close()

	return collectVehicles(rows)
}

// ListAdmin returns vehicles matching the filter across all statuses.
// The query is assembled dynamically because every filter is optional.
func (r *PostgresVehicleRepository) ListAdmin(ctx context.Context, filter auctions.ListFilter) ([]*auctions.Vehicle, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "title", "make", "model", "year", "mileage", "color", "description",
			"starting_price", "current_price", "min_bid_increment", "images",
			"auction_start", "auction_end", "status", "winner_id", "final_price",
			"created_at", "updated_at").
		From("vehicles").
		OrderBy("created_at DESC")

	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Make != "" {
		builder = builder.Where(sq.Eq{"make": filter.Make})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build vehicle query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	return collectVehicles(rows)
}

func scanVehicle(row pgx.Row) (*auctions.Vehicle, error) {
	var v auctions.Vehicle
	err := row.Scan(
		&v.ID, &v.Title, &v.Make, &v.Model, &v.Year, &v.Mileage, &v.Color, &v.Description,
		&v.StartingPrice, &v.CurrentPrice, &v.MinBidIncrement, &v.Images,
		&v.AuctionStart, &v.AuctionEnd, &v.Status, &v.WinnerID, &v.FinalPrice,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func collectVehicles(rows pgx.Rows) ([]*auctions.Vehicle, error) {
	var result []*auctions.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vehicles: %w", err)
	}
	return result, nil
}
