package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viadrive/lance/internal/domain/notifications"
)

// PostgresNotificationRepository implements notifications.NotificationRepository using pgx
type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresNotificationRepository creates a new PostgreSQL notification repository
func NewPostgresNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// Save inserts a notification
func (r *PostgresNotificationRepository) Save(ctx context.Context, n *notifications.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, message, vehicle_id, read, created_at)
		VALUES ($1, $2, $3::notification_type, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type, n.Message, n.VehicleID, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByUser retrieves the user's most recent notifications
func (r *PostgresNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*notifications.Notification, error) {
	query := `
		SELECT id, user_id, type, message, vehicle_id, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var result []*notifications.Notification
	for rows.Next() {
		var n notifications.Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Message, &n.VehicleID, &n.Read, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return result, nil
}

// MarkRead flips the read flag. The user_id guard keeps users from touching
// each other's notifications.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flips the read flag on all of the user's unread notifications
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`
	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// PostgresProfileRepository resolves user emails from the profiles table kept
// in sync by the identity provider. Implements notifications.EmailDirectory.
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProfileRepository creates a new PostgreSQL profile repository
func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

// EmailForUser returns the user's email address
func (r *PostgresProfileRepository) EmailForUser(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `SELECT email FROM profiles WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("profile not found for user %s", userID)
		}
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return email, nil
}
