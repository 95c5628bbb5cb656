package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/viadrive/lance/pkg/events"
)

// ErrNotificationNotFound is returned when a notification does not exist or
// belongs to another user.
var ErrNotificationNotFound = errors.New("notification not found")

const emailSendTimeout = 10 * time.Second

// Service persists notifications and triggers email delivery. It consumes
// committed ledger/state events, so nothing here ever holds a vehicle lock
// or rolls back a bid.
type Service struct {
	repo      NotificationRepository
	directory EmailDirectory
	mailer    Mailer
	logger    *slog.Logger
}

// NewService creates a new notification service
func NewService(repo NotificationRepository, directory EmailDirectory, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		mailer:    mailer,
		logger:    logger,
	}
}

// HandleBidPlaced notifies the outbid previous leader, if there is one and it
// is not the new bidder. The email goes out asynchronously; a delivery
// failure is logged and nothing else.
func (s *Service) HandleBidPlaced(ctx context.Context, ev events.BidPlaced) error {
	if ev.PreviousBidderID == nil || *ev.PreviousBidderID == ev.UserID {
		return nil
	}

	notification := &Notification{
		ID:        uuid.New(),
		UserID:    *ev.PreviousBidderID,
		Type:      TypeOutbid,
		Message:   fmt.Sprintf("Você foi superado no leilão do %s", ev.VehicleTitle),
		VehicleID: &ev.VehicleID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Save(ctx, notification); err != nil {
		return fmt.Errorf("failed to save outbid notification: %w", err)
	}

	// Fire-and-forget: detach from the consumer's context so an ack does not
	// cancel the send mid-flight.
	go s.sendOutbidEmail(*ev.PreviousBidderID, ev.VehicleTitle, ev.Amount)

	return nil
}

// HandleAuctionEnded persists the winner notice. No email is sent for wins.
func (s *Service) HandleAuctionEnded(ctx context.Context, ev events.AuctionEnded) error {
	if ev.WinnerID == nil {
		return nil
	}

	notification := &Notification{
		ID:        uuid.New(),
		UserID:    *ev.WinnerID,
		Type:      TypeWinner,
		Message:   fmt.Sprintf("Parabéns! Você venceu o leilão do %s", ev.VehicleTitle),
		VehicleID: &ev.VehicleID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Save(ctx, notification); err != nil {
		return fmt.Errorf("failed to save winner notification: %w", err)
	}

	return nil
}

func (s *Service) sendOutbidEmail(userID uuid.UUID, vehicleTitle string, newAmount int64) {
	ctx, cancel := context.WithTimeout(context.Background(), emailSendTimeout)
	defer cancel()

	email, err := s.directory.EmailForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to resolve email for outbid notice", "user_id", userID, "error", err)
		return
	}

	if err := s.mailer.SendOutbidEmail(ctx, email, vehicleTitle, newAmount); err != nil {
		s.logger.Error("failed to send outbid email", "user_id", userID, "error", err)
	}
}

// List returns the most recent notifications for a user.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

// MarkRead flips the read flag on one of the user's notifications.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead flips the read flag on all of the user's notifications.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
