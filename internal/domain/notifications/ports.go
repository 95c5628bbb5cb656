package notifications

import (
	"context"

	"github.com/google/uuid"
)

// NotificationRepository defines the interface for notification persistence
type NotificationRepository interface {
	Save(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// Mailer sends outbid emails. Delivery is fire-and-forget: failures are
// logged by the dispatcher and never propagate.
type Mailer interface {
	SendOutbidEmail(ctx context.Context, to, vehicleTitle string, newAmount int64) error
}

// EmailDirectory resolves a user's email address. Backed by the external
// identity provider; lookups outside the bid path only.
type EmailDirectory interface {
	EmailForUser(ctx context.Context, userID uuid.UUID) (string, error)
}
