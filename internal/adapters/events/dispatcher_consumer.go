package events

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/viadrive/lance/internal/domain/notifications"
	pkgevents "github.com/viadrive/lance/pkg/events"
)

const dispatchQueue = "notifications.dispatch"

// DispatcherConsumer consumes bid and auction events and turns them into
// user notifications.
type DispatcherConsumer struct {
	conn    *amqp.Connection
	service *notifications.Service
	logger  *slog.Logger
}

// NewDispatcherConsumer creates a new notification dispatcher consumer
func NewDispatcherConsumer(conn *amqp.Connection, service *notifications.Service, logger *slog.Logger) *DispatcherConsumer {
	return &DispatcherConsumer{
		conn:    conn,
		service: service,
		logger:  logger,
	}
}

// Run starts the consumer loop
func (c *DispatcherConsumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = pkgevents.DeclareTopology(ch, dispatchQueue,
		pkgevents.EventTypeBidPlaced,
		pkgevents.EventTypeAuctionEnded,
	)
	if err != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", err)
	}

	msgs, err := ch.Consume(
		dispatchQueue, // queue
		"",            // consumer tag
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Waiting for messages...", "queue", dispatchQueue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}

			if err := c.handleDelivery(ctx, d); err != nil {
				c.logger.Error("Failed to process event", "routing_key", d.RoutingKey, "error", err)
				// Requeue and retry
				if nackErr := d.Nack(false, true); nackErr != nil {
					c.logger.Error("Failed to Nack message (requeue)", "error", nackErr)
				}
				continue
			}

			if ackErr := d.Ack(false); ackErr != nil {
				c.logger.Error("Failed to Ack message", "error", ackErr)
			}
		}
	}
}

func (c *DispatcherConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case pkgevents.EventTypeBidPlaced:
		var ev pkgevents.BidPlaced
		if err := pkgevents.Unmarshal(d.Body, &ev); err != nil {
			// Unparseable now means unparseable forever; ack and drop.
			c.logger.Error("Failed to unmarshal bid.placed event", "error", err)
			return nil
		}
		return c.service.HandleBidPlaced(ctx, ev)
	case pkgevents.EventTypeAuctionEnded:
		var ev pkgevents.AuctionEnded
		if err := pkgevents.Unmarshal(d.Body, &ev); err != nil {
			c.logger.Error("Failed to unmarshal auction.ended event", "error", err)
			return nil
		}
		return c.service.HandleAuctionEnded(ctx, ev)
	default:
		c.logger.Warn("Unexpected routing key", "routing_key", d.RoutingKey)
		return nil
	}
}
