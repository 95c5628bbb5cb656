package events

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/viadrive/lance/internal/livefeed"
	pkgevents "github.com/viadrive/lance/pkg/events"
)

const bridgeQueue = "livefeed.bridge"

// LivefeedBridge consumes every auction event from the broker and republishes
// it to the live feed hub. Running a single bridge off a single relay keeps
// events for one vehicle in commit order all the way to the browser.
type LivefeedBridge struct {
	conn   *amqp.Connection
	hub    *livefeed.Hub
	logger *slog.Logger
}

// NewLivefeedBridge creates a new live feed bridge
func NewLivefeedBridge(conn *amqp.Connection, hub *livefeed.Hub, logger *slog.Logger) *LivefeedBridge {
	return &LivefeedBridge{
		conn:   conn,
		hub:    hub,
		logger: logger,
	}
}

// Run starts the consumer loop
func (b *LivefeedBridge) Run(ctx context.Context) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := pkgevents.DeclareTopology(ch, bridgeQueue, "bid.*", "auction.*"); err != nil {
		return fmt.Errorf("failed to setup rabbitmq: %w", err)
	}

	msgs, err := ch.Consume(
		bridgeQueue, // queue
		"",          // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	b.logger.Info("Waiting for messages...", "queue", bridgeQueue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("channel closed")
			}

			if err := b.forward(ctx, d); err != nil {
				b.logger.Error("Failed to forward event", "routing_key", d.RoutingKey, "error", err)
				if nackErr := d.Nack(false, true); nackErr != nil {
					b.logger.Error("Failed to Nack message (requeue)", "error", nackErr)
				}
				continue
			}

			if ackErr := d.Ack(false); ackErr != nil {
				b.logger.Error("Failed to Ack message", "error", ackErr)
			}
		}
	}
}

// forward fans an event out to the vehicle channel and, where the event names
// a specific user, to that user's personal channel.
func (b *LivefeedBridge) forward(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case pkgevents.EventTypeBidPlaced:
		var ev pkgevents.BidPlaced
		if err := pkgevents.Unmarshal(d.Body, &ev); err != nil {
			b.logger.Error("Failed to unmarshal bid.placed event", "error", err)
			return nil
		}
		if err := b.hub.PublishVehicle(ctx, ev.VehicleID, d.RoutingKey, d.Body); err != nil {
			return err
		}
		if ev.PreviousBidderID != nil && *ev.PreviousBidderID != ev.UserID {
			return b.hub.PublishUser(ctx, *ev.PreviousBidderID, d.RoutingKey, d.Body)
		}
		return nil

	case pkgevents.EventTypeBidRetracted:
		var ev pkgevents.BidRetracted
		if err := pkgevents.Unmarshal(d.Body, &ev); err != nil {
			b.logger.Error("Failed to unmarshal bid.retracted event", "error", err)
			return nil
		}
		return b.hub.PublishVehicle(ctx, ev.VehicleID, d.RoutingKey, d.Body)

	case pkgevents.EventTypeAuctionStarted:
		var ev pkgevents.AuctionStarted
		if err := pkgevents.Unmarshal(d.Body, &ev); err != nil {
			b.logger.Error("Failed to unmarshal auction.started event", "error", err)
			return nil
		}
		return b.hub.PublishVehicle(ctx, ev.VehicleID, d.RoutingKey, d.Body)

	case pkgevents.EventTypeAuctionEnded:
		var ev pkgevents.AuctionEnded
		if err := pkgevents.Unmarshal(d.Body, &ev); err != nil {
			b.logger.Error("Failed to unmarshal auction.ended event", "error", err)
			return nil
		}
		if err := b.hub.PublishVehicle(ctx, ev.VehicleID, d.RoutingKey, d.Body); err != nil {
			return err
		}
		if ev.WinnerID != nil {
			return b.hub.PublishUser(ctx, *ev.WinnerID, d.RoutingKey, d.Body)
		}
		return nil

	default:
		b.logger.Warn("Unexpected routing key", "routing_key", d.RoutingKey)
		return nil
	}
}
