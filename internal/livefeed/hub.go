package livefeed

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Envelope is the frame written to subscribers. Data carries the original
// event payload untouched.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub fans auction events out to live subscribers through Redis pub/sub.
// Each vehicle gets its own channel, plus one personal channel per user.
type Hub struct {
	client *redis.Client
}

// NewHub creates a new live feed hub
func NewHub(client *redis.Client) *Hub {
	return &Hub{client: client}
}

func vehicleChannel(id uuid.UUID) string {
	return "auction:" + id.String()
}

func userChannel(id uuid.UUID) string {
	return "user:" + id.String()
}

func (h *Hub) publish(ctx context.Context, channel, eventType string, payload []byte) error {
	frame, err := json.Marshal(Envelope{Type: eventType, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := h.client.Publish(ctx, channel, frame).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// PublishVehicle broadcasts an event to everyone watching a vehicle.
func (h *Hub) PublishVehicle(ctx context.Context, vehicleID uuid.UUID, eventType string, payload []byte) error {
	return h.publish(ctx, vehicleChannel(vehicleID), eventType, payload)
}

// PublishUser delivers an event to a single user's personal feed.
func (h *Hub) PublishUser(ctx context.Context, userID uuid.UUID, eventType string, payload []byte) error {
	return h.publish(ctx, userChannel(userID), eventType, payload)
}

// SubscribeVehicle opens a subscription on a vehicle's channel. The caller
// owns the returned PubSub and must Close it.
func (h *Hub) SubscribeVehicle(ctx context.Context, vehicleID uuid.UUID) *redis.PubSub {
	return h.client.Subscribe(ctx, vehicleChannel(vehicleID))
}

// SubscribeUser opens a subscription on a user's personal channel.
func (h *Hub) SubscribeUser(ctx context.Context, userID uuid.UUID) *redis.PubSub {
	return h.client.Subscribe(ctx, userChannel(userID))
}
