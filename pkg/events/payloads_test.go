package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOutboxEvent(t *testing.T) {
	prevBidder := uuid.New()
	payload := BidPlaced{
		BidID:            uuid.New(),
		VehicleID:        uuid.New(),
		VehicleTitle:     "Fiat Uno 1995",
		UserID:           uuid.New(),
		Amount:           2_000_000,
		PreviousAmount:   1_900_000,
		PreviousBidderID: &prevBidder,
		CreatedAt:        time.Now().UTC(),
	}

	event, err := NewOutboxEvent(EventTypeBidPlaced, payload)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, EventTypeBidPlaced, event.EventType)
	assert.Equal(t, OutboxStatusPending, event.Status)
	assert.Nil(t, event.ProcessedAt)

	var decoded BidPlaced
	require.NoError(t, Unmarshal(event.Payload, &decoded))
	assert.Equal(t, payload.BidID, decoded.BidID)
	assert.Equal(t, payload.Amount, decoded.Amount)
	require.NotNil(t, decoded.PreviousBidderID)
	assert.Equal(t, prevBidder, *decoded.PreviousBidderID)
}

func TestAuctionEnded_NoWinnerOmitsFields(t *testing.T) {
	event, err := NewOutboxEvent(EventTypeAuctionEnded, AuctionEnded{
		VehicleID:    uuid.New(),
		VehicleTitle: "Honda Civic 2018",
		EndedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.NotContains(t, string(event.Payload), "winner_id")
	assert.NotContains(t, string(event.Payload), "final_price")

	var decoded AuctionEnded
	require.NoError(t, Unmarshal(event.Payload, &decoded))
	assert.Nil(t, decoded.WinnerID)
	assert.Nil(t, decoded.FinalPrice)
}
