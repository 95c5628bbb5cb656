package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/viadrive/lance/internal/domain/auctions"
	"github.com/viadrive/lance/internal/domain/bids"
	"github.com/viadrive/lance/internal/domain/notifications"
)

// All monetary fields are integer cents.

type placeBidRequest struct {
	VehicleID uuid.UUID `json:"vehicle_id" binding:"required"`
	Amount    int64     `json:"amount" binding:"required,gt=0"`
}

type retractBidRequest struct {
	BidID uuid.UUID `json:"bid_id" binding:"required"`
}

type vehicleRequest struct {
	Title           string    `json:"title" binding:"required,max=200"`
	Make            string    `json:"make" binding:"required,max=100"`
	Model           string    `json:"model" binding:"required,max=100"`
	Year            int       `json:"year" binding:"required,gte=1900,lte=2100"`
	Mileage         int       `json:"mileage" binding:"gte=0"`
	Color           string    `json:"color" binding:"max=50"`
	Description     string    `json:"description"`
	StartingPrice   int64     `json:"starting_price" binding:"required,gt=0"`
	MinBidIncrement int64     `json:"min_bid_increment" binding:"required,gt=0"`
	Images          []string  `json:"images" binding:"omitempty,dive,httpurl"`
	AuctionStart    time.Time `json:"auction_start" binding:"required"`
	AuctionEnd      time.Time `json:"auction_end" binding:"required"`
}

type bidResponse struct {
	ID        uuid.UUID `json:"id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func toBidResponse(b *bids.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		VehicleID: b.VehicleID,
		UserID:    b.UserID,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
}

func toBidResponses(list []*bids.Bid) []bidResponse {
	out := make([]bidResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBidResponse(b))
	}
	return out
}

type vehicleResponse struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Make            string     `json:"make"`
	Model           string     `json:"model"`
	Year            int        `json:"year"`
	Mileage         int        `json:"mileage"`
	Color           string     `json:"color"`
	Description     string     `json:"description"`
	StartingPrice   int64      `json:"starting_price"`
	CurrentPrice    int64      `json:"current_price"`
	MinBidIncrement int64      `json:"min_bid_increment"`
	Images          []string   `json:"images"`
	AuctionStart    time.Time  `json:"auction_start"`
	AuctionEnd      time.Time  `json:"auction_end"`
	Status          string     `json:"status"`
	WinnerID        *uuid.UUID `json:"winner_id,omitempty"`
	FinalPrice      *int64     `json:"final_price,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toVehicleResponse(v *auctions.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:              v.ID,
		Title:           v.Title,
		Make:            v.Make,
		Model:           v.Model,
		Year:            v.Year,
		Mileage:         v.Mileage,
		Color:           v.Color,
		Description:     v.Description,
		StartingPrice:   v.StartingPrice,
		CurrentPrice:    v.CurrentPrice,
		MinBidIncrement: v.MinBidIncrement,
		Images:          v.Images,
		AuctionStart:    v.AuctionStart,
		AuctionEnd:      v.AuctionEnd,
		Status:          string(v.Status),
		WinnerID:        v.WinnerID,
		FinalPrice:      v.FinalPrice,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

func toVehicleResponses(list []*auctions.Vehicle) []vehicleResponse {
	out := make([]vehicleResponse, 0, len(list))
	for _, v := range list {
		out = append(out, toVehicleResponse(v))
	}
	return out
}

type notificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	VehicleID *uuid.UUID `json:"vehicle_id,omitempty"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

func toNotificationResponses(list []*notifications.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Message:   n.Message,
			VehicleID: n.VehicleID,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
