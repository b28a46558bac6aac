package models

import (
	"time"
)

// Auction is the model for the 'auctions' table.
// Sellers request an auction ('pending'); an admin approves it into 'active'
// (stamping end_time) or rejects it. The background worker moves expired
// auctions to 'ended' and records the winner.
type Auction struct {
	ID       int64 `json:"id" db:"id"`
	SellerID int64 `json:"seller_id" db:"seller_id"`

	ProductName   string  `json:"product_name" db:"product_name"`
	Description   string  `json:"description" db:"description"`
	StartingPrice float64 `json:"starting_price" db:"starting_price"`
	MinIncrement  float64 `json:"min_increment" db:"min_increment"`
	DurationHours int     `json:"duration_hours" db:"duration_hours"`

	Status          string     `json:"status" db:"status"` // pending | active | ended | rejected
	CurrentBid      *float64   `json:"current_bid,omitempty" db:"current_bid"`
	HighestBidderID *int64     `json:"highest_bidder_id,omitempty" db:"highest_bidder_id"`
	EndTime         *time.Time `json:"end_time,omitempty" db:"end_time"`
	WinnerID        *int64     `json:"winner_id,omitempty" db:"winner_id"`
	RejectReason    *string    `json:"reject_reason,omitempty" db:"reject_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Flattened fields for UI convenience (populated from JOINs)
	SellerName        string `json:"seller_name,omitempty" db:"-"`
	HighestBidderName string `json:"highest_bidder_name,omitempty" db:"-"`
}

// Bid is the model for the 'bids' table.
type Bid struct {
	ID        int64     `json:"id" db:"id"`
	AuctionID int64     `json:"auction_id" db:"auction_id"`
	BidderID  int64     `json:"bidder_id" db:"bidder_id"`
	Amount    float64   `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
