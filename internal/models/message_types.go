package models

import (
	"time"
)

// Message is the model for the 'messages' table.
// A message thread is tied 1:1 to a payment and becomes read-only once the
// payment reaches 'completed'.
type Message struct {
	ID        int64     `json:"id" db:"id"`
	PaymentID int64     `json:"payment_id" db:"payment_id"`
	SenderID  int64     `json:"sender_id" db:"sender_id"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	SenderName string `json:"sender_name,omitempty" db:"-"`
}

// ChatSummary is one row of the chat list (GET /api/messages/chats).
type ChatSummary struct {
	PaymentID       int64      `json:"payment_id"`
	ProductName     string     `json:"product_name"`
	BuyerName       string     `json:"buyer_name"`
	SellerName      string     `json:"seller_name"`
	Status          string     `json:"status"`
	UnreadCount     int        `json:"unread_count"`
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
}
