package models

import (
	"time"
)

// Negotiation is the model for the 'negotiations' table.
// One price thread between one buyer and one seller over one product.
// The delivery fields are only meaningful once status = 'accepted'.
type Negotiation struct {
	ID            int64   `json:"id" db:"id"`
	ProductID     int64   `json:"product_id" db:"product_id"`
	BuyerID       int64   `json:"buyer_id" db:"buyer_id"`
	SellerID      int64   `json:"seller_id" db:"seller_id"`
	OriginalPrice float64 `json:"original_price" db:"original_price"`
	ProposedPrice float64 `json:"proposed_price" db:"proposed_price"`
	CounterPrice  *float64 `json:"counter_price,omitempty" db:"counter_price"`
	Status        string  `json:"status" db:"status"` // pending | countered | accepted | rejected

	// --- Delivery Sub-Flow ---
	DeliveryMethod       *string  `json:"delivery_method,omitempty" db:"delivery_method"` // seller_delivery | buyer_pickup
	BuyerAddress         *string  `json:"buyer_address,omitempty" db:"buyer_address"`
	DeliveryConfirmed    bool     `json:"delivery_confirmed" db:"delivery_confirmed"`
	DeliveryCounterPrice *float64 `json:"delivery_counter_price,omitempty" db:"delivery_counter_price"`
	DeliveryPriceAccepted bool    `json:"delivery_price_accepted" db:"delivery_price_accepted"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Flattened fields for UI convenience (populated from JOINs)
	ProductName string `json:"product_name,omitempty" db:"-"`
	BuyerName   string `json:"buyer_name,omitempty" db:"-"`
	SellerName  string `json:"seller_name,omitempty" db:"-"`
}
