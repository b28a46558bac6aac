package models

import (
	"time"
)

// CompanySale is the model for the 'company_sales' table.
// A direct sale offer from a seller to the operating company. The price
// ping-pong between admin and seller is tracked in negotiation_status and
// the two counter-price columns; acceptance by either side moves the sale
// to 'approved', which unlocks the admin payout close-out.
type CompanySale struct {
	ID        int64 `json:"id" db:"id"`
	ProductID int64 `json:"product_id" db:"product_id"`
	SellerID  int64 `json:"seller_id" db:"seller_id"`

	Status            string  `json:"status" db:"status"` // pending | negotiating | approved | rejected | completed
	NegotiationStatus *string `json:"negotiation_status,omitempty" db:"negotiation_status"` // admin_offered | seller_countered

	PricePerUnit              float64  `json:"price_per_unit" db:"price_per_unit"`
	AdminCounterPricePerUnit  *float64 `json:"admin_counter_price_per_unit,omitempty" db:"admin_counter_price_per_unit"`
	SellerCounterPricePerUnit *float64 `json:"seller_counter_price_per_unit,omitempty" db:"seller_counter_price_per_unit"`
	AgreedPricePerUnit        *float64 `json:"agreed_price_per_unit,omitempty" db:"agreed_price_per_unit"`
	AdminNote                 *string  `json:"admin_note,omitempty" db:"admin_note"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Flattened fields for UI convenience (populated from JOINs)
	ProductName string  `json:"product_name,omitempty" db:"-"`
	Quantity    float64 `json:"quantity,omitempty" db:"-"`
	Unit        string  `json:"unit,omitempty" db:"-"`
	SellerName  string  `json:"seller_name,omitempty" db:"-"`
	SellerPhone *string `json:"seller_phone,omitempty" db:"-"`

	// Derived totals (price x quantity)
	TotalPrice              float64  `json:"total_price,omitempty" db:"-"`
	AdminCounterTotalPrice  *float64 `json:"admin_counter_total_price,omitempty" db:"-"`
	SellerCounterTotalPrice *float64 `json:"seller_counter_total_price,omitempty" db:"-"`
}
