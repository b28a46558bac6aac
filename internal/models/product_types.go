package models

import (
	"time"
)

// Product is the model for the 'products' table.
// Prices are per unit (baht); quantity is in the listed unit (default: ton).
type Product struct {
	ID          int64   `json:"id" db:"id"`
	SellerID    int64   `json:"seller_id" db:"seller_id"`
	Name        string  `json:"name" db:"name"`
	Category    string  `json:"category" db:"category"`
	Slug        string  `json:"slug" db:"slug"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	Unit        string  `json:"unit" db:"unit"`
	Price       float64 `json:"price" db:"price"`
	Status      string  `json:"status" db:"status"` // available | sold

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Flattened fields for UI convenience (populated from JOINs)
	SellerName    string  `json:"seller_name,omitempty" db:"-"`
	SellerPhone   *string `json:"seller_phone,omitempty" db:"-"`
	SellerAddress *string `json:"seller_address,omitempty" db:"-"`
}
