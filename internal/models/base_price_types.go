package models

import (
	"time"
)

// BasePrice is the model for the 'base_prices' table.
// Admin-maintained reference prices per commodity, shown on the dashboard
// as market prices.
type BasePrice struct {
	ID          int64     `json:"id" db:"id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Category    string    `json:"category" db:"category"`
	Price       float64   `json:"price" db:"price"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
