package models

import (
	"time"
)

// ProfileUpdateRequest is the model for the 'profile_update_requests' table.
// Profile edits do not apply directly; they queue here until an admin
// approves (fields copied onto the user) or rejects.
type ProfileUpdateRequest struct {
	ID     int64  `json:"id" db:"id"`
	UserID int64  `json:"user_id" db:"user_id"`
	Status string `json:"status" db:"status"` // pending | approved | rejected

	Name         string  `json:"name" db:"name"`
	Phone        string  `json:"phone" db:"phone"`
	Address      string  `json:"address" db:"address"`
	IDCardNumber *string `json:"id_card_number,omitempty" db:"id_card_number"`
	JuristicNumber *string `json:"juristic_number,omitempty" db:"juristic_number"`
	BankAccountNumber *string `json:"bank_account_number,omitempty" db:"bank_account_number"`
	BankName     *string `json:"bank_name,omitempty" db:"bank_name"`

	RejectReason *string   `json:"reject_reason,omitempty" db:"reject_reason"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	// Flattened fields for the admin review screen
	UserName  string `json:"user_name,omitempty" db:"-"`
	UserEmail string `json:"user_email,omitempty" db:"-"`
	UserRole  string `json:"user_role,omitempty" db:"-"`
}
