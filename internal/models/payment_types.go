package models

import (
	"time"
)

// Payment is the model for the 'payments' table.
// Exactly one of NegotiationID / CompanySaleID / AuctionID is set, naming the
// funding reference. Status only ever moves forward:
// pending -> paid -> delivering -> received -> completed (cancel only from pending).
type Payment struct {
	ID            int64  `json:"id" db:"id"`
	NegotiationID *int64 `json:"negotiation_id,omitempty" db:"negotiation_id"`
	CompanySaleID *int64 `json:"company_sale_id,omitempty" db:"company_sale_id"`
	AuctionID     *int64 `json:"auction_id,omitempty" db:"auction_id"`
	BuyerID       int64  `json:"buyer_id" db:"buyer_id"`
	SellerID      int64  `json:"seller_id" db:"seller_id"`

	// --- Money (baht) ---
	Amount       float64 `json:"amount" db:"amount"`
	Commission   float64 `json:"commission" db:"commission"`
	TotalAmount  float64 `json:"total_amount" db:"total_amount"`
	SellerAmount float64 `json:"seller_amount" db:"seller_amount"`

	Status        string  `json:"status" db:"status"`
	AdminVerified bool    `json:"admin_verified" db:"admin_verified"`
	PaymentSlipURL *string `json:"payment_slip_url,omitempty" db:"payment_slip_url"`
	ReferenceID   string  `json:"reference_id" db:"reference_id"`
	QRCodeData    string  `json:"qr_code_data" db:"qr_code_data"`

	// --- Seller Payout Details (snapshot at creation) ---
	SellerBankAccount *string `json:"account_number,omitempty" db:"seller_bank_account"`
	SellerBankName    *string `json:"bank_name,omitempty" db:"seller_bank_name"`

	PaymentDate       time.Time  `json:"payment_date" db:"payment_date"`
	PaidAt            *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	AdminVerifiedAt   *time.Time `json:"admin_verified_at,omitempty" db:"admin_verified_at"`
	ReceivedAt        *time.Time `json:"received_at,omitempty" db:"received_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	SellerConfirmedAt *time.Time `json:"seller_confirmed_at,omitempty" db:"seller_confirmed_at"`

	// Flattened fields for UI convenience (populated from JOINs)
	ProductName    string  `json:"product_name,omitempty" db:"-"`
	BuyerName      string  `json:"buyer_name,omitempty" db:"-"`
	BuyerPhone     *string `json:"buyer_phone,omitempty" db:"-"`
	BuyerAddress   *string `json:"buyer_address,omitempty" db:"-"`
	SellerName     string  `json:"seller_name,omitempty" db:"-"`
	SellerPhone    *string `json:"seller_phone,omitempty" db:"-"`
	SellerAddress  *string `json:"seller_address,omitempty" db:"-"`
	DeliveryMethod *string `json:"delivery_method,omitempty" db:"-"`
	OriginalPrice  *float64 `json:"original_price,omitempty" db:"-"`
	FinalPrice     *float64 `json:"final_price,omitempty" db:"-"`
}
