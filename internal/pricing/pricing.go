// Package pricing computes the money fields of a payment and builds the
// opaque artifacts the payment screen needs (reference ID, QR payload).
// All arithmetic goes through shopspring/decimal so a 0.1% commission on
// odd amounts never picks up float drift before it is stored.
package pricing

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// CommissionRate is the platform fee charged on top of the agreed amount:
// 0.1% of the sale price, paid by the buyer.
var CommissionRate = decimal.NewFromFloat(0.001)

// Totals is the complete money breakdown of one payment.
type Totals struct {
	Amount       float64 // agreed sale price
	Commission   float64 // platform fee (0.1%, rounded to satang)
	TotalAmount  float64 // what the buyer transfers
	SellerAmount float64 // what the seller is paid out
}

// Compute derives commission, buyer total, and seller payout from the
// agreed amount. The seller receives the full agreed amount; the commission
// is charged on top to the buyer.
func Compute(amount float64) Totals {
	amt := decimal.NewFromFloat(amount)
	commission := amt.Mul(CommissionRate).Round(2)
	total := amt.Add(commission)

	return Totals{
		Amount:       amount,
		Commission:   commission.InexactFloat64(),
		TotalAmount:  total.InexactFloat64(),
		SellerAmount: amt.InexactFloat64(),
	}
}

// NewReferenceID returns a sortable, unique payment reference.
// ULIDs order by creation time, which keeps bank-slip reconciliation lists
// in chronological order for the admin.
func NewReferenceID(now time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// QRCodeData builds the opaque QR payload the payment page renders.
// promptpay.io serves a scannable PromptPay QR image for an account and
// amount, so the client can treat the value as a plain image URL.
func QRCodeData(accountNumber string, totalAmount float64) string {
	amt := decimal.NewFromFloat(totalAmount).Round(2).InexactFloat64()
	return fmt.Sprintf("https://promptpay.io/%s/%s.png", accountNumber, strconv.FormatFloat(amt, 'f', -1, 64))
}
