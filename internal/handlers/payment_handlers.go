package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/lifecycle"
	"github.com/ricelink/ricelink-golang/internal/models"
	"github.com/ricelink/ricelink-golang/internal/pricing"
)

//
// --- Payment Handlers ---
//

// promptPayAccount is the platform account buyers transfer to. The QR on
// the payment page encodes this account plus the buyer's total.
func promptPayAccount() string {
	if acc := os.Getenv("PROMPTPAY_ACCOUNT"); acc != "" {
		return acc
	}
	return "0000000000"
}

// paymentColumns joins the funding reference (negotiation, company sale or
// auction) so every payment row carries a product name and both parties'
// contact details regardless of where it came from.
const paymentColumns = `
	pay.id, pay.negotiation_id, pay.company_sale_id, pay.auction_id,
	pay.buyer_id, pay.seller_id,
	pay.amount, pay.commission, pay.total_amount, pay.seller_amount,
	pay.status, pay.admin_verified, pay.payment_slip_url,
	pay.reference_id, pay.qr_code_data,
	pay.seller_bank_account, pay.seller_bank_name,
	pay.payment_date, pay.paid_at, pay.admin_verified_at,
	pay.received_at, pay.completed_at, pay.seller_confirmed_at,
	COALESCE(pn.name, pcs.name, a.product_name, ''),
	b.name, b.phone, COALESCE(n.buyer_address, b.address),
	s.name, s.phone, s.address,
	n.delivery_method, n.original_price`

const paymentJoins = `
	FROM payments pay
	JOIN users b ON pay.buyer_id = b.id
	JOIN users s ON pay.seller_id = s.id
	LEFT JOIN negotiations n ON pay.negotiation_id = n.id
	LEFT JOIN products pn ON n.product_id = pn.id
	LEFT JOIN company_sales cs ON pay.company_sale_id = cs.id
	LEFT JOIN products pcs ON cs.product_id = pcs.id
	LEFT JOIN auctions a ON pay.auction_id = a.id`

func scanPayment(scanner interface{ Scan(...interface{}) error }) (models.Payment, error) {
	var p models.Payment
	err := scanner.Scan(
		&p.ID, &p.NegotiationID, &p.CompanySaleID, &p.AuctionID,
		&p.BuyerID, &p.SellerID,
		&p.Amount, &p.Commission, &p.TotalAmount, &p.SellerAmount,
		&p.Status, &p.AdminVerified, &p.PaymentSlipURL,
		&p.ReferenceID, &p.QRCodeData,
		&p.SellerBankAccount, &p.SellerBankName,
		&p.PaymentDate, &p.PaidAt, &p.AdminVerifiedAt,
		&p.ReceivedAt, &p.CompletedAt, &p.SellerConfirmedAt,
		&p.ProductName,
		&p.BuyerName, &p.BuyerPhone, &p.BuyerAddress,
		&p.SellerName, &p.SellerPhone, &p.SellerAddress,
		&p.DeliveryMethod, &p.OriginalPrice,
	)
	if err == nil {
		p.FinalPrice = &p.Amount
	}
	return p, err
}

func (h *Handlers) queryPayments(c *gin.Context, where string, args ...interface{}) {
	query := "SELECT " + paymentColumns + paymentJoins + " " + where + " ORDER BY pay.payment_date DESC"
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan payment"})
			return
		}
		payments = append(payments, p)
	}

	c.JSON(http.StatusOK, payments)
}

// CreatePaymentInput is the payload for POST /api/payments/create
type CreatePaymentInput struct {
	NegotiationID int64 `json:"negotiation_id" binding:"required"`
}

// CreatePayment is the handler for POST /api/payments/create (buyer)
// Only legal once the negotiation is accepted AND delivery is resolved:
// buyer pickup, seller confirmation, or an accepted delivery price.
func (h *Handlers) CreatePayment(c *gin.Context) {
	// 1. --- Get Buyer ID & Input ---
	userID_raw, _ := c.Get("userID")
	buyerID := userID_raw.(int64)

	var input CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Begin Transaction & Lock the Negotiation ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var n struct {
		BuyerID  int64
		SellerID int64
		Proposed float64
		Counter  *float64
		Status   string
		Delivery lifecycle.DeliveryState
		Product  string
	}
	var method sql.NullString
	query := `
		SELECT n.buyer_id, n.seller_id, n.proposed_price, n.counter_price, n.status,
		       n.delivery_method, n.delivery_confirmed,
		       n.delivery_counter_price, n.delivery_price_accepted,
		       p.name
		FROM negotiations n
		JOIN products p ON n.product_id = p.id
		WHERE n.id = ?
		FOR UPDATE`
	err = tx.QueryRow(query, input.NegotiationID).Scan(
		&n.BuyerID, &n.SellerID, &n.Proposed, &n.Counter, &n.Status,
		&method, &n.Delivery.Confirmed,
		&n.Delivery.CounterPrice, &n.Delivery.PriceAccepted,
		&n.Product,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Negotiation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch negotiation"})
		return
	}
	if method.Valid {
		n.Delivery.Method = method.String
	}

	if n.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the buyer of this negotiation"})
		return
	}

	// 3. --- Lifecycle Guard ---
	if !lifecycle.PaymentReachable(n.Status, n.Delivery) {
		c.JSON(http.StatusConflict, gin.H{"error": "Delivery must be settled before payment"})
		return
	}

	// 4. --- One Payment per Negotiation ---
	var existing int64
	err = tx.QueryRow("SELECT id FROM payments WHERE negotiation_id = ?", input.NegotiationID).Scan(&existing)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A payment already exists for this negotiation", "payment_id": existing})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing payment"})
		return
	}

	// 5. --- Amount & Totals ---
	// An accepted delivery counter price already includes the goods.
	amount := lifecycle.AgreedPrice(n.Proposed, n.Counter)
	if n.Delivery.PriceAccepted && n.Delivery.CounterPrice != nil {
		amount = *n.Delivery.CounterPrice
	}
	totals := pricing.Compute(amount)

	// 6. --- Snapshot Seller Payout Details ---
	var bankAccount, bankName *string
	err = tx.QueryRow("SELECT bank_account_number, bank_name FROM users WHERE id = ?", n.SellerID).
		Scan(&bankAccount, &bankName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch seller payout details"})
		return
	}

	// 7. --- Insert Payment ---
	now := time.Now()
	referenceID := pricing.NewReferenceID(now)
	qrData := pricing.QRCodeData(promptPayAccount(), totals.TotalAmount)

	insert := `
		INSERT INTO payments
			(negotiation_id, buyer_id, seller_id,
			 amount, commission, total_amount, seller_amount,
			 status, admin_verified, reference_id, qr_code_data,
			 seller_bank_account, seller_bank_name, payment_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', FALSE, ?, ?, ?, ?, ?)`
	result, err := tx.Exec(insert,
		input.NegotiationID, n.BuyerID, n.SellerID,
		totals.Amount, totals.Commission, totals.TotalAmount, totals.SellerAmount,
		referenceID, qrData, bankAccount, bankName, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		return
	}
	paymentID, _ := result.LastInsertId()

	h.AddNotification(tx, n.SellerID,
		fmt.Sprintf("The buyer started payment for %s (฿%.2f)", n.Product, totals.Amount),
		"/payments")

	// 8. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Payment created",
		"payment_id":   paymentID,
		"reference_id": referenceID,
		"amount":       totals.Amount,
		"commission":   totals.Commission,
		"total_amount": totals.TotalAmount,
		"qr_code_data": qrData,
	})
}

// GetPaymentByNegotiation is the handler for GET /api/payments/negotiation/:id
// Returns 404 when no payment exists yet, which the client uses as the
// signal to create one.
func (h *Handlers) GetPaymentByNegotiation(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	negotiationID := c.Param("id")

	query := "SELECT " + paymentColumns + paymentJoins + `
		WHERE pay.negotiation_id = ? AND (pay.buyer_id = ? OR pay.seller_id = ?)`
	p, err := scanPayment(h.DB.QueryRow(query, negotiationID, userID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "No payment for this negotiation"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// paymentRow is the locked snapshot the transition handlers work on.
type paymentRow struct {
	ID            int64
	NegotiationID *int64
	BuyerID       int64
	SellerID      int64
	SellerAmount  float64
	Status        string
	AdminVerified bool
	ReferenceID   string
}

func lockPayment(tx *sql.Tx, c *gin.Context, paymentID string) (*paymentRow, bool) {
	var p paymentRow
	query := `
		SELECT id, negotiation_id, buyer_id, seller_id, seller_amount,
		       status, admin_verified, reference_id
		FROM payments WHERE id = ? FOR UPDATE`
	err := tx.QueryRow(query, paymentID).Scan(
		&p.ID, &p.NegotiationID, &p.BuyerID, &p.SellerID, &p.SellerAmount,
		&p.Status, &p.AdminVerified, &p.ReferenceID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment"})
		return nil, false
	}
	return &p, true
}

// MarkPaidInput is the payload for PUT /api/payments/:id/paid
type MarkPaidInput struct {
	PaymentSlipURL string `json:"payment_slip_url" binding:"required"`
}

// MarkPaymentPaid is the handler for PUT /api/payments/:id/paid (buyer)
func (h *Handlers) MarkPaymentPaid(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input MarkPaidInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	p, ok := lockPayment(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if p.BuyerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the buyer of this payment"})
		return
	}
	if err := lifecycle.CanMarkPaid(p.Status, lifecycle.RoleBuyer, input.PaymentSlipURL); err != nil {
		lifecycleError(c, err)
		return
	}

	now := time.Now()
	_, err = tx.Exec(
		"UPDATE payments SET status = 'paid', payment_slip_url = ?, paid_at = ? WHERE id = ?",
		input.PaymentSlipURL, now, p.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
		return
	}

	// Admins review slips from the verification queue; notify all of them.
	h.notifyAdmins(tx, fmt.Sprintf("Payment %s awaits slip verification", p.ReferenceID), "/admin/payments")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment slip submitted"})
}

// VerifyPayment is the handler for PUT /api/payments/:id/verify (admin)
// Confirms the bank transfer arrived; moves the order to 'delivering' and
// opens the chat between the two parties.
func (h *Handlers) VerifyPayment(c *gin.Context) {
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	p, ok := lockPayment(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if err := lifecycle.CanVerify(p.Status, lifecycle.RoleAdmin); err != nil {
		lifecycleError(c, err)
		return
	}

	now := time.Now()
	_, err = tx.Exec(
		"UPDATE payments SET status = 'delivering', admin_verified = TRUE, admin_verified_at = ? WHERE id = ?",
		now, p.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
		return
	}

	h.AddNotification(tx, p.SellerID,
		fmt.Sprintf("Payment %s verified. Please deliver the goods.", p.ReferenceID), "/deliveries")
	h.AddNotification(tx, p.BuyerID,
		fmt.Sprintf("Payment %s verified. The chat with your seller is now open.", p.ReferenceID), "/payments")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment verified"})
}

// ConfirmReceived is the handler for PUT /api/payments/:id/received (buyer)
func (h *Handlers) ConfirmReceived(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	p, ok := lockPayment(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if p.BuyerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the buyer of this payment"})
		return
	}
	if err := lifecycle.CanConfirmReceived(p.Status, lifecycle.RoleBuyer); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec("UPDATE payments SET status = 'received', received_at = ? WHERE id = ?", time.Now(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
		return
	}

	h.notifyAdmins(tx, fmt.Sprintf("Goods received for payment %s; ready for payout", p.ReferenceID), "/admin/payments")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Receipt confirmed"})
}

// CompletePayment is the handler for PUT /api/payments/:id/complete (admin)
// Closes the sale: the seller is paid out and the chat becomes read-only.
func (h *Handlers) CompletePayment(c *gin.Context) {
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	p, ok := lockPayment(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if err := lifecycle.CanComplete(p.Status, lifecycle.RoleAdmin); err != nil {
		lifecycleError(c, err)
		return
	}

	now := time.Now()
	_, err = tx.Exec("UPDATE payments SET status = 'completed', completed_at = ? WHERE id = ?", now, p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
		return
	}

	// The product stays sold for good once the sale completes.
	if p.NegotiationID != nil {
		_, err = tx.Exec(`
			UPDATE products SET status = 'sold', updated_at = ?
			WHERE id = (SELECT product_id FROM negotiations WHERE id = ?)`,
			now, *p.NegotiationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product status"})
			return
		}
	}

	h.AddNotification(tx, p.SellerID,
		fmt.Sprintf("Sale complete. ฿%.2f has been transferred to your bank account (ref %s).", p.SellerAmount, p.ReferenceID),
		"/payments")
	h.AddNotification(tx, p.BuyerID,
		fmt.Sprintf("Order %s is complete. Thank you!", p.ReferenceID),
		"/payments")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment completed, seller paid out"})
}

// SellerConfirmPayout is the handler for PUT /api/payments/:id/confirm (seller)
// The seller acknowledges the payout arrived. Records a timestamp only;
// 'completed' stays the terminal status.
func (h *Handlers) SellerConfirmPayout(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	p, ok := lockPayment(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if p.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the seller of this payment"})
		return
	}
	if p.Status != lifecycle.PaymentCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Payout can only be confirmed on a completed payment"})
		return
	}

	_, err = tx.Exec("UPDATE payments SET seller_confirmed_at = ? WHERE id = ?", time.Now(), p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payout confirmed"})
}

// CancelPayment is the handler for PUT /api/payments/:id/cancel (buyer)
// Only a pending payment can be cancelled; the product goes back on the
// market.
func (h *Handlers) CancelPayment(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	p, ok := lockPayment(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if p.BuyerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the buyer of this payment"})
		return
	}
	if err := lifecycle.CanCancel(p.Status); err != nil {
		lifecycleError(c, err)
		return
	}

	now := time.Now()
	_, err = tx.Exec("UPDATE payments SET status = 'cancelled' WHERE id = ?", p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
		return
	}

	if p.NegotiationID != nil {
		_, err = tx.Exec(`
			UPDATE products SET status = 'available', updated_at = ?
			WHERE id = (SELECT product_id FROM negotiations WHERE id = ?)`,
			now, *p.NegotiationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release product"})
			return
		}
	}

	h.AddNotification(tx, p.SellerID,
		fmt.Sprintf("Payment %s was cancelled by the buyer; the listing is available again", p.ReferenceID),
		"/payments")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment cancelled"})
}

// GetMyPayments is the handler for GET /api/payments/my-payments (buyer)
func (h *Handlers) GetMyPayments(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	h.queryPayments(c, "WHERE pay.buyer_id = ?", userID)
}

// GetSellerDeliveries is the handler for GET /api/payments/seller/deliveries (seller)
// Verified orders the seller has to fulfill, plus their further progress.
func (h *Handlers) GetSellerDeliveries(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	h.queryPayments(c, "WHERE pay.seller_id = ? AND pay.admin_verified = TRUE", userID)
}

// GetAllPayments is the handler for GET /api/payments/admin/all (admin)
func (h *Handlers) GetAllPayments(c *gin.Context) {
	h.queryPayments(c, "")
}

// GetReceivedPayments is the handler for GET /api/payments/admin/received (admin)
// The payout queue: buyer confirmed receipt, seller not yet paid.
func (h *Handlers) GetReceivedPayments(c *gin.Context) {
	h.queryPayments(c, "WHERE pay.status = 'received'")
}

// notifyAdmins fans a notification out to every admin account.
func (h *Handlers) notifyAdmins(tx *sql.Tx, message, link string) {
	rows, err := tx.Query("SELECT id FROM users WHERE role = 'admin'")
	if err != nil {
		return
	}
	defer rows.Close()

	var adminIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err == nil {
			adminIDs = append(adminIDs, id)
		}
	}
	for _, id := range adminIDs {
		h.AddNotification(tx, id, message, link)
	}
}
