package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/lifecycle"
	"github.com/ricelink/ricelink-golang/internal/models"
)

//
// --- Negotiation Handlers ---
//

// lifecycleError maps a guard error to the right HTTP status.
func lifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to perform this action"})
	case errors.Is(err, lifecycle.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// GetMyNegotiations is the handler for GET /api/negotiations
// Returns the caller's negotiations from either side of the table.
func (h *Handlers) GetMyNegotiations(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	query := `
		SELECT n.id, n.product_id, n.buyer_id, n.seller_id,
		       n.original_price, n.proposed_price, n.counter_price, n.status,
		       n.delivery_method, n.buyer_address, n.delivery_confirmed,
		       n.delivery_counter_price, n.delivery_price_accepted,
		       n.created_at, n.updated_at,
		       p.name, b.name, s.name
		FROM negotiations n
		JOIN products p ON n.product_id = p.id
		JOIN users b ON n.buyer_id = b.id
		JOIN users s ON n.seller_id = s.id
		WHERE n.buyer_id = ? OR n.seller_id = ?
		ORDER BY n.updated_at DESC`

	rows, err := h.DB.Query(query, userID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch negotiations"})
		return
	}
	defer rows.Close()

	negotiations := []models.Negotiation{}
	for rows.Next() {
		var n models.Negotiation
		if err := rows.Scan(
			&n.ID, &n.ProductID, &n.BuyerID, &n.SellerID,
			&n.OriginalPrice, &n.ProposedPrice, &n.CounterPrice, &n.Status,
			&n.DeliveryMethod, &n.BuyerAddress, &n.DeliveryConfirmed,
			&n.DeliveryCounterPrice, &n.DeliveryPriceAccepted,
			&n.CreatedAt, &n.UpdatedAt,
			&n.ProductName, &n.BuyerName, &n.SellerName,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan negotiation"})
			return
		}
		negotiations = append(negotiations, n)
	}

	c.JSON(http.StatusOK, negotiations)
}

// CreateNegotiationInput is the payload for POST /api/negotiations.
// buy_now lets the buyer open a thread at exactly the listed price (the
// product page then accepts it in the same flow).
type CreateNegotiationInput struct {
	ProductID     int64   `json:"product_id" binding:"required"`
	ProposedPrice float64 `json:"proposed_price" binding:"required"`
	BuyNow        bool    `json:"buy_now"`
}

// CreateNegotiation is the handler for POST /api/negotiations (buyer)
func (h *Handlers) CreateNegotiation(c *gin.Context) {
	// 1. --- Get Buyer ID & Input ---
	userID_raw, _ := c.Get("userID")
	buyerID := userID_raw.(int64)

	var input CreateNegotiationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Begin Transaction & Lock the Product ---
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var sellerID int64
	var listPrice float64
	var productStatus, productName string
	query := "SELECT seller_id, price, status, name FROM products WHERE id = ? FOR UPDATE"
	err = tx.QueryRow(query, input.ProductID).Scan(&sellerID, &listPrice, &productStatus, &productName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	if sellerID == buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot negotiate on your own product"})
		return
	}

	// 3. --- Lifecycle Guard ---
	if err := lifecycle.CanCreateNegotiation(productStatus, listPrice, input.ProposedPrice, input.BuyNow); err != nil {
		lifecycleError(c, err)
		return
	}

	// 4. --- Insert ---
	now := time.Now()
	insert := `
		INSERT INTO negotiations
			(product_id, buyer_id, seller_id, original_price, proposed_price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`
	result, err := tx.Exec(insert, input.ProductID, buyerID, sellerID, listPrice, input.ProposedPrice, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create negotiation"})
		return
	}
	negotiationID, _ := result.LastInsertId()

	// 5. --- Notify the Seller ---
	h.AddNotification(tx, sellerID,
		fmt.Sprintf("New price offer of ฿%.2f on %s", input.ProposedPrice, productName),
		"/negotiations")

	// 6. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Offer submitted",
		"negotiation_id": negotiationID,
	})
}

// negotiationRow is the locked snapshot the transition handlers work on.
type negotiationRow struct {
	ID          int64
	ProductID   int64
	BuyerID     int64
	SellerID    int64
	Proposed    float64
	Counter     *float64
	Status      string
	Delivery    lifecycle.DeliveryState
	ProductName string
}

// lockNegotiation fetches and row-locks a negotiation, verifying the caller
// is one of its two parties. Returns the caller's role in this thread.
func lockNegotiation(tx *sql.Tx, c *gin.Context, negotiationID string, userID int64) (*negotiationRow, string, bool) {
	var n negotiationRow
	var method sql.NullString
	query := `
		SELECT n.id, n.product_id, n.buyer_id, n.seller_id,
		       n.proposed_price, n.counter_price, n.status,
		       n.delivery_method, n.delivery_confirmed,
		       n.delivery_counter_price, n.delivery_price_accepted,
		       p.name
		FROM negotiations n
		JOIN products p ON n.product_id = p.id
		WHERE n.id = ?
		FOR UPDATE`
	err := tx.QueryRow(query, negotiationID).Scan(
		&n.ID, &n.ProductID, &n.BuyerID, &n.SellerID,
		&n.Proposed, &n.Counter, &n.Status,
		&method, &n.Delivery.Confirmed,
		&n.Delivery.CounterPrice, &n.Delivery.PriceAccepted,
		&n.ProductName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Negotiation not found"})
			return nil, "", false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch negotiation"})
		return nil, "", false
	}
	if method.Valid {
		n.Delivery.Method = method.String
	}

	switch userID {
	case n.BuyerID:
		return &n, lifecycle.RoleBuyer, true
	case n.SellerID:
		return &n, lifecycle.RoleSeller, true
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not part of this negotiation"})
		return nil, "", false
	}
}

// CounterInput is the payload for PUT /api/negotiations/:id/counter
type CounterInput struct {
	CounterPrice float64 `json:"counter_price" binding:"required,gt=0"`
}

// CounterNegotiation is the handler for PUT /api/negotiations/:id/counter (seller)
func (h *Handlers) CounterNegotiation(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input CounterInput
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

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if err := lifecycle.CanCounter(n.Status, role); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(
		"UPDATE negotiations SET counter_price = ?, status = 'countered', updated_at = ? WHERE id = ?",
		input.CounterPrice, time.Now(), n.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}

	h.AddNotification(tx, n.BuyerID,
		fmt.Sprintf("The seller countered with ฿%.2f on %s", input.CounterPrice, n.ProductName),
		"/negotiations")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Counter offer sent"})
}

// AcceptNegotiation is the handler for PUT /api/negotiations/:id/accept
// The seller accepts a pending offer; the buyer accepts a counter. A buyer
// may also accept their own pending buy-now offer (proposed == list price).
func (h *Handlers) AcceptNegotiation(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if err := lifecycle.CanAccept(n.Status, role); err != nil {
		lifecycleError(c, err)
		return
	}

	// A buyer accepting a 'pending' offer is only legal on the buy-now
	// path, where the proposed price equals the listed price.
	if n.Status == lifecycle.NegotiationPending && role == lifecycle.RoleBuyer {
		var listPrice float64
		if err := tx.QueryRow("SELECT price FROM products WHERE id = ?", n.ProductID).Scan(&listPrice); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
			return
		}
		if n.Proposed != listPrice {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the seller can accept this offer"})
			return
		}
	}

	now := time.Now()
	_, err = tx.Exec("UPDATE negotiations SET status = 'accepted', updated_at = ? WHERE id = ?", now, n.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}

	// Take the product off the market while the order runs its course.
	// It returns to 'available' if delivery talks fall apart or the
	// payment is cancelled.
	_, err = tx.Exec("UPDATE products SET status = 'sold', updated_at = ? WHERE id = ?", now, n.ProductID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product status"})
		return
	}

	agreed := lifecycle.AgreedPrice(n.Proposed, n.Counter)
	other := n.BuyerID
	if role == lifecycle.RoleBuyer {
		other = n.SellerID
	}
	h.AddNotification(tx, other,
		fmt.Sprintf("Offer accepted at ฿%.2f for %s. Choose a delivery method to continue.", agreed, n.ProductName),
		"/negotiations")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Offer accepted",
		"agreed_price": agreed,
	})
}

// RejectNegotiation is the handler for PUT /api/negotiations/:id/reject
func (h *Handlers) RejectNegotiation(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if err := lifecycle.CanReject(n.Status); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec("UPDATE negotiations SET status = 'rejected', updated_at = ? WHERE id = ?", time.Now(), n.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}

	other := n.BuyerID
	if role == lifecycle.RoleBuyer {
		other = n.SellerID
	}
	h.AddNotification(tx, other,
		fmt.Sprintf("The offer on %s was declined", n.ProductName),
		"/negotiations")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Offer rejected"})
}

//
// --- Delivery Sub-Flow Handlers ---
//

// DeliveryMethodInput is the payload for PUT /api/negotiations/:id/delivery-method
type DeliveryMethodInput struct {
	DeliveryMethod string `json:"delivery_method" binding:"required"`
	BuyerAddress   string `json:"buyer_address"`
}

// SetDeliveryMethod is the handler for PUT /api/negotiations/:id/delivery-method (buyer)
func (h *Handlers) SetDeliveryMethod(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input DeliveryMethodInput
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

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if role != lifecycle.RoleBuyer {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the buyer chooses the delivery method"})
		return
	}
	if err := lifecycle.CanSetDeliveryMethod(n.Status, n.Delivery, input.DeliveryMethod, input.BuyerAddress); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(
		"UPDATE negotiations SET delivery_method = ?, buyer_address = ?, updated_at = ? WHERE id = ?",
		input.DeliveryMethod, nullIfEmpty(input.BuyerAddress), time.Now(), n.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}

	if input.DeliveryMethod == lifecycle.DeliverySellerDelivery {
		h.AddNotification(tx, n.SellerID,
			fmt.Sprintf("The buyer requested delivery for %s. Confirm or propose a delivery price.", n.ProductName),
			"/negotiations")
	} else {
		h.AddNotification(tx, n.SellerID,
			fmt.Sprintf("The buyer will pick up %s", n.ProductName),
			"/negotiations")
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Delivery method set"})
}

// ConfirmDelivery is the handler for PUT /api/negotiations/:id/confirm-delivery (seller)
// The seller agrees to deliver at the agreed price, no extra charge.
func (h *Handlers) ConfirmDelivery(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if role != lifecycle.RoleSeller {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the seller can confirm delivery"})
		return
	}
	if err := lifecycle.CanConfirmDelivery(n.Delivery); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(
		"UPDATE negotiations SET delivery_confirmed = TRUE, updated_at = ? WHERE id = ?",
		time.Now(), n.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}

	h.AddNotification(tx, n.BuyerID,
		fmt.Sprintf("Delivery confirmed for %s. You can proceed to payment.", n.ProductName),
		"/negotiations")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Delivery confirmed"})
}

// DeliveryCounterInput is the payload for both delivery counter endpoints.
// The value is the NEW TOTAL including delivery, not a delta.
type DeliveryCounterInput struct {
	DeliveryCounterPrice float64 `json:"delivery_counter_price" binding:"required"`
}

// counterDeliveryPrice is shared by the seller and buyer counter endpoints;
// the loop has no round limit, it ends when one side accepts or rejects.
func (h *Handlers) counterDeliveryPrice(c *gin.Context, requiredRole string) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input DeliveryCounterInput
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

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if role != requiredRole {
		c.JSON(http.StatusForbidden, gin.H{"error": "Wrong side of the negotiation for this endpoint"})
		return
	}
	if err := lifecycle.CanCounterDeliveryPrice(n.Delivery, input.DeliveryCounterPrice); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(
		"UPDATE negotiations SET delivery_counter_price = ?, updated_at = ? WHERE id = ?",
		input.DeliveryCounterPrice, time.Now(), n.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}

	other := n.BuyerID
	if role == lifecycle.RoleBuyer {
		other = n.SellerID
	}
	h.AddNotification(tx, other,
		fmt.Sprintf("New total of ฿%.2f including delivery proposed for %s", input.DeliveryCounterPrice, n.ProductName),
		"/negotiations")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Delivery price proposed"})
}

// CounterDeliveryPrice is the handler for PUT /api/negotiations/:id/counter-delivery-price (seller)
func (h *Handlers) CounterDeliveryPrice(c *gin.Context) {
	h.counterDeliveryPrice(c, lifecycle.RoleSeller)
}

// BuyerCounterDeliveryPrice is the handler for PUT /api/negotiations/:id/buyer-counter-delivery-price (buyer)
func (h *Handlers) BuyerCounterDeliveryPrice(c *gin.Context) {
	h.counterDeliveryPrice(c, lifecycle.RoleBuyer)
}

// AcceptDeliveryPrice is the handler for PUT /api/negotiations/:id/accept-delivery-price (buyer)
func (h *Handlers) AcceptDeliveryPrice(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if role != lifecycle.RoleBuyer {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the buyer accepts the delivery price"})
		return
	}
	if err := lifecycle.CanAcceptDeliveryPrice(n.Delivery); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(
		"UPDATE negotiations SET delivery_price_accepted = TRUE, updated_at = ? WHERE id = ?",
		time.Now(), n.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}

	h.AddNotification(tx, n.SellerID,
		fmt.Sprintf("The buyer accepted the delivery price for %s", n.ProductName),
		"/negotiations")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Delivery price accepted"})
}

// rejectDelivery abandons the delivery talks and releases the product back
// to the market. The negotiation itself moves to 'rejected'.
func (h *Handlers) rejectDelivery(c *gin.Context, requiredRole string) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	n, role, ok := lockNegotiation(tx, c, c.Param("id"), userID)
	if !ok {
		return
	}
	if role != requiredRole {
		c.JSON(http.StatusForbidden, gin.H{"error": "Wrong side of the negotiation for this endpoint"})
		return
	}
	if err := lifecycle.CanRejectDelivery(n.Delivery); err != nil {
		lifecycleError(c, err)
		return
	}

	now := time.Now()
	_, err = tx.Exec("UPDATE negotiations SET status = 'rejected', updated_at = ? WHERE id = ?", now, n.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update negotiation"})
		return
	}
	_, err = tx.Exec("UPDATE products SET status = 'available', updated_at = ? WHERE id = ?", now, n.ProductID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release product"})
		return
	}

	other := n.BuyerID
	if role == lifecycle.RoleBuyer {
		other = n.SellerID
	}
	h.AddNotification(tx, other,
		fmt.Sprintf("Delivery could not be agreed for %s; the listing is available again", n.ProductName),
		"/negotiations")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Delivery rejected, product released"})
}

// RejectDelivery is the handler for PUT /api/negotiations/:id/reject-delivery (seller)
func (h *Handlers) RejectDelivery(c *gin.Context) {
	h.rejectDelivery(c, lifecycle.RoleSeller)
}

// BuyerRejectDelivery is the handler for PUT /api/negotiations/:id/buyer-reject-delivery (buyer)
func (h *Handlers) BuyerRejectDelivery(c *gin.Context) {
	h.rejectDelivery(c, lifecycle.RoleBuyer)
}
