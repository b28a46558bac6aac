package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/lifecycle"
	"github.com/ricelink/ricelink-golang/internal/models"
	"github.com/ricelink/ricelink-golang/internal/pricing"
)

//
// --- Company Sale Handlers ---
//
// A company sale is a seller offering stock directly to the platform
// operator. The admin negotiates on the company's behalf; approval leads
// into the same payout tail as a regular sale, with the company as buyer.
//

const companySaleColumns = `
	cs.id, cs.product_id, cs.seller_id, cs.status, cs.negotiation_status,
	cs.price_per_unit, cs.admin_counter_price_per_unit, cs.seller_counter_price_per_unit,
	cs.agreed_price_per_unit, cs.admin_note, cs.created_at, cs.updated_at,
	p.name, p.quantity, p.unit, u.name, u.phone`

const companySaleJoins = `
	FROM company_sales cs
	JOIN products p ON cs.product_id = p.id
	JOIN users u ON cs.seller_id = u.id`

func scanCompanySale(scanner interface{ Scan(...interface{}) error }) (models.CompanySale, error) {
	var s models.CompanySale
	err := scanner.Scan(
		&s.ID, &s.ProductID, &s.SellerID, &s.Status, &s.NegotiationStatus,
		&s.PricePerUnit, &s.AdminCounterPricePerUnit, &s.SellerCounterPricePerUnit,
		&s.AgreedPricePerUnit, &s.AdminNote, &s.CreatedAt, &s.UpdatedAt,
		&s.ProductName, &s.Quantity, &s.Unit, &s.SellerName, &s.SellerPhone,
	)
	if err != nil {
		return s, err
	}

	// Derived totals the sale screens display (price x quantity).
	s.TotalPrice = s.PricePerUnit * s.Quantity
	if s.AdminCounterPricePerUnit != nil {
		t := *s.AdminCounterPricePerUnit * s.Quantity
		s.AdminCounterTotalPrice = &t
	}
	if s.SellerCounterPricePerUnit != nil {
		t := *s.SellerCounterPricePerUnit * s.Quantity
		s.SellerCounterTotalPrice = &t
	}
	return s, nil
}

func (h *Handlers) queryCompanySales(c *gin.Context, where string, args ...interface{}) {
	query := "SELECT " + companySaleColumns + companySaleJoins + " " + where + " ORDER BY cs.updated_at DESC"
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch company sales"})
		return
	}
	defer rows.Close()

	sales := []models.CompanySale{}
	for rows.Next() {
		s, err := scanCompanySale(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan company sale"})
			return
		}
		sales = append(sales, s)
	}

	c.JSON(http.StatusOK, sales)
}

// CreateCompanySaleInput is the payload for POST /api/company-sales.
// The asking price is the product's listed price.
type CreateCompanySaleInput struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// CreateCompanySale is the handler for POST /api/company-sales (seller)
func (h *Handlers) CreateCompanySale(c *gin.Context) {
	// 1. --- Get Seller ID & Input ---
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	var input CreateCompanySaleInput
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

	var ownerID int64
	var price float64
	var status, name string
	err = tx.QueryRow("SELECT seller_id, price, status, name FROM products WHERE id = ? FOR UPDATE", input.ProductID).
		Scan(&ownerID, &price, &status, &name)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}
	if ownerID != sellerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this product"})
		return
	}
	if status != lifecycle.ProductAvailable {
		c.JSON(http.StatusConflict, gin.H{"error": "Product is not available"})
		return
	}

	// One open offer per product.
	var openCount int
	err = tx.QueryRow(
		"SELECT COUNT(*) FROM company_sales WHERE product_id = ? AND status IN ('pending', 'negotiating', 'approved')",
		input.ProductID,
	).Scan(&openCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing offers"})
		return
	}
	if openCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "An open offer already exists for this product"})
		return
	}

	// 3. --- Insert ---
	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO company_sales (product_id, seller_id, status, price_per_unit, created_at, updated_at)
		VALUES (?, ?, 'pending', ?, ?, ?)`,
		input.ProductID, sellerID, price, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create company sale"})
		return
	}
	saleID, _ := result.LastInsertId()

	h.notifyAdmins(tx, fmt.Sprintf("New company sale offer: %s at ฿%.2f/unit", name, price), "/admin")

	// 4. --- Commit ---
	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Offer submitted to the company",
		"sale_id": saleID,
	})
}

// GetMyCompanySales is the handler for GET /api/company-sales (seller)
func (h *Handlers) GetMyCompanySales(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)
	h.queryCompanySales(c, "WHERE cs.seller_id = ?", sellerID)
}

// GetAllCompanySales is the handler for GET /api/admin/company-sales (admin)
func (h *Handlers) GetAllCompanySales(c *gin.Context) {
	h.queryCompanySales(c, "WHERE cs.status IN ('pending', 'negotiating')")
}

// GetApprovedCompanySales is the handler for GET /api/admin/company-sales/approved (admin)
// The close-out queue: approved, waiting for the payout.
func (h *Handlers) GetApprovedCompanySales(c *gin.Context) {
	h.queryCompanySales(c, "WHERE cs.status = 'approved'")
}

// companySaleRow is the locked snapshot the transition handlers work on.
type companySaleRow struct {
	ID                int64
	ProductID         int64
	SellerID          int64
	Status            string
	NegotiationStatus *string
	PricePerUnit      float64
	AdminCounter      *float64
	SellerCounter     *float64
	ProductName       string
	Quantity          float64
}

func lockCompanySale(tx *sql.Tx, c *gin.Context, saleID string) (*companySaleRow, bool) {
	var s companySaleRow
	query := `
		SELECT cs.id, cs.product_id, cs.seller_id, cs.status, cs.negotiation_status,
		       cs.price_per_unit, cs.admin_counter_price_per_unit, cs.seller_counter_price_per_unit,
		       p.name, p.quantity
		FROM company_sales cs
		JOIN products p ON cs.product_id = p.id
		WHERE cs.id = ?
		FOR UPDATE`
	err := tx.QueryRow(query, saleID).Scan(
		&s.ID, &s.ProductID, &s.SellerID, &s.Status, &s.NegotiationStatus,
		&s.PricePerUnit, &s.AdminCounter, &s.SellerCounter,
		&s.ProductName, &s.Quantity,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company sale not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch company sale"})
		return nil, false
	}
	return &s, true
}

// SaleCounterInput is the price payload for both counter endpoints.
type SaleCounterInput struct {
	PricePerUnit float64 `json:"price_per_unit" binding:"required,gt=0"`
	Note         string  `json:"note"`
}

// SaleNoteInput carries the optional admin note on approve/reject/accept.
type SaleNoteInput struct {
	Note string `json:"note"`
}

// AdminCounterOffer is the handler for PUT /api/admin/company-sales/:id/counter-offer (admin)
// Opens (or continues) the negotiation with a company price.
func (h *Handlers) AdminCounterOffer(c *gin.Context) {
	var input SaleCounterInput
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

	s, ok := lockCompanySale(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if err := lifecycle.CanAdminOpenNegotiation(s.Status, s.NegotiationStatus); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(`
		UPDATE company_sales
		SET status = 'negotiating', negotiation_status = 'admin_offered',
		    admin_counter_price_per_unit = ?, admin_note = ?, updated_at = ?
		WHERE id = ?`,
		input.PricePerUnit, nullIfEmpty(input.Note), time.Now(), s.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company sale"})
		return
	}

	h.AddNotification(tx, s.SellerID,
		fmt.Sprintf("The company offered ฿%.2f/unit for %s", input.PricePerUnit, s.ProductName),
		"/company-sales")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Counter offer sent to the seller"})
}

// SellerCounterOffer is the handler for PUT /api/company-sales/:id/counter-offer (seller)
func (h *Handlers) SellerCounterOffer(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	var input SaleCounterInput
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

	s, ok := lockCompanySale(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if s.SellerID != sellerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This is not your sale offer"})
		return
	}
	if err := lifecycle.CanSellerCounterSale(s.Status, s.NegotiationStatus); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(`
		UPDATE company_sales
		SET negotiation_status = 'seller_countered', seller_counter_price_per_unit = ?, updated_at = ?
		WHERE id = ?`,
		input.PricePerUnit, time.Now(), s.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company sale"})
		return
	}

	h.notifyAdmins(tx,
		fmt.Sprintf("Seller countered with ฿%.2f/unit on %s", input.PricePerUnit, s.ProductName),
		"/admin")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Counter offer sent to the company"})
}

// approveSale settles a sale at the given price per unit: status approved,
// product reserved, seller notified.
func (h *Handlers) approveSale(tx *sql.Tx, s *companySaleRow, agreedPrice float64, note string) error {
	now := time.Now()
	_, err := tx.Exec(`
		UPDATE company_sales
		SET status = 'approved', agreed_price_per_unit = ?, admin_note = COALESCE(?, admin_note), updated_at = ?
		WHERE id = ?`,
		agreedPrice, nullIfEmpty(note), now, s.ID,
	)
	if err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE products SET status = 'sold', updated_at = ? WHERE id = ?", now, s.ProductID); err != nil {
		return err
	}
	h.AddNotification(tx, s.SellerID,
		fmt.Sprintf("The company will buy %s at ฿%.2f/unit (total ฿%.2f)",
			s.ProductName, agreedPrice, agreedPrice*s.Quantity),
		"/company-sales")
	return nil
}

// AcceptAdminOffer is the handler for PUT /api/company-sales/:id/accept-admin-offer (seller)
func (h *Handlers) AcceptAdminOffer(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	s, ok := lockCompanySale(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if s.SellerID != sellerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This is not your sale offer"})
		return
	}
	if err := lifecycle.CanAcceptAdminOffer(s.Status, s.NegotiationStatus); err != nil {
		lifecycleError(c, err)
		return
	}

	if err := h.approveSale(tx, s, *s.AdminCounter, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company sale"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Offer accepted"})
}

// AcceptSellerCounter is the handler for PUT /api/admin/company-sales/:id/accept-seller-counter (admin)
func (h *Handlers) AcceptSellerCounter(c *gin.Context) {
	var input SaleNoteInput
	c.ShouldBindJSON(&input)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	s, ok := lockCompanySale(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if err := lifecycle.CanAcceptSellerCounter(s.Status, s.NegotiationStatus); err != nil {
		lifecycleError(c, err)
		return
	}

	if err := h.approveSale(tx, s, *s.SellerCounter, input.Note); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company sale"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Seller's counter accepted"})
}

// ApproveCompanySale is the handler for PUT /api/admin/company-sales/:id/approve (admin)
// Approves at the seller's asking price without a negotiation round.
func (h *Handlers) ApproveCompanySale(c *gin.Context) {
	var input SaleNoteInput
	c.ShouldBindJSON(&input)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	s, ok := lockCompanySale(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if err := lifecycle.CanApproveSale(s.Status); err != nil {
		lifecycleError(c, err)
		return
	}

	if err := h.approveSale(tx, s, s.PricePerUnit, input.Note); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company sale"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Company sale approved"})
}

// RejectCompanySale is the handler for PUT /api/admin/company-sales/:id/reject (admin)
func (h *Handlers) RejectCompanySale(c *gin.Context) {
	var input SaleNoteInput
	c.ShouldBindJSON(&input)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	s, ok := lockCompanySale(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if err := lifecycle.CanRejectSale(s.Status); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(`
		UPDATE company_sales
		SET status = 'rejected', admin_note = COALESCE(?, admin_note), updated_at = ?
		WHERE id = ?`,
		nullIfEmpty(input.Note), time.Now(), s.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company sale"})
		return
	}

	h.AddNotification(tx, s.SellerID,
		fmt.Sprintf("The company declined your offer on %s", s.ProductName),
		"/company-sales")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Company sale rejected"})
}

// CompleteSalePayment is the handler for PUT /api/admin/company-sales/:id/complete-payment (admin)
// Records the payout to the seller: a completed payment row is written with
// the company as buyer, and the sale closes.
func (h *Handlers) CompleteSalePayment(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	adminID := userID_raw.(int64)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	s, ok := lockCompanySale(tx, c, c.Param("id"))
	if !ok {
		return
	}
	if err := lifecycle.CanCompleteSalePayment(s.Status); err != nil {
		lifecycleError(c, err)
		return
	}

	var agreed *float64
	err = tx.QueryRow("SELECT agreed_price_per_unit FROM company_sales WHERE id = ?", s.ID).Scan(&agreed)
	if err != nil || agreed == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Approved sale has no agreed price"})
		return
	}
	amount := *agreed * s.Quantity

	// The company buys at the agreed price; no commission on its own
	// purchases.
	var bankAccount, bankName *string
	err = tx.QueryRow("SELECT bank_account_number, bank_name FROM users WHERE id = ?", s.SellerID).
		Scan(&bankAccount, &bankName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch seller payout details"})
		return
	}

	now := time.Now()
	referenceID := pricing.NewReferenceID(now)
	_, err = tx.Exec(`
		INSERT INTO payments
			(company_sale_id, buyer_id, seller_id,
			 amount, commission, total_amount, seller_amount,
			 status, admin_verified, reference_id, qr_code_data,
			 seller_bank_account, seller_bank_name,
			 payment_date, completed_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, 'completed', TRUE, ?, '', ?, ?, ?, ?)`,
		s.ID, adminID, s.SellerID,
		amount, amount, amount,
		referenceID, bankAccount, bankName, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payout"})
		return
	}

	_, err = tx.Exec("UPDATE company_sales SET status = 'completed', updated_at = ? WHERE id = ?", now, s.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company sale"})
		return
	}

	h.AddNotification(tx, s.SellerID,
		fmt.Sprintf("฿%.2f for %s has been transferred to your bank account (ref %s)", amount, s.ProductName, referenceID),
		"/company-sales")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Payout recorded, sale completed",
		"reference_id": referenceID,
		"amount":       amount,
	})
}
