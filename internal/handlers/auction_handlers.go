package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/lifecycle"
	"github.com/ricelink/ricelink-golang/internal/models"
	"github.com/ricelink/ricelink-golang/internal/pricing"
)

//
// --- Auction Handlers ---
//

const auctionColumns = `
	a.id, a.seller_id, a.product_name, a.description,
	a.starting_price, a.min_increment, a.duration_hours,
	a.status, a.current_bid, a.highest_bidder_id, a.end_time, a.winner_id,
	a.reject_reason, a.created_at, a.updated_at,
	s.name, COALESCE(hb.name, '')`

const auctionJoins = `
	FROM auctions a
	JOIN users s ON a.seller_id = s.id
	LEFT JOIN users hb ON a.highest_bidder_id = hb.id`

func scanAuction(scanner interface{ Scan(...interface{}) error }) (models.Auction, error) {
	var a models.Auction
	err := scanner.Scan(
		&a.ID, &a.SellerID, &a.ProductName, &a.Description,
		&a.StartingPrice, &a.MinIncrement, &a.DurationHours,
		&a.Status, &a.CurrentBid, &a.HighestBidderID, &a.EndTime, &a.WinnerID,
		&a.RejectReason, &a.CreatedAt, &a.UpdatedAt,
		&a.SellerName, &a.HighestBidderName,
	)
	return a, err
}

func (h *Handlers) queryAuctions(c *gin.Context, where string, args ...interface{}) {
	query := "SELECT " + auctionColumns + auctionJoins + " " + where + " ORDER BY a.created_at DESC"
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch auctions"})
		return
	}
	defer rows.Close()

	auctions := []models.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan auction"})
			return
		}
		auctions = append(auctions, a)
	}

	c.JSON(http.StatusOK, auctions)
}

// GetAuctions is the handler for GET /api/auctions
// Active and recently ended auctions for the public auction board.
func (h *Handlers) GetAuctions(c *gin.Context) {
	h.queryAuctions(c, "WHERE a.status IN ('active', 'ended')")
}

// GetAuctionRequests is the handler for GET /api/admin/auction-requests (admin)
func (h *Handlers) GetAuctionRequests(c *gin.Context) {
	h.queryAuctions(c, "WHERE a.status = 'pending'")
}

// AuctionRequestInput is the payload for POST /api/auctions/request
type AuctionRequestInput struct {
	ProductName   string  `json:"product_name" binding:"required"`
	Description   string  `json:"description"`
	StartingPrice float64 `json:"starting_price" binding:"required,gt=0"`
	MinIncrement  float64 `json:"min_increment" binding:"required,gt=0"`
	DurationHours int     `json:"duration_hours" binding:"required,gt=0"`
}

// RequestAuction is the handler for POST /api/auctions/request (seller)
// The auction stays 'pending' until an admin approves it; the countdown
// starts at approval, not at request time.
func (h *Handlers) RequestAuction(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	var input AuctionRequestInput
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

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO auctions
			(seller_id, product_name, description, starting_price, min_increment, duration_hours,
			 status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?)`,
		sellerID, input.ProductName, input.Description,
		input.StartingPrice, input.MinIncrement, input.DurationHours, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create auction request"})
		return
	}
	auctionID, _ := result.LastInsertId()

	h.notifyAdmins(tx, fmt.Sprintf("New auction request: %s starting at ฿%.2f", input.ProductName, input.StartingPrice), "/admin")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Auction request submitted for approval",
		"auction_id": auctionID,
	})
}

// ApproveAuction is the handler for PUT /api/admin/auctions/:id/approve (admin)
// Activates the auction and stamps end_time from the requested duration.
func (h *Handlers) ApproveAuction(c *gin.Context) {
	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var sellerID int64
	var durationHours int
	var status, productName string
	err = tx.QueryRow(
		"SELECT seller_id, duration_hours, status, product_name FROM auctions WHERE id = ? FOR UPDATE",
		c.Param("id"),
	).Scan(&sellerID, &durationHours, &status, &productName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Auction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch auction"})
		return
	}

	if err := lifecycle.CanApproveAuction(status); err != nil {
		lifecycleError(c, err)
		return
	}

	now := time.Now()
	endTime := now.Add(time.Duration(durationHours) * time.Hour)
	_, err = tx.Exec(
		"UPDATE auctions SET status = 'active', end_time = ?, updated_at = ? WHERE id = ?",
		endTime, now, c.Param("id"),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update auction"})
		return
	}

	h.AddNotification(tx, sellerID,
		fmt.Sprintf("Your auction for %s is live until %s", productName, endTime.Format("2 Jan 15:04")),
		"/auctions")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Auction approved",
		"end_time": endTime,
	})
}

// RejectAuctionInput carries the admin's reason.
type RejectAuctionInput struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectAuction is the handler for PUT /api/admin/auctions/:id/reject (admin)
func (h *Handlers) RejectAuction(c *gin.Context) {
	var input RejectAuctionInput
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

	var sellerID int64
	var status, productName string
	err = tx.QueryRow(
		"SELECT seller_id, status, product_name FROM auctions WHERE id = ? FOR UPDATE",
		c.Param("id"),
	).Scan(&sellerID, &status, &productName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Auction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch auction"})
		return
	}

	if err := lifecycle.CanRejectAuction(status); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(
		"UPDATE auctions SET status = 'rejected', reject_reason = ?, updated_at = ? WHERE id = ?",
		input.Reason, time.Now(), c.Param("id"),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update auction"})
		return
	}

	h.AddNotification(tx, sellerID,
		fmt.Sprintf("Your auction request for %s was rejected: %s", productName, input.Reason),
		"/auctions")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Auction rejected"})
}

// PlaceBidInput is the payload for POST /api/auctions/:id/bid
type PlaceBidInput struct {
	BidAmount float64 `json:"bid_amount" binding:"required,gt=0"`
}

// PlaceBid is the handler for POST /api/auctions/:id/bid (buyer)
// The auction row is locked so concurrent bids serialize; each accepted bid
// must beat the standing bid by at least min_increment.
func (h *Handlers) PlaceBid(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	bidderID := userID_raw.(int64)

	var input PlaceBidInput
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

	var a struct {
		SellerID        int64
		StartingPrice   float64
		MinIncrement    float64
		Status          string
		CurrentBid      *float64
		HighestBidderID *int64
		EndTime         *time.Time
		ProductName     string
	}
	err = tx.QueryRow(`
		SELECT seller_id, starting_price, min_increment, status,
		       current_bid, highest_bidder_id, end_time, product_name
		FROM auctions WHERE id = ? FOR UPDATE`, c.Param("id")).Scan(
		&a.SellerID, &a.StartingPrice, &a.MinIncrement, &a.Status,
		&a.CurrentBid, &a.HighestBidderID, &a.EndTime, &a.ProductName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Auction not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch auction"})
		return
	}

	now := time.Now()
	if err := lifecycle.ValidateBid(a.Status, a.EndTime, now, a.SellerID, bidderID,
		a.StartingPrice, a.MinIncrement, a.CurrentBid, input.BidAmount); err != nil {
		lifecycleError(c, err)
		return
	}

	_, err = tx.Exec(
		"INSERT INTO bids (auction_id, bidder_id, amount, created_at) VALUES (?, ?, ?, ?)",
		c.Param("id"), bidderID, input.BidAmount, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record bid"})
		return
	}

	_, err = tx.Exec(
		"UPDATE auctions SET current_bid = ?, highest_bidder_id = ?, updated_at = ? WHERE id = ?",
		input.BidAmount, bidderID, now, c.Param("id"),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update auction"})
		return
	}

	// Tell the outbid buyer they lost the lead.
	if a.HighestBidderID != nil && *a.HighestBidderID != bidderID {
		h.AddNotification(tx, *a.HighestBidderID,
			fmt.Sprintf("You were outbid on %s (now ฿%.2f)", a.ProductName, input.BidAmount),
			"/auctions")
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Bid placed",
		"current_bid": input.BidAmount,
	})
}

// CloseExpiredAuctions moves every active auction past its end_time to
// 'ended', records the winner, and opens a pending payment so the winner
// finds the order in their payment list. Runs from the background worker.
func (h *Handlers) CloseExpiredAuctions() {
	tx, err := h.DB.Begin()
	if err != nil {
		log.Printf("auction close: failed to start transaction: %v", err)
		return
	}
	defer tx.Rollback()

	now := time.Now()
	rows, err := tx.Query(`
		SELECT id, seller_id, product_name, current_bid, highest_bidder_id
		FROM auctions
		WHERE status = 'active' AND end_time <= ?
		FOR UPDATE`, now)
	if err != nil {
		log.Printf("auction close: query failed: %v", err)
		return
	}

	type expired struct {
		ID          int64
		SellerID    int64
		ProductName string
		CurrentBid  *float64
		HighBidder  *int64
	}
	var toClose []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.ID, &e.SellerID, &e.ProductName, &e.CurrentBid, &e.HighBidder); err != nil {
			rows.Close()
			log.Printf("auction close: scan failed: %v", err)
			return
		}
		toClose = append(toClose, e)
	}
	rows.Close()

	for _, e := range toClose {
		_, err := tx.Exec(
			"UPDATE auctions SET status = 'ended', winner_id = ?, updated_at = ? WHERE id = ?",
			e.HighBidder, now, e.ID,
		)
		if err != nil {
			log.Printf("auction close: update failed for auction %d: %v", e.ID, err)
			return
		}

		if e.HighBidder == nil || e.CurrentBid == nil {
			h.AddNotification(tx, e.SellerID,
				fmt.Sprintf("Your auction for %s ended without bids", e.ProductName),
				"/auctions")
			continue
		}

		// Winner pays through the regular payment flow.
		totals := pricing.Compute(*e.CurrentBid)
		var bankAccount, bankName *string
		if err := tx.QueryRow("SELECT bank_account_number, bank_name FROM users WHERE id = ?", e.SellerID).
			Scan(&bankAccount, &bankName); err != nil {
			log.Printf("auction close: payout lookup failed for auction %d: %v", e.ID, err)
			return
		}

		referenceID := pricing.NewReferenceID(now)
		qrData := pricing.QRCodeData(promptPayAccount(), totals.TotalAmount)
		_, err = tx.Exec(`
			INSERT INTO payments
				(auction_id, buyer_id, seller_id,
				 amount, commission, total_amount, seller_amount,
				 status, admin_verified, reference_id, qr_code_data,
				 seller_bank_account, seller_bank_name, payment_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', FALSE, ?, ?, ?, ?, ?)`,
			e.ID, *e.HighBidder, e.SellerID,
			totals.Amount, totals.Commission, totals.TotalAmount, totals.SellerAmount,
			referenceID, qrData, bankAccount, bankName, now,
		)
		if err != nil {
			log.Printf("auction close: payment insert failed for auction %d: %v", e.ID, err)
			return
		}

		h.AddNotification(tx, *e.HighBidder,
			fmt.Sprintf("You won the auction for %s at ฿%.2f. Please complete payment.", e.ProductName, *e.CurrentBid),
			"/payments")
		h.AddNotification(tx, e.SellerID,
			fmt.Sprintf("Your auction for %s ended at ฿%.2f", e.ProductName, *e.CurrentBid),
			"/auctions")
	}

	if err := tx.Commit(); err != nil {
		log.Printf("auction close: commit failed: %v", err)
		return
	}
	if len(toClose) > 0 {
		log.Printf("auction close: closed %d auction(s)", len(toClose))
	}
}
