package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/lifecycle"
	"github.com/ricelink/ricelink-golang/internal/models"
)

//
// --- Message Handlers ---
//
// Each payment carries one buyer/seller chat thread. The thread opens when
// the admin verifies the transfer and freezes (read-only) when the payment
// completes.
//

// chatAccess loads the payment a thread belongs to and checks the caller is
// one of its two parties. Returns the payment status and verification flag.
func (h *Handlers) chatAccess(c *gin.Context, paymentID string, userID int64) (status string, verified bool, ok bool) {
	var buyerID, sellerID int64
	err := h.DB.QueryRow(
		"SELECT buyer_id, seller_id, status, admin_verified FROM payments WHERE id = ?",
		paymentID,
	).Scan(&buyerID, &sellerID, &status, &verified)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return "", false, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment"})
		return "", false, false
	}
	if userID != buyerID && userID != sellerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This chat is not yours"})
		return "", false, false
	}
	return status, verified, true
}

// GetMessages is the handler for GET /api/messages/payment/:id
// 403 until the admin has verified the payment. Fetching marks the other
// side's messages as read.
func (h *Handlers) GetMessages(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	paymentID := c.Param("id")

	status, verified, ok := h.chatAccess(c, paymentID, userID)
	if !ok {
		return
	}

	readable, _ := lifecycle.ChatAccess(status, verified)
	if !readable {
		c.JSON(http.StatusForbidden, gin.H{"error": "Chat opens after the admin verifies the payment"})
		return
	}

	query := `
		SELECT m.id, m.payment_id, m.sender_id, m.message, m.is_read, m.created_at, u.name
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.payment_id = ?
		ORDER BY m.created_at ASC`
	rows, err := h.DB.Query(query, paymentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.PaymentID, &m.SenderID, &m.Message, &m.IsRead, &m.CreatedAt, &m.SenderName); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan message"})
			return
		}
		messages = append(messages, m)
	}

	// Everything addressed to the caller is now read.
	_, err = h.DB.Exec(
		"UPDATE messages SET is_read = TRUE WHERE payment_id = ? AND sender_id != ?",
		paymentID, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":       messages,
		"payment_status": status,
	})
}

// SendMessageInput is the payload for POST /api/messages/payment/:id
type SendMessageInput struct {
	Message string `json:"message" binding:"required"`
}

// SendMessage is the handler for POST /api/messages/payment/:id
// Rejected once the payment has completed.
func (h *Handlers) SendMessage(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	paymentID := c.Param("id")

	var input SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(input.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}

	status, verified, ok := h.chatAccess(c, paymentID, userID)
	if !ok {
		return
	}

	readable, writable := lifecycle.ChatAccess(status, verified)
	if !readable {
		c.JSON(http.StatusForbidden, gin.H{"error": "Chat opens after the admin verifies the payment"})
		return
	}
	if !writable {
		c.JSON(http.StatusForbidden, gin.H{"error": "This chat is read-only; the sale has completed"})
		return
	}

	now := time.Now()
	result, err := h.DB.Exec(
		"INSERT INTO messages (payment_id, sender_id, message, is_read, created_at) VALUES (?, ?, ?, FALSE, ?)",
		paymentID, userID, input.Message, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	messageID, _ := result.LastInsertId()

	var senderName string
	h.DB.QueryRow("SELECT name FROM users WHERE id = ?", userID).Scan(&senderName)

	m := models.Message{
		ID:         messageID,
		SenderID:   userID,
		Message:    input.Message,
		IsRead:     false,
		CreatedAt:  now,
		SenderName: senderName,
	}
	c.JSON(http.StatusCreated, m)
}

// GetChats is the handler for GET /api/messages/chats
// One row per verified payment the caller takes part in, with the latest
// message and the caller's unread count.
func (h *Handlers) GetChats(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	query := `
		SELECT pay.id,
		       COALESCE(pn.name, pcs.name, a.product_name, ''),
		       b.name, s.name, pay.status,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.payment_id = pay.id AND m.sender_id != ? AND m.is_read = FALSE),
		       (SELECT m.message FROM messages m
		        WHERE m.payment_id = pay.id ORDER BY m.created_at DESC LIMIT 1),
		       (SELECT m.created_at FROM messages m
		        WHERE m.payment_id = pay.id ORDER BY m.created_at DESC LIMIT 1)
		FROM payments pay
		JOIN users b ON pay.buyer_id = b.id
		JOIN users s ON pay.seller_id = s.id
		LEFT JOIN negotiations n ON pay.negotiation_id = n.id
		LEFT JOIN products pn ON n.product_id = pn.id
		LEFT JOIN company_sales cs ON pay.company_sale_id = cs.id
		LEFT JOIN products pcs ON cs.product_id = pcs.id
		LEFT JOIN auctions a ON pay.auction_id = a.id
		WHERE (pay.buyer_id = ? OR pay.seller_id = ?) AND pay.admin_verified = TRUE
		ORDER BY pay.payment_date DESC`

	rows, err := h.DB.Query(query, userID, userID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chats"})
		return
	}
	defer rows.Close()

	chats := []models.ChatSummary{}
	for rows.Next() {
		var chat models.ChatSummary
		if err := rows.Scan(
			&chat.PaymentID, &chat.ProductName, &chat.BuyerName, &chat.SellerName,
			&chat.Status, &chat.UnreadCount, &chat.LastMessage, &chat.LastMessageTime,
		); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan chat"})
			return
		}
		chats = append(chats, chat)
	}

	c.JSON(http.StatusOK, chats)
}
