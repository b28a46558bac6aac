package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/models"
)

//
// --- Dashboard Handlers ---
//

// GetDashboardStats is the handler for GET /api/dashboard/stats
// The four counters are role-dependent: a seller sees their own listings
// and sales, a buyer their offers and orders, an admin the whole platform.
func (h *Handlers) GetDashboardStats(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var role string
	if err := h.DB.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	var query string
	var args []interface{}
	switch role {
	case "seller":
		query = `
			SELECT (SELECT COUNT(*) FROM products WHERE seller_id = ?),
			       (SELECT COUNT(*) FROM negotiations WHERE seller_id = ?),
			       (SELECT COUNT(*) FROM auctions WHERE seller_id = ?),
			       (SELECT COUNT(*) FROM payments WHERE seller_id = ? AND status = 'completed')`
		args = []interface{}{userID, userID, userID, userID}
	case "buyer":
		query = `
			SELECT (SELECT COUNT(*) FROM products WHERE status = 'available'),
			       (SELECT COUNT(*) FROM negotiations WHERE buyer_id = ?),
			       (SELECT COUNT(*) FROM auctions WHERE status = 'active'),
			       (SELECT COUNT(*) FROM payments WHERE buyer_id = ? AND status = 'completed')`
		args = []interface{}{userID, userID}
	default: // admin
		query = `
			SELECT (SELECT COUNT(*) FROM products),
			       (SELECT COUNT(*) FROM negotiations),
			       (SELECT COUNT(*) FROM auctions),
			       (SELECT COUNT(*) FROM payments WHERE status = 'completed')`
	}

	var products, negotiations, auctions, sales int
	if err := h.DB.QueryRow(query, args...).Scan(&products, &negotiations, &auctions, &sales); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":     products,
		"negotiations": negotiations,
		"auctions":     auctions,
		"sales":        sales,
	})
}

// GetMarketPrices is the handler for GET /api/dashboard/market-prices
// The admin-maintained reference prices, shown to everyone.
func (h *Handlers) GetMarketPrices(c *gin.Context) {
	rows, err := h.DB.Query(
		"SELECT id, product_name, category, price, updated_at FROM base_prices ORDER BY category, product_name",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch market prices"})
		return
	}
	defer rows.Close()

	prices := []models.BasePrice{}
	for rows.Next() {
		var p models.BasePrice
		if err := rows.Scan(&p.ID, &p.ProductName, &p.Category, &p.Price, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan market price"})
			return
		}
		prices = append(prices, p)
	}

	c.JSON(http.StatusOK, prices)
}

// GetMyNotifications is the handler for GET /api/dashboard/notifications
// The caller's most recent notifications, unread first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	rows, err := h.DB.Query(`
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification"})
			return
		}
		notifications = append(notifications, n)
	}

	c.JSON(http.StatusOK, notifications)
}
