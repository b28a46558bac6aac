package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//
// --- Notification Helper & Handlers ---
//

// AddNotification inserts a notification inside an existing transaction so
// the notification commits (or rolls back) together with the action that
// caused it. link may be empty.
func (h *Handlers) AddNotification(tx *sql.Tx, userID int64, message string, link string) error {
	var linkVal interface{}
	if link != "" {
		linkVal = link
	}
	query := `
		INSERT INTO notifications (user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, FALSE, ?)`
	_, err := tx.Exec(query, userID, message, linkVal, time.Now())
	if err != nil {
		// Log, but do not fail the caller's transaction over a notification.
		log.Printf("AddNotification failed for user %d: %v", userID, err)
	}
	return nil
}

// MarkNotificationAsRead is the handler for PATCH /api/notifications/:id/read
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	// 1. --- Get IDs ---
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	notificationID := c.Param("id")

	// 2. --- Update (ownership enforced in the WHERE clause) ---
	result, err := h.DB.Exec(
		"UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?",
		notificationID, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
