package middleware

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Role-Based Middleware ---
//
// These middleware functions are designed to be USED *AFTER* the main
// AuthMiddleware(). They read the 'userID' from the context, query the DB
// for that user's role, and then enforce role permissions.
//

// queryUserRole is a helper to get the user's role from the DB.
func queryUserRole(db *sql.DB, userID int64) (string, error) {
	var role string
	query := "SELECT role FROM users WHERE id = ?"
	err := db.QueryRow(query, userID).Scan(&role)
	if err != nil {
		return "", err
	}
	return role, nil
}

// requireRole builds a middleware that allows only the listed roles.
func requireRole(db *sql.DB, denyMessage string, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get userID from AuthMiddleware
		userID_raw, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context (AuthMiddleware must run first)"})
			c.Abort()
			return
		}
		userID := userID_raw.(int64)

		// 2. Query DB for user's role
		role, err := queryUserRole(db, userID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking role"})
			}
			c.Abort()
			return
		}

		// 3. Check permission
		for _, a := range allowed {
			if role == a {
				c.Set("userRole", role)
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": denyMessage})
		c.Abort()
	}
}

// BuyerMiddleware checks for the 'buyer' role ONLY.
func BuyerMiddleware(db *sql.DB) gin.HandlerFunc {
	return requireRole(db, "Access denied: Buyer role required", "buyer")
}

// SellerMiddleware checks for the 'seller' role ONLY.
func SellerMiddleware(db *sql.DB) gin.HandlerFunc {
	return requireRole(db, "Access denied: Seller role required", "seller")
}

// AdminMiddleware checks for the 'admin' role ONLY.
func AdminMiddleware(db *sql.DB) gin.HandlerFunc {
	return requireRole(db, "Access denied: Admin role required", "admin")
}
