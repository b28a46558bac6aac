package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/models"
)

//
// --- Profile Handlers ---
//
// Profile edits never apply directly. They queue as update requests; an
// admin approves (copying the fields onto the user) or rejects them. That
// keeps payout details (bank account) under review.
//

// GetMe is the handler for GET /api/profile/me
func (h *Handlers) GetMe(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var user models.User
	query := `
		SELECT id, role, name, email, phone, address,
		       id_card_number, juristic_number, bank_account_number, bank_name,
		       created_at, updated_at
		FROM users WHERE id = ?`
	err := h.DB.QueryRow(query, userID).Scan(
		&user.ID, &user.Role, &user.Name, &user.Email, &user.Phone, &user.Address,
		&user.IDCardNumber, &user.JuristicNumber, &user.BankAccountNumber, &user.BankName,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// ProfileUpdateInput is the payload for POST /api/profile/update-request
type ProfileUpdateInput struct {
	Name              string `json:"name" binding:"required"`
	Phone             string `json:"phone" binding:"required"`
	Address           string `json:"address" binding:"required"`
	IDCardNumber      string `json:"id_card_number"`
	JuristicNumber    string `json:"juristic_number"`
	BankAccountNumber string `json:"bank_account_number"`
	BankName          string `json:"bank_name"`
}

// RequestProfileUpdate is the handler for POST /api/profile/update-request
func (h *Handlers) RequestProfileUpdate(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	var input ProfileUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Sellers must keep a valid identity and payout details on file.
	var role string
	if err := h.DB.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}
	if role == "seller" {
		if input.IDCardNumber != "" && !idCardPattern.MatchString(input.IDCardNumber) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID card number must be 13 digits"})
			return
		}
		if input.BankAccountNumber == "" || input.BankName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Sellers must provide bank_account_number and bank_name"})
			return
		}
	}

	// One pending request at a time.
	var pending int
	err := h.DB.QueryRow(
		"SELECT COUNT(*) FROM profile_update_requests WHERE user_id = ? AND status = 'pending'",
		userID,
	).Scan(&pending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing requests"})
		return
	}
	if pending > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "You already have a pending update request"})
		return
	}

	now := time.Now()
	result, err := h.DB.Exec(`
		INSERT INTO profile_update_requests
			(user_id, status, name, phone, address,
			 id_card_number, juristic_number, bank_account_number, bank_name,
			 created_at, updated_at)
		VALUES (?, 'pending', ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, input.Name, input.Phone, input.Address,
		nullIfEmpty(input.IDCardNumber), nullIfEmpty(input.JuristicNumber),
		nullIfEmpty(input.BankAccountNumber), nullIfEmpty(input.BankName),
		now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create update request"})
		return
	}
	requestID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Update request submitted for review",
		"request_id": requestID,
	})
}

const profileRequestColumns = `
	r.id, r.user_id, r.status, r.name, r.phone, r.address,
	r.id_card_number, r.juristic_number, r.bank_account_number, r.bank_name,
	r.reject_reason, r.created_at, r.updated_at,
	u.name, u.email, u.role`

func scanProfileRequest(scanner interface{ Scan(...interface{}) error }) (models.ProfileUpdateRequest, error) {
	var r models.ProfileUpdateRequest
	err := scanner.Scan(
		&r.ID, &r.UserID, &r.Status, &r.Name, &r.Phone, &r.Address,
		&r.IDCardNumber, &r.JuristicNumber, &r.BankAccountNumber, &r.BankName,
		&r.RejectReason, &r.CreatedAt, &r.UpdatedAt,
		&r.UserName, &r.UserEmail, &r.UserRole,
	)
	return r, err
}

func (h *Handlers) queryProfileRequests(c *gin.Context, where string, args ...interface{}) {
	query := "SELECT " + profileRequestColumns + `
		FROM profile_update_requests r
		JOIN users u ON r.user_id = u.id ` + where + " ORDER BY r.created_at DESC"
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch update requests"})
		return
	}
	defer rows.Close()

	requests := []models.ProfileUpdateRequest{}
	for rows.Next() {
		r, err := scanProfileRequest(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan update request"})
			return
		}
		requests = append(requests, r)
	}

	c.JSON(http.StatusOK, requests)
}

// GetMyProfileRequests is the handler for GET /api/profile/my-requests
func (h *Handlers) GetMyProfileRequests(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	h.queryProfileRequests(c, "WHERE r.user_id = ?", userID)
}

// GetPendingProfileRequests is the handler for GET /api/profile/admin/pending (admin)
func (h *Handlers) GetPendingProfileRequests(c *gin.Context) {
	h.queryProfileRequests(c, "WHERE r.status = 'pending'")
}

// ReviewCommentInput carries the admin's optional comment.
type ReviewCommentInput struct {
	Comment string `json:"comment"`
}

// ApproveProfileRequest is the handler for PUT /api/profile/admin/approve/:id (admin)
// Copies the requested fields onto the user in the same transaction.
func (h *Handlers) ApproveProfileRequest(c *gin.Context) {
	var input ReviewCommentInput
	c.ShouldBindJSON(&input)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var r models.ProfileUpdateRequest
	err = tx.QueryRow(`
		SELECT id, user_id, status, name, phone, address,
		       id_card_number, juristic_number, bank_account_number, bank_name
		FROM profile_update_requests WHERE id = ? FOR UPDATE`, c.Param("id")).Scan(
		&r.ID, &r.UserID, &r.Status, &r.Name, &r.Phone, &r.Address,
		&r.IDCardNumber, &r.JuristicNumber, &r.BankAccountNumber, &r.BankName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Update request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch update request"})
		return
	}
	if r.Status != "pending" {
		c.JSON(http.StatusConflict, gin.H{"error": "Request has already been reviewed"})
		return
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE users
		SET name = ?, phone = ?, address = ?,
		    id_card_number = ?, juristic_number = ?, bank_account_number = ?, bank_name = ?,
		    updated_at = ?
		WHERE id = ?`,
		r.Name, r.Phone, r.Address,
		r.IDCardNumber, r.JuristicNumber, r.BankAccountNumber, r.BankName,
		now, r.UserID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply profile changes"})
		return
	}

	_, err = tx.Exec(
		"UPDATE profile_update_requests SET status = 'approved', updated_at = ? WHERE id = ?",
		now, r.ID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request status"})
		return
	}

	h.AddNotification(tx, r.UserID, "Your profile update was approved", "/profile")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile update approved and applied"})
}

// RejectProfileRequest is the handler for PUT /api/profile/admin/reject/:id (admin)
func (h *Handlers) RejectProfileRequest(c *gin.Context) {
	var input ReviewCommentInput
	c.ShouldBindJSON(&input)

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var requestUserID int64
	var status string
	err = tx.QueryRow(
		"SELECT user_id, status FROM profile_update_requests WHERE id = ? FOR UPDATE",
		c.Param("id"),
	).Scan(&requestUserID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Update request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch update request"})
		return
	}
	if status != "pending" {
		c.JSON(http.StatusConflict, gin.H{"error": "Request has already been reviewed"})
		return
	}

	_, err = tx.Exec(
		"UPDATE profile_update_requests SET status = 'rejected', reject_reason = ?, updated_at = ? WHERE id = ?",
		nullIfEmpty(input.Comment), time.Now(), c.Param("id"),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request status"})
		return
	}

	h.AddNotification(tx, requestUserID, "Your profile update was rejected", "/profile")

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile update rejected"})
}
