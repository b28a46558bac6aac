package handlers

import (
	"database/sql"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/auth"
	"github.com/ricelink/ricelink-golang/internal/models"
)

//
// --- Auth Handlers ---
//

// RegisterInput is the payload for POST /api/auth/register.
// Separate from models.User so a client can never set id or role fields
// we don't want from the outside (role is whitelisted below).
type RegisterInput struct {
	Role     string `json:"role" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone" binding:"required"`
	Address  string `json:"address" binding:"required"`

	// Seller-only fields. Exactly one of IDCardNumber / JuristicNumber is
	// required for sellers (individual vs. registered company).
	IDCardNumber      string `json:"id_card_number"`
	JuristicNumber    string `json:"juristic_number"`
	BankAccountNumber string `json:"bank_account_number"`
	BankName          string `json:"bank_name"`
}

var idCardPattern = regexp.MustCompile(`^\d{13}$`)

// Register is the handler for POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Role Whitelist ---
	// Admin accounts are seeded, never self-registered.
	if input.Role != "buyer" && input.Role != "seller" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be 'buyer' or 'seller'"})
		return
	}

	// 3. --- Seller Identity & Payout Checks ---
	if input.Role == "seller" {
		hasIDCard := input.IDCardNumber != ""
		hasJuristic := input.JuristicNumber != ""
		if hasIDCard == hasJuristic {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Sellers must provide exactly one of id_card_number or juristic_number"})
			return
		}
		if hasIDCard && !idCardPattern.MatchString(input.IDCardNumber) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID card number must be 13 digits"})
			return
		}
		if input.BankAccountNumber == "" || input.BankName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Sellers must provide bank_account_number and bank_name for payouts"})
			return
		}
	}

	// 4. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 5. --- Insert User ---
	now := time.Now()
	query := `
		INSERT INTO users
			(role, name, email, password_hash, phone, address,
			 id_card_number, juristic_number, bank_account_number, bank_name,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := h.DB.Exec(query,
		input.Role, input.Name, strings.ToLower(input.Email), password.Hash,
		input.Phone, input.Address,
		nullIfEmpty(input.IDCardNumber), nullIfEmpty(input.JuristicNumber),
		nullIfEmpty(input.BankAccountNumber), nullIfEmpty(input.BankName),
		now, now,
	)
	if err != nil {
		// MySQL error 1062 = duplicate entry (unique email index)
		if strings.Contains(err.Error(), "1062") {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, _ := result.LastInsertId()

	// 6. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user_id": userID,
	})
}

// LoginInput is the payload for POST /api/auth/login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Fetch User by Email ---
	var user models.User
	query := `
		SELECT id, role, name, email, password_hash, phone, address,
		       id_card_number, juristic_number, bank_account_number, bank_name,
		       created_at, updated_at
		FROM users WHERE email = ?`
	err := h.DB.QueryRow(query, strings.ToLower(input.Email)).Scan(
		&user.ID, &user.Role, &user.Name, &user.Email, &user.PasswordHash,
		&user.Phone, &user.Address,
		&user.IDCardNumber, &user.JuristicNumber, &user.BankAccountNumber, &user.BankName,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same message as a wrong password, so emails can't be probed.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// 3. --- Check Password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error checking password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// 4. --- Generate Token ---
	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	// 5. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// nullIfEmpty maps "" to SQL NULL for optional columns.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
