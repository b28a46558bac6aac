package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/models"
)

//
// --- Base Price Handlers (Admin) ---
//

// GetBasePrices is the handler for GET /api/admin/base-prices (admin)
func (h *Handlers) GetBasePrices(c *gin.Context) {
	rows, err := h.DB.Query(
		"SELECT id, product_name, category, price, updated_at FROM base_prices ORDER BY category, product_name",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch base prices"})
		return
	}
	defer rows.Close()

	prices := []models.BasePrice{}
	for rows.Next() {
		var p models.BasePrice
		if err := rows.Scan(&p.ID, &p.ProductName, &p.Category, &p.Price, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan base price"})
			return
		}
		prices = append(prices, p)
	}

	c.JSON(http.StatusOK, prices)
}

// BasePriceInput is the payload for creating or updating a base price.
type BasePriceInput struct {
	ProductName string  `json:"product_name" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
}

// CreateBasePrice is the handler for POST /api/admin/base-prices (admin)
func (h *Handlers) CreateBasePrice(c *gin.Context) {
	var input BasePriceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(
		"INSERT INTO base_prices (product_name, category, price, updated_at) VALUES (?, ?, ?, ?)",
		input.ProductName, input.Category, input.Price, time.Now(),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create base price"})
		return
	}
	priceID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Base price created",
		"price_id": priceID,
	})
}

// UpdateBasePrice is the handler for PUT /api/admin/base-prices/:id (admin)
func (h *Handlers) UpdateBasePrice(c *gin.Context) {
	var input BasePriceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(
		"UPDATE base_prices SET product_name = ?, category = ?, price = ?, updated_at = ? WHERE id = ?",
		input.ProductName, input.Category, input.Price, time.Now(), c.Param("id"),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update base price"})
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Base price not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Base price updated"})
}
