package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/ricelink/ricelink-golang/internal/lifecycle"
	"github.com/ricelink/ricelink-golang/internal/models"
)

//
// --- Product Handlers ---
//

// productColumns is the SELECT list shared by the product queries, joined
// with the seller for the contact fields the product pages show.
const productColumns = `
	p.id, p.seller_id, p.name, p.category, p.slug, p.description,
	p.quantity, p.unit, p.price, p.status, p.created_at, p.updated_at,
	u.name, u.phone, u.address`

func scanProduct(scanner interface{ Scan(...interface{}) error }) (models.Product, error) {
	var p models.Product
	err := scanner.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Category, &p.Slug, &p.Description,
		&p.Quantity, &p.Unit, &p.Price, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		&p.SellerName, &p.SellerPhone, &p.SellerAddress,
	)
	return p, err
}

// GetProducts is the handler for GET /api/products
// Public marketplace listing: only 'available' products.
func (h *Handlers) GetProducts(c *gin.Context) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN users u ON p.seller_id = u.id
		WHERE p.status = 'available'
		ORDER BY p.created_at DESC`

	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct is the handler for GET /api/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	productID := c.Param("id")

	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN users u ON p.seller_id = u.id
		WHERE p.id = ?`

	p, err := scanProduct(h.DB.QueryRow(query, productID))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetMyProducts is the handler for GET /api/products/my-products (seller)
// Includes sold products, unlike the public listing.
func (h *Handlers) GetMyProducts(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN users u ON p.seller_id = u.id
		WHERE p.seller_id = ?
		ORDER BY p.created_at DESC`

	rows, err := h.DB.Query(query, sellerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, products)
}

// ProductInput is the payload for creating or updating a listing.
type ProductInput struct {
	Name        string  `json:"name" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit"`
	Price       float64 `json:"price" binding:"required,gt=0"`
}

// CreateProduct is the handler for POST /api/products (seller)
func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Get Seller ID & Input ---
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)

	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Unit == "" {
		input.Unit = "ton"
	}

	// 2. --- Insert ---
	now := time.Now()
	query := `
		INSERT INTO products
			(seller_id, name, category, slug, description, quantity, unit, price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'available', ?, ?)`

	result, err := h.DB.Exec(query,
		sellerID, input.Name, input.Category, "", input.Description,
		input.Quantity, input.Unit, input.Price, now, now,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	productID, _ := result.LastInsertId()

	// 3. --- Set Slug (needs the ID to be unique) ---
	productSlug := fmt.Sprintf("%s-%d", slug.Make(input.Name), productID)
	_, err = h.DB.Exec("UPDATE products SET slug = ? WHERE id = ?", productSlug, productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set product slug"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Product listed successfully",
		"product_id": productID,
		"slug":       productSlug,
	})
}

// UpdateProduct is the handler for PUT /api/products/:id (seller, owner)
func (h *Handlers) UpdateProduct(c *gin.Context) {
	// 1. --- Get IDs & Input ---
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)
	productID := c.Param("id")

	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Verify Ownership & State ---
	var ownerID int64
	var status string
	err := h.DB.QueryRow("SELECT seller_id, status FROM products WHERE id = ?", productID).Scan(&ownerID, &status)
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
		c.JSON(http.StatusConflict, gin.H{"error": "Only available products can be edited"})
		return
	}

	// 3. --- Update ---
	query := `
		UPDATE products
		SET name = ?, category = ?, description = ?, quantity = ?, unit = ?, price = ?, updated_at = ?
		WHERE id = ?`
	_, err = h.DB.Exec(query,
		input.Name, input.Category, input.Description, input.Quantity, input.Unit, input.Price,
		time.Now(), productID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully"})
}

// DeleteProduct is the handler for DELETE /api/products/:id (seller, owner)
// Refused while any negotiation or company sale references the listing.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	// 1. --- Get IDs ---
	userID_raw, _ := c.Get("userID")
	sellerID := userID_raw.(int64)
	productID := c.Param("id")

	// 2. --- Verify Ownership & State ---
	var ownerID int64
	var status string
	err := h.DB.QueryRow("SELECT seller_id, status FROM products WHERE id = ?", productID).Scan(&ownerID, &status)
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
		c.JSON(http.StatusConflict, gin.H{"error": "Only available products can be deleted"})
		return
	}

	// 3. --- Check for References ---
	var refs int
	refQuery := `
		SELECT (SELECT COUNT(*) FROM negotiations WHERE product_id = ?)
		     + (SELECT COUNT(*) FROM company_sales WHERE product_id = ?)`
	if err := h.DB.QueryRow(refQuery, productID, productID).Scan(&refs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check product references"})
		return
	}
	if refs > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Product has negotiations or sale offers and cannot be deleted"})
		return
	}

	// 4. --- Delete ---
	if _, err := h.DB.Exec("DELETE FROM products WHERE id = ?", productID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
