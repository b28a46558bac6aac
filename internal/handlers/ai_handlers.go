package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Market Advisor Handler ---
//

// MarketAdvisorInput is the payload for POST /api/ai/market-advisor
type MarketAdvisorInput struct {
	Message string `json:"message" binding:"required"`
}

// MarketAdvisor is the handler for POST /api/ai/market-advisor
// Proxies the question to the Gemini-backed advisor, which may query the
// read-only database pool. Returns 503 when no advisor is configured.
func (h *Handlers) MarketAdvisor(c *gin.Context) {
	if h.Advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "The market advisor is not configured"})
		return
	}

	var input MarketAdvisorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)
	var role string
	if err := h.DB.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	reply, err := h.Advisor.GenerateResponse(c.Request.Context(), input.Message, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The advisor could not answer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
