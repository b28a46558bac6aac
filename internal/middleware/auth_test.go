package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ricelink/ricelink-golang/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runAuth(t *testing.T, header string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}
	AuthMiddleware()(c)
	return w, c
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	token, err := auth.GenerateToken(42)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, c := runAuth(t, tt.header)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				userID, exists := c.Get("userID")
				if !exists {
					t.Fatal("userID not set in context")
				}
				if userID.(int64) != 42 {
					t.Errorf("userID = %v, want 42", userID)
				}
			}
		})
	}
}
