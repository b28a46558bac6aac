package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// postJSON runs one handler against a JSON body and returns the recorder.
// These tests cover the validation paths that reject before any database
// access, so a zero-value Handlers is enough.
func postJSON(t *testing.T, handler gin.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	base := map[string]interface{}{
		"role":     "seller",
		"name":     "Somchai",
		"email":    "somchai@example.com",
		"password": "secret-password",
		"phone":    "0812345678",
		"address":  "Khon Kaen",
	}
	withFields := func(overrides map[string]interface{}) map[string]interface{} {
		m := map[string]interface{}{}
		for k, v := range base {
			m[k] = v
		}
		for k, v := range overrides {
			m[k] = v
		}
		return m
	}

	h := &Handlers{}

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{
			name: "admin role refused",
			body: withFields(map[string]interface{}{"role": "admin"}),
			want: http.StatusBadRequest,
		},
		{
			name: "short password",
			body: withFields(map[string]interface{}{"role": "buyer", "password": "short"}),
			want: http.StatusBadRequest,
		},
		{
			name: "seller without identity",
			body: base,
			want: http.StatusBadRequest,
		},
		{
			name: "seller with both identities",
			body: withFields(map[string]interface{}{
				"id_card_number":  "1234567890123",
				"juristic_number": "0105540000001",
			}),
			want: http.StatusBadRequest,
		},
		{
			name: "id card not 13 digits",
			body: withFields(map[string]interface{}{
				"id_card_number":      "12345",
				"bank_account_number": "1234567890",
				"bank_name":           "KBank",
			}),
			want: http.StatusBadRequest,
		},
		{
			name: "seller without bank details",
			body: withFields(map[string]interface{}{
				"id_card_number": "1234567890123",
			}),
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := postJSON(t, h.Register, tt.body)
			if w.Code != tt.want {
				t.Errorf("Register() = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestMarketAdvisorUnconfigured(t *testing.T) {
	t.Parallel()

	h := &Handlers{} // Advisor nil
	w := postJSON(t, h.MarketAdvisor, map[string]interface{}{"message": "how is the market"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("MarketAdvisor() = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestPlaceBidRejectsMissingAmount(t *testing.T) {
	t.Parallel()

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", int64(7))
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")
	h.PlaceBid(c)

	if w.Code != http.StatusBadRequest {
		t.Errorf("PlaceBid() = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
