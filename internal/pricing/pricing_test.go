package pricing

import (
	"strings"
	"testing"
	"time"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		amount         float64
		wantCommission float64
		wantTotal      float64
		wantSeller     float64
	}{
		{"agreed counter price", 19000, 19, 19019, 19000},
		{"list price buy now", 20000, 20, 20020, 20000},
		{"odd amount rounds to satang", 18555, 18.56, 18573.56, 18555},
		{"small amount", 100, 0.1, 100.1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.amount)
			if got.Commission != tt.wantCommission {
				t.Errorf("commission: got %v, want %v", got.Commission, tt.wantCommission)
			}
			if got.TotalAmount != tt.wantTotal {
				t.Errorf("total: got %v, want %v", got.TotalAmount, tt.wantTotal)
			}
			if got.SellerAmount != tt.wantSeller {
				t.Errorf("seller amount: got %v, want %v", got.SellerAmount, tt.wantSeller)
			}
		})
	}
}

func TestNewReferenceID(t *testing.T) {
	t.Parallel()

	now := time.Now()
	ref := NewReferenceID(now)
	if len(ref) != 26 {
		t.Errorf("got length %d, want 26", len(ref))
	}

	later := NewReferenceID(now.Add(time.Second))
	if !(ref < later) {
		t.Errorf("reference IDs not time-ordered: %s >= %s", ref, later)
	}
}

func TestQRCodeData(t *testing.T) {
	t.Parallel()

	got := QRCodeData("1234567890", 19019)
	if got != "https://promptpay.io/1234567890/19019.png" {
		t.Errorf("got %q", got)
	}
	if !strings.HasSuffix(QRCodeData("1234567890", 18573.555), "/18573.56.png") {
		t.Errorf("amount not rounded: %q", QRCodeData("1234567890", 18573.555))
	}
}
