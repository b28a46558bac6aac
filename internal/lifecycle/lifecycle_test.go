package lifecycle

import (
	"errors"
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func TestCanCreateNegotiation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		productStatus string
		listPrice     float64
		proposedPrice float64
		buyNow        bool
		wantErr       bool
	}{
		{"offer below list price", ProductAvailable, 20000, 18000, false, false},
		{"offer above list price", ProductAvailable, 20000, 25000, false, true},
		{"offer equal to list price", ProductAvailable, 20000, 20000, false, true},
		{"zero price", ProductAvailable, 20000, 0, false, true},
		{"negative price", ProductAvailable, 20000, -1, false, true},
		{"sold product", ProductSold, 20000, 18000, false, true},
		{"buy now at list price", ProductAvailable, 20000, 20000, true, false},
		{"buy now below list price", ProductAvailable, 20000, 18000, true, true},
		{"buy now on sold product", ProductSold, 20000, 20000, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanCreateNegotiation(tt.productStatus, tt.listPrice, tt.proposedPrice, tt.buyNow)
			if (err != nil) != tt.wantErr {
				t.Errorf("got err %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Negotiation status must only move forward: once countered, accepted or
// rejected, a transition back into 'pending' territory must be refused.
func TestNegotiationStatusIsMonotonic(t *testing.T) {
	t.Parallel()

	terminalOrSettled := []string{NegotiationAccepted, NegotiationRejected}
	for _, status := range terminalOrSettled {
		if err := CanCounter(status, RoleSeller); err == nil {
			t.Errorf("CanCounter(%q) accepted a settled negotiation", status)
		}
		if err := CanAccept(status, RoleBuyer); err == nil {
			t.Errorf("CanAccept(%q) accepted a settled negotiation", status)
		}
		if err := CanReject(status); err == nil {
			t.Errorf("CanReject(%q) accepted a settled negotiation", status)
		}
	}

	// A countered negotiation cannot be countered again by the seller.
	if err := CanCounter(NegotiationCountered, RoleSeller); err == nil {
		t.Error("seller countered an already-countered negotiation")
	}
}

func TestCanAcceptActors(t *testing.T) {
	t.Parallel()

	// Seller accepts a pending offer; buyer accepts a counter.
	if err := CanAccept(NegotiationPending, RoleSeller); err != nil {
		t.Errorf("seller accept of pending: %v", err)
	}
	if err := CanAccept(NegotiationCountered, RoleBuyer); err != nil {
		t.Errorf("buyer accept of countered: %v", err)
	}
	if err := CanAccept(NegotiationCountered, RoleSeller); !errors.Is(err, ErrForbidden) {
		t.Errorf("seller accept of countered: got %v, want ErrForbidden", err)
	}
}

func TestAgreedPrice(t *testing.T) {
	t.Parallel()

	if got := AgreedPrice(18000, nil); got != 18000 {
		t.Errorf("got %v, want 18000", got)
	}
	if got := AgreedPrice(18000, floatPtr(19000)); got != 19000 {
		t.Errorf("got %v, want 19000", got)
	}
}

func TestPaymentReachable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status string
		state  DeliveryState
		want   bool
	}{
		{"pickup right after accept", NegotiationAccepted, DeliveryState{Method: DeliveryBuyerPickup}, true},
		{"seller delivery unconfirmed", NegotiationAccepted, DeliveryState{Method: DeliverySellerDelivery}, false},
		{"seller delivery confirmed", NegotiationAccepted, DeliveryState{Method: DeliverySellerDelivery, Confirmed: true}, true},
		{"seller delivery price accepted", NegotiationAccepted, DeliveryState{Method: DeliverySellerDelivery, CounterPrice: floatPtr(19500), PriceAccepted: true}, true},
		{"no method chosen", NegotiationAccepted, DeliveryState{}, false},
		{"not accepted yet", NegotiationCountered, DeliveryState{Method: DeliveryBuyerPickup}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PaymentReachable(tt.status, tt.state); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeliveryCounterLoop(t *testing.T) {
	t.Parallel()

	s := DeliveryState{Method: DeliverySellerDelivery}

	// Seller counters, buyer counters back, seller counters again: the loop
	// is uncapped while nothing is settled.
	for i := 0; i < 5; i++ {
		if err := CanCounterDeliveryPrice(s, 19500); err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		s.CounterPrice = floatPtr(19500)
	}

	// Acceptance ends it.
	if err := CanAcceptDeliveryPrice(s); err != nil {
		t.Fatalf("accept: %v", err)
	}
	s.PriceAccepted = true

	if err := CanCounterDeliveryPrice(s, 20000); err == nil {
		t.Error("countered after the delivery price was accepted")
	}
	if err := CanConfirmDelivery(s); err == nil {
		t.Error("confirmed after the delivery price was accepted")
	}
	if err := CanRejectDelivery(s); err == nil {
		t.Error("rejected after the delivery price was accepted")
	}
}

func TestDeliveryMethodGuards(t *testing.T) {
	t.Parallel()

	unset := DeliveryState{}
	if err := CanSetDeliveryMethod(NegotiationAccepted, unset, DeliveryBuyerPickup, ""); err != nil {
		t.Errorf("buyer pickup: %v", err)
	}
	if err := CanSetDeliveryMethod(NegotiationAccepted, unset, DeliverySellerDelivery, ""); err == nil {
		t.Error("seller delivery without an address was accepted")
	}
	if err := CanSetDeliveryMethod(NegotiationPending, unset, DeliveryBuyerPickup, ""); err == nil {
		t.Error("delivery method set before acceptance")
	}
	chosen := DeliveryState{Method: DeliveryBuyerPickup}
	if err := CanSetDeliveryMethod(NegotiationAccepted, chosen, DeliverySellerDelivery, "addr"); err == nil {
		t.Error("delivery method changed after being chosen")
	}
}

// Payment status is strictly monotonic along
// pending -> paid -> delivering -> received -> completed.
func TestPaymentLifecycleIsMonotonic(t *testing.T) {
	t.Parallel()

	// The happy path in order.
	if err := CanMarkPaid(PaymentPending, RoleBuyer, "https://example.com/slip.png"); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := CanVerify(PaymentPaid, RoleAdmin); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := CanConfirmReceived(PaymentDelivering, RoleBuyer); err != nil {
		t.Fatalf("received: %v", err)
	}
	if err := CanComplete(PaymentReceived, RoleAdmin); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Every transition refuses every other source state.
	all := []string{PaymentPending, PaymentPaid, PaymentDelivering, PaymentReceived, PaymentCompleted, PaymentCancelled}
	for _, s := range all {
		if s != PaymentPending {
			if err := CanMarkPaid(s, RoleBuyer, "https://example.com/slip.png"); err == nil {
				t.Errorf("mark paid allowed from %q", s)
			}
		}
		if s != PaymentPaid {
			if err := CanVerify(s, RoleAdmin); err == nil {
				t.Errorf("verify allowed from %q", s)
			}
		}
		if s != PaymentDelivering {
			if err := CanConfirmReceived(s, RoleBuyer); err == nil {
				t.Errorf("received allowed from %q", s)
			}
		}
		if s != PaymentReceived {
			if err := CanComplete(s, RoleAdmin); err == nil {
				t.Errorf("complete allowed from %q", s)
			}
		}
		if s != PaymentPending {
			if err := CanCancel(s); err == nil {
				t.Errorf("cancel allowed from %q", s)
			}
		}
	}
}

func TestPaymentActorPermissions(t *testing.T) {
	t.Parallel()

	if err := CanMarkPaid(PaymentPending, RoleSeller, "slip"); !errors.Is(err, ErrForbidden) {
		t.Errorf("seller mark paid: got %v", err)
	}
	if err := CanMarkPaid(PaymentPending, RoleBuyer, ""); err == nil {
		t.Error("mark paid without a slip URL was accepted")
	}
	if err := CanVerify(PaymentPaid, RoleBuyer); !errors.Is(err, ErrForbidden) {
		t.Errorf("buyer verify: got %v", err)
	}
	if err := CanComplete(PaymentReceived, RoleSeller); !errors.Is(err, ErrForbidden) {
		t.Errorf("seller complete: got %v", err)
	}
}

func TestChatAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        string
		adminVerified bool
		wantRead      bool
		wantWrite     bool
	}{
		{"before verification", PaymentPaid, false, false, false},
		{"delivering", PaymentDelivering, true, true, true},
		{"received", PaymentReceived, true, true, true},
		{"completed is read-only", PaymentCompleted, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read, write := ChatAccess(tt.status, tt.adminVerified)
			if read != tt.wantRead || write != tt.wantWrite {
				t.Errorf("got (%v, %v), want (%v, %v)", read, write, tt.wantRead, tt.wantWrite)
			}
		})
	}
}

func TestCompanySalePingPong(t *testing.T) {
	t.Parallel()

	// Admin opens with an offer on a pending sale.
	if err := CanAdminOpenNegotiation(SalePending, nil); err != nil {
		t.Fatalf("admin offer on pending: %v", err)
	}

	// With the ball in the seller's court, the admin must wait.
	offered := strPtr(SaleAdminOffered)
	if err := CanAdminOpenNegotiation(SaleNegotiating, offered); err == nil {
		t.Error("admin countered while waiting for the seller")
	}
	if err := CanSellerCounterSale(SaleNegotiating, offered); err != nil {
		t.Errorf("seller counter: %v", err)
	}
	if err := CanAcceptAdminOffer(SaleNegotiating, offered); err != nil {
		t.Errorf("seller accept: %v", err)
	}

	// After the seller counters, only the admin can move.
	countered := strPtr(SaleSellerCountered)
	if err := CanAdminOpenNegotiation(SaleNegotiating, countered); err != nil {
		t.Errorf("admin re-counter: %v", err)
	}
	if err := CanAcceptSellerCounter(SaleNegotiating, countered); err != nil {
		t.Errorf("admin accept of seller counter: %v", err)
	}
	if err := CanSellerCounterSale(SaleNegotiating, countered); err == nil {
		t.Error("seller countered their own counter")
	}

	// Settled sales admit nothing further.
	for _, s := range []string{SaleApproved, SaleRejected, SaleCompleted} {
		if err := CanAdminOpenNegotiation(s, nil); err == nil {
			t.Errorf("admin offer allowed on %q", s)
		}
		if err := CanRejectSale(s); err == nil {
			t.Errorf("reject allowed on %q", s)
		}
	}

	if err := CanCompleteSalePayment(SaleApproved); err != nil {
		t.Errorf("complete payment on approved: %v", err)
	}
	if err := CanCompleteSalePayment(SaleNegotiating); err == nil {
		t.Error("complete payment allowed before approval")
	}
}

func TestValidateBid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	end := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	tests := []struct {
		name       string
		status     string
		endTime    *time.Time
		bidderID   int64
		currentBid *float64
		amount     float64
		wantErr    bool
	}{
		{"first bid below increment", AuctionActive, &end, 2, nil, 10300, true},
		{"first bid at increment", AuctionActive, &end, 2, nil, 10500, false},
		{"raise below increment", AuctionActive, &end, 2, floatPtr(10500), 10900, true},
		{"raise at increment", AuctionActive, &end, 2, floatPtr(10500), 11000, false},
		{"auction pending", AuctionPending, &end, 2, nil, 10500, true},
		{"auction expired", AuctionActive, &past, 2, nil, 10500, true},
		{"seller bids own auction", AuctionActive, &end, 1, nil, 10500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBid(tt.status, tt.endTime, now, 1, tt.bidderID,
				10000, 500, tt.currentBid, tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("got err %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
