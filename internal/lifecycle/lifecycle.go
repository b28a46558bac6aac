// Package lifecycle is the single source of truth for the order lifecycle
// rules of the marketplace: which status a negotiation, payment, company
// sale, or auction may move to next, and which role is allowed to trigger
// the move. Handlers consult these guards before touching the database so
// the same rules are never re-implemented per endpoint.
package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

// Roles (mirrors users.role)
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Negotiation statuses
const (
	NegotiationPending   = "pending"
	NegotiationCountered = "countered"
	NegotiationAccepted  = "accepted"
	NegotiationRejected  = "rejected"
)

// Delivery methods
const (
	DeliverySellerDelivery = "seller_delivery"
	DeliveryBuyerPickup    = "buyer_pickup"
)

// Payment statuses
const (
	PaymentPending    = "pending"
	PaymentPaid       = "paid"
	PaymentDelivering = "delivering"
	PaymentReceived   = "received"
	PaymentCompleted  = "completed"
	PaymentCancelled  = "cancelled"
)

// Company sale statuses
const (
	SalePending     = "pending"
	SaleNegotiating = "negotiating"
	SaleApproved    = "approved"
	SaleRejected    = "rejected"
	SaleCompleted   = "completed"
)

// Company sale negotiation sub-statuses
const (
	SaleAdminOffered    = "admin_offered"
	SaleSellerCountered = "seller_countered"
)

// Auction statuses
const (
	AuctionPending  = "pending"
	AuctionActive   = "active"
	AuctionEnded    = "ended"
	AuctionRejected = "rejected"
)

// Product statuses
const (
	ProductAvailable = "available"
	ProductSold      = "sold"
)

// ErrForbidden means the actor's role may never trigger this transition.
// ErrConflict means the entity is not in a state that admits the transition.
// Handlers map these to 403 and 409 respectively; everything else is a 400.
var (
	ErrForbidden = errors.New("actor is not allowed to perform this transition")
	ErrConflict  = errors.New("entity state does not allow this transition")
)

//
// --- Negotiation ---
//

// CanCreateNegotiation guards POST /api/negotiations.
// buyNow permits proposing exactly the listed price (the self-accept path);
// a regular offer must come in strictly below it.
func CanCreateNegotiation(productStatus string, listPrice, proposedPrice float64, buyNow bool) error {
	if productStatus != ProductAvailable {
		return fmt.Errorf("%w: product is not available", ErrConflict)
	}
	if proposedPrice <= 0 {
		return errors.New("proposed price must be greater than zero")
	}
	if buyNow {
		if proposedPrice != listPrice {
			return errors.New("buy-now must use the listed price")
		}
		return nil
	}
	if proposedPrice >= listPrice {
		return errors.New("proposed price must be lower than the listed price")
	}
	return nil
}

// CanCounter guards the seller's counter-offer. Only a pending offer can be
// countered; countering a countered offer would let the seller bid against
// their own counter.
func CanCounter(status, actorRole string) error {
	if actorRole != RoleSeller {
		return ErrForbidden
	}
	if status != NegotiationPending {
		return fmt.Errorf("%w: only a pending negotiation can be countered", ErrConflict)
	}
	return nil
}

// CanAccept guards acceptance. The side that received the latest price is
// the one that may accept: the seller accepts a pending offer, the buyer
// accepts a counter.
func CanAccept(status, actorRole string) error {
	switch status {
	case NegotiationPending:
		if actorRole != RoleSeller && actorRole != RoleBuyer {
			return ErrForbidden
		}
		// The buyer accepting their own pending offer is the buy-now
		// self-accept; any other buyer accept of 'pending' is rejected
		// at the handler via ownership checks.
		return nil
	case NegotiationCountered:
		if actorRole != RoleBuyer {
			return ErrForbidden
		}
		return nil
	default:
		return fmt.Errorf("%w: negotiation is %s", ErrConflict, status)
	}
}

// CanReject guards rejection by either side; rejected is terminal.
func CanReject(status string) error {
	if status != NegotiationPending && status != NegotiationCountered {
		return fmt.Errorf("%w: negotiation is %s", ErrConflict, status)
	}
	return nil
}

// AgreedPrice is the price a completed negotiation settles on.
func AgreedPrice(proposedPrice float64, counterPrice *float64) float64 {
	if counterPrice != nil {
		return *counterPrice
	}
	return proposedPrice
}

//
// --- Delivery sub-flow (entered only when the negotiation is accepted) ---
//

// DeliveryState mirrors the delivery columns of a negotiation row.
type DeliveryState struct {
	Method        string // "" while unset
	Confirmed     bool
	CounterPrice  *float64
	PriceAccepted bool
}

// CanSetDeliveryMethod guards PUT /:id/delivery-method (buyer).
func CanSetDeliveryMethod(negotiationStatus string, s DeliveryState, method, buyerAddress string) error {
	if negotiationStatus != NegotiationAccepted {
		return fmt.Errorf("%w: delivery method requires an accepted negotiation", ErrConflict)
	}
	if s.Method != "" {
		return fmt.Errorf("%w: delivery method already chosen", ErrConflict)
	}
	switch method {
	case DeliveryBuyerPickup:
		return nil
	case DeliverySellerDelivery:
		if buyerAddress == "" {
			return errors.New("a delivery address is required for seller delivery")
		}
		return nil
	default:
		return fmt.Errorf("unknown delivery method %q", method)
	}
}

// CanConfirmDelivery guards the seller confirming they will ship at the
// agreed price (no extra delivery charge).
func CanConfirmDelivery(s DeliveryState) error {
	if s.Method != DeliverySellerDelivery {
		return fmt.Errorf("%w: nothing to confirm for %q", ErrConflict, s.Method)
	}
	if s.Confirmed || s.PriceAccepted {
		return fmt.Errorf("%w: delivery already settled", ErrConflict)
	}
	return nil
}

// CanCounterDeliveryPrice guards a new total including delivery cost,
// proposed by either side. The loop is uncapped; it ends only when one side
// accepts or rejects.
func CanCounterDeliveryPrice(s DeliveryState, price float64) error {
	if s.Method != DeliverySellerDelivery {
		return fmt.Errorf("%w: delivery price only applies to seller delivery", ErrConflict)
	}
	if s.Confirmed || s.PriceAccepted {
		return fmt.Errorf("%w: delivery already settled", ErrConflict)
	}
	if price <= 0 {
		return errors.New("delivery price must be greater than zero")
	}
	return nil
}

// CanAcceptDeliveryPrice guards the buyer accepting the seller's delivery
// counter price.
func CanAcceptDeliveryPrice(s DeliveryState) error {
	if s.Method != DeliverySellerDelivery {
		return fmt.Errorf("%w: delivery price only applies to seller delivery", ErrConflict)
	}
	if s.CounterPrice == nil {
		return fmt.Errorf("%w: no delivery price to accept", ErrConflict)
	}
	if s.Confirmed || s.PriceAccepted {
		return fmt.Errorf("%w: delivery already settled", ErrConflict)
	}
	return nil
}

// CanRejectDelivery guards either side abandoning the delivery negotiation.
// The handler releases the product back to 'available'.
func CanRejectDelivery(s DeliveryState) error {
	if s.Method != DeliverySellerDelivery {
		return fmt.Errorf("%w: nothing to reject for %q", ErrConflict, s.Method)
	}
	if s.Confirmed || s.PriceAccepted {
		return fmt.Errorf("%w: delivery already settled", ErrConflict)
	}
	return nil
}

// PaymentReachable reports whether the buyer may create a payment:
// buyer pickup is immediately payable, seller delivery only once the
// seller confirmed or a delivery price was accepted.
func PaymentReachable(negotiationStatus string, s DeliveryState) bool {
	if negotiationStatus != NegotiationAccepted {
		return false
	}
	switch s.Method {
	case DeliveryBuyerPickup:
		return true
	case DeliverySellerDelivery:
		return s.Confirmed || s.PriceAccepted
	default:
		return false
	}
}

//
// --- Payment ---
//

// CanMarkPaid guards the buyer reporting a bank transfer. A slip URL is
// mandatory; there is nothing for the admin to verify without one.
func CanMarkPaid(status, actorRole, slipURL string) error {
	if actorRole != RoleBuyer {
		return ErrForbidden
	}
	if status != PaymentPending {
		return fmt.Errorf("%w: payment is %s", ErrConflict, status)
	}
	if slipURL == "" {
		return errors.New("a payment slip URL is required")
	}
	return nil
}

// CanVerify guards the admin confirming the transfer arrived.
func CanVerify(status, actorRole string) error {
	if actorRole != RoleAdmin {
		return ErrForbidden
	}
	if status != PaymentPaid {
		return fmt.Errorf("%w: payment is %s", ErrConflict, status)
	}
	return nil
}

// CanConfirmReceived guards the buyer confirming the goods arrived.
func CanConfirmReceived(status, actorRole string) error {
	if actorRole != RoleBuyer {
		return ErrForbidden
	}
	if status != PaymentDelivering {
		return fmt.Errorf("%w: payment is %s", ErrConflict, status)
	}
	return nil
}

// CanComplete guards the admin closing the sale and paying out the seller.
// 'completed' is absorbing.
func CanComplete(status, actorRole string) error {
	if actorRole != RoleAdmin {
		return ErrForbidden
	}
	if status != PaymentReceived {
		return fmt.Errorf("%w: payment is %s", ErrConflict, status)
	}
	return nil
}

// CanCancel guards cancellation, legal only before money moved.
func CanCancel(status string) error {
	if status != PaymentPending {
		return fmt.Errorf("%w: only a pending payment can be cancelled", ErrConflict)
	}
	return nil
}

// ChatAccess decides whether a payment's message thread may be read and
// whether it still accepts new messages. Reading opens once the admin
// verified the transfer; writing closes when the sale completes.
func ChatAccess(status string, adminVerified bool) (readable, writable bool) {
	if !adminVerified {
		return false, false
	}
	return true, status != PaymentCompleted
}

//
// --- Company sale ---
//

// CanAdminOpenNegotiation guards the admin's first (or repeated) counter
// offer on a company sale.
func CanAdminOpenNegotiation(status string, negotiationStatus *string) error {
	switch status {
	case SalePending:
		return nil
	case SaleNegotiating:
		if negotiationStatus != nil && *negotiationStatus == SaleAdminOffered {
			return fmt.Errorf("%w: waiting for the seller's reply", ErrConflict)
		}
		return nil
	default:
		return fmt.Errorf("%w: sale is %s", ErrConflict, status)
	}
}

// CanSellerCounterSale guards the seller countering the admin's offer.
func CanSellerCounterSale(status string, negotiationStatus *string) error {
	if status != SaleNegotiating {
		return fmt.Errorf("%w: sale is %s", ErrConflict, status)
	}
	if negotiationStatus == nil || *negotiationStatus != SaleAdminOffered {
		return fmt.Errorf("%w: no admin offer to counter", ErrConflict)
	}
	return nil
}

// CanAcceptAdminOffer guards the seller taking the admin's price.
func CanAcceptAdminOffer(status string, negotiationStatus *string) error {
	if status != SaleNegotiating {
		return fmt.Errorf("%w: sale is %s", ErrConflict, status)
	}
	if negotiationStatus == nil || *negotiationStatus != SaleAdminOffered {
		return fmt.Errorf("%w: no admin offer to accept", ErrConflict)
	}
	return nil
}

// CanAcceptSellerCounter guards the admin taking the seller's price.
func CanAcceptSellerCounter(status string, negotiationStatus *string) error {
	if status != SaleNegotiating {
		return fmt.Errorf("%w: sale is %s", ErrConflict, status)
	}
	if negotiationStatus == nil || *negotiationStatus != SaleSellerCountered {
		return fmt.Errorf("%w: no seller counter to accept", ErrConflict)
	}
	return nil
}

// CanApproveSale guards the admin approving a sale outright at the asking
// price, without a negotiation round.
func CanApproveSale(status string) error {
	if status != SalePending && status != SaleNegotiating {
		return fmt.Errorf("%w: sale is %s", ErrConflict, status)
	}
	return nil
}

// CanRejectSale guards the admin declining the sale; terminal.
func CanRejectSale(status string) error {
	if status != SalePending && status != SaleNegotiating {
		return fmt.Errorf("%w: sale is %s", ErrConflict, status)
	}
	return nil
}

// CanCompleteSalePayment guards the admin closing out an approved sale
// (recording the payout to the seller).
func CanCompleteSalePayment(status string) error {
	if status != SaleApproved {
		return fmt.Errorf("%w: sale is %s", ErrConflict, status)
	}
	return nil
}

//
// --- Auction ---
//

// CanApproveAuction guards the admin activating a requested auction.
func CanApproveAuction(status string) error {
	if status != AuctionPending {
		return fmt.Errorf("%w: auction is %s", ErrConflict, status)
	}
	return nil
}

// CanRejectAuction guards the admin declining a requested auction.
func CanRejectAuction(status string) error {
	if status != AuctionPending {
		return fmt.Errorf("%w: auction is %s", ErrConflict, status)
	}
	return nil
}

// MinimumBid is the lowest acceptable next bid.
func MinimumBid(startingPrice, minIncrement float64, currentBid *float64) float64 {
	if currentBid == nil {
		return startingPrice + minIncrement
	}
	return *currentBid + minIncrement
}

// ValidateBid guards POST /api/auctions/:id/bid. Each accepted bid must
// improve on the standing bid by at least the configured increment.
func ValidateBid(status string, endTime *time.Time, now time.Time, sellerID, bidderID int64,
	startingPrice, minIncrement float64, currentBid *float64, amount float64) error {

	if status != AuctionActive {
		return fmt.Errorf("%w: auction is %s", ErrConflict, status)
	}
	if endTime != nil && !now.Before(*endTime) {
		return fmt.Errorf("%w: auction has ended", ErrConflict)
	}
	if bidderID == sellerID {
		return ErrForbidden
	}
	if min := MinimumBid(startingPrice, minIncrement, currentBid); amount < min {
		return fmt.Errorf("bid must be at least %.2f", min)
	}
	return nil
}
