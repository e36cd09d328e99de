package models

import (
	"time"

	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// Status is the transaction state machine field.
//
// submitted → payment_submitted → {completed | rejected}
//
// refunded is reserved for off-platform dispute resolution: it is declared
// so stored data can represent it, but no operation in this engine drives
// a transition into it.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusPaymentSubmitted Status = "payment_submitted"
	StatusCompleted        Status = "completed"
	StatusRejected         Status = "rejected"
	StatusRefunded         Status = "refunded"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusRefunded
}

// PaymentMethod is the rail the buyer claims to have paid on.
type PaymentMethod struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

// PaymentProof is the buyer's off-platform evidence. The engine never
// verifies it; the seller attests by confirming or rejecting.
type PaymentProof struct {
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Transaction is one buyer's purchase attempt against a listing.
//
// Amount is captured from the listing price at submission time and never
// re-read, so later listing edits cannot retroactively change an in-flight
// purchase. Everything except the status, timestamps and rejection reason
// is immutable after creation; those fields are written only by the state
// machine.
type Transaction struct {
	ID        id.TransactionID `json:"id"`
	ListingID id.ListingID     `json:"listing_id"`
	ItemID    id.ItemID        `json:"item_id"`
	BuyerID   id.UserID        `json:"buyer_id"`
	SellerID  id.UserID        `json:"seller_id"`
	Amount    int64            `json:"amount"`

	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentProof  PaymentProof  `json:"payment_proof"`

	Status Status `json:"status"`

	PaymentSubmittedAt *time.Time `json:"payment_submitted_at,omitempty"`
	PaymentConfirmedAt *time.Time `json:"payment_confirmed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTransaction constructs a purchase claim in payment_submitted: the
// buyer asserts payment was sent the moment the purchase is submitted.
func NewTransaction(txnID id.TransactionID, listingID id.ListingID, itemID id.ItemID, buyer, seller id.UserID, amount int64, method PaymentMethod, proof PaymentProof, now time.Time) (*Transaction, error) {
	if buyer == seller {
		return nil, dErrors.New(dErrors.CodeSelfPurchase, "cannot purchase your own item")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "transaction amount must be positive")
	}
	if method.Type == "" || method.Details == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "payment method type and details are required")
	}
	submittedAt := now
	return &Transaction{
		ID:                 txnID,
		ListingID:          listingID,
		ItemID:             itemID,
		BuyerID:            buyer,
		SellerID:           seller,
		Amount:             amount,
		PaymentMethod:      method,
		PaymentProof:       proof,
		Status:             StatusPaymentSubmitted,
		PaymentSubmittedAt: &submittedAt,
		CreatedAt:          now,
	}, nil
}

// CanConfirm checks the confirm-receipt preconditions for the caller.
func (t *Transaction) CanConfirm(caller id.UserID) error {
	if caller != t.SellerID {
		return dErrors.New(dErrors.CodeNotAuthorized, "only the seller may confirm payment")
	}
	if t.Status != StatusPaymentSubmitted {
		return dErrors.New(dErrors.CodeInvalidState, "transaction is not awaiting confirmation")
	}
	return nil
}

// CanReject checks the reject-receipt preconditions for the caller.
func (t *Transaction) CanReject(caller id.UserID, reason string) error {
	if caller != t.SellerID {
		return dErrors.New(dErrors.CodeNotAuthorized, "only the seller may reject payment")
	}
	if t.Status != StatusPaymentSubmitted {
		return dErrors.New(dErrors.CodeInvalidState, "transaction is not awaiting confirmation")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	return nil
}
