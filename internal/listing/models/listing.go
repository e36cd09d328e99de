package models

import (
	"time"

	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// ListingStatus is the lifecycle state of a sale listing.
type ListingStatus string

const (
	StatusActive    ListingStatus = "active"
	StatusPending   ListingStatus = "pending"
	StatusSold      ListingStatus = "sold"
	StatusCancelled ListingStatus = "cancelled"
)

// transitions is the complete listing lifecycle. active→pending on
// purchase submission, pending→active on rejection, pending→sold on a
// completed transfer, active→cancelled by the seller.
var transitions = map[ListingStatus][]ListingStatus{
	StatusActive:  {StatusPending, StatusCancelled},
	StatusPending: {StatusActive, StatusSold},
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsActiveLike reports whether the listing occupies the item: at most one
// listing per item may be active-like at any time.
func (s ListingStatus) IsActiveLike() bool {
	return s == StatusActive || s == StatusPending
}

// PaymentMethodType is the closed set of accepted settlement rails.
type PaymentMethodType string

const (
	PaymentUPI          PaymentMethodType = "UPI"
	PaymentBankTransfer PaymentMethodType = "Bank Transfer"
	PaymentPayPal       PaymentMethodType = "PayPal"
	PaymentCash         PaymentMethodType = "Cash"
	PaymentOther        PaymentMethodType = "Other"
)

var validMethodTypes = map[PaymentMethodType]bool{
	PaymentUPI:          true,
	PaymentBankTransfer: true,
	PaymentPayPal:       true,
	PaymentCash:         true,
	PaymentOther:        true,
}

// PaymentMethod is one entry of the seller's settlement menu.
type PaymentMethod struct {
	Type    PaymentMethodType `json:"type"`
	Details string            `json:"details"`
	Name    string            `json:"name,omitempty"`
}

// Listing is an offer to sell one item at a fixed price.
//
// Invariants:
//   - Seller equals the item's current owner at creation time
//   - PaymentMethods is non-empty and every entry carries type + details
//   - For a given item, at most one listing is ever active-or-pending
type Listing struct {
	ID             id.ListingID    `json:"id"`
	ItemID         id.ItemID       `json:"item_id"`
	SellerID       id.UserID       `json:"seller_id"`
	Price          int64           `json:"price"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
	Status         ListingStatus   `json:"status"`
	Views          int64           `json:"views"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewListing validates and constructs a listing in the active state.
func NewListing(listingID id.ListingID, itemID id.ItemID, seller id.UserID, price int64, title string, description string, methods []PaymentMethod, now time.Time) (*Listing, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "listing title is required")
	}
	if price <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "listing price must be positive")
	}
	if err := ValidatePaymentMethods(methods); err != nil {
		return nil, err
	}
	return &Listing{
		ID:             listingID,
		ItemID:         itemID,
		SellerID:       seller,
		Price:          price,
		Title:          title,
		Description:    description,
		PaymentMethods: methods,
		Status:         StatusActive,
		CreatedAt:      now,
	}, nil
}

// ValidatePaymentMethods enforces the settlement menu invariant: at least
// one method, every entry with a known type and non-empty details.
func ValidatePaymentMethods(methods []PaymentMethod) error {
	if len(methods) == 0 {
		return dErrors.New(dErrors.CodeInvalidPaymentMethods, "at least one payment method is required")
	}
	for _, m := range methods {
		if !validMethodTypes[m.Type] {
			return dErrors.New(dErrors.CodeInvalidPaymentMethods, "unknown payment method type: "+string(m.Type))
		}
		if m.Details == "" {
			return dErrors.New(dErrors.CodeInvalidPaymentMethods, "payment method details are required")
		}
	}
	return nil
}

// Accepts reports whether the menu contains the given method type.
func (l *Listing) Accepts(methodType PaymentMethodType) bool {
	for _, m := range l.PaymentMethods {
		if m.Type == methodType {
			return true
		}
	}
	return false
}
