package models

import (
	"time"

	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// Item is a physical collectible tracked by the registry.
//
// Invariants:
//   - OwnerID always names the single authoritative current owner
//   - IsListed is true iff CurrentListingID is set and that listing is in
//     an active-or-pending state (the listing manager keeps both in step)
//   - Provenance and the transfer ledger are append-only; only the
//     ownership transfer executor appends to them
//   - AcquiredAt is the moment the current owner obtained the item and is
//     the heldFrom basis of the next provenance entry
type Item struct {
	ID               id.ItemID     `json:"id"`
	OwnerID          id.UserID     `json:"owner_id"`
	Brand            string        `json:"brand"`
	Images           []string      `json:"images"`
	BoughtOn         time.Time     `json:"bought_on"`
	BoughtAtPrice    int64         `json:"bought_at_price"`
	MarketPrice      int64         `json:"market_price"`
	IsListed         bool          `json:"is_listed"`
	CurrentListingID *id.ListingID `json:"current_listing_id,omitempty"`
	AcquiredAt       time.Time     `json:"acquired_at"`
	CreatedAt        time.Time     `json:"created_at"`
}

// ProvenanceEntry records one completed tenure of ownership.
// Entries are immutable once appended.
type ProvenanceEntry struct {
	Owner     id.UserID `json:"owner"`
	HeldFrom  time.Time `json:"held_from"`
	HeldUntil time.Time `json:"held_until"`
}

// TransferRecord links an ownership change to the transaction that caused
// it. The ledger is append-only and monotonically non-decreasing.
type TransferRecord struct {
	From          id.UserID        `json:"from"`
	To            id.UserID        `json:"to"`
	TransactionID id.TransactionID `json:"transaction_id"`
	Price         int64            `json:"price"`
	TransferredAt time.Time        `json:"transferred_at"`
}

// NewItem constructs a registry entry for a collectible.
func NewItem(itemID id.ItemID, owner id.UserID, brand string, boughtOn time.Time, boughtAtPrice, marketPrice int64, now time.Time) (*Item, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "item owner is required")
	}
	if brand == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "item brand is required")
	}
	if boughtAtPrice < 0 || marketPrice < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "item prices must not be negative")
	}
	return &Item{
		ID:            itemID,
		OwnerID:       owner,
		Brand:         brand,
		BoughtOn:      boughtOn,
		BoughtAtPrice: boughtAtPrice,
		MarketPrice:   marketPrice,
		AcquiredAt:    now,
		CreatedAt:     now,
	}, nil
}
