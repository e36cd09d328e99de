// Package store persists items, their provenance and their transfer ledger.
package store

import (
	"context"
	"time"

	"curio/internal/item/models"
	id "curio/pkg/domain"
)

// Store is the item registry persistence contract. Mutating operations
// with an If suffix are compare-and-swap guards: they re-check the stated
// precondition atomically with the write and return
// sentinel.ErrInvalidState (or ErrConflict) when it no longer holds.
type Store interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error)
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Item, error)

	// SetListed marks the item as listed under the given listing. Returns
	// sentinel.ErrConflict when the item is already listed.
	SetListed(ctx context.Context, itemID id.ItemID, listingID id.ListingID) error

	// ClearListing resets IsListed and CurrentListingID.
	ClearListing(ctx context.Context, itemID id.ItemID) error

	// ReassignOwnerIf transfers ownership only while from is still the
	// current owner; it also clears the listing flags and stamps
	// AcquiredAt. Returns sentinel.ErrInvalidState when the owner changed
	// underneath the caller.
	ReassignOwnerIf(ctx context.Context, itemID id.ItemID, from, to id.UserID, acquiredAt time.Time) error

	// AppendProvenance and AppendTransfer are append-only; they are called
	// exclusively by the ownership transfer executor.
	AppendProvenance(ctx context.Context, itemID id.ItemID, entry models.ProvenanceEntry) error
	AppendTransfer(ctx context.Context, itemID id.ItemID, record models.TransferRecord) error

	Provenance(ctx context.Context, itemID id.ItemID) ([]models.ProvenanceEntry, error)
	Transfers(ctx context.Context, itemID id.ItemID) ([]models.TransferRecord, error)
}
