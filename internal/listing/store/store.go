// Package store persists sale listings.
package store

import (
	"context"

	"curio/internal/listing/models"
	id "curio/pkg/domain"
)

// Sort orders for listing queries.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// ListFilter narrows and orders active listing queries. Brand filtering
// happens in the service against the item registry, mirroring the original
// post-query filter, so it is absent here.
type ListFilter struct {
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// Store is the listing persistence contract.
//
// Create enforces the single-active-listing invariant: a second
// active-or-pending listing for the same item is rejected with
// sentinel.ErrConflict (postgres backs this with a partial unique index).
// UpdateStatusIf is the compare-and-swap transition primitive; it returns
// sentinel.ErrInvalidState when the listing is no longer in from.
type Store interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, listingID id.ListingID) (*models.Listing, error)
	ListActive(ctx context.Context, filter ListFilter) ([]*models.Listing, error)
	ListBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Listing, error)
	UpdateStatusIf(ctx context.Context, listingID id.ListingID, from, to models.ListingStatus) error
	IncrementViews(ctx context.Context, listingID id.ListingID, delta int64) error
}
