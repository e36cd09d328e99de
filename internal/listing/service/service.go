package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	itemmodels "curio/internal/item/models"
	"curio/internal/listing/metrics"
	"curio/internal/listing/models"
	listingstore "curio/internal/listing/store"
	"curio/internal/marketplace"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/sentinel"
)

// ItemReader is the read surface of the item registry the listing manager
// needs outside a unit of work.
type ItemReader interface {
	FindByID(ctx context.Context, itemID id.ItemID) (*itemmodels.Item, error)
}

// Service manages the listing lifecycle. Creation and cancellation mutate
// both the listing and the item's listed flag, so they run inside the
// marketplace unit of work.
type Service struct {
	listings listingstore.Store
	items    ItemReader
	uow      marketplace.UnitOfWork
	views    ViewCounter
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(listings listingstore.Store, items ItemReader, uow marketplace.UnitOfWork, views ViewCounter, m *metrics.Metrics) *Service {
	return &Service{
		listings: listings,
		items:    items,
		uow:      uow,
		views:    views,
		metrics:  m,
		now:      time.Now,
	}
}

// CreateListingInput carries the seller's offer.
type CreateListingInput struct {
	ItemID         id.ItemID
	Price          int64
	Title          string
	Description    string
	PaymentMethods []models.PaymentMethod
}

// CreateListing publishes an item for sale. The caller must own the item
// and the item must not already carry an active-or-pending listing.
func (s *Service) CreateListing(ctx context.Context, sellerID id.UserID, input CreateListingInput) (*models.Listing, error) {
	item, err := s.items.FindByID(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load item")
	}
	if item.OwnerID != sellerID {
		return nil, dErrors.New(dErrors.CodeNotOwner, "only the item owner may list it")
	}
	if item.IsListed {
		return nil, dErrors.New(dErrors.CodeAlreadyListed, "item already has an active listing")
	}

	listing, err := models.NewListing(
		id.ListingID(uuid.New()), input.ItemID, sellerID,
		input.Price, input.Title, input.Description, input.PaymentMethods, s.now(),
	)
	if err != nil {
		return nil, err
	}

	ctx = marketplace.WithItemKey(ctx, input.ItemID)
	err = s.uow.RunInTx(ctx, func(ctx context.Context, st marketplace.Stores) error {
		if err := st.Listings.Create(ctx, listing); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyListed, "item already has an active listing")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "create listing")
		}
		if err := st.Items.SetListed(ctx, input.ItemID, listing.ID); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeAlreadyListed, "item already has an active listing")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "mark item listed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCreated()
	return listing, nil
}

// CancelListing withdraws an active listing. Only the seller may cancel,
// and only while no purchase claim is pending.
func (s *Service) CancelListing(ctx context.Context, callerID id.UserID, listingID id.ListingID) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load listing")
	}
	if listing.SellerID != callerID {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "only the seller may cancel the listing")
	}

	ctx = marketplace.WithItemKey(ctx, listing.ItemID)
	err = s.uow.RunInTx(ctx, func(ctx context.Context, st marketplace.Stores) error {
		if err := st.Listings.UpdateStatusIf(ctx, listingID, models.StatusActive, models.StatusCancelled); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeInvalidState, "listing is not active")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "cancel listing")
		}
		if err := st.Items.ClearListing(ctx, listing.ItemID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "clear item listing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementCancelled()
	listing.Status = models.StatusCancelled
	return listing, nil
}

// GetListing loads one listing and counts the view.
func (s *Service) GetListing(ctx context.Context, listingID id.ListingID) (*models.Listing, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load listing")
	}
	s.views.Bump(ctx, listingID)
	return listing, nil
}

// BrowseFilter narrows the active-listing feed.
type BrowseFilter struct {
	Brand    string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// ListingWithItem pairs a listing with its item for feed rendering.
type ListingWithItem struct {
	Listing *models.Listing  `json:"listing"`
	Item    *itemmodels.Item `json:"item"`
}

// BrowseActive returns the active-listing feed. Price bounds and ordering
// are pushed to the store; the brand filter joins through the item
// registry.
func (s *Service) BrowseActive(ctx context.Context, filter BrowseFilter) ([]ListingWithItem, error) {
	listings, err := s.listings.ListActive(ctx, listingstore.ListFilter{
		MinPrice: filter.MinPrice,
		MaxPrice: filter.MaxPrice,
		Sort:     filter.Sort,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list active listings")
	}

	out := make([]ListingWithItem, 0, len(listings))
	for _, listing := range listings {
		item, err := s.items.FindByID(ctx, listing.ItemID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load listing item")
		}
		if filter.Brand != "" && item.Brand != filter.Brand {
			continue
		}
		out = append(out, ListingWithItem{Listing: listing, Item: item})
	}
	return out, nil
}

// ListBySeller returns every listing the seller has created, all states.
func (s *Service) ListBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Listing, error) {
	listings, err := s.listings.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list seller listings")
	}
	return listings, nil
}
