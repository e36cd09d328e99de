package store

import (
	"context"
	"sort"
	"sync"

	"curio/internal/listing/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// InMemoryStore keeps listings in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	listings map[id.ListingID]*models.Listing
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{listings: make(map[id.ListingID]*models.Listing)}
}

func (s *InMemoryStore) Create(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.listings[listing.ID]; exists {
		return sentinel.ErrConflict
	}
	// Single-active-listing invariant: equivalent of the postgres partial
	// unique index on (item_id) where status is active-like.
	for _, existing := range s.listings {
		if existing.ItemID == listing.ItemID && existing.Status.IsActiveLike() {
			return sentinel.ErrConflict
		}
	}
	clone := *listing
	s.listings[listing.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, listingID id.ListingID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *listing
	return &clone, nil
}

func (s *InMemoryStore) ListActive(_ context.Context, filter ListFilter) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Listing
	for _, listing := range s.listings {
		if listing.Status != models.StatusActive {
			continue
		}
		if filter.MinPrice != nil && listing.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && listing.Price > *filter.MaxPrice {
			continue
		}
		clone := *listing
		out = append(out, &clone)
	}
	sortListings(out, filter.Sort)
	return out, nil
}

func (s *InMemoryStore) ListBySeller(_ context.Context, sellerID id.UserID) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Listing
	for _, listing := range s.listings {
		if listing.SellerID == sellerID {
			clone := *listing
			out = append(out, &clone)
		}
	}
	sortListings(out, SortNewest)
	return out, nil
}

func (s *InMemoryStore) UpdateStatusIf(_ context.Context, listingID id.ListingID, from, to models.ListingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if listing.Status != from {
		return sentinel.ErrInvalidState
	}
	listing.Status = to
	return nil
}

func (s *InMemoryStore) IncrementViews(_ context.Context, listingID id.ListingID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[listingID]
	if !ok {
		return sentinel.ErrNotFound
	}
	listing.Views += delta
	return nil
}

func sortListings(listings []*models.Listing, order string) {
	switch order {
	case SortPriceAsc:
		sort.Slice(listings, func(i, j int) bool { return listings[i].Price < listings[j].Price })
	case SortPriceDesc:
		sort.Slice(listings, func(i, j int) bool { return listings[i].Price > listings[j].Price })
	default:
		sort.Slice(listings, func(i, j int) bool { return listings[i].CreatedAt.After(listings[j].CreatedAt) })
	}
}
