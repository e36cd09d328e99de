package store

import (
	"context"
	"sync"
	"time"

	"curio/internal/item/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// InMemoryStore keeps items in process memory. It backs the non-postgres
// deployment profile and unit tests. All methods are safe for concurrent
// use; cross-record atomicity is provided by the unit of work above it.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[id.ItemID]*itemRecord
}

type itemRecord struct {
	item       models.Item
	provenance []models.ProvenanceEntry
	transfers  []models.TransferRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{items: make(map[id.ItemID]*itemRecord)}
}

func (s *InMemoryStore) Create(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return sentinel.ErrConflict
	}
	s.items[item.ID] = &itemRecord{item: *item}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, itemID id.ItemID) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	item := rec.item
	return &item, nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID id.UserID) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Item
	for _, rec := range s.items {
		if rec.item.OwnerID == ownerID {
			item := rec.item
			out = append(out, &item)
		}
	}
	return out, nil
}

func (s *InMemoryStore) SetListed(_ context.Context, itemID id.ItemID, listingID id.ListingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.item.IsListed {
		return sentinel.ErrConflict
	}
	rec.item.IsListed = true
	rec.item.CurrentListingID = &listingID
	return nil
}

func (s *InMemoryStore) ClearListing(_ context.Context, itemID id.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.item.IsListed = false
	rec.item.CurrentListingID = nil
	return nil
}

func (s *InMemoryStore) ReassignOwnerIf(_ context.Context, itemID id.ItemID, from, to id.UserID, acquiredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if rec.item.OwnerID != from {
		return sentinel.ErrInvalidState
	}
	rec.item.OwnerID = to
	rec.item.IsListed = false
	rec.item.CurrentListingID = nil
	rec.item.AcquiredAt = acquiredAt
	return nil
}

func (s *InMemoryStore) AppendProvenance(_ context.Context, itemID id.ItemID, entry models.ProvenanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.provenance = append(rec.provenance, entry)
	return nil
}

func (s *InMemoryStore) AppendTransfer(_ context.Context, itemID id.ItemID, record models.TransferRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[itemID]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.transfers = append(rec.transfers, record)
	return nil
}

func (s *InMemoryStore) Provenance(_ context.Context, itemID id.ItemID) ([]models.ProvenanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]models.ProvenanceEntry{}, rec.provenance...), nil
}

func (s *InMemoryStore) Transfers(_ context.Context, itemID id.ItemID) ([]models.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[itemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]models.TransferRecord{}, rec.transfers...), nil
}
