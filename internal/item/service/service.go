package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"curio/internal/item/models"
	itemstore "curio/internal/item/store"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/sentinel"
	pstrings "curio/pkg/platform/strings"
)

// Service is the item registry: it registers collectibles and serves
// ownership, provenance and ledger reads. Ownership mutations belong to
// the transfer executor, never to this service.
type Service struct {
	items itemstore.Store
	now   func() time.Time
}

func NewService(items itemstore.Store) *Service {
	return &Service{items: items, now: time.Now}
}

// RegisterItemInput describes a collectible entering the registry.
type RegisterItemInput struct {
	Brand         string
	Images        []string
	BoughtOn      time.Time
	BoughtAtPrice int64
	MarketPrice   int64
}

// RegisterItem records a new collectible owned by the caller.
func (s *Service) RegisterItem(ctx context.Context, ownerID id.UserID, input RegisterItemInput) (*models.Item, error) {
	item, err := models.NewItem(
		id.ItemID(uuid.New()), ownerID, input.Brand,
		input.BoughtOn, input.BoughtAtPrice, input.MarketPrice, s.now(),
	)
	if err != nil {
		return nil, err
	}
	item.Images = pstrings.DedupeAndTrim(input.Images)

	if err := s.items.Create(ctx, item); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create item")
	}
	return item, nil
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load item")
	}
	return item, nil
}

// ListOwned returns the caller's collection.
func (s *Service) ListOwned(ctx context.Context, ownerID id.UserID) ([]*models.Item, error) {
	items, err := s.items.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list owned items")
	}
	return items, nil
}

// Provenance returns the item's completed ownership tenures, oldest first.
func (s *Service) Provenance(ctx context.Context, itemID id.ItemID) ([]models.ProvenanceEntry, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	entries, err := s.items.Provenance(ctx, itemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load provenance")
	}
	return entries, nil
}

// Transfers returns the item's transfer ledger, oldest first.
func (s *Service) Transfers(ctx context.Context, itemID id.ItemID) ([]models.TransferRecord, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	records, err := s.items.Transfers(ctx, itemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load transfer ledger")
	}
	return records, nil
}
