package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"curio/internal/item/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
	txcontext "curio/pkg/platform/tx"
)

// PostgresStore persists items in postgres. Writes honor a transaction
// carried in the context so the unit of work can commit item, listing and
// transaction changes together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (id, owner_id, brand, images, bought_on, bought_at_price,
			market_price, is_listed, current_listing_id, acquired_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(item.ID), uuid.UUID(item.OwnerID), item.Brand, pq.Array(item.Images),
		item.BoughtOn, item.BoughtAtPrice, item.MarketPrice,
		item.IsListed, listingIDOrNil(item.CurrentListingID),
		item.AcquiredAt, item.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	query := `
		SELECT id, owner_id, brand, images, bought_on, bought_at_price,
			market_price, is_listed, current_listing_id, acquired_at, created_at
		FROM items
		WHERE id = $1
	`
	return s.scanItem(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(itemID)))
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Item, error) {
	query := `
		SELECT id, owner_id, brand, images, bought_on, bought_at_price,
			market_price, is_listed, current_listing_id, acquired_at, created_at
		FROM items
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("query items by owner: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := s.scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) SetListed(ctx context.Context, itemID id.ItemID, listingID id.ListingID) error {
	query := `
		UPDATE items SET is_listed = TRUE, current_listing_id = $2
		WHERE id = $1 AND is_listed = FALSE
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(itemID), uuid.UUID(listingID))
	if err != nil {
		return fmt.Errorf("set item listed: %w", err)
	}
	return s.guardRow(ctx, res, itemID, sentinel.ErrConflict)
}

func (s *PostgresStore) ClearListing(ctx context.Context, itemID id.ItemID) error {
	query := `UPDATE items SET is_listed = FALSE, current_listing_id = NULL WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(itemID))
	if err != nil {
		return fmt.Errorf("clear item listing: %w", err)
	}
	return s.guardRow(ctx, res, itemID, sentinel.ErrNotFound)
}

func (s *PostgresStore) ReassignOwnerIf(ctx context.Context, itemID id.ItemID, from, to id.UserID, acquiredAt time.Time) error {
	query := `
		UPDATE items SET owner_id = $3, is_listed = FALSE, current_listing_id = NULL, acquired_at = $4
		WHERE id = $1 AND owner_id = $2
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(itemID), uuid.UUID(from), uuid.UUID(to), acquiredAt)
	if err != nil {
		return fmt.Errorf("reassign item owner: %w", err)
	}
	return s.guardRow(ctx, res, itemID, sentinel.ErrInvalidState)
}

func (s *PostgresStore) AppendProvenance(ctx context.Context, itemID id.ItemID, entry models.ProvenanceEntry) error {
	query := `
		INSERT INTO item_provenance (item_id, owner_id, held_from, held_until)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(itemID), uuid.UUID(entry.Owner), entry.HeldFrom, entry.HeldUntil)
	if err != nil {
		return fmt.Errorf("insert provenance entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendTransfer(ctx context.Context, itemID id.ItemID, record models.TransferRecord) error {
	query := `
		INSERT INTO item_transfers (item_id, from_owner, to_owner, transaction_id, price, transferred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(itemID), uuid.UUID(record.From), uuid.UUID(record.To),
		uuid.UUID(record.TransactionID), record.Price, record.TransferredAt)
	if err != nil {
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Provenance(ctx context.Context, itemID id.ItemID) ([]models.ProvenanceEntry, error) {
	query := `
		SELECT owner_id, held_from, held_until
		FROM item_provenance
		WHERE item_id = $1
		ORDER BY id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(itemID))
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var entries []models.ProvenanceEntry
	for rows.Next() {
		var owner uuid.UUID
		var entry models.ProvenanceEntry
		if err := rows.Scan(&owner, &entry.HeldFrom, &entry.HeldUntil); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		entry.Owner = id.UserID(owner)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Transfers(ctx context.Context, itemID id.ItemID) ([]models.TransferRecord, error) {
	query := `
		SELECT from_owner, to_owner, transaction_id, price, transferred_at
		FROM item_transfers
		WHERE item_id = $1
		ORDER BY id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(itemID))
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var records []models.TransferRecord
	for rows.Next() {
		var from, to, txnID uuid.UUID
		var record models.TransferRecord
		if err := rows.Scan(&from, &to, &txnID, &record.Price, &record.TransferredAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		record.From = id.UserID(from)
		record.To = id.UserID(to)
		record.TransactionID = id.TransactionID(txnID)
		records = append(records, record)
	}
	return records, rows.Err()
}

// guardRow distinguishes "row gone" from "precondition failed" after a
// conditional update touched zero rows.
func (s *PostgresStore) guardRow(ctx context.Context, res sql.Result, itemID id.ItemID, mismatch error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`, uuid.UUID(itemID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check item exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return mismatch
}

func (s *PostgresStore) scanItem(row *sql.Row) (*models.Item, error) {
	var item models.Item
	var itemID, ownerID uuid.UUID
	var listingID *uuid.UUID
	var images pq.StringArray
	err := row.Scan(&itemID, &ownerID, &item.Brand, &images, &item.BoughtOn,
		&item.BoughtAtPrice, &item.MarketPrice, &item.IsListed, &listingID,
		&item.AcquiredAt, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	item.ID = id.ItemID(itemID)
	item.OwnerID = id.UserID(ownerID)
	item.Images = images
	if listingID != nil {
		lid := id.ListingID(*listingID)
		item.CurrentListingID = &lid
	}
	return &item, nil
}

func (s *PostgresStore) scanItemRow(rows *sql.Rows) (*models.Item, error) {
	var item models.Item
	var itemID, ownerID uuid.UUID
	var listingID *uuid.UUID
	var images pq.StringArray
	err := rows.Scan(&itemID, &ownerID, &item.Brand, &images, &item.BoughtOn,
		&item.BoughtAtPrice, &item.MarketPrice, &item.IsListed, &listingID,
		&item.AcquiredAt, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}
	item.ID = id.ItemID(itemID)
	item.OwnerID = id.UserID(ownerID)
	item.Images = images
	if listingID != nil {
		lid := id.ListingID(*listingID)
		item.CurrentListingID = &lid
	}
	return &item, nil
}

func listingIDOrNil(listingID *id.ListingID) any {
	if listingID == nil {
		return nil
	}
	return uuid.UUID(*listingID)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
