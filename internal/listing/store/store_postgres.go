package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"curio/internal/listing/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
	txcontext "curio/pkg/platform/tx"
)

// PostgresStore persists listings in postgres. The single-active-listing
// invariant is enforced by a partial unique index on (item_id) where the
// status is active-like; a violation surfaces as sentinel.ErrConflict.
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

const listingColumns = `id, item_id, seller_id, price, title, description, payment_methods, status, views, created_at`

func (s *PostgresStore) Create(ctx context.Context, listing *models.Listing) error {
	methods, err := json.Marshal(listing.PaymentMethods)
	if err != nil {
		return fmt.Errorf("marshal payment methods: %w", err)
	}
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(listing.ID), uuid.UUID(listing.ItemID), uuid.UUID(listing.SellerID),
		listing.Price, listing.Title, listing.Description, methods,
		string(listing.Status), listing.Views, listing.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, listingID id.ListingID) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(listingID))
	listing, err := scanListing(row.Scan)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	return listing, err
}

func (s *PostgresStore) ListActive(ctx context.Context, filter ListFilter) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE status = 'active'`
	args := []any{}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		query += fmt.Sprintf(" AND price >= $%d", len(args))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		query += fmt.Sprintf(" AND price <= $%d", len(args))
	}
	switch filter.Sort {
	case SortPriceAsc:
		query += " ORDER BY price ASC"
	case SortPriceDesc:
		query += " ORDER BY price DESC"
	default:
		query += " ORDER BY created_at DESC"
	}
	return s.queryListings(ctx, query, args...)
}

func (s *PostgresStore) ListBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE seller_id = $1 ORDER BY created_at DESC`
	return s.queryListings(ctx, query, uuid.UUID(sellerID))
}

func (s *PostgresStore) UpdateStatusIf(ctx context.Context, listingID id.ListingID, from, to models.ListingStatus) error {
	query := `UPDATE listings SET status = $3 WHERE id = $1 AND status = $2`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(listingID), string(from), string(to))
	if err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`, uuid.UUID(listingID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check listing exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) IncrementViews(ctx context.Context, listingID id.ListingID, delta int64) error {
	query := `UPDATE listings SET views = views + $2 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(listingID), delta)
	if err != nil {
		return fmt.Errorf("increment listing views: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryListings(ctx context.Context, query string, args ...any) ([]*models.Listing, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows.Scan)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

func scanListing(scan func(dest ...any) error) (*models.Listing, error) {
	var listing models.Listing
	var listingID, itemID, sellerID uuid.UUID
	var status string
	var methods []byte
	err := scan(&listingID, &itemID, &sellerID, &listing.Price, &listing.Title,
		&listing.Description, &methods, &status, &listing.Views, &listing.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	if err := json.Unmarshal(methods, &listing.PaymentMethods); err != nil {
		return nil, fmt.Errorf("unmarshal payment methods: %w", err)
	}
	listing.ID = id.ListingID(listingID)
	listing.ItemID = id.ItemID(itemID)
	listing.SellerID = id.UserID(sellerID)
	listing.Status = models.ListingStatus(status)
	return &listing, nil
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
