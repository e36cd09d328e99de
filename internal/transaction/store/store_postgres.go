package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"curio/internal/transaction/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
	txcontext "curio/pkg/platform/tx"
)

// PostgresStore persists transactions in postgres. The conditional updates
// guard on the current status in the WHERE clause so concurrent attestations
// resolve to exactly one winner.
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

const transactionColumns = `id, listing_id, item_id, buyer_id, seller_id, amount,
	payment_method_type, payment_method_details, payment_proof_reference, payment_proof_notes,
	status, payment_submitted_at, payment_confirmed_at, completed_at, rejected_at, rejection_reason, created_at`

func (s *PostgresStore) Create(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(txn.ID), uuid.UUID(txn.ListingID), uuid.UUID(txn.ItemID),
		uuid.UUID(txn.BuyerID), uuid.UUID(txn.SellerID), txn.Amount,
		txn.PaymentMethod.Type, txn.PaymentMethod.Details,
		txn.PaymentProof.Reference, txn.PaymentProof.Notes,
		string(txn.Status), txn.PaymentSubmittedAt, txn.PaymentConfirmedAt,
		txn.CompletedAt, txn.RejectedAt, nullableString(txn.RejectionReason), txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, txnID id.TransactionID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(txnID))
	txn, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	return txn, err
}

func (s *PostgresStore) ListPendingBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE seller_id = $1 AND status = $2 ORDER BY created_at DESC`
	return s.queryTransactions(ctx, query, uuid.UUID(sellerID), string(models.StatusPaymentSubmitted))
}

func (s *PostgresStore) ListCompletedByBuyer(ctx context.Context, buyerID id.UserID) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE buyer_id = $1 AND status = $2 ORDER BY created_at DESC`
	return s.queryTransactions(ctx, query, uuid.UUID(buyerID), string(models.StatusCompleted))
}

func (s *PostgresStore) ListCompletedBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE seller_id = $1 AND status = $2 ORDER BY created_at DESC`
	return s.queryTransactions(ctx, query, uuid.UUID(sellerID), string(models.StatusCompleted))
}

func (s *PostgresStore) MarkCompletedIf(ctx context.Context, txnID id.TransactionID, from models.Status, at time.Time) error {
	query := `UPDATE transactions
		SET status = $3, payment_confirmed_at = $4, completed_at = $4
		WHERE id = $1 AND status = $2`
	return s.guardRow(ctx, query, txnID,
		uuid.UUID(txnID), string(from), string(models.StatusCompleted), at)
}

func (s *PostgresStore) MarkRejectedIf(ctx context.Context, txnID id.TransactionID, from models.Status, at time.Time, reason string) error {
	query := `UPDATE transactions
		SET status = $3, rejected_at = $4, rejection_reason = $5
		WHERE id = $1 AND status = $2`
	return s.guardRow(ctx, query, txnID,
		uuid.UUID(txnID), string(from), string(models.StatusRejected), at, reason)
}

// guardRow runs a conditional update and maps a zero-row outcome to either
// ErrNotFound (no such transaction) or ErrInvalidState (status precondition
// failed).
func (s *PostgresStore) guardRow(ctx context.Context, query string, txnID id.TransactionID, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, uuid.UUID(txnID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check transaction exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) queryTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func scanTransaction(scan func(dest ...any) error) (*models.Transaction, error) {
	var txn models.Transaction
	var txnID, listingID, itemID, buyerID, sellerID uuid.UUID
	var status string
	var reason sql.NullString
	err := scan(&txnID, &listingID, &itemID, &buyerID, &sellerID, &txn.Amount,
		&txn.PaymentMethod.Type, &txn.PaymentMethod.Details,
		&txn.PaymentProof.Reference, &txn.PaymentProof.Notes,
		&status, &txn.PaymentSubmittedAt, &txn.PaymentConfirmedAt,
		&txn.CompletedAt, &txn.RejectedAt, &reason, &txn.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	txn.ID = id.TransactionID(txnID)
	txn.ListingID = id.ListingID(listingID)
	txn.ItemID = id.ItemID(itemID)
	txn.BuyerID = id.UserID(buyerID)
	txn.SellerID = id.UserID(sellerID)
	txn.Status = models.Status(status)
	txn.RejectionReason = reason.String
	return &txn, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
