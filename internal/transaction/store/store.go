// Package store persists purchase transactions.
package store

import (
	"context"
	"time"

	"curio/internal/transaction/models"
	id "curio/pkg/domain"
)

// Store is the transaction persistence contract. MarkCompletedIf and
// MarkRejectedIf are compare-and-swap transitions guarded on the current
// status; a transaction no longer in payment_submitted yields
// sentinel.ErrInvalidState so a lost race or a re-entrant call is reported,
// never silently re-applied.
type Store interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, txnID id.TransactionID) (*models.Transaction, error)

	// ListPendingBySeller returns payment_submitted transactions awaiting
	// the seller's attestation, newest claim first.
	ListPendingBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error)

	// ListCompletedByBuyer / ListCompletedBySeller back the purchase and
	// sales history projections.
	ListCompletedByBuyer(ctx context.Context, buyerID id.UserID) ([]*models.Transaction, error)
	ListCompletedBySeller(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error)

	MarkCompletedIf(ctx context.Context, txnID id.TransactionID, from models.Status, at time.Time) error
	MarkRejectedIf(ctx context.Context, txnID id.TransactionID, from models.Status, at time.Time, reason string) error
}
