// Package transfer executes the atomic ownership handover that follows a
// confirmed payment.
package transfer

import (
	"context"
	"time"

	itemmodels "curio/internal/item/models"
	itemstore "curio/internal/item/store"
	txnmodels "curio/internal/transaction/models"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// Executor performs the three writes of an ownership transfer:
//
//  1. reassign the item to the buyer (conditional on the seller still
//     owning it) and clear the listing flags
//  2. append a provenance entry closing the seller's tenure
//  3. append the transfer ledger record
//
// The conditional reassignment comes first so that under the optimistic
// profile a concurrent confirm that loses the compare-and-swap performs
// zero writes. The caller is responsible for running Execute inside a
// unit of work so the writes land together with the transaction and
// listing updates.
type Executor struct {
	now func() time.Time
}

func NewExecutor(now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{now: now}
}

// Execute hands the item over from the seller to the buyer. The conditional
// owner reassignment is the first write: a transaction that lost a race (the
// seller no longer owns the item) fails there without touching provenance or
// the ledger.
func (e *Executor) Execute(ctx context.Context, items itemstore.Store, txn *txnmodels.Transaction) error {
	item, err := items.FindByID(ctx, txn.ItemID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransferFailed, "load item for transfer")
	}
	if item.OwnerID != txn.SellerID {
		return dErrors.New(dErrors.CodeTransferFailed, "seller no longer owns the item")
	}

	transferredAt := e.now()
	heldFrom := item.AcquiredAt

	if err := items.ReassignOwnerIf(ctx, txn.ItemID, txn.SellerID, txn.BuyerID, transferredAt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransferFailed, "reassign item owner")
	}

	entry := itemmodels.ProvenanceEntry{
		Owner:     txn.SellerID,
		HeldFrom:  heldFrom,
		HeldUntil: transferredAt,
	}
	if err := items.AppendProvenance(ctx, txn.ItemID, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransferFailed, "append provenance entry")
	}

	record := itemmodels.TransferRecord{
		From:          txn.SellerID,
		To:            txn.BuyerID,
		TransactionID: txn.ID,
		Price:         txn.Amount,
		TransferredAt: transferredAt,
	}
	if err := items.AppendTransfer(ctx, txn.ItemID, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransferFailed, "append transfer record")
	}
	return nil
}

// Verify reports whether the ledger already carries a record for the given
// transaction. Used to make confirm retries observable without re-running
// the handover.
func (e *Executor) Verify(ctx context.Context, items itemstore.Store, itemID id.ItemID, txnID id.TransactionID) (bool, error) {
	records, err := items.Transfers(ctx, itemID)
	if err != nil {
		return false, err
	}
	for _, record := range records {
		if record.TransactionID == txnID {
			return true, nil
		}
	}
	return false, nil
}
