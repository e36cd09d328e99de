package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	listingmodels "curio/internal/listing/models"
	"curio/internal/marketplace"
	"curio/internal/notification"
	notifmodels "curio/internal/notification/models"
	"curio/internal/transaction/metrics"
	"curio/internal/transaction/models"
	txnstore "curio/internal/transaction/store"
	"curio/internal/transfer"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
	"curio/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Service drives the purchase state machine:
//
//	payment_submitted → completed   (seller confirms, ownership transfers)
//	payment_submitted → rejected    (seller rejects, listing reopens)
//
// Every transition runs inside the marketplace unit of work keyed on the
// item, so the transaction, the listing and the item always move together.
// ListingReader is the read surface of the listing store the state machine
// needs outside a unit of work.
type ListingReader interface {
	FindByID(ctx context.Context, listingID id.ListingID) (*listingmodels.Listing, error)
}

type Service struct {
	transactions txnstore.Store
	listings     ListingReader
	uow          marketplace.UnitOfWork
	executor     *transfer.Executor
	emitter      notification.Emitter
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	now          func() time.Time
}

func NewService(transactions txnstore.Store, listings ListingReader, uow marketplace.UnitOfWork, executor *transfer.Executor, emitter notification.Emitter, m *metrics.Metrics) *Service {
	return &Service{
		transactions: transactions,
		listings:     listings,
		uow:          uow,
		executor:     executor,
		emitter:      emitter,
		metrics:      m,
		tracer:       otel.Tracer("curio/transaction"),
		now:          time.Now,
	}
}

// SubmitPurchaseInput is the buyer's claim that payment was sent.
type SubmitPurchaseInput struct {
	ListingID     id.ListingID
	PaymentMethod models.PaymentMethod
	PaymentProof  models.PaymentProof
}

// SubmitPurchase claims an active listing for the buyer. The listing moves
// active→pending and the transaction is created in payment_submitted, both
// inside one unit of work. Exactly one of any number of concurrent buyers
// wins; the rest get CodeListingUnavailable.
func (s *Service) SubmitPurchase(ctx context.Context, buyerID id.UserID, input SubmitPurchaseInput) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "transaction.submit_purchase")
	defer span.End()

	// Resolve the item before entering the unit of work so the lock is
	// keyed on it; preconditions are re-checked inside.
	preview, err := s.listings.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load listing")
	}

	var txn *models.Transaction
	ctx = marketplace.WithItemKey(ctx, preview.ItemID)
	err = s.uow.RunInTx(ctx, func(ctx context.Context, st marketplace.Stores) error {
		listing, err := st.Listings.FindByID(ctx, input.ListingID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "listing not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load listing")
		}
		if listing.Status != listingmodels.StatusActive {
			s.metrics.IncrementSubmission("listing_unavailable")
			return dErrors.New(dErrors.CodeListingUnavailable, "listing is no longer available")
		}
		if !listing.Accepts(listingmodels.PaymentMethodType(input.PaymentMethod.Type)) {
			s.metrics.IncrementSubmission("rejected_input")
			return dErrors.New(dErrors.CodeInvalidPaymentMethods, "listing does not accept this payment method")
		}

		// Amount is captured here; later listing edits cannot change it.
		txn, err = models.NewTransaction(
			id.TransactionID(uuid.New()), listing.ID, listing.ItemID,
			buyerID, listing.SellerID, listing.Price,
			input.PaymentMethod, input.PaymentProof, s.now(),
		)
		if err != nil {
			s.metrics.IncrementSubmission("rejected_input")
			return err
		}

		if err := st.Listings.UpdateStatusIf(ctx, listing.ID, listingmodels.StatusActive, listingmodels.StatusPending); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				s.metrics.IncrementSubmission("listing_unavailable")
				return dErrors.New(dErrors.CodeListingUnavailable, "listing was claimed by another buyer")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "claim listing")
		}
		if err := st.Transactions.Create(ctx, txn); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create transaction")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.IncrementSubmission("accepted")
	s.emitter.Emit(ctx, notification.Event{
		UserID:   txn.SellerID,
		SenderID: txn.BuyerID,
		Type:     notifmodels.TypePaymentSubmitted,
		Title:    "Payment submitted",
		Body:     "A buyer reports payment sent for your listing. Confirm once received.",
		Data:     txnEventData(txn),
	})
	return txn, nil
}

// ConfirmPayment is the seller's attestation that payment arrived. Inside
// one unit of work the ownership transfer executes, the transaction
// completes and the listing is marked sold. A transfer failure leaves the
// transaction in payment_submitted so the seller can retry.
func (s *Service) ConfirmPayment(ctx context.Context, callerID id.UserID, txnID id.TransactionID) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "transaction.confirm_payment")
	defer span.End()

	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if err := txn.CanConfirm(callerID); err != nil {
		s.metrics.IncrementAttestation("confirm", "precondition_failed")
		return nil, err
	}

	started := s.now()
	ctx = marketplace.WithItemKey(ctx, txn.ItemID)
	err = s.uow.RunInTx(ctx, func(ctx context.Context, st marketplace.Stores) error {
		// Re-read under the transactional boundary; the pre-check above was
		// only a fast path.
		current, err := st.Transactions.FindByID(ctx, txnID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "reload transaction")
		}
		if err := current.CanConfirm(callerID); err != nil {
			return err
		}

		if err := s.executor.Execute(ctx, st.Items, current); err != nil {
			applied, verr := s.executor.Verify(ctx, st.Items, current.ItemID, current.ID)
			if verr != nil || !applied {
				return err
			}
			// The ledger already carries this transaction: an earlier
			// attempt handed the item over but stopped before the
			// bookkeeping. Fall through and finish it.
		}
		if err := st.Transactions.MarkCompletedIf(ctx, txnID, models.StatusPaymentSubmitted, s.now()); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeInvalidState, "transaction is not awaiting confirmation")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "complete transaction")
		}
		if err := st.Listings.UpdateStatusIf(ctx, current.ListingID, listingmodels.StatusPending, listingmodels.StatusSold); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "mark listing sold")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		outcome := "error"
		if dErrors.HasCode(err, dErrors.CodeTransferFailed) {
			outcome = "transfer_failed"
		}
		s.metrics.IncrementAttestation("confirm", outcome)
		return nil, err
	}

	s.metrics.IncrementAttestation("confirm", "completed")
	s.metrics.ObserveTransferLatency(s.now().Sub(started))

	completed, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, notification.Event{
		UserID:   completed.BuyerID,
		SenderID: completed.SellerID,
		Type:     notifmodels.TypePurchaseComplete,
		Title:    "Purchase complete",
		Body:     "The seller confirmed your payment. The item is now yours.",
		Data:     txnEventData(completed),
	})
	s.emitter.Emit(ctx, notification.Event{
		UserID:   completed.SellerID,
		SenderID: completed.BuyerID,
		Type:     notifmodels.TypeOwnershipTransferred,
		Title:    "Item sold",
		Body:     fmt.Sprintf("Ownership transferred to the buyer for %d.", completed.Amount),
		Data:     txnEventData(completed),
	})
	return completed, nil
}

// RejectPayment is the seller's attestation that payment never arrived.
// The transaction moves to rejected and the listing reopens so other
// buyers can purchase.
func (s *Service) RejectPayment(ctx context.Context, callerID id.UserID, txnID id.TransactionID, reason string) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "transaction.reject_payment")
	defer span.End()

	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if err := txn.CanReject(callerID, reason); err != nil {
		s.metrics.IncrementAttestation("reject", "precondition_failed")
		return nil, err
	}

	ctx = marketplace.WithItemKey(ctx, txn.ItemID)
	err = s.uow.RunInTx(ctx, func(ctx context.Context, st marketplace.Stores) error {
		current, err := st.Transactions.FindByID(ctx, txnID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "reload transaction")
		}
		if err := current.CanReject(callerID, reason); err != nil {
			return err
		}

		if err := st.Transactions.MarkRejectedIf(ctx, txnID, models.StatusPaymentSubmitted, s.now(), reason); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.New(dErrors.CodeInvalidState, "transaction is not awaiting confirmation")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "reject transaction")
		}
		if err := st.Listings.UpdateStatusIf(ctx, current.ListingID, listingmodels.StatusPending, listingmodels.StatusActive); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "reopen listing")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.IncrementAttestation("reject", "error")
		return nil, err
	}

	s.metrics.IncrementAttestation("reject", "rejected")

	rejected, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, notification.Event{
		UserID:   rejected.BuyerID,
		SenderID: rejected.SellerID,
		Type:     notifmodels.TypePaymentRejected,
		Title:    "Payment rejected",
		Body:     "The seller could not verify your payment: " + reason,
		Data:     txnEventData(rejected),
	})
	return rejected, nil
}

// GetTransaction returns one transaction to its buyer or seller.
func (s *Service) GetTransaction(ctx context.Context, callerID id.UserID, txnID id.TransactionID) (*models.Transaction, error) {
	txn, err := s.load(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if callerID != txn.BuyerID && callerID != txn.SellerID {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "transaction belongs to another user")
	}
	return txn, nil
}

// ListPendingForSeller returns claims awaiting the seller's attestation.
func (s *Service) ListPendingForSeller(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error) {
	txns, err := s.transactions.ListPendingBySeller(ctx, sellerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending transactions")
	}
	return txns, nil
}

// ListPurchases returns the buyer's completed purchase history.
func (s *Service) ListPurchases(ctx context.Context, buyerID id.UserID) ([]*models.Transaction, error) {
	txns, err := s.transactions.ListCompletedByBuyer(ctx, buyerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list purchases")
	}
	return txns, nil
}

// ListSales returns the seller's completed sales history.
func (s *Service) ListSales(ctx context.Context, sellerID id.UserID) ([]*models.Transaction, error) {
	txns, err := s.transactions.ListCompletedBySeller(ctx, sellerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list sales")
	}
	return txns, nil
}

func (s *Service) load(ctx context.Context, txnID id.TransactionID) (*models.Transaction, error) {
	txn, err := s.transactions.FindByID(ctx, txnID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load transaction")
	}
	return txn, nil
}

func txnEventData(txn *models.Transaction) map[string]string {
	return map[string]string{
		"transaction_id": txn.ID.String(),
		"listing_id":     txn.ListingID.String(),
		"item_id":        txn.ItemID.String(),
	}
}
