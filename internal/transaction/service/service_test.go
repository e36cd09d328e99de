package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itemmodels "curio/internal/item/models"
	itemstore "curio/internal/item/store"
	listingmodels "curio/internal/listing/models"
	listingstore "curio/internal/listing/store"
	"curio/internal/marketplace"
	"curio/internal/notification"
	txnmetrics "curio/internal/transaction/metrics"
	"curio/internal/transaction/models"
	txnstore "curio/internal/transaction/store"
	"curio/internal/transfer"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

// Registered once; promauto panics on duplicate registration.
var testMetrics = txnmetrics.New()

type testEnv struct {
	stores marketplace.Stores
	svc    *Service

	seller id.UserID
	buyer  id.UserID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := marketplace.Stores{
		Items:        itemstore.NewInMemory(),
		Listings:     listingstore.NewInMemory(),
		Transactions: txnstore.NewInMemory(),
	}
	uow := marketplace.NewShardedUnitOfWork(stores)
	svc := NewService(
		stores.Transactions, stores.Listings, uow,
		transfer.NewExecutor(nil), notification.NopEmitter{}, testMetrics,
	)
	return &testEnv{
		stores: stores,
		svc:    svc,
		seller: id.UserID(uuid.New()),
		buyer:  id.UserID(uuid.New()),
	}
}

// seedListing registers an item for the seller and puts it up for sale.
func (e *testEnv) seedListing(t *testing.T, price int64) *listingmodels.Listing {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	item, err := itemmodels.NewItem(id.ItemID(uuid.New()), e.seller, "Omega", now.AddDate(-1, 0, 0), price/2, price, now)
	require.NoError(t, err)
	require.NoError(t, e.stores.Items.Create(ctx, item))

	listing, err := listingmodels.NewListing(
		id.ListingID(uuid.New()), item.ID, e.seller, price,
		"Speedmaster Professional", "full set",
		[]listingmodels.PaymentMethod{
			{Type: listingmodels.PaymentUPI, Details: "seller@upi"},
			{Type: listingmodels.PaymentBankTransfer, Details: "IBAN123"},
		},
		now,
	)
	require.NoError(t, err)
	require.NoError(t, e.stores.Listings.Create(ctx, listing))
	require.NoError(t, e.stores.Items.SetListed(ctx, item.ID, listing.ID))
	return listing
}

func submitInput(listingID id.ListingID) SubmitPurchaseInput {
	return SubmitPurchaseInput{
		ListingID:     listingID,
		PaymentMethod: models.PaymentMethod{Type: "UPI", Details: "buyer@upi"},
		PaymentProof:  models.PaymentProof{Reference: "UTR-00042", Notes: "sent from app"},
	}
}

func TestSubmitPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 250_000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPaymentSubmitted, txn.Status)
	assert.Equal(t, listing.Price, txn.Amount)
	assert.Equal(t, env.seller, txn.SellerID)
	assert.Equal(t, env.buyer, txn.BuyerID)
	assert.Equal(t, "UTR-00042", txn.PaymentProof.Reference)
	require.NotNil(t, txn.PaymentSubmittedAt)

	claimed, err := env.stores.Listings.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, listingmodels.StatusPending, claimed.Status)
}

func TestSubmitPurchase_SelfPurchase(t *testing.T) {
	env := newTestEnv(t)
	listing := env.seedListing(t, 1000)

	_, err := env.svc.SubmitPurchase(context.Background(), env.seller, submitInput(listing.ID))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSelfPurchase))
}

func TestSubmitPurchase_MethodNotAccepted(t *testing.T) {
	env := newTestEnv(t)
	listing := env.seedListing(t, 1000)

	input := submitInput(listing.ID)
	input.PaymentMethod = models.PaymentMethod{Type: "Cash", Details: "in person"}

	_, err := env.svc.SubmitPurchase(context.Background(), env.buyer, input)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPaymentMethods))
}

func TestSubmitPurchase_ListingNotActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	_, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	// The listing is pending now; a second claim must lose.
	other := id.UserID(uuid.New())
	_, err = env.svc.SubmitPurchase(ctx, other, submitInput(listing.ID))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeListingUnavailable))
}

func TestSubmitPurchase_ConcurrentBuyers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 5000)

	const buyers = 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.SubmitPurchase(ctx, id.UserID(uuid.New()), submitInput(listing.ID))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeListingUnavailable), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent buyer must win the claim")
}

func TestConfirmPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 250_000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	completed, err := env.svc.ConfirmPayment(ctx, env.seller, txn.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.PaymentConfirmedAt)
	require.NotNil(t, completed.CompletedAt)

	sold, err := env.stores.Listings.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, listingmodels.StatusSold, sold.Status)

	item, err := env.stores.Items.FindByID(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Equal(t, env.buyer, item.OwnerID)
	assert.False(t, item.IsListed)
	assert.Nil(t, item.CurrentListingID)

	provenance, err := env.stores.Items.Provenance(ctx, listing.ItemID)
	require.NoError(t, err)
	require.Len(t, provenance, 1)
	assert.Equal(t, env.seller, provenance[0].Owner)

	ledger, err := env.stores.Items.Transfers(ctx, listing.ItemID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, env.seller, ledger[0].From)
	assert.Equal(t, env.buyer, ledger[0].To)
	assert.Equal(t, txn.ID, ledger[0].TransactionID)
	assert.Equal(t, txn.Amount, ledger[0].Price)
}

func TestConfirmPayment_OnlySeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(ctx, env.buyer, txn.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
}

func TestConfirmPayment_AlreadyCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)
	_, err = env.svc.ConfirmPayment(ctx, env.seller, txn.ID)
	require.NoError(t, err)

	_, err = env.svc.ConfirmPayment(ctx, env.seller, txn.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	// The repeated confirm must not grow the ledger.
	ledger, err := env.stores.Items.Transfers(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}

func TestConfirmPayment_TransferFailureLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	// Force an ownership mismatch behind the state machine's back.
	interloper := id.UserID(uuid.New())
	require.NoError(t, env.stores.Items.ReassignOwnerIf(ctx, listing.ItemID, env.seller, interloper, time.Now()))

	_, err = env.svc.ConfirmPayment(ctx, env.seller, txn.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransferFailed))

	// The transaction is still confirmable once the failure is resolved.
	current, err := env.stores.Transactions.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentSubmitted, current.Status)

	ledger, err := env.stores.Items.Transfers(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

// gatedItemStore holds every FindByID call until release is closed, so two
// confirmations can interleave at the executor's ownership check.
type gatedItemStore struct {
	itemstore.Store
	arrived chan struct{}
	release chan struct{}
}

func (g *gatedItemStore) FindByID(ctx context.Context, itemID id.ItemID) (*itemmodels.Item, error) {
	g.arrived <- struct{}{}
	<-g.release
	return g.Store.FindByID(ctx, itemID)
}

func TestConfirmPayment_ConcurrentConfirmsOptimisticProfile(t *testing.T) {
	gate := &gatedItemStore{
		Store:   itemstore.NewInMemory(),
		arrived: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	stores := marketplace.Stores{
		Items:        gate,
		Listings:     listingstore.NewInMemory(),
		Transactions: txnstore.NewInMemory(),
	}
	env := &testEnv{
		stores: stores,
		svc: NewService(
			stores.Transactions, stores.Listings, marketplace.NewPassthroughUnitOfWork(stores),
			transfer.NewExecutor(nil), notification.NopEmitter{}, testMetrics,
		),
		seller: id.UserID(uuid.New()),
		buyer:  id.UserID(uuid.New()),
	}
	ctx := context.Background()
	listing := env.seedListing(t, 3000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.ConfirmPayment(ctx, env.seller, txn.ID)
		}(i)
	}

	// Both confirmations observe the seller as owner before either writes.
	<-gate.arrived
	<-gate.arrived
	close(gate.release)
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t,
			dErrors.HasCode(err, dErrors.CodeTransferFailed) || dErrors.HasCode(err, dErrors.CodeInvalidState),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners, "exactly one concurrent confirm must complete")

	// The loser must leave no trace: one provenance entry, one ledger
	// record, the buyer as owner, the transaction completed once.
	provenance, err := env.stores.Items.Provenance(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Len(t, provenance, 1)

	ledger, err := env.stores.Items.Transfers(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Len(t, ledger, 1)

	item, err := env.stores.Items.FindByID(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Equal(t, env.buyer, item.OwnerID)

	final, err := env.stores.Transactions.FindByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
}

func TestConfirmPayment_RetryAfterPartialTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 2000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	// Hand the item over as if an earlier confirm stopped before the
	// transaction and listing bookkeeping.
	require.NoError(t, transfer.NewExecutor(nil).Execute(ctx, env.stores.Items, txn))

	completed, err := env.svc.ConfirmPayment(ctx, env.seller, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	sold, err := env.stores.Listings.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, listingmodels.StatusSold, sold.Status)

	// The retry must not re-run the handover.
	provenance, err := env.stores.Items.Provenance(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Len(t, provenance, 1)

	ledger, err := env.stores.Items.Transfers(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}

func TestRejectPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	rejected, err := env.svc.RejectPayment(ctx, env.seller, txn.ID, "no funds received")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "no funds received", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectedAt)

	// The listing reopens and the item stays with the seller.
	reopened, err := env.stores.Listings.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, listingmodels.StatusActive, reopened.Status)

	item, err := env.stores.Items.FindByID(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Equal(t, env.seller, item.OwnerID)
}

func TestRejectPayment_RequiresReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	_, err = env.svc.RejectPayment(ctx, env.seller, txn.ID, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRejectThenResubmitThenConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 90_000)

	first, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)
	_, err = env.svc.RejectPayment(ctx, env.seller, first.ID, "wrong reference")
	require.NoError(t, err)

	// A second buyer claims the reopened listing and completes the sale.
	secondBuyer := id.UserID(uuid.New())
	second, err := env.svc.SubmitPurchase(ctx, secondBuyer, submitInput(listing.ID))
	require.NoError(t, err)
	completed, err := env.svc.ConfirmPayment(ctx, env.seller, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	item, err := env.stores.Items.FindByID(ctx, listing.ItemID)
	require.NoError(t, err)
	assert.Equal(t, secondBuyer, item.OwnerID)

	// The rejected transaction stays rejected.
	stale, err := env.stores.Transactions.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, stale.Status)

	// Exactly one ledger entry, for the completed transaction.
	ledger, err := env.stores.Items.Transfers(ctx, listing.ItemID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, second.ID, ledger[0].TransactionID)
}

func TestGetTransaction_OnlyParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	_, err = env.svc.GetTransaction(ctx, env.buyer, txn.ID)
	require.NoError(t, err)
	_, err = env.svc.GetTransaction(ctx, env.seller, txn.ID)
	require.NoError(t, err)

	_, err = env.svc.GetTransaction(ctx, id.UserID(uuid.New()), txn.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
}

func TestHistories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000)

	txn, err := env.svc.SubmitPurchase(ctx, env.buyer, submitInput(listing.ID))
	require.NoError(t, err)

	pending, err := env.svc.ListPendingForSeller(ctx, env.seller)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, txn.ID, pending[0].ID)

	_, err = env.svc.ConfirmPayment(ctx, env.seller, txn.ID)
	require.NoError(t, err)

	pending, err = env.svc.ListPendingForSeller(ctx, env.seller)
	require.NoError(t, err)
	assert.Empty(t, pending)

	purchases, err := env.svc.ListPurchases(ctx, env.buyer)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, txn.ID, purchases[0].ID)

	sales, err := env.svc.ListSales(ctx, env.seller)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, txn.ID, sales[0].ID)
}
