package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itemmodels "curio/internal/item/models"
	itemstore "curio/internal/item/store"
	listingmetrics "curio/internal/listing/metrics"
	"curio/internal/listing/models"
	listingstore "curio/internal/listing/store"
	"curio/internal/marketplace"
	txnstore "curio/internal/transaction/store"
	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

var testMetrics = listingmetrics.New()

type testEnv struct {
	stores marketplace.Stores
	svc    *Service
	owner  id.UserID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := marketplace.Stores{
		Items:        itemstore.NewInMemory(),
		Listings:     listingstore.NewInMemory(),
		Transactions: txnstore.NewInMemory(),
	}
	uow := marketplace.NewShardedUnitOfWork(stores)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	views := NewStoreViewCounter(stores.Listings, logger)
	return &testEnv{
		stores: stores,
		svc:    NewService(stores.Listings, stores.Items, uow, views, testMetrics),
		owner:  id.UserID(uuid.New()),
	}
}

func (e *testEnv) seedItem(t *testing.T, owner id.UserID, brand string) *itemmodels.Item {
	t.Helper()
	now := time.Now()
	item, err := itemmodels.NewItem(id.ItemID(uuid.New()), owner, brand, now.AddDate(-2, 0, 0), 100, 200, now)
	require.NoError(t, err)
	require.NoError(t, e.stores.Items.Create(context.Background(), item))
	return item
}

func methods() []models.PaymentMethod {
	return []models.PaymentMethod{{Type: models.PaymentUPI, Details: "owner@upi"}}
}

func TestCreateListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, env.owner, "Rolex")

	listing, err := env.svc.CreateListing(ctx, env.owner, CreateListingInput{
		ItemID:         item.ID,
		Price:          500,
		Title:          "Submariner",
		PaymentMethods: methods(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, listing.Status)

	updated, err := env.stores.Items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsListed)
	require.NotNil(t, updated.CurrentListingID)
	assert.Equal(t, listing.ID, *updated.CurrentListingID)
}

func TestCreateListing_NotOwner(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem(t, env.owner, "Rolex")

	_, err := env.svc.CreateListing(context.Background(), id.UserID(uuid.New()), CreateListingInput{
		ItemID:         item.ID,
		Price:          500,
		Title:          "Submariner",
		PaymentMethods: methods(),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotOwner))
}

func TestCreateListing_AlreadyListed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, env.owner, "Rolex")

	input := CreateListingInput{ItemID: item.ID, Price: 500, Title: "Submariner", PaymentMethods: methods()}
	_, err := env.svc.CreateListing(ctx, env.owner, input)
	require.NoError(t, err)

	_, err = env.svc.CreateListing(ctx, env.owner, input)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyListed))
}

func TestCreateListing_InvalidPaymentMethods(t *testing.T) {
	env := newTestEnv(t)
	item := env.seedItem(t, env.owner, "Rolex")

	_, err := env.svc.CreateListing(context.Background(), env.owner, CreateListingInput{
		ItemID: item.ID,
		Price:  500,
		Title:  "Submariner",
		PaymentMethods: []models.PaymentMethod{
			{Type: "Wire", Details: "x"},
		},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPaymentMethods))
}

func TestCancelListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, env.owner, "Rolex")

	listing, err := env.svc.CreateListing(ctx, env.owner, CreateListingInput{
		ItemID: item.ID, Price: 500, Title: "Submariner", PaymentMethods: methods(),
	})
	require.NoError(t, err)

	cancelled, err := env.svc.CancelListing(ctx, env.owner, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// The item is free to list again.
	updated, err := env.stores.Items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsListed)

	_, err = env.svc.CreateListing(ctx, env.owner, CreateListingInput{
		ItemID: item.ID, Price: 600, Title: "Submariner relist", PaymentMethods: methods(),
	})
	require.NoError(t, err)
}

func TestCancelListing_NotSeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, env.owner, "Rolex")

	listing, err := env.svc.CreateListing(ctx, env.owner, CreateListingInput{
		ItemID: item.ID, Price: 500, Title: "Submariner", PaymentMethods: methods(),
	})
	require.NoError(t, err)

	_, err = env.svc.CancelListing(ctx, id.UserID(uuid.New()), listing.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
}

func TestGetListing_CountsView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	item := env.seedItem(t, env.owner, "Rolex")

	listing, err := env.svc.CreateListing(ctx, env.owner, CreateListingInput{
		ItemID: item.ID, Price: 500, Title: "Submariner", PaymentMethods: methods(),
	})
	require.NoError(t, err)

	_, err = env.svc.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	got, err := env.svc.GetListing(ctx, listing.ID)
	require.NoError(t, err)

	// The second read observes the first bump; its own lands after.
	assert.GreaterOrEqual(t, got.Views, int64(1))
}

func TestBrowseActive_BrandAndPriceFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rolex := env.seedItem(t, env.owner, "Rolex")
	omega := env.seedItem(t, env.owner, "Omega")

	_, err := env.svc.CreateListing(ctx, env.owner, CreateListingInput{
		ItemID: rolex.ID, Price: 900, Title: "Submariner", PaymentMethods: methods(),
	})
	require.NoError(t, err)
	cheap, err := env.svc.CreateListing(ctx, env.owner, CreateListingInput{
		ItemID: omega.ID, Price: 300, Title: "Seamaster", PaymentMethods: methods(),
	})
	require.NoError(t, err)

	byBrand, err := env.svc.BrowseActive(ctx, BrowseFilter{Brand: "Omega"})
	require.NoError(t, err)
	require.Len(t, byBrand, 1)
	assert.Equal(t, cheap.ID, byBrand[0].Listing.ID)
	assert.Equal(t, "Omega", byBrand[0].Item.Brand)

	maxPrice := int64(500)
	byPrice, err := env.svc.BrowseActive(ctx, BrowseFilter{MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, byPrice, 1)
	assert.Equal(t, cheap.ID, byPrice[0].Listing.ID)

	all, err := env.svc.BrowseActive(ctx, BrowseFilter{Sort: listingstore.SortPriceAsc})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, cheap.ID, all[0].Listing.ID)
}
