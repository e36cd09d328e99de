// Package marketplace defines the unit-of-work boundary shared by the
// listing and transaction services. Every multi-store mutation (claiming a
// listing, executing an ownership transfer, releasing a rejected claim)
// runs inside RunInTx so either every write lands or none do.
package marketplace

import (
	"context"

	itemstore "curio/internal/item/store"
	listingstore "curio/internal/listing/store"
	txnstore "curio/internal/transaction/store"
	id "curio/pkg/domain"
)

// Stores bundles the three stores a marketplace mutation may touch.
type Stores struct {
	Items        itemstore.Store
	Listings     listingstore.Store
	Transactions txnstore.Store
}

// UnitOfWork runs fn atomically against the bundled stores. The backing
// implementation decides what atomic means: the postgres variant wraps a
// database transaction, the in-memory variant serialises on a per-item
// mutex and relies on the stores' compare-and-swap guards.
//
// fn receives a derived context; store calls inside fn must use it so a
// wrapped database transaction is picked up.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type itemKey struct{}

// WithItemKey tags the context with the item an upcoming RunInTx revolves
// around. The sharded in-memory unit of work locks on this key so two
// mutations of the same item never interleave.
func WithItemKey(ctx context.Context, itemID id.ItemID) context.Context {
	return context.WithValue(ctx, itemKey{}, itemID.String())
}

func itemKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(itemKey{}).(string)
	return key, ok && key != ""
}
