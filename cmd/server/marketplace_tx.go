package main

import (
	"context"
	"database/sql"
	"time"

	"curio/internal/marketplace"
	dErrors "curio/pkg/domain-errors"
	txcontext "curio/pkg/platform/tx"
)

const defaultMarketplaceTxTimeout = 5 * time.Second

// marketplacePostgresTx is the transactional unit-of-work profile: every
// multi-store mutation runs inside one database transaction. The stores
// pick the transaction up from the context.
type marketplacePostgresTx struct {
	db      *sql.DB
	stores  marketplace.Stores
	timeout time.Duration
}

func newMarketplacePostgresTx(db *sql.DB, stores marketplace.Stores) *marketplacePostgresTx {
	return &marketplacePostgresTx{db: db, stores: stores}
}

func (t *marketplacePostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, s marketplace.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultMarketplaceTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.stores); err != nil {
		return err
	}

	return tx.Commit()
}
