package marketplace

import (
	"context"
	"time"

	dErrors "curio/pkg/domain-errors"
)

// PassthroughUnitOfWork runs fn without a transactional boundary. It backs
// the optimistic profile: the stores' compare-and-swap guards are the only
// protection, and fn must order its writes so every precondition is
// re-checked before the first mutation.
type PassthroughUnitOfWork struct {
	stores  Stores
	timeout time.Duration
}

func NewPassthroughUnitOfWork(stores Stores) *PassthroughUnitOfWork {
	return &PassthroughUnitOfWork{stores: stores}
}

func (u *PassthroughUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := u.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return fn(ctx, u.stores)
}
