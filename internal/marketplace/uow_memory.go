package marketplace

import (
	"context"
	"sync"
	"time"

	dErrors "curio/pkg/domain-errors"
)

// Operations are distributed across N shards based on a hash of the item ID,
// so unrelated items proceed in parallel while two mutations of the same
// item serialise.
const numShards = 128

const defaultTxTimeout = 5 * time.Second

// ShardedUnitOfWork is the in-memory unit of work. It provides the same
// all-or-nothing contract as the postgres variant only when fn orders its
// writes so every precondition is re-checked before the first mutation;
// the services uphold that ordering.
type ShardedUnitOfWork struct {
	shards  [numShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

func NewShardedUnitOfWork(stores Stores) *ShardedUnitOfWork {
	return &ShardedUnitOfWork{stores: stores}
}

func (u *ShardedUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
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

	shard := u.selectShard(ctx)
	u.shards[shard].Lock()
	defer u.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, u.stores)
}

func (u *ShardedUnitOfWork) selectShard(ctx context.Context) int {
	if key, ok := itemKeyFrom(ctx); ok {
		return int(hashKey(key) % numShards)
	}
	return 0
}

// hashKey uses FNV-1a for good distribution across shards.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
