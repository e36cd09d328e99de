package marketplace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

func TestRunInTx_SerialisesSameItem(t *testing.T) {
	uow := NewShardedUnitOfWork(Stores{})
	itemID := id.NewItemID()
	ctx := WithItemKey(context.Background(), itemID)

	const workers = 16
	var counter int
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := uow.RunInTx(ctx, func(context.Context, Stores) error {
				// A read-modify-write that would race without the shard lock.
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestRunInTx_CancelledContext(t *testing.T) {
	uow := NewShardedUnitOfWork(Stores{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := uow.RunInTx(ctx, func(context.Context, Stores) error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestRunInTx_AppliesDeadline(t *testing.T) {
	uow := NewShardedUnitOfWork(Stores{})

	err := uow.RunInTx(context.Background(), func(ctx context.Context, _ Stores) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(defaultTxTimeout), deadline, time.Second)
		return nil
	})
	require.NoError(t, err)
}

func TestRunInTx_PropagatesFnError(t *testing.T) {
	uow := NewShardedUnitOfWork(Stores{})
	want := dErrors.New(dErrors.CodeInvalidState, "boom")

	err := uow.RunInTx(context.Background(), func(context.Context, Stores) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}

func TestHashKey_Distributes(t *testing.T) {
	// Distinct keys should not all land on one shard.
	shards := map[uint32]bool{}
	for i := 0; i < 64; i++ {
		shards[hashKey(id.NewItemID().String())%numShards] = true
	}
	assert.Greater(t, len(shards), 8)
}
