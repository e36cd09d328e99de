package service

import (
	"context"
	"log/slog"

	listingstore "curio/internal/listing/store"
	platformredis "curio/internal/platform/redis"
	id "curio/pkg/domain"
)

// ViewCounter records a listing page view. Counting is best-effort; a lost
// bump never fails the read that triggered it.
type ViewCounter interface {
	Bump(ctx context.Context, listingID id.ListingID)
}

// StoreViewCounter writes every bump straight to the listing store.
type StoreViewCounter struct {
	store  listingstore.Store
	logger *slog.Logger
}

func NewStoreViewCounter(store listingstore.Store, logger *slog.Logger) *StoreViewCounter {
	return &StoreViewCounter{store: store, logger: logger}
}

func (c *StoreViewCounter) Bump(ctx context.Context, listingID id.ListingID) {
	if err := c.store.IncrementViews(ctx, listingID, 1); err != nil {
		c.logger.Warn("listing view bump failed", "listing_id", listingID.String(), "error", err)
	}
}

// viewFlushThreshold is how many buffered bumps accumulate in redis before
// they are flushed to the store in one write.
const viewFlushThreshold = 10

// RedisViewCounter buffers bumps in a per-listing redis counter and flushes
// the accumulated delta to the store in batches, cutting store write load
// on hot listings. If redis is unavailable the bump falls through to the
// store directly.
type RedisViewCounter struct {
	client *platformredis.Client
	store  listingstore.Store
	logger *slog.Logger
}

func NewRedisViewCounter(client *platformredis.Client, store listingstore.Store, logger *slog.Logger) *RedisViewCounter {
	return &RedisViewCounter{client: client, store: store, logger: logger}
}

func (c *RedisViewCounter) Bump(ctx context.Context, listingID id.ListingID) {
	key := "curio:listing:views:" + listingID.String()
	buffered, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Warn("redis view bump failed, writing through", "listing_id", listingID.String(), "error", err)
		if err := c.store.IncrementViews(ctx, listingID, 1); err != nil {
			c.logger.Warn("listing view bump failed", "listing_id", listingID.String(), "error", err)
		}
		return
	}
	if buffered < viewFlushThreshold {
		return
	}
	if err := c.store.IncrementViews(ctx, listingID, buffered); err != nil {
		c.logger.Warn("listing view flush failed", "listing_id", listingID.String(), "error", err)
		return
	}
	if err := c.client.DecrBy(ctx, key, buffered).Err(); err != nil {
		c.logger.Warn("redis view counter reset failed", "listing_id", listingID.String(), "error", err)
	}
}
