package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"curio/internal/notification/models"
	platformredis "curio/internal/platform/redis"
)

// RedisFanout publishes persisted notifications to a per-user pub/sub
// channel so connected clients receive them live.
type RedisFanout struct {
	client *platformredis.Client
}

func NewRedisFanout(client *platformredis.Client) *RedisFanout {
	return &RedisFanout{client: client}
}

func (f *RedisFanout) Name() string { return "redis" }

func (f *RedisFanout) Publish(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	channel := "curio.notifications." + n.UserID.String()
	return f.client.Publish(ctx, channel, payload).Err()
}
