// Package store persists user notifications.
package store

import (
	"context"

	"curio/internal/notification/models"
	id "curio/pkg/domain"
)

type Store interface {
	Append(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID id.UserID) (int64, error)

	// MarkRead flips a single notification owned by userID. Returns
	// sentinel.ErrNotFound when the notification does not exist or belongs
	// to someone else.
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
	MarkAllRead(ctx context.Context, userID id.UserID) error
}
