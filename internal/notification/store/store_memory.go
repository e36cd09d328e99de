package store

import (
	"context"
	"sort"
	"sync"

	"curio/internal/notification/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	byUser map[id.UserID][]*models.Notification
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byUser: make(map[id.UserID][]*models.Notification)}
}

func (s *InMemoryStore) Append(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *n
	s.byUser[n.UserID] = append(s.byUser[n.UserID], &clone)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.byUser[userID] {
		clone := *n
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.byUser[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, userID id.UserID, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.byUser[userID] {
		if n.ID == notificationID {
			n.Read = true
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.byUser[userID] {
		n.Read = true
	}
	return nil
}
