package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"curio/internal/transaction/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// InMemoryStore keeps transactions in process memory.
type InMemoryStore struct {
	mu           sync.RWMutex
	transactions map[id.TransactionID]*models.Transaction
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{transactions: make(map[id.TransactionID]*models.Transaction)}
}

func (s *InMemoryStore) Create(_ context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[txn.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *txn
	s.transactions[txn.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, txnID id.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.transactions[txnID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *txn
	return &clone, nil
}

func (s *InMemoryStore) ListPendingBySeller(_ context.Context, sellerID id.UserID) ([]*models.Transaction, error) {
	return s.list(func(t *models.Transaction) bool {
		return t.SellerID == sellerID && t.Status == models.StatusPaymentSubmitted
	}), nil
}

func (s *InMemoryStore) ListCompletedByBuyer(_ context.Context, buyerID id.UserID) ([]*models.Transaction, error) {
	return s.list(func(t *models.Transaction) bool {
		return t.BuyerID == buyerID && t.Status == models.StatusCompleted
	}), nil
}

func (s *InMemoryStore) ListCompletedBySeller(_ context.Context, sellerID id.UserID) ([]*models.Transaction, error) {
	return s.list(func(t *models.Transaction) bool {
		return t.SellerID == sellerID && t.Status == models.StatusCompleted
	}), nil
}

func (s *InMemoryStore) list(keep func(*models.Transaction) bool) []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, txn := range s.transactions {
		if keep(txn) {
			clone := *txn
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *InMemoryStore) MarkCompletedIf(_ context.Context, txnID id.TransactionID, from models.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.transactions[txnID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if txn.Status != from {
		return sentinel.ErrInvalidState
	}
	confirmedAt := at
	txn.Status = models.StatusCompleted
	txn.PaymentConfirmedAt = &confirmedAt
	txn.CompletedAt = &confirmedAt
	return nil
}

func (s *InMemoryStore) MarkRejectedIf(_ context.Context, txnID id.TransactionID, from models.Status, at time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.transactions[txnID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if txn.Status != from {
		return sentinel.ErrInvalidState
	}
	rejectedAt := at
	txn.Status = models.StatusRejected
	txn.RejectedAt = &rejectedAt
	txn.RejectionReason = reason
	return nil
}
