package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"curio/internal/transaction/models"
	id "curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

type TransactionStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *TransactionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestTransactionStoreSuite(t *testing.T) {
	suite.Run(t, new(TransactionStoreSuite))
}

func (s *TransactionStoreSuite) newTransaction(buyer, seller id.UserID) *models.Transaction {
	txn, err := models.NewTransaction(
		id.TransactionID(uuid.New()), id.ListingID(uuid.New()), id.ItemID(uuid.New()),
		buyer, seller, 1000,
		models.PaymentMethod{Type: "UPI", Details: "buyer@upi"},
		models.PaymentProof{Reference: "UTR-1"},
		time.Now(),
	)
	s.Require().NoError(err)
	return txn
}

func (s *TransactionStoreSuite) TestCreateAndFind() {
	txn := s.newTransaction(id.UserID(uuid.New()), id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, txn))

	found, err := s.store.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPaymentSubmitted, found.Status)
	s.Equal(txn.Amount, found.Amount)

	s.Require().ErrorIs(s.store.Create(s.ctx, txn), sentinel.ErrConflict)

	_, err = s.store.FindByID(s.ctx, id.TransactionID(uuid.New()))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *TransactionStoreSuite) TestMarkCompletedIf() {
	txn := s.newTransaction(id.UserID(uuid.New()), id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, txn))

	at := time.Now()
	s.Require().NoError(s.store.MarkCompletedIf(s.ctx, txn.ID, models.StatusPaymentSubmitted, at))

	found, err := s.store.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, found.Status)
	s.Require().NotNil(found.PaymentConfirmedAt)
	s.Require().NotNil(found.CompletedAt)

	s.Run("second completion loses the guard", func() {
		err := s.store.MarkCompletedIf(s.ctx, txn.ID, models.StatusPaymentSubmitted, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("missing transaction", func() {
		err := s.store.MarkCompletedIf(s.ctx, id.TransactionID(uuid.New()), models.StatusPaymentSubmitted, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *TransactionStoreSuite) TestMarkRejectedIf() {
	txn := s.newTransaction(id.UserID(uuid.New()), id.UserID(uuid.New()))
	s.Require().NoError(s.store.Create(s.ctx, txn))

	s.Require().NoError(s.store.MarkRejectedIf(s.ctx, txn.ID, models.StatusPaymentSubmitted, time.Now(), "no funds"))

	found, err := s.store.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, found.Status)
	s.Equal("no funds", found.RejectionReason)
	s.Require().NotNil(found.RejectedAt)

	s.Run("confirm after reject loses the guard", func() {
		err := s.store.MarkCompletedIf(s.ctx, txn.ID, models.StatusPaymentSubmitted, time.Now())
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *TransactionStoreSuite) TestListings() {
	seller := id.UserID(uuid.New())
	buyer := id.UserID(uuid.New())

	pending := s.newTransaction(buyer, seller)
	s.Require().NoError(s.store.Create(s.ctx, pending))

	done := s.newTransaction(buyer, seller)
	s.Require().NoError(s.store.Create(s.ctx, done))
	s.Require().NoError(s.store.MarkCompletedIf(s.ctx, done.ID, models.StatusPaymentSubmitted, time.Now()))

	awaiting, err := s.store.ListPendingBySeller(s.ctx, seller)
	s.Require().NoError(err)
	s.Require().Len(awaiting, 1)
	s.Equal(pending.ID, awaiting[0].ID)

	purchases, err := s.store.ListCompletedByBuyer(s.ctx, buyer)
	s.Require().NoError(err)
	s.Require().Len(purchases, 1)
	s.Equal(done.ID, purchases[0].ID)

	sales, err := s.store.ListCompletedBySeller(s.ctx, seller)
	s.Require().NoError(err)
	s.Require().Len(sales, 1)
	s.Equal(done.ID, sales[0].ID)
}
