package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "curio/pkg/domain"
	dErrors "curio/pkg/domain-errors"
)

func upi() PaymentMethod {
	return PaymentMethod{Type: "UPI", Details: "buyer@upi"}
}

func TestNewTransaction(t *testing.T) {
	buyer := id.NewUserID()
	seller := id.NewUserID()
	now := time.Now()

	txn, err := NewTransaction(id.NewTransactionID(), id.NewListingID(), id.NewItemID(),
		buyer, seller, 1200, upi(), PaymentProof{Reference: "UTR-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusPaymentSubmitted, txn.Status)
	require.NotNil(t, txn.PaymentSubmittedAt)
	assert.Equal(t, int64(1200), txn.Amount)

	t.Run("rejects self purchase", func(t *testing.T) {
		_, err := NewTransaction(id.NewTransactionID(), id.NewListingID(), id.NewItemID(),
			buyer, buyer, 1200, upi(), PaymentProof{}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSelfPurchase))
	})

	t.Run("rejects a non-positive amount", func(t *testing.T) {
		_, err := NewTransaction(id.NewTransactionID(), id.NewListingID(), id.NewItemID(),
			buyer, seller, 0, upi(), PaymentProof{}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects an incomplete payment method", func(t *testing.T) {
		_, err := NewTransaction(id.NewTransactionID(), id.NewListingID(), id.NewItemID(),
			buyer, seller, 1200, PaymentMethod{Type: "UPI"}, PaymentProof{}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestCanConfirm(t *testing.T) {
	buyer := id.NewUserID()
	seller := id.NewUserID()
	txn, err := NewTransaction(id.NewTransactionID(), id.NewListingID(), id.NewItemID(),
		buyer, seller, 1200, upi(), PaymentProof{}, time.Now())
	require.NoError(t, err)

	assert.NoError(t, txn.CanConfirm(seller))

	t.Run("only the seller", func(t *testing.T) {
		err := txn.CanConfirm(buyer)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	t.Run("only while awaiting confirmation", func(t *testing.T) {
		txn.Status = StatusCompleted
		err := txn.CanConfirm(seller)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestCanReject(t *testing.T) {
	buyer := id.NewUserID()
	seller := id.NewUserID()
	txn, err := NewTransaction(id.NewTransactionID(), id.NewListingID(), id.NewItemID(),
		buyer, seller, 1200, upi(), PaymentProof{}, time.Now())
	require.NoError(t, err)

	assert.NoError(t, txn.CanReject(seller, "proof mismatch"))

	t.Run("requires a reason", func(t *testing.T) {
		err := txn.CanReject(seller, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("only the seller", func(t *testing.T) {
		err := txn.CanReject(buyer, "proof mismatch")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusSubmitted.IsTerminal())
	assert.False(t, StatusPaymentSubmitted.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
}
