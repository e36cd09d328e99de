package models

import (
	"time"

	id "curio/pkg/domain"
)

// Type classifies a notification for client-side rendering and routing.
type Type string

const (
	TypePaymentSubmitted     Type = "payment_submitted"
	TypePaymentConfirmed     Type = "payment_confirmed"
	TypePaymentRejected      Type = "payment_rejected"
	TypePurchaseComplete     Type = "purchase_complete"
	TypeOwnershipTransferred Type = "ownership_transferred"
	TypeFollow               Type = "follow"
	TypeLike                 Type = "like"
	TypeComment              Type = "comment"
	TypeNewMessage           Type = "new_message"
)

// Notification is one delivered-to-inbox event for a user. SenderID is the
// counterparty that triggered it (zero for system events). Data carries
// type-specific references (listing, transaction, item IDs) as opaque
// strings so the schema never needs migrating per type.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	UserID    id.UserID         `json:"user_id"`
	SenderID  id.UserID         `json:"sender_id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
