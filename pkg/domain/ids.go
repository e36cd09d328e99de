// Package domain defines the typed identifiers shared across the engine.
//
// Every entity gets its own UUID-backed type so that a listing ID can never
// be passed where a transaction ID is expected. Parsing happens once, at the
// trust boundary; services only ever see validated IDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "curio/pkg/domain-errors"
)

type (
	// UserID identifies a marketplace participant. Identity resolution is
	// owned by the collaborator layer; the engine only authorizes with it.
	UserID uuid.UUID

	// ItemID identifies a collectible in the item registry.
	ItemID uuid.UUID

	// ListingID identifies a sale listing.
	ListingID uuid.UUID

	// TransactionID identifies one purchase attempt against a listing.
	TransactionID uuid.UUID

	// NotificationID identifies a stored notification.
	NotificationID uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ItemID) String() string        { return uuid.UUID(id).String() }
func (id ListingID) String() string     { return uuid.UUID(id).String() }
func (id TransactionID) String() string { return uuid.UUID(id).String() }
func (id NotificationID) String() string {
	return uuid.UUID(id).String()
}

// Text marshaling renders IDs as canonical UUID strings in JSON payloads.
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id ItemID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id ListingID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id TransactionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ItemID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ListingID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TransactionID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id UserID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id ListingID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random user ID. Intended for tests and seeds;
// production identities arrive already minted by the identity provider.
func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewItemID() ItemID                 { return ItemID(uuid.New()) }
func NewListingID() ListingID           { return ListingID(uuid.New()) }
func NewTransactionID() TransactionID   { return TransactionID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Label names the ID kind for the error message.
func parseUUID(raw, label string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be the nil UUID")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user id")
	return UserID(parsed), err
}

func ParseItemID(raw string) (ItemID, error) {
	parsed, err := parseUUID(raw, "item id")
	return ItemID(parsed), err
}

func ParseListingID(raw string) (ListingID, error) {
	parsed, err := parseUUID(raw, "listing id")
	return ListingID(parsed), err
}

func ParseTransactionID(raw string) (TransactionID, error) {
	parsed, err := parseUUID(raw, "transaction id")
	return TransactionID(parsed), err
}

func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw, "notification id")
	return NotificationID(parsed), err
}
