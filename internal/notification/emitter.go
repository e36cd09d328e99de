// Package notification delivers best-effort user notifications. Emission is
// fire-and-forget: a failed or dropped notification never fails the
// transaction that triggered it.
package notification

import (
	"context"

	"curio/internal/notification/models"
	id "curio/pkg/domain"
)

// Event is an emission request before persistence assigns it an ID.
// SenderID identifies the counterparty whose action triggered the event;
// it is zero for system-originated notifications.
type Event struct {
	UserID   id.UserID
	SenderID id.UserID
	Type     models.Type
	Title    string
	Body     string
	Data     map[string]string
}

// Emitter accepts events without blocking the caller. Implementations must
// never return delivery failures to the emitting code path.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// NopEmitter discards every event. Used in tests and when notifications are
// disabled.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}
