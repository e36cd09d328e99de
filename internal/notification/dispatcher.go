package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"curio/internal/notification/metrics"
	"curio/internal/notification/models"
	"curio/internal/notification/store"
	id "curio/pkg/domain"
)

// Sink receives a persisted notification for out-of-band delivery (live
// fan-out, durable queue). Sinks are best-effort; failures are counted and
// logged, never propagated.
type Sink interface {
	Name() string
	Publish(ctx context.Context, n *models.Notification) error
}

// Dispatcher implements Emitter with a buffered inbox drained by a single
// worker. Emit never blocks: when the inbox is full the event is dropped
// and counted.
type Dispatcher struct {
	store   store.Store
	inbox   chan Event
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewDispatcher(st store.Store, bufferSize int, m *metrics.Metrics, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Dispatcher{
		store:   st,
		inbox:   make(chan Event, bufferSize),
		sinks:   sinks,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (d *Dispatcher) Emit(_ context.Context, event Event) {
	select {
	case d.inbox <- event:
		d.metrics.IncrementEmitted(string(event.Type))
	default:
		d.metrics.IncrementDropped()
		d.logger.Warn("notification dropped, inbox full",
			"type", string(event.Type), "user_id", event.UserID.String())
	}
}

// Run drains the inbox until ctx is cancelled. Persistence failures are
// logged and the event is discarded; delivery is best-effort end to end.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-d.inbox:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	n := &models.Notification{
		ID:        id.NotificationID(uuid.New()),
		UserID:    event.UserID,
		SenderID:  event.SenderID,
		Type:      event.Type,
		Title:     event.Title,
		Body:      event.Body,
		Data:      event.Data,
		CreatedAt: d.now(),
	}
	if err := d.store.Append(ctx, n); err != nil {
		d.metrics.IncrementDeliveryFailure("store")
		d.logger.Error("persist notification failed",
			"type", string(n.Type), "user_id", n.UserID.String(), "error", err)
		return
	}
	for _, sink := range d.sinks {
		if err := sink.Publish(ctx, n); err != nil {
			d.metrics.IncrementDeliveryFailure(sink.Name())
			d.logger.Warn("notification sink publish failed",
				"sink", sink.Name(), "type", string(n.Type), "error", err)
		}
	}
}
