package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/obs"
)

// Event is a domain event emitted on shipment lifecycle transitions.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Topic      string          `json:"topic"`
	ShipmentID uuid.UUID       `json:"shipmentId"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Store persists events for the outbox table.
type Store interface {
	InsertEvent(ctx context.Context, ev Event) error
}

// Notifier receives events after persistence. Notifier errors are logged,
// never propagated to publishers.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Bus persists and fans out domain events. Publish failures on the store are
// returned; notifier failures are swallowed.
type Bus struct {
	store     Store
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewBus constructs a Bus. A nil store disables persistence.
func NewBus(store Store, logger zerolog.Logger, notifiers ...Notifier) *Bus {
	return &Bus{store: store, notifiers: notifiers, logger: logger}
}

// Publish persists the event and notifies subscribers.
func (b *Bus) Publish(ctx context.Context, topic string, shipmentID uuid.UUID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev := Event{
		ID:         uuid.New(),
		Topic:      topic,
		ShipmentID: shipmentID,
		Payload:    raw,
		OccurredAt: time.Now().UTC(),
	}
	if b.store != nil {
		if err := b.store.InsertEvent(ctx, ev); err != nil {
			return err
		}
	}
	if obs.DomainEventsTotal != nil {
		obs.DomainEventsTotal.WithLabelValues(topic).Inc()
	}
	for _, n := range b.notifiers {
		n.Notify(ctx, ev)
	}
	return nil
}

// LogNotifier writes every event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, ev Event) {
	l.Logger.Info().
		Str("topic", ev.Topic).
		Str("shipment_id", ev.ShipmentID.String()).
		Str("event_id", ev.ID.String()).
		Msg("domain_event")
}
