package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memStore) InsertEvent(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

type memNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (m *memNotifier) Notify(_ context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, ev.Topic)
}

func TestBusPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	notifier := &memNotifier{}
	bus := NewBus(store, zerolog.Nop(), notifier)

	shipmentID := uuid.New()
	err := bus.Publish(context.Background(), TopicShipmentCreated, shipmentID, map[string]string{"k": "v"})
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	require.Equal(t, TopicShipmentCreated, store.events[0].Topic)
	require.Equal(t, shipmentID, store.events[0].ShipmentID)
	require.NotEqual(t, uuid.Nil, store.events[0].ID)
	require.False(t, store.events[0].OccurredAt.IsZero())
	require.Equal(t, []string{TopicShipmentCreated}, notifier.topics)
}

func TestBusStoreFailurePropagates(t *testing.T) {
	store := &memStore{err: errors.New("insert failed")}
	notifier := &memNotifier{}
	bus := NewBus(store, zerolog.Nop(), notifier)

	err := bus.Publish(context.Background(), TopicShipmentDelivered, uuid.New(), nil)
	require.Error(t, err)
	require.Empty(t, notifier.topics, "notifiers only fire after persistence")
}

func TestBusWithoutStore(t *testing.T) {
	notifier := &memNotifier{}
	bus := NewBus(nil, zerolog.Nop(), notifier)

	err := bus.Publish(context.Background(), TopicShipmentException, uuid.New(), nil)
	require.NoError(t, err)
	require.Len(t, notifier.topics, 1)
}
