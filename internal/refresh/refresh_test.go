package refresh

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/seatrail/backend-cargo/internal/lock"
	"github.com/seatrail/backend-cargo/internal/registry"
)

func TestNewRefreshTaskPayload(t *testing.T) {
	shipmentID := uuid.New()
	task, err := NewRefreshTask(shipmentID)
	require.NoError(t, err)
	require.Equal(t, TypeRefreshShipment, task.Type())

	var payload refreshPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, shipmentID, payload.ShipmentID)
}

type memStaleLister struct {
	stale []registry.Shipment
}

func (m *memStaleLister) ListStale(_ context.Context, _ time.Time, limit int) ([]registry.Shipment, error) {
	if len(m.stale) > limit {
		return m.stale[:limit], nil
	}
	return m.stale, nil
}

type memEnqueuer struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (m *memEnqueuer) Enqueue(_ context.Context, shipmentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, shipmentID)
	return nil
}

func newTestLocker(t *testing.T) *lock.Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return lock.New(rdb)
}

func TestSweeperEnqueuesStaleShipments(t *testing.T) {
	stale := []registry.Shipment{
		{ID: uuid.New()},
		{ID: uuid.New()},
	}
	enqueuer := &memEnqueuer{}
	s := &Sweeper{
		Store:      &memStaleLister{stale: stale},
		Enqueuer:   enqueuer,
		Locker:     newTestLocker(t),
		Interval:   time.Minute,
		StaleAfter: time.Hour,
		BatchSize:  10,
		Logger:     zerolog.Nop(),
	}

	s.sweep(context.Background())
	require.Len(t, enqueuer.ids, 2)
	require.Equal(t, stale[0].ID, enqueuer.ids[0])
}

func TestSweeperRespectsBatchSize(t *testing.T) {
	stale := make([]registry.Shipment, 5)
	for i := range stale {
		stale[i] = registry.Shipment{ID: uuid.New()}
	}
	enqueuer := &memEnqueuer{}
	s := &Sweeper{
		Store:      &memStaleLister{stale: stale},
		Enqueuer:   enqueuer,
		Locker:     newTestLocker(t),
		Interval:   time.Minute,
		StaleAfter: time.Hour,
		BatchSize:  3,
		Logger:     zerolog.Nop(),
	}

	s.sweep(context.Background())
	require.Len(t, enqueuer.ids, 3)
}

func TestSweeperSkipsWhenLockHeld(t *testing.T) {
	locker := newTestLocker(t)
	_, ok, err := locker.Acquire(context.Background(), "refresh-sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	enqueuer := &memEnqueuer{}
	s := &Sweeper{
		Store:      &memStaleLister{stale: []registry.Shipment{{ID: uuid.New()}}},
		Enqueuer:   enqueuer,
		Locker:     locker,
		Interval:   time.Minute,
		StaleAfter: time.Hour,
		BatchSize:  10,
		Logger:     zerolog.Nop(),
	}

	s.sweep(context.Background())
	require.Empty(t, enqueuer.ids, "a held lock suppresses the sweep")
}
