package registry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/seatrail/backend-cargo/internal/events"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

type fakeStore struct {
	mu        sync.Mutex
	shipments map[uuid.UUID]*Shipment
}

func newFakeStore() *fakeStore {
	return &fakeStore{shipments: map[uuid.UUID]*Shipment{}}
}

func (f *fakeStore) Create(_ context.Context, sh *Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.shipments {
		if existing.TrackingNumber == sh.TrackingNumber {
			return ErrDuplicate
		}
	}
	sh.CreatedAt = time.Now()
	sh.UpdatedAt = sh.CreatedAt
	clone := *sh
	f.shipments[sh.ID] = &clone
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shipments[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *sh
	return &clone, nil
}

func (f *fakeStore) GetByTrackingNumber(_ context.Context, trackingNumber string) (*Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sh := range f.shipments {
		if sh.TrackingNumber == strings.ToUpper(strings.TrimSpace(trackingNumber)) {
			clone := *sh
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) List(_ context.Context, _ ListFilter) ([]Shipment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Shipment, 0, len(f.shipments))
	for _, sh := range f.shipments {
		out = append(out, *sh)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) Update(_ context.Context, sh *Shipment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shipments[sh.ID]; !ok {
		return ErrNotFound
	}
	sh.UpdatedAt = time.Now()
	clone := *sh
	f.shipments[sh.ID] = &clone
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shipments[id]; !ok {
		return ErrNotFound
	}
	delete(f.shipments, id)
	return nil
}

func (f *fakeStore) LinkProduct(_ context.Context, id uuid.UUID, productID *uuid.UUID, productName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shipments[id]
	if !ok {
		return ErrNotFound
	}
	sh.ProductID = productID
	sh.ProductName = productName
	return nil
}

func (f *fakeStore) ListStale(_ context.Context, cutoff time.Time, limit int) ([]Shipment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Shipment{}
	for _, sh := range f.shipments {
		if sh.Status.Terminal() {
			continue
		}
		if sh.LastRefreshed == nil || sh.LastRefreshed.Before(cutoff) {
			out = append(out, *sh)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) QueryStats(_ context.Context) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := Stats{ByStatus: map[string]int64{}, ByType: map[string]int64{}}
	for _, sh := range f.shipments {
		stats.Total++
		stats.ByStatus[string(sh.Status)]++
		stats.ByType[string(sh.TrackingType)]++
	}
	stats.Delivered = stats.ByStatus[string(tracking.StatusDelivered)]
	stats.InTransit = stats.ByStatus[string(tracking.StatusInTransit)]
	stats.Exceptions = stats.ByStatus[string(tracking.StatusException)]
	return stats, nil
}

type fakeTracker struct {
	mu      sync.Mutex
	lookups []tracking.Query
	next    tracking.Lookup
}

func (f *fakeTracker) Track(_ context.Context, q tracking.Query) tracking.Lookup {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, q)
	lookup := f.next
	if lookup.Result.TrackingNumber == "" {
		lookup.Result = tracking.MockResult(q.Identifier, q.Type)
		lookup.Source = tracking.SourceMock
	}
	return lookup
}

type recordingBus struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingBus) Publish(_ context.Context, topic string, _ uuid.UUID, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recordingBus) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func liveLookup(identifier string, status tracking.Status) tracking.Lookup {
	return tracking.Lookup{
		Result: tracking.Result{
			TrackingNumber: identifier,
			Type:           tracking.TypeContainer,
			Status:         status,
			Carrier:        tracking.Carrier{Code: "MAERSK", Name: "Maersk Line"},
			Vessel:         &tracking.Vessel{Name: "TEST VESSEL"},
			Events:         []tracking.Event{},
		},
		Source: tracking.SourceLive,
	}
}

func newTestService(store ShipmentStore, tracker Tracker, bus Publisher) *Service {
	return &Service{
		Store:   store,
		Tracker: tracker,
		Bus:     bus,
		Logger:  zerolog.Nop(),
	}
}

func TestServiceCreate(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{next: liveLookup("MSKU1234567", tracking.StatusInTransit)}
	bus := &recordingBus{}
	svc := newTestService(store, tracker, bus)

	sh, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "msku1234567"})
	require.NoError(t, err)
	require.Equal(t, "MSKU1234567", sh.TrackingNumber, "tracking numbers are canonicalized")
	require.Equal(t, tracking.StatusInTransit, sh.Status)
	require.Equal(t, tracking.SourceLive, sh.Source)
	require.Equal(t, "MAERSK", sh.CarrierCode)
	require.NotNil(t, sh.LastRefreshed)
	require.Equal(t, []string{events.TopicShipmentCreated}, bus.published())

	_, err = svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestServiceCreateRejectsEmptyTrackingNumber(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeTracker{}, &recordingBus{})
	_, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceRefreshPublishesStatusChange(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{next: liveLookup("MSKU1234567", tracking.StatusInTransit)}
	bus := &recordingBus{}
	svc := newTestService(store, tracker, bus)

	sh, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.NoError(t, err)

	tracker.next = liveLookup("MSKU1234567", tracking.StatusDelivered)
	refreshed, err := svc.Refresh(context.Background(), sh.ID, true)
	require.NoError(t, err)
	require.Equal(t, tracking.StatusDelivered, refreshed.Status)

	topics := bus.published()
	require.Contains(t, topics, events.TopicShipmentRefreshed)
	require.Contains(t, topics, events.TopicShipmentStatusChanged)
	require.Contains(t, topics, events.TopicShipmentDelivered)
}

func TestServiceRefreshKeepsLiveDataOnMockFallback(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{next: liveLookup("MSKU1234567", tracking.StatusInTransit)}
	svc := newTestService(store, tracker, &recordingBus{})

	sh, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.NoError(t, err)

	tracker.next = tracking.Lookup{
		Result: tracking.MockResult("MSKU1234567", tracking.TypeContainer),
		Source: tracking.SourceMock,
		Suppressed: errors.New("vendor down"),
	}
	refreshed, err := svc.Refresh(context.Background(), sh.ID, true)
	require.NoError(t, err)
	require.Equal(t, tracking.SourceLive, refreshed.Source, "mock data must not overwrite live data")
	require.Equal(t, tracking.StatusInTransit, refreshed.Status)
}

func TestServiceRefreshUnknownShipment(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeTracker{}, &recordingBus{})
	_, err := svc.Refresh(context.Background(), uuid.New(), true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceApplyWebhook(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{next: liveLookup("MSKU1234567", tracking.StatusInTransit)}
	bus := &recordingBus{}
	svc := newTestService(store, tracker, bus)

	sh, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.NoError(t, err)

	payload := map[string]any{
		"ContainerNumber": "MSKU1234567",
		"Status":          "Discharged",
	}
	updated, err := svc.ApplyWebhook(context.Background(), payload, tracking.TypeContainer)
	require.NoError(t, err)
	require.Equal(t, sh.ID, updated.ID)
	require.Equal(t, tracking.StatusArrived, updated.Status)
	require.Contains(t, bus.published(), events.TopicShipmentStatusChanged)
}

func TestServiceApplyWebhookUnknownTrackingNumber(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeTracker{}, &recordingBus{})
	payload := map[string]any{"ContainerNumber": "NONE9999999", "Status": "Sailing"}
	_, err := svc.ApplyWebhook(context.Background(), payload, tracking.TypeContainer)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceLinkProduct(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{next: liveLookup("MSKU1234567", tracking.StatusInTransit)}
	svc := newTestService(store, tracker, &recordingBus{})

	sh, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.NoError(t, err)

	productID := uuid.New()
	linked, err := svc.LinkProduct(context.Background(), sh.ID, &productID, "Espresso Machines")
	require.NoError(t, err)
	require.Equal(t, &productID, linked.ProductID)
	require.Equal(t, "Espresso Machines", linked.ProductName)
}

func TestServiceQueryStats(t *testing.T) {
	store := newFakeStore()
	tracker := &fakeTracker{next: liveLookup("MSKU1234567", tracking.StatusInTransit)}
	svc := newTestService(store, tracker, &recordingBus{})

	_, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.NoError(t, err)
	tracker.next = liveLookup("EGHU7654321", tracking.StatusDelivered)
	_, err = svc.Create(context.Background(), CreateInput{TrackingNumber: "EGHU7654321"})
	require.NoError(t, err)

	stats, err := svc.QueryStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Total)
	require.Equal(t, int64(1), stats.InTransit)
	require.Equal(t, int64(1), stats.Delivered)
}
