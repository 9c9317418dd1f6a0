package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/seatrail/backend-cargo/internal/common"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

func newWebhookFixture(t *testing.T) (*WebhookHandler, *Service, *fakeStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := newFakeStore()
	tracker := &fakeTracker{next: liveLookup("MSKU1234567", tracking.StatusInTransit)}
	svc := newTestService(store, tracker, &recordingBus{})
	handler := &WebhookHandler{
		Svc:    svc,
		Idem:   common.NewIdem(rdb, time.Minute),
		Logger: zerolog.Nop(),
	}
	return handler, svc, store
}

func postWebhook(t *testing.T, handler *WebhookHandler, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shipsgo", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Receive(rec, req)
	return rec
}

func TestWebhookAppliesUpdate(t *testing.T) {
	handler, svc, _ := newWebhookFixture(t)
	sh, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.NoError(t, err)

	rec := postWebhook(t, handler, map[string]any{
		"ContainerNumber": "MSKU1234567",
		"Status":          "Arrived",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "applied", resp["status"])

	updated, err := svc.Get(context.Background(), sh.ID)
	require.NoError(t, err)
	require.Equal(t, tracking.StatusArrived, updated.Status)
}

func TestWebhookReplayIsAcknowledgedOnce(t *testing.T) {
	handler, svc, _ := newWebhookFixture(t)
	sh, err := svc.Create(context.Background(), CreateInput{TrackingNumber: "MSKU1234567"})
	require.NoError(t, err)

	payload := map[string]any{"ContainerNumber": "MSKU1234567", "Status": "Arrived"}
	first := postWebhook(t, handler, payload)
	require.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(t, handler, payload)
	require.Equal(t, http.StatusOK, second.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	require.Equal(t, "duplicate", resp["status"])

	updated, err := svc.Get(context.Background(), sh.ID)
	require.NoError(t, err)
	require.Equal(t, tracking.StatusArrived, updated.Status)
}

func TestWebhookUnknownShipmentIsIgnored(t *testing.T) {
	handler, _, _ := newWebhookFixture(t)
	rec := postWebhook(t, handler, map[string]any{
		"ContainerNumber": "NONE9999999",
		"Status":          "Sailing",
	})
	require.Equal(t, http.StatusOK, rec.Code, "unknown shipments must not trigger vendor retries")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ignored", resp["status"])
}

func TestWebhookMalformedBody(t *testing.T) {
	handler, _, _ := newWebhookFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shipsgo", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.Receive(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
