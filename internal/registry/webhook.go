package registry

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/common"
	"github.com/seatrail/backend-cargo/internal/obs"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

// WebhookHandler ingests vendor push notifications. Deliveries are
// deduplicated on a digest of the body so vendor retries are acknowledged
// without reprocessing.
type WebhookHandler struct {
	Svc    *Service
	Idem   *common.Idem
	Logger zerolog.Logger
}

// Register mounts the webhook route onto r.
func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhooks/shipsgo", h.Receive)
}

// Receive handles one webhook delivery. The response is always 200 for
// payloads we cannot use, so the vendor does not retry them forever.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.observe("read_error")
		common.JSONError(w, http.StatusBadRequest, "invalid_body", "could not read request body", nil)
		return
	}

	digest := common.Sha256Hex(body)
	if h.Idem != nil {
		first, err := h.Idem.Claim(r.Context(), "webhook:shipsgo:"+digest)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("webhook replay guard unavailable, processing anyway")
		} else if !first {
			h.observe("replay")
			common.JSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		h.observe("malformed")
		common.JSONError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON", nil)
		return
	}

	sh, err := h.Svc.ApplyWebhook(r.Context(), payload, webhookKind(payload))
	switch {
	case errors.Is(err, ErrNotFound):
		h.observe("unknown_shipment")
		common.JSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	case err != nil:
		h.observe("error")
		h.Logger.Error().Err(err).Msg("webhook processing failed")
		common.JSONError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
		return
	}

	h.observe("ok")
	common.JSON(w, http.StatusOK, map[string]any{
		"status": "applied",
		"id":     sh.ID,
	})
}

func (h *WebhookHandler) observe(result string) {
	if obs.TrackingWebhookTotal != nil {
		obs.TrackingWebhookTotal.WithLabelValues("shipsgo", result).Inc()
	}
}

// webhookKind infers the shipment kind from payload hints; air payloads
// carry an AWB or flight field.
func webhookKind(payload map[string]any) tracking.Type {
	for _, key := range []string{"awbNumber", "AwbNumber", "flightNumber", "FlightNumber"} {
		if v, ok := payload[key]; ok {
			if s, isStr := v.(string); !isStr || strings.TrimSpace(s) != "" {
				return tracking.TypeAWB
			}
		}
	}
	return tracking.TypeContainer
}
