package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/obs"
	"github.com/seatrail/backend-cargo/internal/registry"
)

// Handler processes refresh tasks.
type Handler struct {
	Svc    *registry.Service
	Logger zerolog.Logger
}

// HandleRefresh re-enriches one shipment. A deleted shipment completes the
// task rather than retrying it.
func (h *Handler) HandleRefresh(ctx context.Context, task *asynq.Task) error {
	var payload refreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		h.observe("malformed")
		return fmt.Errorf("refresh: malformed payload: %v: %w", err, asynq.SkipRetry)
	}

	sh, err := h.Svc.Refresh(ctx, payload.ShipmentID, false)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		h.observe("gone")
		h.Logger.Debug().Str("shipment_id", payload.ShipmentID.String()).Msg("shipment deleted before refresh")
		return nil
	case err != nil:
		h.observe("error")
		return err
	}

	h.observe("ok")
	h.Logger.Info().
		Str("shipment_id", sh.ID.String()).
		Str("status", string(sh.Status)).
		Str("source", string(sh.Source)).
		Msg("shipment refreshed")
	return nil
}

func (h *Handler) observe(result string) {
	if obs.RefreshRunsTotal != nil {
		obs.RefreshRunsTotal.WithLabelValues(result).Inc()
	}
}
