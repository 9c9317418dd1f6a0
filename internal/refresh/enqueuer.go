package refresh

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Enqueuer schedules refresh tasks.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// Enqueue schedules one shipment refresh. Duplicate pending tasks are
// silently skipped.
func (e *Enqueuer) Enqueue(ctx context.Context, shipmentID uuid.UUID) error {
	if e == nil || e.Client == nil {
		return nil
	}
	task, err := NewRefreshTask(shipmentID)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		e.Logger.Warn().Err(err).Str("shipment_id", shipmentID.String()).Msg("refresh enqueue failed")
	}
	return err
}
