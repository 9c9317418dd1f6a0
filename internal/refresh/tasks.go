package refresh

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeRefreshShipment is the asynq task type for one shipment re-enrichment.
const TypeRefreshShipment = "tracking:refresh"

// QueueTracking is the dedicated queue for refresh work.
const QueueTracking = "tracking"

type refreshPayload struct {
	ShipmentID uuid.UUID `json:"shipmentId"`
}

// NewRefreshTask builds an asynq task for the given shipment. Tasks are
// deduplicated per shipment while one is still pending.
func NewRefreshTask(shipmentID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(refreshPayload{ShipmentID: shipmentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRefreshShipment, payload,
		asynq.Queue(QueueTracking),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Unique(10*time.Minute),
	), nil
}
