package events

// Topics published by the registry and tracking pipeline.
const (
	TopicShipmentCreated       = "shipment.created"
	TopicShipmentStatusChanged = "shipment.status_changed"
	TopicShipmentDelivered     = "shipment.delivered"
	TopicShipmentException     = "shipment.exception"
	TopicShipmentRefreshed     = "shipment.refreshed"
)
