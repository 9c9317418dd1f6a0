package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/seatrail/backend-cargo/internal/tracking"
)

// Shipment is a tracked consignment persisted in the registry. Route and
// carrier fields use the "-" placeholder when the vendor never supplied them.
type Shipment struct {
	ID             uuid.UUID        `json:"id"`
	TrackingNumber string           `json:"trackingNumber"`
	TrackingType   tracking.Type    `json:"trackingType"`
	Status         tracking.Status  `json:"status"`
	CarrierCode    string           `json:"carrierCode"`
	CarrierName    string           `json:"carrierName"`
	OriginPort     string           `json:"originPort"`
	OriginCountry  string           `json:"originCountry"`
	OriginDate     string           `json:"originDate"`
	DestPort       string           `json:"destinationPort"`
	DestCountry    string           `json:"destinationCountry"`
	ETA            string           `json:"eta"`
	VesselName     string           `json:"vesselName"`
	VesselIMO      string           `json:"vesselImo"`
	Voyage         string           `json:"voyage"`
	FlightNumber   string           `json:"flightNumber"`
	Airline        string           `json:"airline"`
	RequestID      string           `json:"requestId,omitempty"`
	Source         tracking.Source  `json:"source"`
	ProductID      *uuid.UUID       `json:"productId,omitempty"`
	ProductName    string           `json:"productName,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Events         []tracking.Event `json:"events,omitempty"`
	LastRefreshed  *time.Time       `json:"lastRefreshedAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Search   string
	Status   tracking.Status
	Type     tracking.Type
	Page     int
	PageSize int
}

// Stats summarises the registry for the dashboard.
type Stats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	ByType     map[string]int64 `json:"byType"`
	Delivered  int64            `json:"delivered"`
	InTransit  int64            `json:"inTransit"`
	Exceptions int64            `json:"exceptions"`
}
