package tracking

import "time"

// Type classifies the kind of tracking identifier being looked up.
type Type string

const (
	// TypeContainer is a sea-freight container number (four letters, seven digits).
	TypeContainer Type = "container"
	// TypeAWB is an air waybill number.
	TypeAWB Type = "awb"
	// TypeBL is an ocean bill of lading reference.
	TypeBL Type = "bl"
	// TypeParcel is a courier parcel identifier.
	TypeParcel Type = "parcel"
	// TypeAuto asks the client to classify the identifier itself.
	TypeAuto Type = "auto"
)

// Valid reports whether the type is one of the concrete shipment kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeContainer, TypeAWB, TypeBL, TypeParcel:
		return true
	}
	return false
}

// Air reports whether the type rides the air-freight vendor API.
func (t Type) Air() bool { return t == TypeAWB }

// Status is the closed internal status vocabulary. Vendor statuses that do
// not map onto it fold to StatusRegistered.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusInTransit  Status = "in_transit"
	StatusArrived    Status = "arrived"
	StatusDelivered  Status = "delivered"
	StatusDelayed    Status = "delayed"
	StatusException  Status = "exception"
)

// Terminal reports whether a shipment in this status no longer needs
// re-enrichment.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusException
}

// Source tags where a lookup result came from.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
	SourceMock  Source = "mock"
)

// Query is the immutable input of a single tracking lookup.
type Query struct {
	Identifier   string
	Type         Type
	ForceRefresh bool
	// RequestID overrides the vendor-assigned request identifier when the
	// caller already knows it from a previous registration.
	RequestID string
}

// Carrier identifies the shipping line or airline moving the cargo.
type Carrier struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Origin describes the loading side of the route.
type Origin struct {
	Port    string `json:"port"`
	Country string `json:"country"`
	Date    string `json:"date"`
}

// Destination describes the discharge side of the route.
type Destination struct {
	Port    string `json:"port"`
	Country string `json:"country"`
	ETA     string `json:"eta"`
}

// Route pairs the origin and destination legs.
type Route struct {
	Origin      Origin      `json:"origin"`
	Destination Destination `json:"destination"`
}

// Vessel carries sea-freight conveyance details.
type Vessel struct {
	Name   string `json:"name"`
	IMO    string `json:"imo"`
	Voyage string `json:"voyage"`
}

// Flight carries air-freight conveyance details.
type Flight struct {
	Number  string `json:"number"`
	Airline string `json:"airline"`
}

// Event is a single shipment milestone. Date is a canonical ISO date string
// or empty when the vendor timestamp could not be parsed.
type Event struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Status      Status `json:"status"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Result is the normalized tracking record. Every field is always populated:
// unknown strings default to "-", Events is never nil, and Vessel/Flight are
// mutually exclusive by type. Consumers never branch on absent fields.
type Result struct {
	TrackingNumber string         `json:"trackingNumber"`
	Type           Type           `json:"trackingType"`
	Status         Status         `json:"status"`
	Carrier        Carrier        `json:"carrier"`
	Route          Route          `json:"route"`
	Vessel         *Vessel        `json:"vessel,omitempty"`
	Flight         *Flight        `json:"flight,omitempty"`
	Events         []Event        `json:"events"`
	EnrichedAt     time.Time      `json:"enrichedAt"`
	Raw            map[string]any `json:"raw,omitempty"`
}

// Lookup is the tagged outcome of Client.Track. Source distinguishes genuine
// vendor data from cached or synthesized results, and Suppressed carries the
// failure that forced a fallback, if any. Track never returns an error.
type Lookup struct {
	Result     Result
	Source     Source
	Suppressed error
}

// Fallback reports whether the result was synthesized rather than fetched.
func (l Lookup) Fallback() bool { return l.Source == SourceMock }

// unknown is the placeholder for fields the vendor payload did not provide.
const unknown = "-"
