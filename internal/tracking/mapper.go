package tracking

import "strings"

// Version selects which vendor API generation produced a payload.
type Version string

const (
	// VersionSea is the sea-freight vendor API ("v1.2").
	VersionSea Version = "v1.2"
	// VersionAir is the air-freight vendor API ("v2").
	VersionAir Version = "v2"
)

// fieldAlias maps a list of candidate vendor keys (the vendor mixes
// PascalCase and camelCase, and the two API generations disagree on names)
// onto one internal field name. The first candidate present and non-nil wins.
type fieldAlias struct {
	internal   string
	candidates []string
}

var baseAliases = []fieldAlias{
	{"trackingNumber", []string{"ContainerNumber", "containerNumber", "ContainerNo", "AwbNumber", "awbNumber", "BlReferenceNo", "blReferenceNo", "TrackingNumber", "trackingNumber", "ReferenceNo", "referenceNo"}},
	{"requestId", []string{"RequestId", "requestId", "request_id", "Id", "id"}},
	{"status", []string{"Status", "status", "StatusId", "statusId", "ShipmentStatus", "LastStatus", "lastStatus"}},
	{"carrier", []string{"Carrier", "carrier", "CarrierName", "carrierName", "ShippingLine", "shippingLine", "Airline", "airline", "AirlineName"}},
	{"originPort", []string{"FromPort", "fromPort", "PortOfLoading", "portOfLoading", "Pol", "pol", "Origin", "origin", "DepartureAirport", "departureAirport"}},
	{"originCountry", []string{"FromCountry", "fromCountry", "PolCountry", "OriginCountry", "originCountry", "DepartureCountry"}},
	{"destinationPort", []string{"ToPort", "toPort", "PortOfDischarge", "portOfDischarge", "Pod", "pod", "Destination", "destination", "ArrivalAirport", "arrivalAirport"}},
	{"destinationCountry", []string{"ToCountry", "toCountry", "PodCountry", "DestinationCountry", "destinationCountry", "ArrivalCountry"}},
	{"loadingDate", []string{"LoadingDate", "loadingDate", "LoadedDate", "GateInDate"}},
	{"departureDate", []string{"DepartureDate", "departureDate", "Etd", "ETD", "etd", "SailingDate", "sailingDate"}},
	{"arrivalDate", []string{"ArrivalDate", "arrivalDate", "Eta", "ETA", "eta", "EstimatedArrivalDate"}},
	{"dischargeDate", []string{"DischargeDate", "dischargeDate", "GateOutDate", "DischargedDate"}},
	{"vessel", []string{"Vessel", "vessel", "VesselName", "vesselName"}},
	{"vesselIMO", []string{"VesselIMO", "vesselIMO", "Imo", "imo", "VesselImo"}},
	{"voyage", []string{"VesselVoyage", "vesselVoyage", "Voyage", "voyage", "VoyageNo"}},
	{"flightNumber", []string{"FlightNumber", "flightNumber", "FlightNo", "flightNo"}},
	{"pieces", []string{"Pieces", "pieces", "Quantity", "quantity"}},
	{"weight", []string{"Weight", "weight", "GrossWeight", "grossWeight"}},
}

var transshipmentKeys = []string{"TSPorts", "tsPorts", "TransshipmentPorts", "transshipmentPorts"}

var transshipmentAliases = []fieldAlias{
	{"port", []string{"Port", "port", "PortName", "portName"}},
	{"arrivalDate", []string{"ArrivalDate", "arrivalDate", "Eta", "eta"}},
	{"departureDate", []string{"DepartureDate", "departureDate", "Etd", "etd"}},
	{"vessel", []string{"Vessel", "vessel", "VesselName"}},
}

// RawKey is where MapVendorFields preserves the untouched vendor payload for
// audit and debugging.
const RawKey = "_raw"

// MapVendorFields flattens an arbitrary vendor payload into the internal
// field dictionary. Date values that arrive as {Date, IsActual} composites
// are unwrapped to the inner date string, with the boolean recorded under a
// derived "<field>IsActual" key. The function never fails: unmatched fields
// are simply absent from the output.
func MapVendorFields(raw map[string]any, version Version) map[string]any {
	fields := make(map[string]any, len(baseAliases)+1)
	if raw == nil {
		fields[RawKey] = map[string]any{}
		return fields
	}
	for _, alias := range baseAliases {
		value, ok := firstPresent(raw, alias.candidates)
		if !ok {
			continue
		}
		if date, actual, composite := unwrapDateObject(value); composite {
			fields[alias.internal] = date
			fields[alias.internal+"IsActual"] = actual
			continue
		}
		fields[alias.internal] = value
	}
	if ports := mapTransshipments(raw); len(ports) > 0 {
		fields["transshipments"] = ports
	}
	fields[RawKey] = raw
	return fields
}

// mapTransshipments maps each transshipment port entry's sub-fields
// individually so downstream code sees one consistent shape.
func mapTransshipments(raw map[string]any) []map[string]any {
	value, ok := firstPresent(raw, transshipmentKeys)
	if !ok {
		return nil
	}
	entries, ok := value.([]any)
	if !ok {
		return nil
	}
	ports := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		port := make(map[string]any, len(transshipmentAliases))
		for _, alias := range transshipmentAliases {
			v, ok := firstPresent(m, alias.candidates)
			if !ok {
				continue
			}
			if date, actual, composite := unwrapDateObject(v); composite {
				port[alias.internal] = date
				port[alias.internal+"IsActual"] = actual
				continue
			}
			port[alias.internal] = v
		}
		if len(port) > 0 {
			ports = append(ports, port)
		}
	}
	return ports
}

// unwrapDateObject detects the vendor's {Date, IsActual} composite shape.
func unwrapDateObject(value any) (date string, actual bool, composite bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return "", false, false
	}
	rawDate, ok := firstPresent(m, []string{"Date", "date"})
	if !ok {
		return "", false, false
	}
	date, _ = rawDate.(string)
	if v, ok := firstPresent(m, []string{"IsActual", "isActual"}); ok {
		actual, _ = v.(bool)
	}
	return date, actual, true
}

// firstPresent returns the first candidate key whose value exists and is
// neither nil nor an empty string.
func firstPresent(m map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		value, ok := m[key]
		if !ok || value == nil {
			continue
		}
		if s, isStr := value.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return value, true
	}
	return nil, false
}

// fieldString reads a mapped field as a trimmed string, falling back to the
// placeholder when missing or of an unexpected type.
func fieldString(fields map[string]any, name string) string {
	value, ok := fields[name]
	if !ok {
		return unknown
	}
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return unknown
	}
	return strings.TrimSpace(s)
}
