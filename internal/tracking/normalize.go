package tracking

import (
	"strings"
	"time"
)

// Normalize builds a schema-complete Result from a raw vendor payload. Every
// top-level field is populated regardless of how sparse the payload was, so
// downstream consumers never branch on absent fields. The original payload is
// preserved under Raw.
func Normalize(payload map[string]any, t Type, identifier string) Result {
	fields := MapVendorFields(payload, versionFor(t))

	result := Result{
		TrackingNumber: firstNonEmpty(fieldString(fields, "trackingNumber"), identifier),
		Type:           t,
		Status:         NormalizeStatus(rawStatusToken(fields)),
		Events:         ExtractEvents(payload, t),
		EnrichedAt:     time.Now().UTC(),
		Raw:            payload,
	}

	carrierName := fieldString(fields, "carrier")
	result.Carrier = Carrier{
		Code: carrierCodeFor(carrierName, identifier),
		Name: carrierName,
	}

	result.Route = Route{
		Origin: Origin{
			Port:    fieldString(fields, "originPort"),
			Country: fieldString(fields, "originCountry"),
			Date:    dateOrPlaceholder(fields, "loadingDate", "departureDate"),
		},
		Destination: Destination{
			Port:    fieldString(fields, "destinationPort"),
			Country: fieldString(fields, "destinationCountry"),
			ETA:     dateOrPlaceholder(fields, "arrivalDate", "dischargeDate"),
		},
	}

	if t.Air() {
		result.Flight = &Flight{
			Number:  fieldString(fields, "flightNumber"),
			Airline: carrierName,
		}
	} else {
		result.Vessel = &Vessel{
			Name:   fieldString(fields, "vessel"),
			IMO:    fieldString(fields, "vesselIMO"),
			Voyage: fieldString(fields, "voyage"),
		}
	}

	// Fall back to the latest event's status when the payload carried no
	// top-level status but did carry movements.
	if rawStatusToken(fields) == "" && len(result.Events) > 0 {
		result.Status = result.Events[0].Status
	}

	return result
}

func rawStatusToken(fields map[string]any) string {
	value, ok := fields["status"]
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

// carrierCodeFor prefers the vendor-reported name and falls back to prefix
// detection so the code is never empty.
func carrierCodeFor(name, identifier string) string {
	if name != unknown && strings.TrimSpace(name) != "" {
		return NormalizeCarrierCode(name)
	}
	return DetectCarrier(identifier)
}

func dateOrPlaceholder(fields map[string]any, names ...string) string {
	for _, name := range names {
		if value, ok := fields[name]; ok {
			if date := ParseVendorDate(value); date != "" {
				return date
			}
		}
	}
	return unknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" && v != unknown {
			return v
		}
	}
	return unknown
}
