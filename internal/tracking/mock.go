package tracking

import (
	"fmt"
	"hash/fnv"
	"time"
)

// mockLane is a plausible trade lane used when synthesizing fallback data.
type mockLane struct {
	originPort, originCountry           string
	destinationPort, destinationCountry string
}

var mockLanes = []mockLane{
	{"Shanghai", "China", "Rotterdam", "Netherlands"},
	{"Singapore", "Singapore", "Hamburg", "Germany"},
	{"Busan", "South Korea", "Long Beach", "United States"},
	{"Ningbo", "China", "Felixstowe", "United Kingdom"},
	{"Jebel Ali", "United Arab Emirates", "Antwerp", "Belgium"},
}

var mockStatuses = []Status{StatusInTransit, StatusArrived, StatusRegistered, StatusDelivered}

// MockResult synthesizes a plausible, schema-complete result for the
// identifier. The output is deterministic per identifier (seeded from its
// hash) so repeated fallbacks agree with each other and tests stay stable.
// It backs both permanent mock mode (no vendor credentials) and per-call
// fallback when the vendor path fails.
func MockResult(identifier string, t Type) Result {
	if !t.Valid() {
		t = DetectType(identifier)
	}
	seed := fnv32(identifier)
	lane := mockLanes[seed%uint32(len(mockLanes))]
	status := mockStatuses[seed%uint32(len(mockStatuses))]

	anchor := time.Now().UTC().AddDate(0, 0, -int(seed%21)-3)
	departure := anchor.Format(isoDate)
	arrival := anchor.AddDate(0, 0, 14+int(seed%14)).Format(isoDate)

	carrierCode := DetectCarrier(identifier)
	result := Result{
		TrackingNumber: identifier,
		Type:           t,
		Status:         status,
		Carrier:        Carrier{Code: carrierCode, Name: carrierCode},
		Route: Route{
			Origin:      Origin{Port: lane.originPort, Country: lane.originCountry, Date: departure},
			Destination: Destination{Port: lane.destinationPort, Country: lane.destinationCountry, ETA: arrival},
		},
		Events:     mockEvents(t, status, departure, arrival, lane),
		EnrichedAt: time.Now().UTC(),
		Raw:        map[string]any{},
	}
	if t.Air() {
		result.Flight = &Flight{
			Number:  fmt.Sprintf("%s%03d", carrierCode, seed%900+100),
			Airline: carrierCode,
		}
	} else {
		result.Vessel = &Vessel{
			Name:   fmt.Sprintf("MV HORIZON %d", seed%90+10),
			IMO:    fmt.Sprintf("9%06d", seed%1000000),
			Voyage: fmt.Sprintf("%03dE", seed%900+100),
		}
	}
	return result
}

func mockEvents(t Type, status Status, departure, arrival string, lane mockLane) []Event {
	events := []Event{}
	if t.Air() {
		events = append(events, Event{Date: departure, Type: "departed", Status: StatusInTransit, Location: lane.originPort, Description: "Departed origin airport"})
		if status == StatusArrived || status == StatusDelivered {
			events = append(events, Event{Date: arrival, Type: "arrived", Status: StatusArrived, Location: lane.destinationPort, Description: "Arrived at destination airport"})
		}
	} else {
		events = append(events, Event{Date: departure, Type: "loaded", Status: StatusInTransit, Location: lane.originPort, Description: "Loaded on vessel"})
		if status == StatusArrived || status == StatusDelivered {
			events = append(events, Event{Date: arrival, Type: "discharged", Status: StatusArrived, Location: lane.destinationPort, Description: "Discharged at port"})
		}
	}
	sortEventsDescending(events)
	return events
}

func fnv32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
