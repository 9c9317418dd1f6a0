package tracking

import "sort"

var eventArrayKeys = []string{"Events", "events", "TrackingEvents", "trackingEvents", "Movements", "movements"}

var eventFieldAliases = struct {
	date, status, location, description, kind []string
}{
	date:        []string{"Date", "date", "EventDate", "eventDate", "ActualDate", "Timestamp", "timestamp"},
	status:      []string{"Status", "status", "Event", "event", "EventCode", "eventCode", "Code"},
	location:    []string{"Location", "location", "Port", "port", "Station", "station", "Place"},
	description: []string{"Description", "description", "Details", "details", "Message", "message"},
	kind:        []string{"Type", "type", "EventType", "eventType"},
}

// ExtractEvents derives the chronological milestone list from a vendor
// payload. When the payload carries an event array each entry is normalized
// through the date parser and status table; otherwise up to two events are
// synthesized from the discrete date fields (loaded/discharged for sea,
// departed/arrived for air). The result is sorted descending by date, with
// undated entries last in their original relative order. Both sources missing
// yields an empty slice, not an error. The function is pure: the same payload
// always produces the same sequence.
func ExtractEvents(payload map[string]any, kind Type) []Event {
	events := vendorEvents(payload)
	if events == nil {
		events = synthesizeEvents(payload, kind)
	}
	sortEventsDescending(events)
	return events
}

func vendorEvents(payload map[string]any) []Event {
	if payload == nil {
		return nil
	}
	value, ok := firstPresent(payload, eventArrayKeys)
	if !ok {
		return nil
	}
	entries, ok := value.([]any)
	if !ok {
		return nil
	}
	events := make([]Event, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		var ev Event
		if v, ok := firstPresent(m, eventFieldAliases.date); ok {
			ev.Date = ParseVendorDate(v)
		}
		rawStatus := stringAt(m, eventFieldAliases.status)
		ev.Status = NormalizeStatus(rawStatus)
		ev.Type = stringAt(m, eventFieldAliases.kind)
		if ev.Type == "" {
			ev.Type = rawStatus
		}
		ev.Location = stringAt(m, eventFieldAliases.location)
		ev.Description = stringAt(m, eventFieldAliases.description)
		events = append(events, ev)
	}
	return events
}

// synthesizeEvents builds milestones from discrete date fields when the
// vendor sent no event array.
func synthesizeEvents(payload map[string]any, kind Type) []Event {
	fields := MapVendorFields(payload, versionFor(kind))
	events := make([]Event, 0, 2)
	if kind.Air() {
		if date := ParseVendorDate(fields["departureDate"]); date != "" {
			events = append(events, Event{Date: date, Type: "departed", Status: StatusInTransit, Description: "Departed origin airport"})
		}
		if date := ParseVendorDate(fields["arrivalDate"]); date != "" {
			events = append(events, Event{Date: date, Type: "arrived", Status: StatusArrived, Description: "Arrived at destination airport"})
		}
		return events
	}
	if date := ParseVendorDate(fields["loadingDate"]); date != "" {
		events = append(events, Event{Date: date, Type: "loaded", Status: StatusInTransit, Description: "Loaded on vessel"})
	}
	if date := ParseVendorDate(fields["dischargeDate"]); date != "" {
		events = append(events, Event{Date: date, Type: "discharged", Status: StatusArrived, Description: "Discharged at port"})
	}
	return events
}

// sortEventsDescending orders events newest first. ISO date strings compare
// correctly as plain strings; unparseable (empty) dates sort last and keep
// their relative order.
func sortEventsDescending(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date == "" {
			return false
		}
		if events[j].Date == "" {
			return true
		}
		return events[i].Date > events[j].Date
	})
}

func stringAt(m map[string]any, keys []string) string {
	value, ok := firstPresent(m, keys)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

func versionFor(t Type) Version {
	if t.Air() {
		return VersionAir
	}
	return VersionSea
}
