package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractEventsFromVendorArray(t *testing.T) {
	payload := map[string]any{
		"Events": []any{
			map[string]any{"Date": "2024-04-01", "Status": "Loaded", "Location": "Shanghai"},
			map[string]any{"Date": "2024-04-20", "Status": "Discharged", "Location": "Rotterdam", "Description": "Off the vessel"},
			map[string]any{"Status": "Booked"},
		},
	}
	events := ExtractEvents(payload, TypeContainer)
	require.Len(t, events, 3)
	// newest first, undated last
	require.Equal(t, "2024-04-20", events[0].Date)
	require.Equal(t, StatusArrived, events[0].Status)
	require.Equal(t, "Off the vessel", events[0].Description)
	require.Equal(t, "2024-04-01", events[1].Date)
	require.Equal(t, StatusInTransit, events[1].Status)
	require.Equal(t, "", events[2].Date)
	require.Equal(t, StatusRegistered, events[2].Status)
}

func TestExtractEventsSynthesizesSea(t *testing.T) {
	payload := map[string]any{
		"LoadingDate":   "2024-04-01",
		"DischargeDate": map[string]any{"Date": "2024-04-20", "IsActual": true},
	}
	events := ExtractEvents(payload, TypeContainer)
	require.Len(t, events, 2)
	require.Equal(t, "discharged", events[0].Type)
	require.Equal(t, "2024-04-20", events[0].Date)
	require.Equal(t, "loaded", events[1].Type)
	require.Equal(t, "2024-04-01", events[1].Date)
}

func TestExtractEventsSynthesizesAir(t *testing.T) {
	payload := map[string]any{
		"DepartureDate": "2024-04-01",
		"ArrivalDate":   "2024-04-03",
	}
	events := ExtractEvents(payload, TypeAWB)
	require.Len(t, events, 2)
	require.Equal(t, "arrived", events[0].Type)
	require.Equal(t, StatusArrived, events[0].Status)
	require.Equal(t, "departed", events[1].Type)
	require.Equal(t, StatusInTransit, events[1].Status)
}

func TestExtractEventsEmptyPayload(t *testing.T) {
	require.Empty(t, ExtractEvents(map[string]any{}, TypeContainer))
	require.Empty(t, ExtractEvents(nil, TypeContainer))
}

func TestExtractEventsStableForUndated(t *testing.T) {
	payload := map[string]any{
		"Events": []any{
			map[string]any{"Status": "Booked", "Location": "first"},
			map[string]any{"Status": "Loaded", "Location": "second"},
		},
	}
	events := ExtractEvents(payload, TypeContainer)
	require.Len(t, events, 2)
	require.Equal(t, "first", events[0].Location)
	require.Equal(t, "second", events[1].Location)
}

func TestExtractEventsIsPure(t *testing.T) {
	payload := map[string]any{
		"Movements": []any{
			map[string]any{"date": "2024-02-02", "event": "DEP", "station": "DXB"},
			map[string]any{"date": "2024-02-03", "event": "ARR", "station": "AMS"},
		},
	}
	first := ExtractEvents(payload, TypeAWB)
	second := ExtractEvents(payload, TypeAWB)
	require.Equal(t, first, second)
	require.Equal(t, StatusArrived, first[0].Status)
	require.Equal(t, "AMS", first[0].Location)
}
