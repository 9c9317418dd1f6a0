package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFullSeaPayload(t *testing.T) {
	payload := map[string]any{
		"ContainerNumber": "MSCU7654321",
		"Status":          "Sailing",
		"Carrier":         "Mediterranean Shipping Company",
		"FromPort":        "Shanghai",
		"FromCountry":     "China",
		"ToPort":          "Rotterdam",
		"ToCountry":       "Netherlands",
		"LoadingDate":     map[string]any{"Date": "2024-04-01", "IsActual": true},
		"ArrivalDate":     map[string]any{"Date": "2024-04-25", "IsActual": false},
		"Vessel":          "MSC OSCAR",
		"VesselIMO":       "9703291",
		"VesselVoyage":    "412W",
	}
	res := Normalize(payload, TypeContainer, "MSCU7654321")

	require.Equal(t, "MSCU7654321", res.TrackingNumber)
	require.Equal(t, StatusInTransit, res.Status)
	require.Equal(t, "MSC", res.Carrier.Code)
	require.Equal(t, "Mediterranean Shipping Company", res.Carrier.Name)
	require.Equal(t, "Shanghai", res.Route.Origin.Port)
	require.Equal(t, "2024-04-01", res.Route.Origin.Date)
	require.Equal(t, "Rotterdam", res.Route.Destination.Port)
	require.Equal(t, "2024-04-25", res.Route.Destination.ETA)
	require.NotNil(t, res.Vessel)
	require.Equal(t, "MSC OSCAR", res.Vessel.Name)
	require.Equal(t, "412W", res.Vessel.Voyage)
	require.Nil(t, res.Flight)
	require.Equal(t, payload, res.Raw)
}

func TestNormalizeAirPayload(t *testing.T) {
	payload := map[string]any{
		"awbNumber":     "176-12345678",
		"status":        "RCF",
		"airline":       "Emirates SkyCargo",
		"flightNumber":  "EK201",
		"departureDate": "2024-04-01",
		"arrivalDate":   "2024-04-03",
	}
	res := Normalize(payload, TypeAWB, "176-12345678")

	require.Equal(t, StatusArrived, res.Status)
	require.Equal(t, "EK", res.Carrier.Code)
	require.NotNil(t, res.Flight)
	require.Equal(t, "EK201", res.Flight.Number)
	require.Equal(t, "Emirates SkyCargo", res.Flight.Airline)
	require.Nil(t, res.Vessel)
	require.Len(t, res.Events, 2)
}

func TestNormalizeStatusFromLatestEvent(t *testing.T) {
	payload := map[string]any{
		"Events": []any{
			map[string]any{"Date": "2024-04-01", "Status": "Loaded"},
			map[string]any{"Date": "2024-04-20", "Status": "Discharged"},
		},
	}
	res := Normalize(payload, TypeContainer, "ABCD1234567")
	require.Equal(t, StatusArrived, res.Status, "top-level status missing, latest event wins")
}

func TestNormalizeEmptyPayload(t *testing.T) {
	res := Normalize(map[string]any{}, TypeContainer, "XYZT1234567")
	require.Equal(t, "XYZT1234567", res.TrackingNumber)
	require.Equal(t, StatusRegistered, res.Status)
	require.Equal(t, "-", res.Route.Origin.Port)
	require.NotNil(t, res.Events)
	require.False(t, res.EnrichedAt.IsZero())
}

func TestNormalizeNilPayload(t *testing.T) {
	res := Normalize(nil, TypeContainer, "XYZT1234567")
	require.Equal(t, "XYZT1234567", res.TrackingNumber)
	require.Equal(t, StatusRegistered, res.Status)
}
