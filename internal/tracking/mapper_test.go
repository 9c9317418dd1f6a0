package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapVendorFieldsPascalAndCamel(t *testing.T) {
	pascal := map[string]any{
		"ContainerNumber": "MSKU1234567",
		"Status":          "Sailing",
		"Carrier":         "Maersk Line",
		"FromPort":        "Shanghai",
		"ToPort":          "Rotterdam",
	}
	camel := map[string]any{
		"containerNumber": "MSKU1234567",
		"status":          "Sailing",
		"carrier":         "Maersk Line",
		"fromPort":        "Shanghai",
		"toPort":          "Rotterdam",
	}
	for _, raw := range []map[string]any{pascal, camel} {
		fields := MapVendorFields(raw, VersionSea)
		require.Equal(t, "MSKU1234567", fields["trackingNumber"])
		require.Equal(t, "Sailing", fields["status"])
		require.Equal(t, "Maersk Line", fields["carrier"])
		require.Equal(t, "Shanghai", fields["originPort"])
		require.Equal(t, "Rotterdam", fields["destinationPort"])
	}
}

func TestMapVendorFieldsUnwrapsDateComposite(t *testing.T) {
	raw := map[string]any{
		"ArrivalDate": map[string]any{"Date": "2024-08-01T00:00:00", "IsActual": true},
	}
	fields := MapVendorFields(raw, VersionSea)
	require.Equal(t, "2024-08-01T00:00:00", fields["arrivalDate"])
	require.Equal(t, true, fields["arrivalDateIsActual"])
}

func TestMapVendorFieldsSkipsNilAndEmpty(t *testing.T) {
	raw := map[string]any{
		"ContainerNumber": nil,
		"containerNumber": "  ",
		"TrackingNumber":  "ABCD1234567",
	}
	fields := MapVendorFields(raw, VersionSea)
	require.Equal(t, "ABCD1234567", fields["trackingNumber"])
}

func TestMapVendorFieldsTransshipments(t *testing.T) {
	raw := map[string]any{
		"TSPorts": []any{
			map[string]any{
				"Port":        "Singapore",
				"ArrivalDate": map[string]any{"Date": "2024-05-10", "IsActual": false},
			},
			"not-a-map",
		},
	}
	fields := MapVendorFields(raw, VersionSea)
	ports, ok := fields["transshipments"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, ports, 1)
	require.Equal(t, "Singapore", ports[0]["port"])
	require.Equal(t, "2024-05-10", ports[0]["arrivalDate"])
	require.Equal(t, false, ports[0]["arrivalDateIsActual"])
}

func TestMapVendorFieldsPreservesRaw(t *testing.T) {
	raw := map[string]any{"Status": "Loaded", "SomethingVendorSpecific": 42}
	fields := MapVendorFields(raw, VersionSea)
	require.Equal(t, raw, fields[RawKey])

	nilFields := MapVendorFields(nil, VersionSea)
	require.Equal(t, map[string]any{}, nilFields[RawKey])
}
