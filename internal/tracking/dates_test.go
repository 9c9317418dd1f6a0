package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseVendorDateComposite(t *testing.T) {
	in := map[string]any{"Date": "2024-03-05T10:30:00", "IsActual": true}
	require.Equal(t, "2024-03-05", ParseVendorDate(in))

	// camelCase variant
	require.Equal(t, "2024-03-05", ParseVendorDate(map[string]any{"date": "2024-03-05"}))

	// composite without a usable date
	require.Equal(t, "", ParseVendorDate(map[string]any{"IsActual": true}))
}

func TestParseVendorDateISO(t *testing.T) {
	require.Equal(t, "2024-07-19", ParseVendorDate("2024-07-19"))
	require.Equal(t, "2024-07-19", ParseVendorDate("2024-07-19T08:00:00Z"))
	require.Equal(t, "2024-07-19", ParseVendorDate("2024-07-19 08:00:00"))
}

func TestParseVendorDateSlash(t *testing.T) {
	// vendor convention is month first
	require.Equal(t, "2024-03-05", ParseVendorDate("3/5/2024"))
	require.Equal(t, "2024-03-05", ParseVendorDate("03/05/2024 14:00"))
	require.Equal(t, "2024-12-01", ParseVendorDate("12/1/24"))
	// impossible calendar dates are rejected, not normalized
	require.Equal(t, "", ParseVendorDate("2/30/2024"))
	require.Equal(t, "", ParseVendorDate("13/1/2024"))
}

func TestParseVendorDateGenericLayouts(t *testing.T) {
	require.Equal(t, "2024-01-15", ParseVendorDate("15-01-2024"))
	require.Equal(t, "2024-01-15", ParseVendorDate("15 Jan 2024"))
	require.Equal(t, "2024-01-15", ParseVendorDate("Jan 15, 2024"))
}

func TestParseVendorDateNeverFails(t *testing.T) {
	for _, in := range []any{nil, "", "garbage", "99/99/9999", 42, []any{"2024-01-01"}} {
		require.Equal(t, "", ParseVendorDate(in), "input %v", in)
	}
}

func TestParseVendorDateTime(t *testing.T) {
	ts := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	require.Equal(t, "2024-06-01", ParseVendorDate(ts))
}
