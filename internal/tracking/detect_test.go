package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectType(t *testing.T) {
	cases := map[string]Type{
		"MSKU1234567":   TypeContainer,
		"msku1234567":   TypeContainer, // canonicalized before matching
		"176-12345678":  TypeAWB,
		"17612345678":   TypeAWB,
		"AB123456":      TypeBL,
		"ZM1234567890":  TypeBL,
		"RR123456789CN": TypeParcel,
		"1234567890":    TypeParcel,
		// no pattern matches: default to container, the dominant case
		"XYZ":        TypeContainer,
		"":           TypeContainer,
		"ABC-123-XY": TypeContainer,
	}
	for id, want := range cases {
		require.Equal(t, want, DetectType(id), "identifier %q", id)
	}
}

func TestDetectTypeReportsMatch(t *testing.T) {
	_, matched := detectType("MSKU1234567")
	require.True(t, matched)
	_, matched = detectType("XYZ")
	require.False(t, matched)
}

func TestDetectCarrier(t *testing.T) {
	cases := map[string]string{
		"MSKU1234567":  "MAERSK",
		"MAEU1234567":  "MAERSK",
		"MSCU1234567":  "MSC",
		"CMAU1234567":  "CMACGM",
		"HLCU1234567":  "HLAG",
		"COSU1234567":  "COSCO",
		"EGHU1234567":  "EVERGREEN",
		"ONEU1234567":  "ONE",
		"YMLU1234567":  "YANGMING",
		"ZIMU1234567":  "ZIM",
		"176-12345678": "EK",
		"157-12345678": "QR",
		"020-12345678": "LH",
		"235-12345678": "TK",
		"TEST12345":    "GENERIC",
		"":             "GENERIC",
	}
	for id, want := range cases {
		require.Equal(t, want, DetectCarrier(id), "identifier %q", id)
	}
}
