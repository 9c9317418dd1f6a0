package tracking

import (
	"regexp"
	"strings"
)

// typePatterns classify identifiers in priority order; the first match wins.
var typePatterns = []struct {
	re *regexp.Regexp
	t  Type
}{
	// ISO 6346 container number: four letters, seven digits.
	{regexp.MustCompile(`^[A-Z]{4}\d{7}$`), TypeContainer},
	// IATA air waybill: three-digit airline prefix, optional hyphen, eight digits.
	{regexp.MustCompile(`^\d{3}-?\d{8}$`), TypeAWB},
	// Bill of lading: two-letter SCAC-style prefix and at least six digits.
	{regexp.MustCompile(`^[A-Z]{2}\d{6,}$`), TypeBL},
	// Courier parcel: UPU format or a long bare digit run.
	{regexp.MustCompile(`^[A-Z]{2}\d{9}[A-Z]{2}$`), TypeParcel},
	{regexp.MustCompile(`^\d{10,}$`), TypeParcel},
}

// carrierPatterns guess the carrier from well-known identifier prefixes.
var carrierPatterns = []struct {
	re   *regexp.Regexp
	code string
}{
	{regexp.MustCompile(`^(MAEU|MRKU|MSKU|MRSU)`), "MAERSK"},
	{regexp.MustCompile(`^(MSCU|MEDU)`), "MSC"},
	{regexp.MustCompile(`^(CMAU|CGMU|APZU)`), "CMACGM"},
	{regexp.MustCompile(`^(HLXU|HLCU)`), "HLAG"},
	{regexp.MustCompile(`^(COSU|CBHU|CSNU)`), "COSCO"},
	{regexp.MustCompile(`^(EGHU|EGSU|EISU|EMCU)`), "EVERGREEN"},
	{regexp.MustCompile(`^ONEU`), "ONE"},
	{regexp.MustCompile(`^(YMLU|YMMU)`), "YANGMING"},
	{regexp.MustCompile(`^(ZIMU|ZCSU)`), "ZIM"},
	{regexp.MustCompile(`^176-?\d{8}$`), "EK"},
	{regexp.MustCompile(`^157-?\d{8}$`), "QR"},
	{regexp.MustCompile(`^020-?\d{8}$`), "LH"},
	{regexp.MustCompile(`^235-?\d{8}$`), "TK"},
}

// DetectType guesses the shipment type from the raw identifier. Detection is
// best-effort hinting: an identifier matching no pattern yields the default
// TypeContainer rather than an error.
func DetectType(identifier string) Type {
	t, _ := detectType(identifier)
	return t
}

// detectType additionally reports whether a pattern actually matched, which
// the client uses to decide whether to retry an ambiguous identifier on the
// air-freight path.
func detectType(identifier string) (Type, bool) {
	id := canonicalIdentifier(identifier)
	for _, pattern := range typePatterns {
		if pattern.re.MatchString(id) {
			return pattern.t, true
		}
	}
	return TypeContainer, false
}

// DetectCarrier guesses the carrier code from the identifier prefix,
// defaulting to GENERIC when nothing matches.
func DetectCarrier(identifier string) string {
	id := canonicalIdentifier(identifier)
	for _, pattern := range carrierPatterns {
		if pattern.re.MatchString(id) {
			return pattern.code
		}
	}
	return "GENERIC"
}

func canonicalIdentifier(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}
