package tracking

import (
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// genericLayouts are tried as a last resort, most specific first.
var genericLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseVendorDate converts any of the vendor's date encodings into a
// canonical ISO date string (YYYY-MM-DD). Accepted shapes, first match wins:
// a {Date, IsActual} composite, an ISO string (time portion stripped), a
// slash-delimited month/day/year string (vendor convention, not locale), and
// finally anything the generic layouts can parse. Failures yield the empty
// string; callers must treat that as "unknown", never as a zero date.
func ParseVendorDate(input any) string {
	switch v := input.(type) {
	case nil:
		return ""
	case map[string]any:
		if inner, ok := firstPresent(v, []string{"Date", "date"}); ok {
			if s, ok := inner.(string); ok {
				return isoPortion(s)
			}
		}
		return ""
	case string:
		return parseDateString(v)
	case time.Time:
		return v.Format(isoDate)
	default:
		return ""
	}
}

func parseDateString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isISOPrefixed(s) {
		return s[:len(isoDate)]
	}
	if strings.Contains(s, "/") {
		if date := parseSlashDate(s); date != "" {
			return date
		}
	}
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate)
		}
	}
	return ""
}

// parseSlashDate reads "MM/DD/YYYY hh:mm" shapes. The vendor always sends
// month first regardless of account locale.
func parseSlashDate(s string) string {
	datePart := s
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		datePart = s[:idx]
	}
	parts := strings.Split(datePart, "/")
	if len(parts) != 3 {
		return ""
	}
	month, errM := strconv.Atoi(parts[0])
	day, errD := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errM != nil || errD != nil || errY != nil {
		return ""
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date silently normalizes overflow (e.g. Feb 30); reject those.
	if int(t.Month()) != month || t.Day() != day {
		return ""
	}
	return t.Format(isoDate)
}

// isoPortion strips the time portion from an ISO datetime string.
func isoPortion(s string) string {
	s = strings.TrimSpace(s)
	if isISOPrefixed(s) {
		return s[:len(isoDate)]
	}
	return s
}

func isISOPrefixed(s string) bool {
	if len(s) < len(isoDate) {
		return false
	}
	for i, c := range s[:len(isoDate)] {
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
