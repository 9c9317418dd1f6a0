package tracking

import "strings"

// statusTable folds vendor status tokens into the internal vocabulary. The
// table is case-sensitive on purpose: the air-freight vendor emits exact-case
// IATA event codes ("DEP", "ARR", ...) that must not collide with free-text
// sea statuses, so callers must not pre-lowercase input.
var statusTable = map[string]Status{
	// Sea-freight statuses.
	"Booked":            StatusRegistered,
	"Booking Confirmed": StatusRegistered,
	"Empty":             StatusRegistered,
	"Gate In":           StatusInTransit,
	"Loaded":            StatusInTransit,
	"Sailing":           StatusInTransit,
	"In Transit":        StatusInTransit,
	"Transhipment":      StatusInTransit,
	"Arrived":           StatusArrived,
	"Discharged":        StatusArrived,
	"Gate Out":          StatusDelivered,
	"Empty Returned":    StatusDelivered,
	"Delivered":         StatusDelivered,
	"Delayed":           StatusDelayed,
	"Rolled":            StatusDelayed,
	"On Hold":           StatusException,
	"Cancelled":         StatusException,

	// Air-freight IATA event codes.
	"RCS": StatusRegistered, // received from shipper
	"MAN": StatusInTransit,  // manifested on flight
	"DEP": StatusInTransit,  // departed
	"ARR": StatusArrived,    // arrived
	"RCF": StatusArrived,    // received from flight
	"NFD": StatusArrived,    // consignee notified
	"AWD": StatusDelivered,  // documents delivered
	"DLV": StatusDelivered,  // delivered
	"DIS": StatusException,  // discrepancy
}

// NormalizeStatus maps a vendor status token onto the closed internal status
// set. Unknown tokens fold to StatusRegistered.
func NormalizeStatus(vendor string) Status {
	if status, ok := statusTable[strings.TrimSpace(vendor)]; ok {
		return status
	}
	return StatusRegistered
}

// carrierCodes rewrites known full carrier names (already uppercased) to the
// short codes the registry stores.
var carrierCodes = map[string]string{
	"MAERSK LINE":                    "MAERSK",
	"MAERSK":                         "MAERSK",
	"MEDITERRANEAN SHIPPING COMPANY": "MSC",
	"MSC":                            "MSC",
	"CMA CGM":                        "CMACGM",
	"HAPAG-LLOYD":                    "HLAG",
	"HAPAG LLOYD":                    "HLAG",
	"COSCO SHIPPING LINES":           "COSCO",
	"COSCO":                          "COSCO",
	"EVERGREEN LINE":                 "EVERGREEN",
	"EVERGREEN MARINE":               "EVERGREEN",
	"OCEAN NETWORK EXPRESS":          "ONE",
	"YANG MING":                      "YANGMING",
	"ZIM INTEGRATED SHIPPING":        "ZIM",
	"EMIRATES SKYCARGO":              "EK",
	"QATAR AIRWAYS CARGO":            "QR",
	"LUFTHANSA CARGO":                "LH",
	"TURKISH CARGO":                  "TK",
}

// NormalizeCarrierCode uppercases the input and rewrites known carrier names
// to short codes. Unmatched input is returned uppercased, never empty; blank
// input yields the literal UNKNOWN.
func NormalizeCarrierCode(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return "UNKNOWN"
	}
	if code, ok := carrierCodes[upper]; ok {
		return code
	}
	return upper
}
