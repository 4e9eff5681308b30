package offer

import "strings"

const UnknownAirline = "Airline"

// airlineNames only covers carriers the search API is known to return.
var airlineNames = map[string]string{
	"KU": "Kuwait Airways",
	"QR": "Qatar Airways",
	"EK": "Emirates",
	"PK": "Pakistan International Airlines",
	"EY": "Etihad",
	"SV": "Saudia",
	"FZ": "Flydubai",
}

// AirlineName maps a carrier code to its display name; unmapped codes get "Airline".
func AirlineName(code string) string {
	if name, ok := airlineNames[strings.ToUpper(code)]; ok {
		return name
	}
	return UnknownAirline
}

// AirlineLogo builds "<base>/<CODE>.png", or "" without a code or base.
func AirlineLogo(baseURL, code string) string {
	if baseURL == "" || code == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.ToUpper(code) + ".png"
}
