package offer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// field resolves one logical value from a loosely shaped record. Candidate paths are tried in
// order and the first present, non-empty value wins.
type field [][]string

func fieldOf(paths ...string) field {
	f := make(field, 0, len(paths))
	for _, p := range paths {
		f = append(f, strings.Split(p, "."))
	}
	return f
}

func (f field) lookup(obj map[string]any) (any, bool) {
	for _, path := range f {
		if v, ok := walk(obj, path); ok && !isBlank(v) {
			return v, true
		}
	}
	return nil, false
}

func (f field) str(obj map[string]any, fallback string) string {
	v, ok := f.lookup(obj)
	if !ok {
		return fallback
	}
	s, ok := asString(v)
	if !ok || s == "" {
		return fallback
	}
	return s
}

func walk(obj map[string]any, path []string) (any, bool) {
	var cur any = obj
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case RawOffer:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case Segment:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, cur != nil
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// asNumber converts JSON numbers and numeric strings. Blank values count as zero.
func asNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case nil:
		return 0, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

var (
	idField = fieldOf("id", "offerId", "ID")

	originField      = fieldOf("origin", "from", "originAirport", "departureAirport", "Origin", "From")
	destinationField = fieldOf("destination", "to", "destinationAirport", "arrivalAirport", "Destination", "To")
	departureField   = fieldOf("departure", "departureTime", "departTime", "DepartureTime", "Departure")
	arrivalField     = fieldOf("arrival", "arrivalTime", "arriveTime", "ArrivalTime", "Arrival")
	carrierField     = fieldOf("carrier", "airline", "marketingCarrier", "Carrier")
	flightNoField    = fieldOf("flightNumber", "flightNo", "FlightNumber")
	cabinField       = fieldOf("cabinClass", "cabin", "CabinClass")
	flightTimeField  = fieldOf("flightTime", "FlightTime", "durationMinutes")
	groupField       = fieldOf("group", "Group")

	platingCarrierField = fieldOf(CarrierPayloadKey+".platingCarrier", "platingCarrier", "validatingCarrier")
	currencyField       = fieldOf("currency", "pricing.currency", "currencyCode")
	refundableField     = fieldOf("pricing.refundable", "refundable")
	baggageField        = fieldOf("baggage", "baggageAllowance")
	baggageWeightField  = fieldOf("maxWeight", "weight", "value")
	priceField          = fieldOf(
		"displayPrice",
		"totalPrice",
		"price",
		"total",
		"pricing.totalPrice",
		"pricing.grandTotal",
		"pricing.displayPrice",
	)

	outboundContainers = []field{
		fieldOf("outbound.segments"),
		fieldOf("outboundSegments"),
		fieldOf("slices.0.segments"),
		fieldOf("itinerary.outbound.segments"),
		fieldOf("segmentsOutbound"),
	}
	inboundContainers = []field{
		fieldOf("inbound.segments"),
		fieldOf("inboundSegments"),
		fieldOf("slices.1.segments"),
		fieldOf("itinerary.inbound.segments"),
		fieldOf("segmentsInbound"),
	}
)
