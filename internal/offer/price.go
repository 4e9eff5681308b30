package offer

import (
	"strconv"
	"strings"
)

// ExtractPrice finds the offer's price across the known field names and locations, in
// priority order. Strings are parsed after removing thousands separators. Only positive
// amounts count.
func ExtractPrice(raw RawOffer) (float64, bool) {
	for _, path := range priceField {
		v, ok := walk(raw, path)
		if !ok {
			continue
		}
		if n, ok := positiveAmount(v); ok {
			return n, true
		}
	}
	return 0, false
}

func positiveAmount(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		m := numberRe.FindString(strings.ReplaceAll(s, ",", ""))
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	}

	if v == nil {
		return 0, false
	}
	n, ok := asNumber(v)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// SortPrice is the price used for ordering; offers without a usable price sort as zero.
func SortPrice(raw RawOffer) float64 {
	n, _ := ExtractPrice(raw)
	return n
}

// CheapestPrice is the minimum extracted price across offers, or nil when none has one.
func CheapestPrice(offers []RawOffer) *float64 {
	var cheapest *float64
	for _, o := range offers {
		p, ok := ExtractPrice(o)
		if !ok {
			continue
		}
		if cheapest == nil || p < *cheapest {
			v := p
			cheapest = &v
		}
	}
	return cheapest
}

// Currency returns the offer currency or the fallback.
func Currency(raw RawOffer, fallback string) string {
	return currencyField.str(raw, fallback)
}
