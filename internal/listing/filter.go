package listing

import (
	"sort"
	"strconv"
	"strings"

	"storefront/internal/offer"
	"storefront/pkg/logger"
)

var refundableOptions = []string{offer.RefundableLabel(true), offer.RefundableLabel(false)}

// Hour substituted for a missing departure so it never lands in Morning. Afternoon also
// excludes it; Evening keeps it.
const missingHourMorning = 99

type Engine struct {
	logger logger.Client
}

func NewEngine(log logger.Client) *Engine {
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{logger: log}
}

// filterContext holds the resolved selection so the loop does not re-derive it per offer.
type filterContext struct {
	sel      Selection
	tripType offer.TripType
}

// Apply narrows and orders offers: airline, class, refundable, stops, price sort, time bucket.
// The input slice is never reordered; the result shares its elements.
func (e *Engine) Apply(offers []offer.RawOffer, sel Selection, tripType offer.TripType) []offer.RawOffer {
	idx := e.Indices(offers, sel, tripType)
	out := make([]offer.RawOffer, len(idx))
	for i, j := range idx {
		out[i] = offers[j]
	}
	return out
}

// Indices is Apply expressed as positions into offers.
func (e *Engine) Indices(offers []offer.RawOffer, sel Selection, tripType offer.TripType) []int {
	fc := &filterContext{sel: sel.Normalize(), tripType: tripType}

	filtered := make([]int, 0, len(offers))
	for i, o := range offers {
		if fc.matches(o) {
			filtered = append(filtered, i)
		}
	}

	switch fc.sel.Price {
	case SentinelPrice:
	case PriceLowToHigh:
		sortByPrice(offers, filtered, false)
	case PriceHighToLow:
		sortByPrice(offers, filtered, true)
	default:
		e.logger.Warn("invalid_price_order", logger.Field{Key: "price", Value: fc.sel.Price})
	}

	switch fc.sel.Time {
	case SentinelTime:
		return filtered
	case TimeMorning, TimeAfternoon, TimeEvening:
		return fc.byTimeBucket(offers, filtered)
	default:
		e.logger.Warn("invalid_time_bucket", logger.Field{Key: "time", Value: fc.sel.Time})
		return filtered
	}
}

// matches returns true only if all active equality and stop filters pass.
func (fc *filterContext) matches(o offer.RawOffer) bool {
	// Airline
	if fc.sel.Airline != SentinelAirline && offer.CarrierCode(o) != fc.sel.Airline {
		return false
	}

	// Class
	if fc.sel.Class != SentinelClass && !strings.EqualFold(cabinClass(o), fc.sel.Class) {
		return false
	}

	// Refundable
	if fc.sel.Refundable != SentinelRefundable && offer.RefundableLabel(offer.Refundable(o)) != fc.sel.Refundable {
		return false
	}

	// Stops (route-aware)
	if fc.sel.Stops != SentinelStops {
		stops := offer.RouteStops(o, fc.stopTripType(o))
		switch fc.sel.Stops {
		case StopsDirect:
			return stops == 0
		case StopsOne:
			return stops == 1
		case StopsTwoPlus:
			return stops >= 2
		}
	}

	return true
}

// stopTripType resolves the trip type used for stop counting: the search's, else the
// offer's own, else round. Only one-way counts the whole segment list as one leg.
func (fc *filterContext) stopTripType(o offer.RawOffer) offer.TripType {
	tt := fc.tripType
	if tt == "" {
		if s, ok := o["tripType"].(string); ok && s != "" {
			tt = offer.TripType(s)
		}
	}
	if tt == offer.TripOneWay {
		return offer.TripOneWay
	}
	return offer.TripRound
}

func (fc *filterContext) byTimeBucket(offers []offer.RawOffer, idx []int) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		h, ok := departureHour(offers[i], fc.stopTripType(offers[i]))
		keep := false
		switch fc.sel.Time {
		case TimeMorning:
			if !ok {
				h = missingHourMorning
			}
			keep = h < 12
		case TimeAfternoon:
			keep = ok && h >= 12 && h < 18
		case TimeEvening:
			keep = !ok || h >= 18
		}
		if keep {
			out = append(out, i)
		}
	}
	return out
}

// departureHour reads the hour straight from characters 11-12 of the first outbound
// segment's departure, with no timezone handling.
func departureHour(o offer.RawOffer, tripType offer.TripType) (int, bool) {
	dep := offer.OutboundDeparture(o, tripType)
	if len(dep) < 13 {
		return 0, false
	}
	h, err := strconv.Atoi(dep[11:13])
	if err != nil {
		return 0, false
	}
	return h, true
}

// Using SliceStable so equal prices keep their result order.
func sortByPrice(offers []offer.RawOffer, idx []int, desc bool) {
	prices := make(map[int]float64, len(idx))
	for _, i := range idx {
		prices[i] = offer.SortPrice(offers[i])
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if desc {
			return prices[idx[a]] > prices[idx[b]]
		}
		return prices[idx[a]] < prices[idx[b]]
	})
}

func cabinClass(o offer.RawOffer) string {
	if c := offer.CabinClass(o, offer.TripRound); c != "" {
		return c
	}
	return offer.DefaultOptions().DefaultCabinClass
}
