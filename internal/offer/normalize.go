package offer

import (
	"math"

	"storefront/pkg/currency"
)

// LegView is one direction of travel as the storefront renders it.
type LegView struct {
	Origin          string   `json:"origin"`
	Destination     string   `json:"destination"`
	DepartureTime   string   `json:"departureTime"`
	ArrivalTime     string   `json:"arrivalTime"`
	DepartureRaw    string   `json:"departureRaw,omitempty"`
	ArrivalRaw      string   `json:"arrivalRaw,omitempty"`
	Duration        string   `json:"duration"`
	DurationMinutes int      `json:"durationMinutes"`
	Stops           int      `json:"stops"`
	StopCodes       []string `json:"stopCodes"`
	StopsLabel      string   `json:"stopsLabel"`
	StopBadge       string   `json:"stopBadge"`
	DateLabel       string   `json:"dateLabel"`
	FlightNumber    string   `json:"flightNumber"`
	// Synthetic marks a placeholder return leg built because the offer had no inbound segments.
	Synthetic bool `json:"synthetic"`
}

// OfferView is the display model of one offer.
type OfferView struct {
	ID              string    `json:"id,omitempty"`
	TripType        TripType  `json:"tripType"`
	Legs            []LegView `json:"legs"`
	AirlineCode     string    `json:"airlineCode"`
	AirlineName     string    `json:"airlineName"`
	AirlineLogo     string    `json:"airlineLogo,omitempty"`
	FlightNumbers   []string  `json:"flightNumbers"`
	CabinClass      string    `json:"cabinClass"`
	Baggage         string    `json:"baggage"`
	Refundable      bool      `json:"refundable"`
	RefundableLabel string    `json:"refundableLabel"`
	Price           string    `json:"price"`
	Amount          *float64  `json:"amount"`
	Currency        string    `json:"currency"`
}

func (v OfferView) Outbound() LegView {
	return v.Legs[0]
}

// Inbound returns the return leg of a round trip, which may be synthetic.
func (v OfferView) Inbound() (LegView, bool) {
	if len(v.Legs) < 2 {
		return LegView{}, false
	}
	return v.Legs[1], true
}

// ApplyPricing overrides the displayed price with a priced total.
func (v *OfferView) ApplyPricing(total float64, cur string) {
	if cur != "" {
		v.Currency = cur
	}
	amount := total
	v.Amount = &amount
	v.Price = currency.Format(v.Currency, total)
}

type Options struct {
	DefaultBaggage    string
	DefaultCurrency   string
	DefaultCabinClass string
	LogoBaseURL       string
}

func DefaultOptions() Options {
	return Options{
		DefaultBaggage:    DefaultBaggageKg,
		DefaultCurrency:   "PKR",
		DefaultCabinClass: "Economy",
	}
}

type Normalizer struct {
	opts Options
}

func NewNormalizer(opts Options) *Normalizer {
	def := DefaultOptions()
	if opts.DefaultBaggage == "" {
		opts.DefaultBaggage = def.DefaultBaggage
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = def.DefaultCurrency
	}
	if opts.DefaultCabinClass == "" {
		opts.DefaultCabinClass = def.DefaultCabinClass
	}
	return &Normalizer{opts: opts}
}

// Options returns the options in effect, defaults filled in.
func (n *Normalizer) Options() Options {
	return n.opts
}

var defaultNormalizer = NewNormalizer(DefaultOptions())

// NormalizeOffer derives the view of raw with the default options.
func NormalizeOffer(raw RawOffer, tripType TripType) OfferView {
	return defaultNormalizer.Normalize(raw, tripType)
}

// Normalize derives the display model. It never fails: missing fields become placeholders.
// Round trips always get two legs; when no inbound segments exist the second is synthetic.
func (n *Normalizer) Normalize(raw RawOffer, tripType TripType) OfferView {
	legs := SplitLegs(raw, tripType)

	code := CarrierCode(raw)
	if len(legs.Outbound) > 0 {
		if c := carrierField.str(legs.Outbound[0], ""); c != "" {
			code = c
		}
	}

	view := OfferView{
		ID:          raw.ID(),
		TripType:    tripType,
		AirlineCode: code,
		AirlineName: AirlineName(code),
		AirlineLogo: AirlineLogo(n.opts.LogoBaseURL, code),
		CabinClass:  n.opts.DefaultCabinClass,
		Baggage:     baggageWeight(baggageValue(raw), n.opts.DefaultBaggage),
		Refundable:  Refundable(raw),
		Currency:    Currency(raw, n.opts.DefaultCurrency),
	}
	view.RefundableLabel = RefundableLabel(view.Refundable)
	if len(legs.Outbound) > 0 {
		view.CabinClass = cabinField.str(legs.Outbound[0], n.opts.DefaultCabinClass)
	}

	if amount, ok := ExtractPrice(raw); ok {
		view.Amount = &amount
		view.Price = currency.Format(view.Currency, amount)
	} else {
		view.Price = currency.Missing(view.Currency)
	}

	outbound := buildLeg(legs.Outbound, code)
	view.Legs = []LegView{outbound}

	if tripType == TripRound {
		if len(legs.Inbound) > 0 {
			view.Legs = append(view.Legs, buildLeg(legs.Inbound, code))
		} else {
			view.Legs = append(view.Legs, placeholderReturn(outbound))
		}
	}

	for _, l := range view.Legs {
		view.FlightNumbers = append(view.FlightNumbers, l.FlightNumber)
	}
	return view
}

func baggageValue(raw RawOffer) any {
	v, _ := baggageField.lookup(raw)
	return v
}

func buildLeg(segs []Segment, airlineCode string) LegView {
	if len(segs) == 0 {
		return LegView{
			Origin:        CodeSentinel,
			Destination:   CodeSentinel,
			DepartureTime: TimeSentinel,
			ArrivalTime:   TimeSentinel,
			Duration:      DurationSentinel,
			StopCodes:     []string{},
			StopsLabel:    StopsLabel(0),
			StopBadge:     StopBadge(0, nil),
			FlightNumber:  airlineCode,
		}
	}

	first := segs[0]
	last := segs[len(segs)-1]

	depRaw := departureField.str(first, "")
	arrRaw := arrivalField.str(last, arrivalField.str(first, ""))

	minutes, ok := sumFlightMinutes(segs)
	duration := DurationSentinel
	if ok {
		duration = FormatDuration(minutes)
	}

	stopCodes := make([]string, 0, len(segs))
	for _, s := range segs[:len(segs)-1] {
		if code := destinationField.str(s, ""); code != "" {
			stopCodes = append(stopCodes, code)
		}
	}
	stops := LegStops(segs)

	legCarrier := carrierField.str(first, airlineCode)
	flightNo := legCarrier
	if no := flightNoField.str(first, ""); no != "" {
		flightNo = legCarrier + "-" + no
	}

	leg := LegView{
		Origin:        originField.str(first, CodeSentinel),
		Destination:   destinationField.str(last, destinationField.str(first, CodeSentinel)),
		DepartureTime: FormatTime(depRaw),
		ArrivalTime:   FormatTime(arrRaw),
		DepartureRaw:  depRaw,
		ArrivalRaw:    arrRaw,
		Duration:      duration,
		Stops:         stops,
		StopCodes:     stopCodes,
		StopsLabel:    StopsLabel(stops),
		StopBadge:     StopBadge(stops, stopCodes),
		DateLabel:     FormatDayDate(depRaw),
		FlightNumber:  flightNo,
	}
	if duration != DurationSentinel {
		leg.DurationMinutes = int(math.Round(minutes))
	}
	return leg
}

// sumFlightMinutes adds each segment's flight time. Missing values count as zero, but a
// value that is present and not numeric poisons the whole sum.
func sumFlightMinutes(segs []Segment) (float64, bool) {
	var total float64
	for _, s := range segs {
		v, _ := flightTimeField.lookup(s)
		n, ok := asNumber(v)
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

func placeholderReturn(outbound LegView) LegView {
	return LegView{
		Origin:        outbound.Destination,
		Destination:   outbound.Origin,
		DepartureTime: TimeSentinel,
		ArrivalTime:   TimeSentinel,
		Duration:      DurationSentinel,
		StopCodes:     []string{},
		StopsLabel:    StopsLabel(0),
		StopBadge:     StopBadge(0, nil),
		FlightNumber:  outbound.FlightNumber,
		Synthetic:     true,
	}
}
