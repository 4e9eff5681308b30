package listing

import (
	"slices"

	"storefront/internal/offer"
)

// Options lists the selectable values per category for the current results.
type Options struct {
	Time       []string `json:"TIME"`
	Price      []string `json:"PRICE"`
	Stops      []string `json:"STOPS"`
	Class      []string `json:"CLASS"`
	Refundable []string `json:"REFUNDABLE"`
	Airline    []string `json:"AIRLINE"`
}

// BuildOptions collects the fixed lists plus distinct carriers and cabin classes in first-seen order.
func BuildOptions(offers []offer.RawOffer) Options {
	opts := Options{
		Time:       slices.Clone(timeOptions),
		Price:      slices.Clone(priceOptions),
		Stops:      slices.Clone(stopsOptions),
		Class:      []string{},
		Refundable: slices.Clone(refundableOptions),
		Airline:    []string{},
	}

	for _, o := range offers {
		if code := offer.CarrierCode(o); code != "" && !slices.Contains(opts.Airline, code) {
			opts.Airline = append(opts.Airline, code)
		}
		if c := cabinClass(o); !slices.Contains(opts.Class, c) {
			opts.Class = append(opts.Class, c)
		}
	}
	return opts
}
