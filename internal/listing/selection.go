package listing

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinels: a category holding its own name applies no filter.
const (
	SentinelTime       = "TIME"
	SentinelPrice      = "PRICE"
	SentinelStops      = "STOPS"
	SentinelClass      = "CLASS"
	SentinelRefundable = "REFUNDABLE"
	SentinelAirline    = "AIRLINE"
)

const (
	TimeMorning   = "Morning"
	TimeAfternoon = "Afternoon"
	TimeEvening   = "Evening"

	PriceLowToHigh = "Low to High"
	PriceHighToLow = "High to Low"

	StopsDirect  = "Direct"
	StopsOne     = "1 Stop"
	StopsTwoPlus = "2+ Stops"
)

var (
	timeOptions  = []string{TimeMorning, TimeAfternoon, TimeEvening}
	priceOptions = []string{PriceLowToHigh, PriceHighToLow}
	stopsOptions = []string{StopsDirect, StopsOne, StopsTwoPlus}
)

var ErrInvalidSelection = errors.New("invalid filter selection")

// Selection is the user's current choice per filter category.
type Selection struct {
	Time       string `json:"TIME"`
	Price      string `json:"PRICE"`
	Stops      string `json:"STOPS"`
	Class      string `json:"CLASS"`
	Refundable string `json:"REFUNDABLE"`
	Airline    string `json:"AIRLINE"`
}

// Defaults is the selection with every category at its sentinel.
func Defaults() Selection {
	return Selection{
		Time:       SentinelTime,
		Price:      SentinelPrice,
		Stops:      SentinelStops,
		Class:      SentinelClass,
		Refundable: SentinelRefundable,
		Airline:    SentinelAirline,
	}
}

// Normalize fills empty categories with their sentinels.
func (s Selection) Normalize() Selection {
	def := Defaults()
	if s.Time == "" {
		s.Time = def.Time
	}
	if s.Price == "" {
		s.Price = def.Price
	}
	if s.Stops == "" {
		s.Stops = def.Stops
	}
	if s.Class == "" {
		s.Class = def.Class
	}
	if s.Refundable == "" {
		s.Refundable = def.Refundable
	}
	if s.Airline == "" {
		s.Airline = def.Airline
	}
	return s
}

func (s Selection) IsDefault() bool {
	return s.Normalize() == Defaults()
}

// Validate rejects values outside the fixed option lists. Class and airline are free-form
// because their options come from the current results.
func (s Selection) Validate() error {
	s = s.Normalize()

	var errs []error
	check := func(category, value, sentinel string, allowed []string) {
		if value != sentinel && !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidSelection, category, value))
		}
	}
	check(SentinelTime, s.Time, SentinelTime, timeOptions)
	check(SentinelPrice, s.Price, SentinelPrice, priceOptions)
	check(SentinelStops, s.Stops, SentinelStops, stopsOptions)
	check(SentinelRefundable, s.Refundable, SentinelRefundable, refundableOptions)

	return errors.Join(errs...)
}
