package multidate

import (
	"strings"
	"time"

	"storefront/internal/offer"
)

const keySeparator = "|"

// AddDays shifts a YYYY-MM-DD date by whole calendar days in local time. Invalid input gives "".
func AddDays(iso string, days int) string {
	d, err := time.ParseInLocation(time.DateOnly, iso, time.Local)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, days).Format(time.DateOnly)
}

// FormatDayMonth renders "24 Jan", or "--" for an invalid date.
func FormatDayMonth(iso string) string {
	d, err := time.ParseInLocation(time.DateOnly, iso, time.Local)
	if err != nil {
		return offer.CodeSentinel
	}
	return d.Format("02 Jan")
}

// DatePair is one box of the date strip. Ret is empty outside round trips.
type DatePair struct {
	Dep string `json:"dep"`
	Ret string `json:"ret,omitempty"`
}

func (p DatePair) Key() string {
	if p.Ret == "" {
		return p.Dep
	}
	return p.Dep + keySeparator + p.Ret
}

func (p DatePair) Title() string {
	if p.Ret == "" {
		return FormatDayMonth(p.Dep)
	}
	return FormatDayMonth(p.Dep) + " - " + FormatDayMonth(p.Ret)
}

// ParseKey splits a box key back into its dates.
func ParseKey(key string) DatePair {
	dep, ret, _ := strings.Cut(key, keySeparator)
	return DatePair{Dep: dep, Ret: ret}
}

// BuildDatePairs returns window+1 consecutive pairs starting at dep. Round trips with a
// return date shift both dates by the same offset.
func BuildDatePairs(dep, ret string, tripType offer.TripType, window int) []DatePair {
	if dep == "" || window < 0 {
		return nil
	}
	paired := tripType == offer.TripRound && ret != ""

	pairs := make([]DatePair, 0, window+1)
	for i := 0; i <= window; i++ {
		p := DatePair{Dep: AddDays(dep, i)}
		if paired {
			p.Ret = AddDays(ret, i)
		}
		pairs = append(pairs, p)
	}
	return pairs
}
