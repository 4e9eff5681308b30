package offer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

const (
	TimeSentinel     = "--:--"
	DurationSentinel = "—"
	CodeSentinel     = "--"
	DefaultBaggageKg = "30"
)

var (
	isoClockRe  = regexp.MustCompile(`T(\d{2}):(\d{2})`)
	bareClockRe = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
	numberRe    = regexp.MustCompile(`(\d+(\.\d+)?)`)
)

// FormatTime extracts HH:MM from an ISO-like timestamp without any timezone conversion.
// A bare HH:MM is returned unchanged; anything else yields "--:--".
func FormatTime(s string) string {
	if s == "" {
		return TimeSentinel
	}
	if m := isoClockRe.FindStringSubmatch(s); m != nil {
		return m[1] + ":" + m[2]
	}
	if bareClockRe.MatchString(s) {
		return s
	}
	return TimeSentinel
}

// FormatDuration renders minutes as "<h>h <m>m", or "—" when there is nothing to show.
func FormatDuration(minutes float64) string {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return DurationSentinel
	}
	total := int(math.Round(minutes))
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

// FormatDayDate renders the calendar part of an ISO timestamp as "Sat, 24 Jan 2026".
func FormatDayDate(iso string) string {
	d, ok := datePart(iso)
	if !ok {
		return ""
	}
	return d.Format("Mon, 02 Jan 2006")
}

// DatePart returns the YYYY-MM-DD prefix of an ISO timestamp, or "".
func DatePart(iso string) string {
	d, ok := datePart(iso)
	if !ok {
		return ""
	}
	return d.Format(time.DateOnly)
}

func datePart(iso string) (time.Time, bool) {
	if len(iso) < len(time.DateOnly) {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(time.DateOnly, iso[:len(time.DateOnly)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// BaggageWeightOnly returns the bare weight number from a baggage allowance, using the
// default of 30 when the value is absent or carries no number.
func BaggageWeightOnly(v any) string {
	return baggageWeight(v, DefaultBaggageKg)
}

func baggageWeight(v any, fallback string) string {
	if obj, ok := v.(map[string]any); ok {
		w, found := baggageWeightField.lookup(obj)
		if !found {
			return fallback
		}
		v = w
	}
	if isBlank(v) {
		return fallback
	}

	switch v.(type) {
	case json.Number, float64, int, int64:
		if n, ok := asNumber(v); !ok || n <= 0 {
			return fallback
		}
	}

	s, ok := asString(v)
	if !ok {
		return fallback
	}
	if m := numberRe.FindString(s); m != "" {
		return m
	}
	return fallback
}

// StopsLabel is the short per-leg label: "Direct" or "<n> Stop".
func StopsLabel(stops int) string {
	if stops <= 0 {
		return "Direct"
	}
	return fmt.Sprintf("%d Stop", stops)
}

// StopBadge is the detail badge: "Direct", "1 Stop • via KWI", "2 Stops • via DOH, KWI".
func StopBadge(stops int, codes []string) string {
	if stops <= 0 {
		return "Direct"
	}
	label := "1 Stop"
	if stops > 1 {
		label = fmt.Sprintf("%d Stops", stops)
	}
	if len(codes) == 0 {
		return label
	}
	return label + " • via " + strings.Join(codes, ", ")
}
