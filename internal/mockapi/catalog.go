package mockapi

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"storefront/pkg/apiclient"
)

type carrier struct {
	Code      string
	Name      string
	FlightNo  int
	BaseFare  float64
	DepartAt  string // HH:MM
	Minutes   int
	Via       string // connecting airport, "" for nonstop
	Refund    bool
	BaggageKg int
	SoldOut   bool // pricing answers with a suggested alternate
}

var carriers = []carrier{
	{Code: "PK", Name: "Pakistan International Airlines", FlightNo: 233, BaseFare: 82000, DepartAt: "08:00", Minutes: 160, Refund: true, BaggageKg: 30},
	{Code: "EK", Name: "Emirates", FlightNo: 613, BaseFare: 105000, DepartAt: "04:25", Minutes: 160, Refund: true, BaggageKg: 35},
	{Code: "FZ", Name: "flydubai", FlightNo: 356, BaseFare: 64000, DepartAt: "19:45", Minutes: 170, BaggageKg: 20, SoldOut: true},
	{Code: "QR", Name: "Qatar Airways", FlightNo: 633, BaseFare: 98000, DepartAt: "03:10", Minutes: 330, Via: "DOH", BaggageKg: 30},
	{Code: "G9", Name: "Air Arabia", FlightNo: 871, BaseFare: 58000, DepartAt: "13:30", Minutes: 290, Via: "SHJ", BaggageKg: 20},
}

var airports = []apiclient.Airport{
	{IATA: "ISB", Name: "Islamabad International", City: "Islamabad", Country: "PK"},
	{IATA: "KHI", Name: "Jinnah International", City: "Karachi", Country: "PK"},
	{IATA: "LHE", Name: "Allama Iqbal International", City: "Lahore", Country: "PK"},
	{IATA: "DXB", Name: "Dubai International", City: "Dubai", Country: "AE"},
	{IATA: "SHJ", Name: "Sharjah International", City: "Sharjah", Country: "AE"},
	{IATA: "DOH", Name: "Hamad International", City: "Doha", Country: "QA"},
	{IATA: "JED", Name: "King Abdulaziz International", City: "Jeddah", Country: "SA"},
	{IATA: "LHR", Name: "Heathrow", City: "London", Country: "GB"},
	{ICAO: "OPST", Name: "Sialkot International", City: "Sialkot", Country: "PK"},
}

func matchAirports(q string, limit int) []apiclient.Airport {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]apiclient.Airport, 0, limit)
	for _, a := range airports {
		if len(out) == limit {
			break
		}
		if strings.HasPrefix(strings.ToLower(a.Code()), q) ||
			strings.Contains(strings.ToLower(a.City), q) ||
			strings.Contains(strings.ToLower(a.Name), q) {
			out = append(out, a)
		}
	}
	return out
}

// fare varies by carrier and date so neighbouring days in the date strip differ.
func fare(c carrier, date string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(c.Code + date))
	return c.BaseFare + float64(h.Sum32()%25)*1000
}

type leg struct {
	From, To, Date string
}

func legsFor(req apiclient.SearchRequest) []leg {
	switch req.TripType {
	case "multi":
		legs := make([]leg, 0, len(req.Segments))
		for _, s := range req.Segments {
			legs = append(legs, leg{From: s.From, To: s.To, Date: s.Date})
		}
		return legs
	case "round":
		return []leg{{req.From, req.To, req.Date}, {req.To, req.From, req.ReturnDate}}
	default:
		return []leg{{req.From, req.To, req.Date}}
	}
}

// buildOffer returns nil when a leg date does not parse.
func buildOffer(c carrier, req apiclient.SearchRequest) map[string]any {
	legs := legsFor(req)
	var (
		segments []any
		total    float64
	)
	for group, l := range legs {
		segs, ok := c.segments(group, l, req.TravelClass)
		if !ok {
			return nil
		}
		segments = append(segments, segs...)
		total += fare(c, l.Date)
	}

	id := fmt.Sprintf("%s-%d-%s", c.Code, c.FlightNo, strings.ReplaceAll(legs[0].Date, "-", ""))
	return map[string]any{
		"id":           id,
		"displayPrice": total,
		"currency":     "PKR",
		"refundable":   c.Refund,
		"baggage":      map[string]any{"maxWeight": c.BaggageKg, "unit": "KG"},
		"soldOut":      c.SoldOut,
		"travelportData": map[string]any{
			"platingCarrier": c.Code,
			"fareKey":        "FK" + id,
		},
		"segments": segments,
	}
}

func (c carrier) segments(group int, l leg, cabin string) ([]any, bool) {
	dep, err := time.Parse("2006-01-02 15:04", l.Date+" "+c.DepartAt)
	if err != nil {
		return nil, false
	}
	seg := func(no int, from, to string, at time.Time, minutes int) map[string]any {
		return map[string]any{
			"group":        fmt.Sprint(group),
			"carrier":      c.Code,
			"flightNumber": fmt.Sprint(no),
			"cabinClass":   cabin,
			"from":         from,
			"to":           to,
			"departure":    at.Format("2006-01-02T15:04:05"),
			"arrival":      at.Add(time.Duration(minutes) * time.Minute).Format("2006-01-02T15:04:05"),
			"flightTime":   minutes,
		}
	}

	no := c.FlightNo + group*2
	if c.Via == "" {
		return []any{seg(no, l.From, l.To, dep, c.Minutes)}, true
	}
	first := c.Minutes / 3
	second := dep.Add(time.Duration(first+75) * time.Minute)
	return []any{
		seg(no, l.From, c.Via, dep, first),
		seg(no+1, c.Via, l.To, second, c.Minutes-first-75),
	}, true
}
