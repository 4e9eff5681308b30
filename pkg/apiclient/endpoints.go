package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/offer"
)

// Airports returns typeahead matches for q. A body that is not an array yields no airports.
func (c *Client) Airports(ctx context.Context, q string, limit int) ([]Airport, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("limit", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, pathAirports, query, nil, &raw); err != nil {
		return nil, err
	}

	var airports []Airport
	if err := json.Unmarshal(raw, &airports); err != nil || airports == nil {
		return []Airport{}, nil
	}
	return airports, nil
}

// Search posts the criteria and returns the offers together with the echoed criteria.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var doc any
	if err := c.do(ctx, http.MethodPost, pathSearch, nil, req, &doc); err != nil {
		return nil, err
	}
	return searchResponseFrom(doc), nil
}

func (c *Client) Price(ctx context.Context, req PricingRequest) (*PricingResponse, error) {
	var resp PricingResponse
	if err := c.do(ctx, http.MethodPost, pathPricing, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ValidatePassengers(ctx context.Context, req ValidatePassengersRequest) (*ValidatePassengersResponse, error) {
	var resp ValidatePassengersResponse
	if err := c.do(ctx, http.MethodPost, pathValidatePassengers, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResponse, error) {
	var resp BookingResponse
	if err := c.do(ctx, http.MethodPost, pathBookings, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func searchResponseFrom(doc any) *SearchResponse {
	resp := &SearchResponse{Flights: pickFlights(doc)}
	resp.TotalResults = len(resp.Flights)

	obj, ok := doc.(map[string]any)
	if !ok {
		return resp
	}
	if n, ok := intOf(obj["totalResults"]); ok {
		resp.TotalResults = n
	}
	resp.TripType = offer.TripType(stringOf(obj["tripType"]))
	resp.TravelClass = stringOf(obj["travelClass"])
	resp.From = stringOf(obj["from"])
	resp.To = stringOf(obj["to"])
	resp.Date = stringOf(obj["date"])
	resp.ReturnDate = stringOf(obj["returnDate"])

	if t, ok := obj["travelers"].(map[string]any); ok {
		adults, _ := intOf(t["adults"])
		child, _ := intOf(t["child"])
		infant, _ := intOf(t["infant"])
		resp.Travelers = &Travelers{Adults: adults, Child: child, Infant: infant}
	}
	if segs, ok := obj["segments"].([]any); ok {
		for _, s := range segs {
			m, ok := s.(map[string]any)
			if !ok {
				continue
			}
			resp.Segments = append(resp.Segments, SearchSegment{
				From: stringOf(m["from"]),
				To:   stringOf(m["to"]),
				Date: stringOf(m["date"]),
			})
		}
	}
	return resp
}

// pickFlights finds the offers array wherever the API put it.
func pickFlights(doc any) []offer.RawOffer {
	if arr, ok := doc.([]any); ok {
		return offersOf(arr)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return []offer.RawOffer{}
	}

	for _, path := range [][]string{{"flights"}, {"data", "flights"}, {"result", "flights"}, {"results"}, {"data"}} {
		if arr, ok := arrayAt(obj, path); ok {
			return offersOf(arr)
		}
	}

	if truthy(obj["id"]) && truthy(obj["displayPrice"]) {
		return []offer.RawOffer{offer.RawOffer(obj)}
	}
	return []offer.RawOffer{}
}

func arrayAt(obj map[string]any, path []string) ([]any, bool) {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = m[key]
	}
	arr, ok := cur.([]any)
	return arr, ok
}

func offersOf(arr []any) []offer.RawOffer {
	offers := make([]offer.RawOffer, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			offers = append(offers, offer.RawOffer(m))
		}
	}
	return offers
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case bool:
		return t
	}
	return true
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func intOf(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	}
	return 0, false
}
