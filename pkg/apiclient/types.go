package apiclient

import (
	"encoding/json"
	"strings"

	"storefront/internal/offer"
)

type Airport struct {
	IATA    string `json:"iata,omitempty"`
	ICAO    string `json:"icao,omitempty"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Code is the IATA code, or the ICAO code for airports without one.
func (a Airport) Code() string {
	if a.IATA != "" {
		return a.IATA
	}
	return a.ICAO
}

type Travelers struct {
	Adults int `json:"adults"`
	Child  int `json:"child"`
	Infant int `json:"infant"`
}

type SearchSegment struct {
	From string `json:"from"`
	To   string `json:"to"`
	Date string `json:"date"`
}

// SearchRequest is the body of POST /api/search. Which of date/returnDate or segments is set
// depends on the trip type.
type SearchRequest struct {
	TripType    offer.TripType  `json:"tripType"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	Date        string          `json:"date,omitempty"`
	ReturnDate  string          `json:"returnDate,omitempty"`
	Segments    []SearchSegment `json:"segments,omitempty"`
	Travelers   Travelers       `json:"travelers"`
	TravelClass string          `json:"travelClass"`
}

// SearchResponse holds the offers and whatever criteria the API echoed back. Echo fields the
// API left out are zero.
type SearchResponse struct {
	Flights      []offer.RawOffer `json:"flights"`
	TotalResults int              `json:"totalResults"`
	TripType     offer.TripType   `json:"tripType,omitempty"`
	Travelers    *Travelers       `json:"travelers,omitempty"`
	TravelClass  string           `json:"travelClass,omitempty"`
	From         string           `json:"from,omitempty"`
	To           string           `json:"to,omitempty"`
	Date         string           `json:"date,omitempty"`
	ReturnDate   string           `json:"returnDate,omitempty"`
	Segments     []SearchSegment  `json:"segments,omitempty"`
}

type PassengerCount struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

type PricingRequest struct {
	SelectedFlight offer.RawOffer   `json:"selectedFlight"`
	Passengers     []PassengerCount `json:"passengers"`
	AllFlights     []offer.RawOffer `json:"allFlights"`
	SearchContext  *SearchRequest   `json:"searchContext"`
}

// Pricing amounts accept both JSON numbers and numeric strings.
type Pricing struct {
	BasePrice  json.Number `json:"basePrice,omitempty"`
	Taxes      json.Number `json:"taxes,omitempty"`
	TotalPrice json.Number `json:"totalPrice,omitempty"`
	Currency   string      `json:"currency,omitempty"`
}

// Total is the priced total, false when absent or not a number.
func (p Pricing) Total() (float64, bool) {
	if p.TotalPrice == "" {
		return 0, false
	}
	n, err := p.TotalPrice.Float64()
	if err != nil {
		return 0, false
	}
	return n, true
}

type PricingResponse struct {
	Success bool           `json:"success"`
	Pricing *Pricing       `json:"pricing"`
	Flight  offer.RawOffer `json:"flight"`
}

type Passenger struct {
	Type           string `json:"type"`
	Title          string `json:"title,omitempty"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Gender         string `json:"gender"`
	DOB            string `json:"dob"`
	Nationality    string `json:"nationality"`
	PassportNumber string `json:"passportNumber"`
	PassportExpiry string `json:"passportExpiry"`
}

type ValidatePassengersRequest struct {
	Passengers []Passenger `json:"passengers"`
}

type ValidatePassengersResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

type ContactInfo struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BookingRequest struct {
	SelectedFlight offer.RawOffer `json:"selectedFlight"`
	Passengers     []Passenger    `json:"passengers"`
	ContactInfo    ContactInfo    `json:"contactInfo"`
	FormOfPayment  any            `json:"formOfPayment,omitempty"`
}

type BookingResponse struct {
	Success           bool   `json:"success"`
	BookingID         string `json:"bookingId"`
	PNR               string `json:"pnr"`
	Status            string `json:"status"`
	TicketingDeadline string `json:"ticketingDeadline"`
}

// ErrorPayload is the structured body the API sends with non-2xx responses. Each endpoint
// fills a different subset.
type ErrorPayload struct {
	Success         bool           `json:"success"`
	Error           string         `json:"error,omitempty"`
	Message         string         `json:"message,omitempty"`
	ErrorCode       string         `json:"errorCode,omitempty"`
	SuggestedFlight offer.RawOffer `json:"suggestedFlight,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
}

// UnmarshalJSON tolerates "errors" entries that are objects with a message field.
func (p *ErrorPayload) UnmarshalJSON(b []byte) error {
	type alias ErrorPayload
	var raw struct {
		alias
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = ErrorPayload(raw.alias)
	p.Errors = nil

	for _, e := range raw.Errors {
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			p.Errors = append(p.Errors, s)
			continue
		}
		var obj struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Field   string `json:"field"`
		}
		if err := json.Unmarshal(e, &obj); err != nil {
			p.Errors = append(p.Errors, strings.TrimSpace(string(e)))
			continue
		}
		msg := obj.Message
		if msg == "" {
			msg = obj.Error
		}
		if obj.Field != "" && msg != "" {
			msg = obj.Field + ": " + msg
		}
		if msg != "" {
			p.Errors = append(p.Errors, msg)
		}
	}
	return nil
}
