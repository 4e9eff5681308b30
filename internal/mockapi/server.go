// Package mockapi is a stand-in for the flight search/pricing/booking API, for running the
// storefront locally without carrier credentials.
package mockapi

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/offer"
	"storefront/pkg/apiclient"
	"storefront/pkg/logger"
)

const unavailableCode = "000276"

type Server struct {
	log   logger.Client
	delay func() time.Duration
	now   func() time.Time
}

type Option func(*Server)

// WithDelay replaces the random 50-100ms latency added to every search.
func WithDelay(fn func() time.Duration) Option {
	return func(s *Server) { s.delay = fn }
}

func NewServer(log logger.Client, opts ...Option) *Server {
	if log == nil {
		log = logger.Nop{}
	}
	s := &Server{
		log: log,
		delay: func() time.Duration {
			return time.Duration(50+rand.Intn(51)) * time.Millisecond
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/airports", s.airports)
	mux.HandleFunc("POST /api/search", s.search)
	mux.HandleFunc("POST /api/air-pricing", s.pricing)
	mux.HandleFunc("POST /api/validate-passengers", s.validatePassengers)
	mux.HandleFunc("POST /api/bookings", s.bookings)
	return mux
}

func (s *Server) airports(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	writeJSON(w, http.StatusOK, matchAirports(r.URL.Query().Get("q"), limit))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req apiclient.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid search request"})
		return
	}
	if len(legsFor(req)) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "At least one segment is required"})
		return
	}

	flights := make([]map[string]any, 0, len(carriers))
	for _, c := range carriers {
		if o := buildOffer(c, req); o != nil {
			flights = append(flights, o)
		}
	}
	sort.SliceStable(flights, func(i, j int) bool {
		return flights[i]["displayPrice"].(float64) < flights[j]["displayPrice"].(float64)
	})

	time.Sleep(s.delay())
	s.log.Debug("mock search",
		logger.Field{Key: "trip_type", Value: req.TripType},
		logger.Field{Key: "date", Value: req.Date},
		logger.Field{Key: "results", Value: len(flights)},
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"flights":      flights,
		"totalResults": len(flights),
		"tripType":     req.TripType,
		"travelers":    req.Travelers,
		"travelClass":  req.TravelClass,
		"from":         req.From,
		"to":           req.To,
		"date":         req.Date,
		"returnDate":   req.ReturnDate,
		"segments":     req.Segments,
	})
}

// passengerWeight is the share of the adult fare charged per passenger type.
var passengerWeight = map[string]float64{"ADT": 1, "CNN": 0.75, "INF": 0.1}

func (s *Server) pricing(w http.ResponseWriter, r *http.Request) {
	var req apiclient.PricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SelectedFlight == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "selectedFlight is required"})
		return
	}
	selected := req.SelectedFlight

	if soldOut, _ := selected["soldOut"].(bool); soldOut {
		body := map[string]any{
			"success":   false,
			"errorCode": unavailableCode,
			"message":   "The selected fare is no longer available",
		}
		if alt := alternateFor(selected, req.AllFlights); alt != nil {
			body["suggestedFlight"] = alt
		}
		writeJSON(w, http.StatusConflict, body)
		return
	}

	price, ok := offer.ExtractPrice(selected)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "error": "Selected flight has no price"})
		return
	}
	weight := 0.0
	for _, p := range req.Passengers {
		weight += passengerWeight[p.Type] * float64(p.Quantity)
	}
	if weight == 0 {
		weight = 1
	}
	base := price * weight
	taxes := base * 0.12

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"pricing": map[string]any{
			"basePrice":  base,
			"taxes":      taxes,
			"totalPrice": base + taxes,
			"currency":   offer.Currency(selected, "PKR"),
		},
		"flight": selected,
	})
}

// alternateFor picks the cheapest bookable offer other than the sold-out one.
func alternateFor(selected offer.RawOffer, all []offer.RawOffer) offer.RawOffer {
	var (
		best      offer.RawOffer
		bestPrice float64
	)
	for _, o := range all {
		if o.ID() == selected.ID() {
			continue
		}
		if soldOut, _ := o["soldOut"].(bool); soldOut {
			continue
		}
		p, ok := offer.ExtractPrice(o)
		if !ok {
			continue
		}
		if best == nil || p < bestPrice {
			best, bestPrice = o, p
		}
	}
	return best
}

func (s *Server) validatePassengers(w http.ResponseWriter, r *http.Request) {
	var req apiclient.ValidatePassengersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid passengers payload"})
		return
	}
	if len(req.Passengers) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "errors": []string{"At least one passenger is required"}})
		return
	}

	var problems []map[string]string
	for i, p := range req.Passengers {
		prefix := "passengers[" + strconv.Itoa(i) + "]."
		if strings.TrimSpace(p.FirstName) == "" {
			problems = append(problems, map[string]string{"field": prefix + "firstName", "message": "First name is required"})
		}
		if _, err := time.Parse("2006-01-02", p.DOB); err != nil {
			problems = append(problems, map[string]string{"field": prefix + "dob", "message": "Date of birth must be YYYY-MM-DD"})
		}
		if p.Type == "ADT" && p.PassportNumber == "" {
			problems = append(problems, map[string]string{"field": prefix + "passportNumber", "message": "Passport number is required"})
		}
		if exp, err := time.Parse("2006-01-02", p.PassportExpiry); p.PassportExpiry != "" && (err != nil || exp.Before(s.now())) {
			problems = append(problems, map[string]string{"field": prefix + "passportExpiry", "message": "Passport is expired"})
		}
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "errors": problems})
		return
	}
	writeJSON(w, http.StatusOK, apiclient.ValidatePassengersResponse{Valid: true, Message: "Passengers validated"})
}

func (s *Server) bookings(w http.ResponseWriter, r *http.Request) {
	var req apiclient.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid booking payload"})
		return
	}
	if !req.SelectedFlight.HasCarrierPayload() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "travelportData is required"})
		return
	}
	if req.ContactInfo.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "contactInfo.email is required"})
		return
	}

	id := uuid.New()
	pnr := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
	s.log.Info("mock booking created",
		logger.Field{Key: "offer_id", Value: req.SelectedFlight.ID()},
		logger.Field{Key: "pnr", Value: pnr},
	)

	writeJSON(w, http.StatusOK, apiclient.BookingResponse{
		Success:           true,
		BookingID:         id.String(),
		PNR:               pnr,
		Status:            "CONFIRMED",
		TicketingDeadline: s.now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
