package storefront

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"storefront/internal/listing"
	"storefront/internal/multidate"
	"storefront/internal/offer"
	"storefront/pkg/apiclient"
	"storefront/pkg/currency"
	"storefront/pkg/logger"
)

// FlightAPI is the part of the flight API client the storefront drives.
type FlightAPI interface {
	Search(ctx context.Context, req apiclient.SearchRequest) (*apiclient.SearchResponse, error)
	Price(ctx context.Context, req apiclient.PricingRequest) (*apiclient.PricingResponse, error)
	ValidatePassengers(ctx context.Context, req apiclient.ValidatePassengersRequest) (*apiclient.ValidatePassengersResponse, error)
	CreateBooking(ctx context.Context, req apiclient.BookingRequest) (*apiclient.BookingResponse, error)
}

type DatePrefetcher interface {
	Prefetch(ctx context.Context, c multidate.Criteria) ([]multidate.Entry, error)
	Placeholders(c multidate.Criteria) []multidate.Entry
}

type AirportSuggester interface {
	Suggest(ctx context.Context, channel, q string) ([]apiclient.Airport, error)
}

type Service struct {
	api        FlightAPI
	prefetcher DatePrefetcher
	suggester  AirportSuggester
	sessions   *SessionStore
	engine     *listing.Engine
	normalizer *offer.Normalizer
	validate   *validator.Validate
	logger     logger.Client
}

func NewService(api FlightAPI, prefetcher DatePrefetcher, suggester AirportSuggester, sessions *SessionStore, opts offer.Options, log logger.Client) *Service {
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{
		api:        api,
		prefetcher: prefetcher,
		suggester:  suggester,
		sessions:   sessions,
		engine:     listing.NewEngine(log),
		normalizer: offer.NewNormalizer(opts),
		validate:   NewValidator(),
		logger:     log,
	}
}

func (s *Service) CreateSession() Snapshot {
	sess := s.sessions.Create()
	s.logger.Info("session_created", logger.Field{Key: "session_id", Value: sess.ID})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot()
}

func (s *Service) Snapshot(id string) (Snapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// SweepSessions drops expired sessions every interval until ctx ends.
func (s *Service) SweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("sessions_expired", logger.Field{Key: "count", Value: n})
			}
		}
	}
}

// Airports looks up typeahead suggestions. channel identifies one input box; a newer query on
// the same channel supersedes an older one.
func (s *Service) Airports(ctx context.Context, channel, q string) ([]apiclient.Airport, error) {
	return s.suggester.Suggest(ctx, channel, q)
}

// Search normalizes the form and runs it as the session's new search.
func (s *Service) Search(ctx context.Context, id string, in SearchInput) (SearchState, error) {
	req, err := NormalizeForBackend(s.validate, in)
	if err != nil {
		return SearchState{}, err
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return SearchState{}, err
	}
	return s.runSearch(ctx, sess, req)
}

// runSearch sends the main search and the date strip prefetch side by side and records both
// once they have settled. Offers follow last-write-wins; the strip is only kept when no newer
// search has started since.
func (s *Service) runSearch(ctx context.Context, sess *Session, req apiclient.SearchRequest) (SearchState, error) {
	sess.mu.Lock()
	sess.searchSeq++
	seq := sess.searchSeq
	sess.stopPrefetch()
	prefetchCtx, cancel := context.WithCancel(ctx)
	sess.cancelPrefetch = cancel
	sess.pendingCriteria = &req
	sess.search.Status = StatusPending
	sess.search.Error = nil
	sess.search.MultiDatePrices = []multidate.Entry{}
	sess.mu.Unlock()
	defer cancel()

	var (
		wg          sync.WaitGroup
		resp        *apiclient.SearchResponse
		searchErr   error
		entries     []multidate.Entry
		prefetchErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		resp, searchErr = s.api.Search(ctx, req)
	}()
	go func() {
		defer wg.Done()
		entries, prefetchErr = s.prefetcher.Prefetch(prefetchCtx, multidate.CriteriaFrom(req, nil))
	}()
	wg.Wait()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	current := seq == sess.searchSeq
	if current {
		sess.cancelPrefetch = nil
		sess.pendingCriteria = nil
		if prefetchErr == nil {
			sess.search.MultiDatePrices = entries
		} else {
			s.logger.Debug("multidate_discarded",
				logger.Field{Key: "session_id", Value: sess.ID},
				logger.Field{Key: "error", Value: prefetchErr.Error()},
			)
		}
	}

	if searchErr != nil {
		payload := failurePayload(searchErr, "Flight search failed")
		sess.search.Status = StatusRejected
		sess.search.Error = payload
		s.logger.Warn("search_failed",
			logger.Field{Key: "session_id", Value: sess.ID},
			logger.Field{Key: "error", Value: searchErr.Error()},
		)
		return sess.search, upstreamError(searchErr, payload)
	}

	flights := resp.Flights
	if flights == nil {
		flights = []offer.RawOffer{}
	}
	sess.search.Status = StatusFulfilled
	sess.search.Flights = flights
	sess.search.TotalResults = resp.TotalResults
	sess.search.Criteria = echoCriteria(req, resp)

	s.logger.Info("search_completed",
		logger.Field{Key: "session_id", Value: sess.ID},
		logger.Field{Key: "trip_type", Value: string(req.TripType)},
		logger.Field{Key: "results", Value: len(flights)},
	)
	return sess.search, nil
}

// echoCriteria overlays whatever the API echoed onto the request that was sent.
func echoCriteria(req apiclient.SearchRequest, resp *apiclient.SearchResponse) apiclient.SearchRequest {
	c := req
	if resp.TripType != "" {
		c.TripType = resp.TripType
	}
	if resp.Travelers != nil {
		c.Travelers = *resp.Travelers
	}
	if resp.TravelClass != "" {
		c.TravelClass = resp.TravelClass
	}
	if resp.From != "" {
		c.From = resp.From
	}
	if resp.To != "" {
		c.To = resp.To
	}
	if resp.Date != "" {
		c.Date = resp.Date
	}
	if resp.ReturnDate != "" {
		c.ReturnDate = resp.ReturnDate
	}
	if len(resp.Segments) > 0 {
		c.Segments = resp.Segments
	}
	return c
}

// failurePayload is the error stored for a failed call: the API's own body when it sent one,
// otherwise a generic {error, message}.
func failurePayload(err error, fallback string) *apiclient.ErrorPayload {
	if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.Payload != nil {
		p := *apiErr.Payload
		return &p
	}
	return &apiclient.ErrorPayload{Success: false, Error: fallback, Message: err.Error()}
}

// ClearSearch empties the results and stops any date strip still loading. Criteria are kept.
func (s *Service) ClearSearch(id string) (SearchState, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return SearchState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.searchSeq++
	sess.stopPrefetch()
	sess.pendingCriteria = nil
	criteria := sess.search.Criteria
	sess.search = initialSearchState()
	sess.search.Criteria = criteria
	return sess.search, nil
}

// ListingItem is one offer of the filtered list. Index is its position in the full result
// list and can be used to select it.
type ListingItem struct {
	Index int             `json:"index"`
	Offer offer.OfferView `json:"offer"`
}

type ListingView struct {
	Status       Status                  `json:"status"`
	TripType     offer.TripType          `json:"tripType"`
	Items        []ListingItem           `json:"items"`
	Shown        int                     `json:"shown"`
	TotalResults int                     `json:"totalResults"`
	Filters      listing.Selection       `json:"filters"`
	Options      listing.Options         `json:"options"`
	Error        *apiclient.ErrorPayload `json:"error"`
}

func (s *Service) Flights(id string) (ListingView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return ListingView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.listingView(sess), nil
}

// SetFilters replaces the whole filter selection. Omitted categories fall back to their sentinel.
func (s *Service) SetFilters(id string, sel listing.Selection) (ListingView, error) {
	sel = sel.Normalize()
	if err := sel.Validate(); err != nil {
		return ListingView{}, invalidInput("Invalid filter selection", err)
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return ListingView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.filters = sel
	return s.listingView(sess), nil
}

func (s *Service) ResetFilters(id string) (ListingView, error) {
	return s.SetFilters(id, listing.Defaults())
}

// listingView must be called with sess.mu held.
func (s *Service) listingView(sess *Session) ListingView {
	tripType := sess.search.Criteria.TripType
	flights := sess.search.Flights
	idx := s.engine.Indices(flights, sess.filters, tripType)

	items := make([]ListingItem, 0, len(idx))
	for _, i := range idx {
		items = append(items, ListingItem{Index: i, Offer: s.normalizer.Normalize(flights[i], tripType)})
	}
	return ListingView{
		Status:       sess.search.Status,
		TripType:     tripType,
		Items:        items,
		Shown:        len(items),
		TotalResults: sess.search.TotalResults,
		Filters:      sess.filters,
		Options:      listing.BuildOptions(flights),
		Error:        sess.search.Error,
	}
}

// DateBox is one date of the strip as displayed.
type DateBox struct {
	multidate.Entry
	Price    string `json:"price"`
	Selected bool   `json:"selected"`
}

type MultiDateView struct {
	Loading bool      `json:"loading"`
	Dates   []DateBox `json:"dates"`
}

// MultiDate is the date strip. While a search is pending it shows the dates of that search
// without prices.
func (s *Service) MultiDate(id string) (MultiDateView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return MultiDateView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	criteria := sess.search.Criteria
	entries := sess.search.MultiDatePrices
	loading := sess.search.Status == StatusPending
	if loading {
		if sess.pendingCriteria != nil {
			criteria = *sess.pendingCriteria
		}
		entries = s.prefetcher.Placeholders(multidate.CriteriaFrom(criteria, nil))
	}

	current := multidate.DatePair{Dep: criteria.Date}
	if criteria.TripType == offer.TripRound {
		current.Ret = criteria.ReturnDate
	}
	cur := s.normalizer.Options().DefaultCurrency

	view := MultiDateView{Loading: loading, Dates: make([]DateBox, 0, len(entries))}
	for _, e := range entries {
		box := DateBox{Entry: e, Price: currency.Missing(cur), Selected: e.Key == current.Key()}
		if e.Cheapest != nil {
			box.Price = currency.Format(cur, *e.Cheapest)
		}
		view.Dates = append(view.Dates, box)
	}
	return view, nil
}

// SelectDate runs the main search again for one box of the strip.
func (s *Service) SelectDate(ctx context.Context, id, key string) (SearchState, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return SearchState{}, err
	}

	sess.mu.Lock()
	known := false
	for _, e := range sess.search.MultiDatePrices {
		if e.Key == key {
			known = true
			break
		}
	}
	criteria := multidate.CriteriaFrom(sess.search.Criteria, sess.search.Flights)
	sess.mu.Unlock()

	if !known {
		return SearchState{}, multidate.ErrUnknownDate
	}
	req, err := criteria.SelectDate(key)
	if err != nil {
		return SearchState{}, err
	}
	return s.runSearch(ctx, sess, req)
}

// OfferRef picks an offer from the results, by id when given, otherwise by index.
type OfferRef struct {
	ID    string `json:"id"`
	Index *int   `json:"index"`
}

// SelectOffer makes one offer of the current results the selected offer.
func (s *Service) SelectOffer(id string, ref OfferRef) (DetailView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return DetailView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	flights := sess.search.Flights
	var picked offer.RawOffer
	switch {
	case ref.ID != "":
		for _, f := range flights {
			if f.ID() == ref.ID {
				picked = f
				break
			}
		}
	case ref.Index != nil && *ref.Index >= 0 && *ref.Index < len(flights):
		picked = flights[*ref.Index]
	}
	if picked == nil {
		return DetailView{}, &AppError{Status: http.StatusNotFound, Code: ErrorCodeNoSelectedOffer, Message: "Offer not found in current results"}
	}

	sess.selected = picked
	return s.detailView(sess), nil
}

func (s *Service) ClearSelection(id string) error {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.selected = nil
	sess.mu.Unlock()
	return nil
}

// DetailView is the selected offer as the detail page shows it.
type DetailView struct {
	Offer           offer.OfferView            `json:"offer"`
	Raw             offer.RawOffer             `json:"raw"`
	TripType        offer.TripType             `json:"tripType"`
	Passengers      []apiclient.PassengerCount `json:"passengers"`
	Travelers       []string                   `json:"travelers"`
	Pricing         PricingState               `json:"pricing"`
	CanUseSuggested bool                       `json:"canUseSuggested"`
}

func (s *Service) Detail(id string) (DetailView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return DetailView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.selected == nil {
		return DetailView{}, ErrNoSelectedOffer
	}
	return s.detailView(sess), nil
}

// detailView must be called with sess.mu held and an offer selected.
func (s *Service) detailView(sess *Session) DetailView {
	tripType := detailTripType(sess.search.Criteria.TripType, sess.selected)
	view := s.normalizer.Normalize(sess.selected, tripType)

	p := sess.pricing
	if p.Status == StatusFulfilled && p.Pricing != nil {
		if total, ok := p.Pricing.Total(); ok {
			view.ApplyPricing(total, p.Pricing.Currency)
		}
	}

	return DetailView{
		Offer:           view,
		Raw:             sess.selected,
		TripType:        tripType,
		Passengers:      PassengerBreakdown(sess.search.Criteria.Travelers),
		Travelers:       TravelerLabels(sess.search.Criteria.Travelers),
		Pricing:         p,
		CanUseSuggested: canUseSuggested(p),
	}
}

// detailTripType prefers the search criteria, then the offer's own trip type, then round.
func detailTripType(criteria offer.TripType, raw offer.RawOffer) offer.TripType {
	if criteria != "" {
		return criteria
	}
	if tt, ok := raw["tripType"].(string); ok && tt != "" {
		return offer.TripType(tt)
	}
	return offer.TripRound
}
