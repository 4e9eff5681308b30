package storefront

import (
	"context"
	"sync"
	"time"

	"storefront/internal/listing"
	"storefront/internal/multidate"
	"storefront/internal/offer"
	"storefront/pkg/apiclient"
	"storefront/pkg/idgen"
)

// Status is the lifecycle of one asynchronous operation.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusRejected  Status = "rejected"
)

type SearchState struct {
	Status          Status                  `json:"status"`
	Criteria        apiclient.SearchRequest `json:"criteria"`
	Flights         []offer.RawOffer        `json:"flights"`
	TotalResults    int                     `json:"totalResults"`
	MultiDatePrices []multidate.Entry       `json:"multiDatePrices"`
	Error           *apiclient.ErrorPayload `json:"error"`
}

type PricingState struct {
	Status          Status                  `json:"status"`
	Success         bool                    `json:"success"`
	Pricing         *apiclient.Pricing      `json:"pricing"`
	PricedFlight    offer.RawOffer          `json:"pricedFlight"`
	SuggestedFlight offer.RawOffer          `json:"suggestedFlight"`
	ErrorCode       string                  `json:"errorCode,omitempty"`
	Error           *apiclient.ErrorPayload `json:"error"`
}

// BookingState covers both steps: passenger validation, then booking creation.
type BookingState struct {
	ValidationStatus Status                                `json:"validationStatus"`
	Validation       *apiclient.ValidatePassengersResponse `json:"validation"`
	ValidationErrors []string                              `json:"validationErrors"`
	Status           Status                                `json:"status"`
	Booking          *apiclient.BookingResponse            `json:"booking"`
	Error            *apiclient.ErrorPayload               `json:"error"`
}

// Snapshot is a copy of everything a session holds.
type Snapshot struct {
	ID       string            `json:"id"`
	Search   SearchState       `json:"search"`
	Filters  listing.Selection `json:"filters"`
	Selected offer.RawOffer    `json:"selectedFlight"`
	Pricing  PricingState      `json:"pricing"`
	Booking  BookingState      `json:"booking"`
}

// Session is one browser's storefront state. Every field is guarded by mu; network calls are
// made with mu released.
type Session struct {
	ID string

	mu       sync.Mutex
	search   SearchState
	filters  listing.Selection
	selected offer.RawOffer
	pricing  PricingState
	booking  BookingState
	lastSeen time.Time

	// searchSeq identifies the newest search; cancelPrefetch aborts its date strip.
	searchSeq      uint64
	cancelPrefetch context.CancelFunc
	// pendingCriteria is the request of the newest search while it is in flight.
	pendingCriteria *apiclient.SearchRequest
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:       id,
		search:   initialSearchState(),
		filters:  listing.Defaults(),
		pricing:  PricingState{Status: StatusIdle},
		booking:  BookingState{ValidationStatus: StatusIdle, Status: StatusIdle},
		lastSeen: now,
	}
}

func initialSearchState() SearchState {
	return SearchState{
		Status: StatusIdle,
		Criteria: apiclient.SearchRequest{
			TripType:    offer.TripOneWay,
			Travelers:   apiclient.Travelers{Adults: 1},
			TravelClass: defaultTravelClass,
		},
		Flights:         []offer.RawOffer{},
		MultiDatePrices: []multidate.Entry{},
	}
}

// snapshot must be called with mu held.
func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:       s.ID,
		Search:   s.search,
		Filters:  s.filters,
		Selected: s.selected,
		Pricing:  s.pricing,
		Booking:  s.booking,
	}
}

// stopPrefetch must be called with mu held.
func (s *Session) stopPrefetch() {
	if s.cancelPrefetch != nil {
		s.cancelPrefetch()
		s.cancelPrefetch = nil
	}
}

// SessionStore keeps sessions in memory and forgets those idle for longer than the TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ids      idgen.Generator
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ids idgen.Generator, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ids:      ids,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (st *SessionStore) Create() *Session {
	sess := newSession(st.ids.NewID(), st.now())

	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session and marks it as used.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	if st.expired(sess, now) {
		st.remove(sess)
		return nil, ErrSessionNotFound
	}
	sess.mu.Lock()
	sess.lastSeen = now
	sess.mu.Unlock()
	return sess, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	removed := 0
	for _, sess := range st.sessions {
		if st.expired(sess, now) {
			st.remove(sess)
			removed++
		}
	}
	return removed
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) expired(sess *Session, now time.Time) bool {
	if st.ttl <= 0 {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return now.Sub(sess.lastSeen) > st.ttl
}

func (st *SessionStore) remove(sess *Session) {
	sess.mu.Lock()
	sess.stopPrefetch()
	sess.mu.Unlock()
	delete(st.sessions, sess.ID)
}
