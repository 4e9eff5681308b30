package airport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storefront/pkg/apiclient"
	"storefront/pkg/logger"
)

const (
	DefaultDebounce = 250 * time.Millisecond
	DefaultLimit    = 10
)

// ErrSuperseded is returned to a query that a newer query on the same channel replaced.
var ErrSuperseded = errors.New("airport query superseded")

type Lookup interface {
	Airports(ctx context.Context, q string, limit int) ([]apiclient.Airport, error)
}

type inflight struct {
	gen    uint64
	cancel context.CancelCauseFunc
}

// Suggester coalesces rapid typeahead input per channel (one search field of one visitor):
// each query waits out the debounce, and any newer query on the channel aborts it.
type Suggester struct {
	lookup   Lookup
	debounce time.Duration
	limit    int
	logger   logger.Client

	mu      sync.Mutex
	gen     uint64
	pending map[string]inflight
}

func NewSuggester(lookup Lookup, debounce time.Duration, limit int, log logger.Client) *Suggester {
	if debounce < 0 {
		debounce = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Suggester{
		lookup:   lookup,
		debounce: debounce,
		limit:    limit,
		logger:   log,
		pending:  make(map[string]inflight),
	}
}

// Suggest returns airports matching q. Lookup failures give an empty list, not an error.
func (s *Suggester) Suggest(ctx context.Context, channel, q string) ([]apiclient.Airport, error) {
	q = strings.TrimSpace(q)

	ctx, gen := s.begin(ctx, channel)
	defer s.finish(channel, gen)

	if q == "" {
		return []apiclient.Airport{}, nil
	}

	timer := time.NewTimer(s.debounce)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, s.cause(ctx)
	case <-timer.C:
	}

	airports, err := s.lookup.Airports(ctx, q, s.limit)
	if !s.current(channel, gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.cause(ctx)
		}
		s.logger.Warn("airport lookup failed", logger.Field{Key: "q", Value: q}, logger.Field{Key: "error", Value: err})
		return []apiclient.Airport{}, nil
	}
	if airports == nil {
		airports = []apiclient.Airport{}
	}
	return airports, nil
}

func (s *Suggester) begin(ctx context.Context, channel string) (context.Context, uint64) {
	ctx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[channel]; ok {
		prev.cancel(ErrSuperseded)
	}
	s.gen++
	s.pending[channel] = inflight{gen: s.gen, cancel: cancel}
	return ctx, s.gen
}

func (s *Suggester) finish(channel string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.pending[channel]; ok && cur.gen == gen {
		cur.cancel(nil)
		delete(s.pending, channel)
	}
}

func (s *Suggester) current(channel string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.pending[channel]
	return ok && cur.gen == gen
}

func (s *Suggester) cause(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return ctx.Err()
}
