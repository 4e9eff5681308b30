package multidate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"storefront/internal/offer"
	"storefront/pkg/apiclient"
	"storefront/pkg/cache"
	"storefront/pkg/logger"
	"storefront/pkg/ratelimit"
)

const DefaultWindow = 6

// Entry is one date box: the cheapest offer price for that date, nil when none was found.
type Entry struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Cheapest *float64 `json:"cheapest"`
}

type Searcher interface {
	Search(ctx context.Context, req apiclient.SearchRequest) (*apiclient.SearchResponse, error)
}

type Config struct {
	Window int
	// CacheTTL bounds how long a strip is reused. Zero keeps it until evicted.
	CacheTTL time.Duration
}

type Prefetcher struct {
	searcher Searcher
	cache    cache.Cache
	limiter  *ratelimit.Limiter
	logger   logger.Client
	config   Config
}

func NewPrefetcher(searcher Searcher, c cache.Cache, limiter *ratelimit.Limiter, log logger.Client, config Config) *Prefetcher {
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Prefetcher{
		searcher: searcher,
		cache:    c,
		limiter:  limiter,
		logger:   log,
		config:   config,
	}
}

func (p *Prefetcher) Window() int {
	return p.config.Window
}

// Placeholders are the boxes shown while prices load: every title, no prices.
func (p *Prefetcher) Placeholders(c Criteria) []Entry {
	pairs := c.Pairs(p.config.Window)
	entries := make([]Entry, 0, len(pairs))
	for _, pair := range pairs {
		entries = append(entries, Entry{Key: pair.Key(), Title: pair.Title()})
	}
	return entries
}

// Prefetch searches every date of the window concurrently and returns all boxes at once, after
// every request has settled. A failed date gets a nil price. If ctx ends first the partial
// result is discarded and ctx's error returned.
func (p *Prefetcher) Prefetch(ctx context.Context, c Criteria) ([]Entry, error) {
	if !c.Ready() {
		return []Entry{}, nil
	}

	key := CacheKey(c, p.config.Window)
	if entries, ok := p.cached(ctx, key); ok {
		return entries, nil
	}

	entries := p.Placeholders(c)
	pairs := c.Pairs(p.config.Window)

	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair DatePair) {
			defer wg.Done()
			entries[i].Cheapest = p.cheapestFor(ctx, c.SearchFor(pair))
		}(i, pair)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.store(ctx, key, entries)
	return entries, nil
}

func (p *Prefetcher) cheapestFor(ctx context.Context, req apiclient.SearchRequest) *float64 {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil
	}

	resp, err := p.searcher.Search(ctx, req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.logger.Warn("multidate search failed",
				logger.Field{Key: "date", Value: req.Date},
				logger.Field{Key: "return_date", Value: req.ReturnDate},
				logger.Field{Key: "error", Value: err},
			)
		}
		return nil
	}
	return offer.CheapestPrice(resp.Flights)
}

func (p *Prefetcher) cached(ctx context.Context, key string) ([]Entry, bool) {
	if p.cache == nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			p.logger.Warn("multidate cache read failed", logger.Field{Key: "error", Value: err})
		}
		return nil, false
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

func (p *Prefetcher) store(ctx context.Context, key string, entries []Entry) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, string(data), p.config.CacheTTL); err != nil {
		p.logger.Warn("multidate cache write failed", logger.Field{Key: "error", Value: err})
	}
}
