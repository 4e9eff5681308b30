package multidate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/offer"
	"storefront/pkg/apiclient"
	"storefront/pkg/cache"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, req apiclient.SearchRequest) (*apiclient.SearchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*apiclient.SearchResponse)
	return resp, args.Error(1)
}

type searcherFunc func(ctx context.Context, req apiclient.SearchRequest) (*apiclient.SearchResponse, error)

func (f searcherFunc) Search(ctx context.Context, req apiclient.SearchRequest) (*apiclient.SearchResponse, error) {
	return f(ctx, req)
}

func onDate(date string) any {
	return mock.MatchedBy(func(req apiclient.SearchRequest) bool { return req.Date == date })
}

func priced(prices ...any) *apiclient.SearchResponse {
	resp := &apiclient.SearchResponse{}
	for _, p := range prices {
		resp.Flights = append(resp.Flights, offer.RawOffer{"displayPrice": p})
	}
	return resp
}

func oneWayCriteria() Criteria {
	return Criteria{
		TripType:    offer.TripOneWay,
		From:        "ISB",
		To:          "DXB",
		DepDate:     "2026-01-24",
		Travelers:   apiclient.Travelers{Adults: 1},
		TravelClass: "Economy",
	}
}

func TestPrefetch_CheapestPerDateWithFailures(t *testing.T) {
	s := new(mockSearcher)
	s.On("Search", mock.Anything, onDate("2026-01-24")).Return(priced(json.Number("700"), "PKR 650", json.Number("0")), nil)
	s.On("Search", mock.Anything, onDate("2026-01-25")).Return(nil, errors.New("timeout"))
	s.On("Search", mock.Anything, onDate("2026-01-26")).Return(priced("n/a"), nil)

	p := NewPrefetcher(s, cache.NewMemoryCache(), nil, nil, Config{Window: 2})

	entries, err := p.Prefetch(context.Background(), oneWayCriteria())
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "2026-01-24", entries[0].Key)
	assert.Equal(t, "24 Jan", entries[0].Title)
	require.NotNil(t, entries[0].Cheapest)
	assert.Equal(t, 650.0, *entries[0].Cheapest)
	assert.Equal(t, "2026-01-25", entries[1].Key)
	assert.Nil(t, entries[1].Cheapest)
	assert.Equal(t, "2026-01-26", entries[2].Key)
	assert.Nil(t, entries[2].Cheapest)

	s.AssertNumberOfCalls(t, "Search", 3)
	for _, call := range s.Calls {
		req := call.Arguments.Get(1).(apiclient.SearchRequest)
		assert.Equal(t, offer.TripOneWay, req.TripType)
		assert.Equal(t, "ISB", req.From)
		assert.Equal(t, "DXB", req.To)
		assert.Empty(t, req.ReturnDate)
	}
}

func TestPrefetch_ReusesCachedStrip(t *testing.T) {
	s := new(mockSearcher)
	s.On("Search", mock.Anything, mock.Anything).Return(priced(json.Number("100")), nil)

	p := NewPrefetcher(s, cache.NewMemoryCache(), nil, nil, Config{Window: 1})
	c := oneWayCriteria()

	first, err := p.Prefetch(context.Background(), c)
	require.NoError(t, err)
	second, err := p.Prefetch(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	s.AssertNumberOfCalls(t, "Search", 2)

	c.Travelers.Adults = 2
	_, err = p.Prefetch(context.Background(), c)
	require.NoError(t, err)
	s.AssertNumberOfCalls(t, "Search", 4)
}

func TestPrefetch_RoundTripPairs(t *testing.T) {
	var mu sync.Mutex
	var seen []apiclient.SearchRequest
	s := searcherFunc(func(_ context.Context, req apiclient.SearchRequest) (*apiclient.SearchResponse, error) {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		return priced(json.Number("1000")), nil
	})

	c := oneWayCriteria()
	c.TripType = offer.TripRound
	c.RetDate = "2026-01-31"

	p := NewPrefetcher(s, nil, nil, nil, Config{Window: 6})
	entries, err := p.Prefetch(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, entries, 7)
	assert.Equal(t, "2026-01-24|2026-01-31", entries[0].Key)
	assert.Equal(t, "24 Jan - 31 Jan", entries[0].Title)
	assert.Equal(t, "2026-01-30|2026-02-06", entries[6].Key)

	require.Len(t, seen, 7)
	for _, req := range seen {
		assert.Equal(t, offer.TripRound, req.TripType)
		assert.Equal(t, AddDays(req.Date, 7), req.ReturnDate)
	}
}

func TestPrefetch_IncompleteCriteriaIssuesNothing(t *testing.T) {
	s := new(mockSearcher)
	p := NewPrefetcher(s, nil, nil, nil, Config{})

	entries, err := p.Prefetch(context.Background(), Criteria{From: "ISB"})

	require.NoError(t, err)
	assert.Empty(t, entries)
	s.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestPrefetch_CancelledRunIsDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := searcherFunc(func(ctx context.Context, req apiclient.SearchRequest) (*apiclient.SearchResponse, error) {
		cancel()
		return nil, ctx.Err()
	})
	store := cache.NewMemoryCache()
	p := NewPrefetcher(s, store, nil, nil, Config{Window: 3})

	entries, err := p.Prefetch(ctx, oneWayCriteria())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, entries)
	_, getErr := store.Get(context.Background(), CacheKey(oneWayCriteria(), 3))
	assert.ErrorIs(t, getErr, cache.ErrMiss)
}

func TestPlaceholders(t *testing.T) {
	p := NewPrefetcher(nil, nil, nil, nil, Config{})

	entries := p.Placeholders(oneWayCriteria())

	require.Len(t, entries, DefaultWindow+1)
	for _, e := range entries {
		assert.Nil(t, e.Cheapest)
		assert.NotEmpty(t, e.Title)
	}
}

func TestCacheKey(t *testing.T) {
	c := oneWayCriteria()

	assert.Equal(t, CacheKey(c, 6), CacheKey(c, 6))
	assert.NotEqual(t, CacheKey(c, 6), CacheKey(c, 5))

	variants := map[string]func(*Criteria){
		"class":     func(v *Criteria) { v.TravelClass = "Business" },
		"travelers": func(v *Criteria) { v.Travelers.Child++ },
		"from":      func(v *Criteria) { v.From = "LHE" },
		"to":        func(v *Criteria) { v.To = "JED" },
		"dep":       func(v *Criteria) { v.DepDate = "2026-03-01" },
		"ret":       func(v *Criteria) { v.RetDate = "2026-03-08" },
		"trip":      func(v *Criteria) { v.TripType = offer.TripRound },
	}
	for name, change := range variants {
		other := c
		change(&other)
		assert.NotEqual(t, CacheKey(c, 6), CacheKey(other, 6), name)
	}
}

func TestCriteriaFrom_FallsBackToFirstOffer(t *testing.T) {
	flights := []offer.RawOffer{{
		"segments": []any{
			map[string]any{"group": "0", "from": "LHE", "to": "DOH", "departure": "2026-03-01T02:00:00"},
			map[string]any{"group": "0", "from": "DOH", "to": "LHR", "departure": "2026-03-01T08:00:00"},
			map[string]any{"group": "1", "from": "LHR", "to": "LHE", "departure": "2026-03-10T21:00:00"},
		},
	}}

	c := CriteriaFrom(apiclient.SearchRequest{}, flights)

	assert.Equal(t, "LHE", c.From)
	assert.Equal(t, "LHR", c.To)
	assert.Equal(t, "2026-03-01", c.DepDate)
	assert.Equal(t, "2026-03-10", c.RetDate)
	assert.Equal(t, offer.TripRound, c.TripType)
	assert.Equal(t, apiclient.Travelers{Adults: 1}, c.Travelers)
	assert.Equal(t, "Economy", c.TravelClass)
}

func TestCriteriaFrom_SearchWins(t *testing.T) {
	search := apiclient.SearchRequest{
		TripType: offer.TripOneWay, From: "ISB", To: "DXB", Date: "2026-01-24",
		Travelers: apiclient.Travelers{Adults: 2}, TravelClass: "Business",
	}

	c := CriteriaFrom(search, nil)

	assert.Equal(t, oneWayCriteria().From, c.From)
	assert.Equal(t, offer.TripOneWay, c.TripType)
	assert.Equal(t, 2, c.Travelers.Adults)
	assert.Equal(t, "Business", c.TravelClass)
}

func TestCriteria_SelectDate(t *testing.T) {
	c := oneWayCriteria()
	c.TripType = offer.TripRound
	c.RetDate = "2026-01-31"

	req, err := c.SelectDate("2026-01-26|2026-02-02")
	require.NoError(t, err)
	assert.Equal(t, offer.TripRound, req.TripType)
	assert.Equal(t, "2026-01-26", req.Date)
	assert.Equal(t, "2026-02-02", req.ReturnDate)
	assert.Equal(t, "ISB", req.From)

	req, err = oneWayCriteria().SelectDate("2026-01-27")
	require.NoError(t, err)
	assert.Equal(t, offer.TripOneWay, req.TripType)
	assert.Empty(t, req.ReturnDate)

	_, err = c.SelectDate("")
	assert.ErrorIs(t, err, ErrUnknownDate)
	_, err = c.SelectDate("2026-01-26|later")
	assert.ErrorIs(t, err, ErrUnknownDate)
}
