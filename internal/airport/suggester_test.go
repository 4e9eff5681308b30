package airport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/apiclient"
)

type lookupFunc func(ctx context.Context, q string, limit int) ([]apiclient.Airport, error)

func (f lookupFunc) Airports(ctx context.Context, q string, limit int) ([]apiclient.Airport, error) {
	return f(ctx, q, limit)
}

func TestSuggest_DebounceCoalescesRapidInput(t *testing.T) {
	var calls atomic.Int32
	var lastQuery atomic.Value
	lookup := lookupFunc(func(_ context.Context, q string, limit int) ([]apiclient.Airport, error) {
		calls.Add(1)
		lastQuery.Store(q)
		assert.Equal(t, 10, limit)
		return []apiclient.Airport{{IATA: "ISB", Name: "Islamabad"}}, nil
	})
	s := NewSuggester(lookup, 50*time.Millisecond, 10, nil)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	results := make([][]apiclient.Airport, 3)
	for i, q := range []string{"i", "is", "isb"} {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			results[i], errs[i] = s.Suggest(context.Background(), "session-1:from", q)
		}(i, q)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.ErrorIs(t, errs[0], ErrSuperseded)
	assert.ErrorIs(t, errs[1], ErrSuperseded)
	require.NoError(t, errs[2])
	assert.Equal(t, "ISB", results[2][0].Code())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "isb", lastQuery.Load())
}

func TestSuggest_ChannelsAreIndependent(t *testing.T) {
	var calls atomic.Int32
	lookup := lookupFunc(func(_ context.Context, q string, _ int) ([]apiclient.Airport, error) {
		calls.Add(1)
		return []apiclient.Airport{{IATA: q}}, nil
	})
	s := NewSuggester(lookup, 20*time.Millisecond, 0, nil)

	var wg sync.WaitGroup
	var fromErr, toErr error
	wg.Add(2)
	go func() { defer wg.Done(); _, fromErr = s.Suggest(context.Background(), "s:from", "ISB") }()
	go func() { defer wg.Done(); _, toErr = s.Suggest(context.Background(), "s:to", "DXB") }()
	wg.Wait()

	assert.NoError(t, fromErr)
	assert.NoError(t, toErr)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSuggest_StaleResponseIsDiscarded(t *testing.T) {
	started := make(chan struct{}, 1)
	lookup := lookupFunc(func(ctx context.Context, q string, _ int) ([]apiclient.Airport, error) {
		if q == "du" {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []apiclient.Airport{{IATA: "DXB"}}, nil
	})
	s := NewSuggester(lookup, 0, 10, nil)

	staleErr := make(chan error, 1)
	go func() {
		_, err := s.Suggest(context.Background(), "c", "du")
		staleErr <- err
	}()
	<-started

	fresh, err := s.Suggest(context.Background(), "c", "dxb")
	require.NoError(t, err)
	assert.Equal(t, "DXB", fresh[0].Code())
	assert.ErrorIs(t, <-staleErr, ErrSuperseded)
}

func TestSuggest_LookupFailureGivesEmptyList(t *testing.T) {
	lookup := lookupFunc(func(context.Context, string, int) ([]apiclient.Airport, error) {
		return nil, errors.New("airport api down")
	})
	s := NewSuggester(lookup, 0, 10, nil)

	airports, err := s.Suggest(context.Background(), "c", "lhe")

	require.NoError(t, err)
	assert.NotNil(t, airports)
	assert.Empty(t, airports)
}

func TestSuggest_BlankQuerySkipsLookup(t *testing.T) {
	lookup := lookupFunc(func(context.Context, string, int) ([]apiclient.Airport, error) {
		t.Fatal("lookup must not run for a blank query")
		return nil, nil
	})
	s := NewSuggester(lookup, 0, 10, nil)

	airports, err := s.Suggest(context.Background(), "c", "   ")

	require.NoError(t, err)
	assert.Empty(t, airports)
}

func TestSuggest_CallerCancellation(t *testing.T) {
	lookup := lookupFunc(func(context.Context, string, int) ([]apiclient.Airport, error) {
		return []apiclient.Airport{{IATA: "KHI"}}, nil
	})
	s := NewSuggester(lookup, time.Second, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Suggest(ctx, "c", "khi")
	assert.ErrorIs(t, err, context.Canceled)
}
