package mockapi

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/offer"
	"storefront/pkg/apiclient"
)

func newClient(t *testing.T) *apiclient.Client {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	srv := NewServer(nil, WithDelay(func() time.Duration { return 0 }))
	srv.now = now

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return apiclient.New(ts.URL)
}

func roundTrip() apiclient.SearchRequest {
	return apiclient.SearchRequest{
		TripType:    offer.TripRound,
		From:        "ISB",
		To:          "DXB",
		Date:        "2026-01-24",
		ReturnDate:  "2026-01-31",
		Travelers:   apiclient.Travelers{Adults: 1},
		TravelClass: "Economy",
	}
}

func TestSearch_RoundTripOffers(t *testing.T) {
	client := newClient(t)

	resp, err := client.Search(context.Background(), roundTrip())
	require.NoError(t, err)
	require.Len(t, resp.Flights, len(carriers))
	assert.Equal(t, len(carriers), resp.TotalResults)
	assert.Equal(t, offer.TripRound, resp.TripType)
	assert.Equal(t, "2026-01-31", resp.ReturnDate)

	prev := 0.0
	for _, f := range resp.Flights {
		p, ok := offer.ExtractPrice(f)
		require.True(t, ok)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
		assert.True(t, f.HasCarrierPayload())
	}

	view := offer.NormalizeOffer(resp.Flights[0], offer.TripRound)
	assert.Equal(t, "ISB", view.Outbound().Origin)
	inbound, ok := view.Inbound()
	require.True(t, ok)
	assert.Equal(t, "ISB", inbound.Destination)
}

func TestSearch_FareVariesByDate(t *testing.T) {
	pk := carriers[0]
	seen := map[float64]bool{}
	for day := 20; day <= 28; day++ {
		seen[fare(pk, fmt.Sprintf("2026-01-%d", day))] = true
	}
	assert.Greater(t, len(seen), 1)
	assert.Equal(t, fare(pk, "2026-01-24"), fare(pk, "2026-01-24"))
}

func TestPricing(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	resp, err := client.Search(ctx, roundTrip())
	require.NoError(t, err)

	var soldOut, bookable offer.RawOffer
	for _, f := range resp.Flights {
		if f["soldOut"] == true {
			soldOut = f
		} else if bookable == nil {
			bookable = f
		}
	}
	require.NotNil(t, soldOut)
	require.NotNil(t, bookable)

	priced, err := client.Price(ctx, apiclient.PricingRequest{
		SelectedFlight: bookable,
		Passengers:     []apiclient.PassengerCount{{Type: "ADT", Quantity: 2}, {Type: "INF", Quantity: 1}},
		AllFlights:     resp.Flights,
	})
	require.NoError(t, err)
	assert.True(t, priced.Success)
	total, ok := priced.Pricing.Total()
	require.True(t, ok)
	price, _ := offer.ExtractPrice(bookable)
	assert.InDelta(t, price*2.1*1.12, total, 0.01)

	_, err = client.Price(ctx, apiclient.PricingRequest{
		SelectedFlight: soldOut,
		Passengers:     []apiclient.PassengerCount{{Type: "ADT", Quantity: 1}},
		AllFlights:     resp.Flights,
	})
	apiErr, ok := apiclient.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 409, apiErr.Status)
	require.NotNil(t, apiErr.Payload)
	assert.Equal(t, unavailableCode, apiErr.Payload.ErrorCode)
	assert.Equal(t, bookable.ID(), apiErr.Payload.SuggestedFlight.ID())
}

func TestValidatePassengersAndBook(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	_, err := client.ValidatePassengers(ctx, apiclient.ValidatePassengersRequest{
		Passengers: []apiclient.Passenger{{Type: "ADT", FirstName: "Ali", DOB: "1990-05-01", PassportExpiry: "2020-01-01"}},
	})
	apiErr, ok := apiclient.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 422, apiErr.Status)
	assert.Equal(t, []string{
		"passengers[0].passportNumber: Passport number is required",
		"passengers[0].passportExpiry: Passport is expired",
	}, apiErr.Payload.Errors)

	passengers := []apiclient.Passenger{{
		Type: "ADT", FirstName: "Ali", LastName: "Khan", DOB: "1990-05-01",
		PassportNumber: "AB1234567", PassportExpiry: "2030-01-01",
	}}
	valid, err := client.ValidatePassengers(ctx, apiclient.ValidatePassengersRequest{Passengers: passengers})
	require.NoError(t, err)
	assert.True(t, valid.Valid)

	resp, err := client.Search(ctx, roundTrip())
	require.NoError(t, err)
	booking, err := client.CreateBooking(ctx, apiclient.BookingRequest{
		SelectedFlight: resp.Flights[0],
		Passengers:     passengers,
		ContactInfo:    apiclient.ContactInfo{Email: "ali@example.com", Phone: "+923001234567"},
	})
	require.NoError(t, err)
	assert.True(t, booking.Success)
	assert.Len(t, booking.PNR, 6)
	assert.Equal(t, "2026-01-02T00:00:00Z", booking.TicketingDeadline)
}

func TestAirports(t *testing.T) {
	client := newClient(t)

	got, err := client.Airports(context.Background(), "dub", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DXB", got[0].Code())

	got, err = client.Airports(context.Background(), "sial", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OPST", got[0].Code())
}
