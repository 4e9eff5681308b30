package offer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name   string
		raw    RawOffer
		want   float64
		wantOK bool
	}{
		{"display price number", RawOffer{"displayPrice": json.Number("950")}, 950, true},
		{"display price grouped text", RawOffer{"displayPrice": "PKR 1,250"}, 1250, true},
		{"skips zero and garbage", RawOffer{"displayPrice": json.Number("0"), "totalPrice": "n/a", "price": json.Number("450")}, 450, true},
		{"nested pricing grand total", RawOffer{"pricing": map[string]any{"grandTotal": 900.0}}, 900, true},
		{"decimal string", RawOffer{"total": "1,000.75"}, 1000.75, true},
		{"no price", RawOffer{"currency": "PKR"}, 0, false},
		{"negative ignored", RawOffer{"price": -10.0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPrice(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheapestPrice(t *testing.T) {
	offers := []RawOffer{
		{"displayPrice": json.Number("700")},
		{"displayPrice": "n/a"},
		{"pricing": map[string]any{"totalPrice": "650"}},
	}

	got := CheapestPrice(offers)
	require.NotNil(t, got)
	assert.Equal(t, 650.0, *got)

	assert.Nil(t, CheapestPrice(nil))
	assert.Nil(t, CheapestPrice([]RawOffer{{"displayPrice": ""}}))
}

func TestSortPrice_UnparsableIsZero(t *testing.T) {
	assert.Equal(t, 0.0, SortPrice(RawOffer{}))
	assert.Equal(t, 50.0, SortPrice(RawOffer{"displayPrice": json.Number("50")}))
}

func TestEndpoints(t *testing.T) {
	from, to, dep, ret := Endpoints(roundTripOffer(), TripRound)

	assert.Equal(t, "ISB", from)
	assert.Equal(t, "DXB", to)
	assert.Equal(t, "2026-01-24", dep)
	assert.Equal(t, "2026-01-31", ret)
}
