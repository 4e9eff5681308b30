package storefront

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/airport"
	"storefront/internal/multidate"
	"storefront/internal/offer"
	"storefront/pkg/apiclient"
	"storefront/pkg/cache"
)

const searchResultJSON = `{
	"flights": [{
		"id": "PK-233",
		"displayPrice": 90000,
		"currency": "PKR",
		"travelportData": {"key": "tp-1"},
		"segments": [
			{"group": "0", "carrier": "PK", "flightNumber": "233", "from": "ISB", "to": "DXB",
			 "departure": "2026-01-24T08:00:00", "arrival": "2026-01-24T10:40:00"},
			{"group": "1", "carrier": "PK", "flightNumber": "234", "from": "DXB", "to": "ISB",
			 "departure": "2026-01-31T20:00:00", "arrival": "2026-02-01T00:30:00"}
		]
	}],
	"totalResults": 1,
	"tripType": "round"
}`

const suggestedJSON = `{
	"id": "EK-613",
	"displayPrice": 115500.50,
	"currency": "PKR",
	"travelportData": {"key": "tp-2", "fareBasis": "YLOWPK"},
	"segments": [
		{"group": "0", "carrier": "EK", "flightNumber": "613", "from": "ISB", "to": "DXB",
		 "departure": "2026-01-24T04:25:00", "arrival": "2026-01-24T07:05:00"},
		{"group": "1", "carrier": "EK", "flightNumber": "612", "from": "DXB", "to": "ISB",
		 "departure": "2026-01-31T22:15:00", "arrival": "2026-02-01T02:40:00"}
	]
}`

type upstream struct {
	mu       sync.Mutex
	searches []apiclient.SearchRequest
	pricing  []map[string]any
}

func (u *upstream) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		var req apiclient.SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		u.mu.Lock()
		u.searches = append(u.searches, req)
		u.mu.Unlock()
		writeJSON(w, http.StatusOK, searchResultJSON)
	})
	mux.HandleFunc("/api/air-pricing", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		u.mu.Lock()
		u.pricing = append(u.pricing, body)
		u.mu.Unlock()
		writeJSON(w, http.StatusConflict, `{
			"success": false,
			"errorCode": "000276",
			"message": "Fare no longer available",
			"suggestedFlight": `+suggestedJSON+`
		}`)
	})
	mux.HandleFunc("/api/airports", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dub", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, `[{"iata": "DXB", "name": "Dubai International", "city": "Dubai", "country": "AE"}]`)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestRouter(t *testing.T, api http.Handler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL)
	prefetcher := multidate.NewPrefetcher(client, cache.NewMemoryCache(), nil, nil, multidate.Config{Window: multidate.DefaultWindow})
	suggester := airport.NewSuggester(client, time.Millisecond, 5, nil)
	svc := NewService(client, prefetcher, suggester, NewSessionStore(&seqIDs{}, time.Hour), offer.DefaultOptions(), nil)

	router := gin.New()
	NewStorefrontHandler(svc).RegisterRoutes(router)
	return router
}

func call(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestStorefront_SearchPriceUseSuggested(t *testing.T) {
	up := &upstream{}
	router := newTestRouter(t, up.handler(t))

	w := call(t, router, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)
	base := "/v1/sessions/" + id

	w = call(t, router, http.MethodPost, base+"/search", `{
		"tripType": "round", "from": "isb", "to": "dxb",
		"date": "2026-01-24", "returnDate": "2026-01-31",
		"travelers": {"adults": 1, "child": 0, "infant": 0},
		"travelClass": "Economy"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "fulfilled", decode(t, w)["status"])

	up.mu.Lock()
	require.NotEmpty(t, up.searches)
	mainSent := false
	for _, req := range up.searches {
		assert.Equal(t, "ISB", req.From)
		assert.Equal(t, "DXB", req.To)
		if req.Date == "2026-01-24" && req.ReturnDate == "2026-01-31" {
			mainSent = true
		}
	}
	up.mu.Unlock()
	assert.True(t, mainSent)

	w = call(t, router, http.MethodGet, base+"/multidate", "")
	require.Equal(t, http.StatusOK, w.Code)
	var strip MultiDateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &strip))
	require.Len(t, strip.Dates, 7)
	assert.Equal(t, "24 Jan - 31 Jan", strip.Dates[0].Title)
	assert.True(t, strip.Dates[0].Selected)
	assert.Equal(t, "PKR 90,000", strip.Dates[6].Price)

	w = call(t, router, http.MethodPut, base+"/selection", `{"index": 0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, router, http.MethodPost, base+"/pricing", "")
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(ErrorCodeOfferUnavailable), body["code"])
	assert.Equal(t, "Fare no longer available", body["error"])

	up.mu.Lock()
	require.Len(t, up.pricing, 1)
	assert.Equal(t, []any{map[string]any{"type": "ADT", "quantity": 1.0}}, up.pricing[0]["passengers"])
	up.mu.Unlock()

	w = call(t, router, http.MethodPost, base+"/pricing/use-suggested", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detail struct {
		Raw json.RawMessage `json:"raw"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.JSONEq(t, suggestedJSON, string(detail.Raw))

	w = call(t, router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap struct {
		Selected json.RawMessage `json:"selectedFlight"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.JSONEq(t, suggestedJSON, string(snap.Selected))
}

func TestStorefront_Errors(t *testing.T) {
	router := newTestRouter(t, (&upstream{}).handler(t))

	w := call(t, router, http.MethodGet, "/v1/sessions/missing/flights", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(ErrorCodeSessionNotFound), decode(t, w)["code"])

	id := decode(t, call(t, router, http.MethodPost, "/v1/sessions", ""))["id"].(string)

	w = call(t, router, http.MethodPost, "/v1/sessions/"+id+"/search", `{"from": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON body", decode(t, w)["error"])

	w = call(t, router, http.MethodPost, "/v1/sessions/"+id+"/search", `{"from": "isb", "date": "2026-01-24"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Invalid search input", body["error"])
	assert.Equal(t, []any{"to: is required"}, body["details"])

	w = call(t, router, http.MethodPost, "/v1/sessions/"+id+"/pricing", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(ErrorCodeNoSelectedOffer), decode(t, w)["code"])

	w = call(t, router, http.MethodPost, "/v1/sessions/"+id+"/pricing/use-suggested", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(ErrorCodeNoSuggestedOffer), decode(t, w)["code"])

	w = call(t, router, http.MethodPost, "/v1/sessions/"+id+"/multidate/select", `{"key": "2026-03-01"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(ErrorCodeUnknownDate), decode(t, w)["code"])
}

func TestStorefront_FiltersAndAirports(t *testing.T) {
	router := newTestRouter(t, (&upstream{}).handler(t))
	id := decode(t, call(t, router, http.MethodPost, "/v1/sessions", ""))["id"].(string)
	base := "/v1/sessions/" + id

	w := call(t, router, http.MethodPost, base+"/search", `{"tripType": "roundtrip", "from": "isb", "to": "dxb", "date": "2026-01-24", "returnDate": "2026-01-31", "adults": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, router, http.MethodPut, base+"/filters", `{"STOPS": "1 Stop"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view ListingView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Empty(t, view.Items)
	assert.Equal(t, "1 Stop", view.Filters.Stops)
	assert.Equal(t, "TIME", view.Filters.Time)

	w = call(t, router, http.MethodDelete, base+"/filters", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, "PKR 90,000", view.Items[0].Offer.Price)

	w = call(t, router, http.MethodPut, base+"/filters", `{"PRICE": "Cheapest first"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, router, http.MethodGet, "/v1/airports?q=dub&session="+id+"&field=to", "")
	require.Equal(t, http.StatusOK, w.Code)
	var airports []apiclient.Airport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &airports))
	require.Len(t, airports, 1)
	assert.Equal(t, "DXB", airports[0].Code())
}
