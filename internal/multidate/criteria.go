package multidate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"storefront/internal/offer"
	"storefront/pkg/apiclient"
)

var ErrUnknownDate = errors.New("unknown date selection")

// Criteria is the part of a search the date strip varies over.
type Criteria struct {
	TripType    offer.TripType      `json:"tripType"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	DepDate     string              `json:"depDate"`
	RetDate     string              `json:"retDate"`
	Travelers   apiclient.Travelers `json:"travelers"`
	TravelClass string              `json:"travelClass"`
}

// Ready reports whether there is enough to build a strip.
func (c Criteria) Ready() bool {
	return c.From != "" && c.To != "" && c.DepDate != ""
}

// CriteriaFrom takes the strip criteria from the active search and fills whatever is missing
// from the first offer of the results.
func CriteriaFrom(search apiclient.SearchRequest, flights []offer.RawOffer) Criteria {
	c := Criteria{
		TripType:    search.TripType,
		From:        search.From,
		To:          search.To,
		DepDate:     search.Date,
		RetDate:     search.ReturnDate,
		Travelers:   search.Travelers,
		TravelClass: search.TravelClass,
	}

	if len(flights) > 0 && (c.From == "" || c.To == "" || c.DepDate == "" || c.RetDate == "") {
		from, to, dep, ret := offer.Endpoints(flights[0], offer.TripRound)
		c.From = firstNonEmpty(c.From, from)
		c.To = firstNonEmpty(c.To, to)
		c.DepDate = firstNonEmpty(c.DepDate, dep)
		c.RetDate = firstNonEmpty(c.RetDate, ret)
	}

	if c.TripType == "" {
		c.TripType = offer.TripOneWay
		if c.RetDate != "" {
			c.TripType = offer.TripRound
		}
	}
	if c.Travelers == (apiclient.Travelers{}) {
		c.Travelers = apiclient.Travelers{Adults: 1}
	}
	if c.TravelClass == "" {
		c.TravelClass = "Economy"
	}
	return c
}

// Pairs is the date window for these criteria.
func (c Criteria) Pairs(window int) []DatePair {
	if !c.Ready() {
		return nil
	}
	return BuildDatePairs(c.DepDate, c.RetDate, c.TripType, window)
}

// SearchFor builds the search for one date pair: a round trip when the pair has a return
// date, one-way otherwise.
func (c Criteria) SearchFor(p DatePair) apiclient.SearchRequest {
	req := apiclient.SearchRequest{
		TripType:    offer.TripOneWay,
		From:        c.From,
		To:          c.To,
		Date:        p.Dep,
		Travelers:   c.Travelers,
		TravelClass: c.TravelClass,
	}
	if c.TripType == offer.TripRound && p.Ret != "" {
		req.TripType = offer.TripRound
		req.ReturnDate = p.Ret
	}
	return req
}

// SelectDate builds the main search for a date box key.
func (c Criteria) SelectDate(key string) (apiclient.SearchRequest, error) {
	p := ParseKey(key)
	if AddDays(p.Dep, 0) == "" || (p.Ret != "" && AddDays(p.Ret, 0) == "") {
		return apiclient.SearchRequest{}, ErrUnknownDate
	}
	return c.SearchFor(p), nil
}

// CacheKey identifies a strip by every parameter that changes its contents.
func CacheKey(c Criteria, window int) string {
	keyData := struct {
		TripType       offer.TripType      `json:"tripType"`
		From           string              `json:"from"`
		To             string              `json:"to"`
		DepDate        string              `json:"depDate"`
		RetDate        string              `json:"retDate"`
		NextDatesCount int                 `json:"nextDatesCount"`
		Travelers      apiclient.Travelers `json:"travelers"`
		TravelClass    string              `json:"travelClass"`
	}{
		TripType:       c.TripType,
		From:           c.From,
		To:             c.To,
		DepDate:        c.DepDate,
		RetDate:        c.RetDate,
		NextDatesCount: window,
		Travelers:      c.Travelers,
		TravelClass:    c.TravelClass,
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return "multidate:" + hex.EncodeToString(hash[:])
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
