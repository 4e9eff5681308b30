package offer

import (
	"bytes"
	"encoding/json"
)

type TripType string

const (
	TripOneWay TripType = "oneway"
	TripRound  TripType = "round"
	TripMulti  TripType = "multi"
)

// CarrierPayloadKey is the opaque carrier-specific blob passed through to pricing and booking.
const CarrierPayloadKey = "travelportData"

// RawOffer is a flight offer exactly as the search API returned it. Its shape is not fixed,
// so every read goes through the field resolvers in this package.
type RawOffer map[string]any

// Segment is one element of an offer's segment list.
type Segment map[string]any

// UnmarshalJSON keeps numbers as json.Number so a round trip through the storefront
// does not alter the payload forwarded to pricing and booking.
func (r *RawOffer) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*r = m
	return nil
}

// ID returns the offer identifier, or "" when the API did not send one.
func (r RawOffer) ID() string {
	return idField.str(r, "")
}

// HasCarrierPayload reports whether the opaque carrier blob is present.
func (r RawOffer) HasCarrierPayload() bool {
	v, ok := r[CarrierPayloadKey]
	return ok && v != nil
}

// Segments returns the flat segment list. ok is false when "segments" is not an array.
func (r RawOffer) Segments() (segs []Segment, ok bool) {
	return segmentsOf(r["segments"])
}

func segmentsOf(v any) ([]Segment, bool) {
	var arr []any
	switch t := v.(type) {
	case []any:
		arr = t
	case []Segment:
		return t, true
	case []map[string]any:
		segs := make([]Segment, 0, len(t))
		for _, s := range t {
			segs = append(segs, Segment(s))
		}
		return segs, true
	default:
		return nil, false
	}

	segs := make([]Segment, 0, len(arr))
	for _, item := range arr {
		switch s := item.(type) {
		case map[string]any:
			segs = append(segs, Segment(s))
		case Segment:
			segs = append(segs, s)
		}
	}
	return segs, true
}
