package offer

// Legs is an offer's segments split by direction.
type Legs struct {
	Outbound []Segment
	Inbound  []Segment
}

// SplitLegs partitions segments into outbound ("0") and inbound ("1") groups for round trips
// that carry group tags. Without tags, or for any other trip type, the whole list is the
// outbound leg. Offers without a flat segment list fall back to explicit leg containers.
func SplitLegs(raw RawOffer, tripType TripType) Legs {
	segments, _ := raw.Segments()
	if len(segments) == 0 {
		return containerLegs(raw, tripType)
	}

	if tripType != TripRound || !hasGroupTags(segments) {
		return Legs{Outbound: segments}
	}

	var legs Legs
	for _, s := range segments {
		switch groupField.str(s, "") {
		case "0":
			legs.Outbound = append(legs.Outbound, s)
		case "1":
			legs.Inbound = append(legs.Inbound, s)
		}
	}
	return legs
}

func hasGroupTags(segments []Segment) bool {
	for _, s := range segments {
		if _, ok := groupField.lookup(s); ok {
			return true
		}
	}
	return false
}

func containerLegs(raw RawOffer, tripType TripType) Legs {
	var legs Legs
	legs.Outbound = firstContainer(raw, outboundContainers)
	if tripType == TripRound {
		legs.Inbound = firstContainer(raw, inboundContainers)
	}
	return legs
}

func firstContainer(raw RawOffer, containers []field) []Segment {
	for _, c := range containers {
		v, ok := c.lookup(raw)
		if !ok {
			continue
		}
		if segs, ok := segmentsOf(v); ok && len(segs) > 0 {
			return segs
		}
	}
	return nil
}

// LegStops is the number of intermediate stops in a leg.
func LegStops(segs []Segment) int {
	if len(segs) <= 1 {
		return 0
	}
	return len(segs) - 1
}

// RouteStops is the stop count used for listing filters. A round trip is classified by its
// stricter leg, so a direct outbound with a one-stop return counts as one stop.
func RouteStops(raw RawOffer, tripType TripType) int {
	legs := SplitLegs(raw, tripType)
	return max(LegStops(legs.Outbound), LegStops(legs.Inbound))
}

// OutboundDeparture is the raw departure of the first outbound segment, wherever the
// outbound leg sits in the segment list.
func OutboundDeparture(raw RawOffer, tripType TripType) string {
	legs := SplitLegs(raw, tripType)
	if len(legs.Outbound) == 0 {
		return ""
	}
	return departureField.str(legs.Outbound[0], "")
}

// CarrierCode is the marketing carrier of the first segment, else the plating carrier.
func CarrierCode(raw RawOffer) string {
	segments, _ := raw.Segments()
	if len(segments) > 0 {
		if code := carrierField.str(segments[0], ""); code != "" {
			return code
		}
	}
	return platingCarrierField.str(raw, "")
}

// CabinClass is the cabin of the first outbound segment, or "".
func CabinClass(raw RawOffer, tripType TripType) string {
	legs := SplitLegs(raw, tripType)
	if len(legs.Outbound) == 0 {
		return ""
	}
	return cabinField.str(legs.Outbound[0], "")
}

// Refundable is true only when the offer explicitly says so.
func Refundable(raw RawOffer) bool {
	v, ok := refundableField.lookup(raw)
	if !ok {
		return false
	}
	b, isBool := v.(bool)
	return isBool && b
}

func RefundableLabel(refundable bool) string {
	if refundable {
		return "Refundable"
	}
	return "Non-refundable"
}

// Endpoints returns origin, destination and the departure dates of the first outbound and
// inbound segments, for callers that need to rebuild criteria from an offer.
func Endpoints(raw RawOffer, tripType TripType) (from, to, depDate, retDate string) {
	legs := SplitLegs(raw, tripType)
	if len(legs.Outbound) == 0 {
		return "", "", "", ""
	}
	first := legs.Outbound[0]
	last := legs.Outbound[len(legs.Outbound)-1]

	from = originField.str(first, "")
	to = destinationField.str(last, destinationField.str(first, ""))
	depDate = DatePart(departureField.str(first, ""))
	if len(legs.Inbound) > 0 {
		retDate = DatePart(departureField.str(legs.Inbound[0], ""))
	}
	return from, to, depDate, retDate
}
