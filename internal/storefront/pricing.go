package storefront

import (
	"context"
	"net/http"

	"storefront/internal/offer"
	"storefront/pkg/apiclient"
	"storefront/pkg/logger"
)

const missingSegmentsError = "Missing selectedFlight or segments"

// Price asks the API to price the selected offer for the searched travelers. An offer that is
// no longer available comes back rejected with OfferUnavailableCode and, possibly, a suggested
// replacement that UseSuggested can apply.
func (s *Service) Price(ctx context.Context, id string) (PricingState, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return PricingState{}, err
	}

	sess.mu.Lock()
	selected := sess.selected
	if selected == nil {
		sess.mu.Unlock()
		return PricingState{}, ErrNoSelectedOffer
	}
	if _, ok := selected.Segments(); !ok {
		payload := &apiclient.ErrorPayload{Success: false, Error: missingSegmentsError}
		sess.pricing = PricingState{Status: StatusRejected, Error: payload}
		state := sess.pricing
		sess.mu.Unlock()
		return state, &AppError{Status: http.StatusBadRequest, Code: ErrorCodeValidation, Message: missingSegmentsError, Payload: payload}
	}

	criteria := sess.search.Criteria
	allFlights := sess.search.Flights
	if allFlights == nil {
		allFlights = []offer.RawOffer{}
	}
	req := apiclient.PricingRequest{
		SelectedFlight: selected,
		Passengers:     PassengerBreakdown(criteria.Travelers),
		AllFlights:     allFlights,
		SearchContext:  &criteria,
	}
	sess.pricing = PricingState{Status: StatusPending}
	sess.mu.Unlock()

	resp, err := s.api.Price(ctx, req)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		payload := failurePayload(err, "Pricing failed")
		sess.pricing = PricingState{
			Status:          StatusRejected,
			ErrorCode:       payload.ErrorCode,
			SuggestedFlight: payload.SuggestedFlight,
			Error:           payload,
		}
		s.logger.Warn("pricing_failed",
			logger.Field{Key: "session_id", Value: sess.ID},
			logger.Field{Key: "offer_id", Value: selected.ID()},
			logger.Field{Key: "error_code", Value: payload.ErrorCode},
			logger.Field{Key: "has_suggestion", Value: payload.SuggestedFlight != nil},
		)
		return sess.pricing, upstreamError(err, payload)
	}

	sess.pricing = PricingState{
		Status:       StatusFulfilled,
		Success:      resp.Success,
		Pricing:      resp.Pricing,
		PricedFlight: resp.Flight,
	}
	s.logger.Info("pricing_completed",
		logger.Field{Key: "session_id", Value: sess.ID},
		logger.Field{Key: "offer_id", Value: selected.ID()},
	)
	return sess.pricing, nil
}

func canUseSuggested(p PricingState) bool {
	return p.ErrorCode == OfferUnavailableCode && p.SuggestedFlight != nil
}

// UseSuggested makes the alternate offer from the last failed pricing the selected offer,
// exactly as the API sent it. The pricing snapshot is left as is; the caller re-prices.
func (s *Service) UseSuggested(id string) (DetailView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return DetailView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !canUseSuggested(sess.pricing) {
		return DetailView{}, ErrNoSuggestedOffer
	}
	sess.selected = sess.pricing.SuggestedFlight
	s.logger.Info("suggested_offer_applied",
		logger.Field{Key: "session_id", Value: sess.ID},
		logger.Field{Key: "offer_id", Value: sess.selected.ID()},
	)
	return s.detailView(sess), nil
}

func (s *Service) ClearPricing(id string) (PricingState, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return PricingState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.pricing = PricingState{Status: StatusIdle}
	return sess.pricing, nil
}
