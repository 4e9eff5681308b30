package storefront

import (
	"context"
	"fmt"
	"net/http"

	"storefront/pkg/apiclient"
	"storefront/pkg/logger"
)

// BookingForm describes the form to fill for the current selection.
type BookingForm struct {
	Travelers []TravelerSlot `json:"travelers"`
	Booking   BookingState   `json:"booking"`
}

type TravelerSlot struct {
	Label    string `json:"label"`
	Key      string `json:"key"`
	Required bool   `json:"required"`
}

func (s *Service) BookingForm(id string) (BookingForm, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return BookingForm{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	labels := TravelerLabels(sess.search.Criteria.Travelers)
	slots := make([]TravelerSlot, len(labels))
	for i, l := range labels {
		slots[i] = TravelerSlot{Label: l, Key: TravelerKey(l), Required: i == 0}
	}
	return BookingForm{Travelers: slots, Booking: sess.booking}, nil
}

// Book checks the form, has the API validate the passengers and, only if that succeeds,
// creates the booking for the selected offer.
func (s *Service) Book(ctx context.Context, id string, in BookingInput) (BookingState, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return BookingState{}, err
	}

	sess.mu.Lock()
	selected := sess.selected
	labels := TravelerLabels(sess.search.Criteria.Travelers)
	sess.mu.Unlock()

	if selected == nil {
		return BookingState{}, ErrNoSelectedOffer
	}
	if !selected.HasCarrierPayload() {
		return BookingState{}, ErrMissingCarrierPayload
	}

	in.Contact = in.Contact.withDefaults()
	if problems := validateForm(s.validate, labels, in); len(problems) > 0 {
		return BookingState{}, &AppError{
			Status:  http.StatusUnprocessableEntity,
			Code:    ErrorCodeValidation,
			Message: "Please complete the highlighted fields",
			Payload: problems,
		}
	}
	passengers := BuildPassengers(labels, in.Travelers)

	sess.mu.Lock()
	sess.booking.ValidationStatus = StatusPending
	sess.booking.Validation = nil
	sess.booking.ValidationErrors = nil
	sess.mu.Unlock()

	validation, err := s.api.ValidatePassengers(ctx, apiclient.ValidatePassengersRequest{Passengers: passengers})
	if err != nil {
		msgs := validationMessages(err)

		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.booking.ValidationStatus = StatusRejected
		sess.booking.ValidationErrors = msgs
		s.logger.Warn("passenger_validation_failed",
			logger.Field{Key: "session_id", Value: sess.ID},
			logger.Field{Key: "errors", Value: msgs},
		)
		return sess.booking, &AppError{
			Status:  http.StatusUnprocessableEntity,
			Code:    ErrorCodePassengerInvalid,
			Message: "Passenger validation failed",
			Payload: map[string][]string{"errors": msgs},
			Err:     fmt.Errorf("%w: %w", ErrValidationFailed, err),
		}
	}

	sess.mu.Lock()
	sess.booking.ValidationStatus = StatusFulfilled
	sess.booking.Validation = validation
	sess.booking.Status = StatusPending
	sess.booking.Booking = nil
	sess.booking.Error = nil
	sess.mu.Unlock()

	booking, err := s.api.CreateBooking(ctx, apiclient.BookingRequest{
		SelectedFlight: selected,
		Passengers:     normalizePassengers(passengers),
		ContactInfo:    in.Contact.info(),
		FormOfPayment:  in.FormOfPayment,
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		payload := failurePayload(err, "Booking failed")
		sess.booking.Status = StatusRejected
		sess.booking.Error = payload
		s.logger.Error("booking_failed",
			logger.Field{Key: "session_id", Value: sess.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
		return sess.booking, upstreamError(err, payload)
	}

	sess.booking.Status = StatusFulfilled
	sess.booking.Booking = booking
	s.logger.Info("booking_created",
		logger.Field{Key: "session_id", Value: sess.ID},
		logger.Field{Key: "pnr", Value: booking.PNR},
		logger.Field{Key: "booking_id", Value: booking.BookingID},
	)
	return sess.booking, nil
}

// validationMessages lists what the validation endpoint objected to.
func validationMessages(err error) []string {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		return []string{"Passenger validation failed"}
	}
	if p := apiErr.Payload; p != nil {
		if len(p.Errors) > 0 {
			return p.Errors
		}
		if p.Error != "" {
			return []string{p.Error}
		}
	}
	return []string{"Validation failed"}
}

func (s *Service) ClearBooking(id string) (BookingState, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return BookingState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.booking = BookingState{ValidationStatus: StatusIdle, Status: StatusIdle}
	return sess.booking, nil
}
