package storefront

import (
	"errors"
	"net/http"
	"strings"

	"storefront/internal/airport"
	"storefront/internal/multidate"
	"storefront/pkg/apiclient"
)

type ErrorCode string

const (
	ErrorCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrorCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrorCodeNoSelectedOffer  ErrorCode = "NO_SELECTED_OFFER"
	ErrorCodeNoSuggestedOffer ErrorCode = "NO_SUGGESTED_OFFER"
	ErrorCodeMissingPayload   ErrorCode = "MISSING_CARRIER_PAYLOAD"
	ErrorCodePassengerInvalid ErrorCode = "PASSENGER_VALIDATION_FAILED"
	ErrorCodeOfferUnavailable ErrorCode = "OFFER_UNAVAILABLE"
	ErrorCodeUnknownDate      ErrorCode = "UNKNOWN_DATE"
	ErrorCodeQuerySuperseded  ErrorCode = "QUERY_SUPERSEDED"
	ErrorCodeUpstreamFailure  ErrorCode = "UPSTREAM_FAILURE"
	ErrorCodeInternalFailure  ErrorCode = "INTERNAL_FAILURE"
)

// OfferUnavailableCode is the pricing error code for an offer that is no longer bookable. Its
// payload may carry a suggested replacement.
const OfferUnavailableCode = "000276"

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrNoSelectedOffer       = errors.New("no offer selected")
	ErrNoSuggestedOffer      = errors.New("no suggested offer to apply")
	ErrMissingCarrierPayload = errors.New("selected offer has no carrier payload")
	ErrValidationFailed      = errors.New("passenger validation failed")
	ErrInvalidSearch         = errors.New("invalid search input")
)

// AppError is an error with the HTTP status and code it is reported with. Payload, when set,
// is sent as the response details.
type AppError struct {
	Status  int
	Code    ErrorCode
	Message string
	Payload any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// upstreamError reports a failed flight API call. payload is what was stored in the session
// for that failure.
func upstreamError(err error, payload *apiclient.ErrorPayload) *AppError {
	appErr := &AppError{
		Status:  http.StatusBadGateway,
		Code:    ErrorCodeUpstreamFailure,
		Message: payload.Error,
		Payload: payload,
		Err:     err,
	}
	if appErr.Message == "" {
		appErr.Message = payload.Message
	}

	if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.Status >= 400 && apiErr.Status < 500 {
		appErr.Status = apiErr.Status
	}
	if payload.ErrorCode == OfferUnavailableCode {
		appErr.Status = http.StatusConflict
		appErr.Code = ErrorCodeOfferUnavailable
	}
	return appErr
}

// appErrorFor maps the package sentinels. Errors it does not know are returned unchanged.
func appErrorFor(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return &AppError{Status: http.StatusNotFound, Code: ErrorCodeSessionNotFound, Message: "Session not found", Err: err}
	case errors.Is(err, ErrNoSelectedOffer):
		return &AppError{Status: http.StatusBadRequest, Code: ErrorCodeNoSelectedOffer, Message: "No flight selected", Err: err}
	case errors.Is(err, ErrNoSuggestedOffer):
		return &AppError{Status: http.StatusConflict, Code: ErrorCodeNoSuggestedOffer, Message: "No suggested flight available", Err: err}
	case errors.Is(err, ErrMissingCarrierPayload):
		return &AppError{
			Status:  http.StatusBadRequest,
			Code:    ErrorCodeMissingPayload,
			Message: "Selected flight missing. Please go back and select a flight again.",
			Err:     err,
		}
	case errors.Is(err, multidate.ErrUnknownDate):
		return &AppError{Status: http.StatusBadRequest, Code: ErrorCodeUnknownDate, Message: "Unknown date selection", Err: err}
	case errors.Is(err, airport.ErrSuperseded):
		return &AppError{Status: http.StatusConflict, Code: ErrorCodeQuerySuperseded, Message: "Query superseded by a newer one", Err: err}
	case errors.Is(err, ErrInvalidSearch):
		return invalidInput("Invalid search input", err)
	}
	return err
}

// invalidInput reports a joined validation error with one detail per line after the first.
func invalidInput(msg string, err error) *AppError {
	appErr := &AppError{Status: http.StatusBadRequest, Code: ErrorCodeValidation, Message: msg, Err: err}
	if lines := strings.Split(err.Error(), "\n"); len(lines) > 1 {
		appErr.Payload = lines[1:]
	}
	return appErr
}
