package storefront

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/offer"
	"storefront/pkg/apiclient"
)

// SearchInput is the search form as the browser posts it. Traveler counts may come either
// wrapped in travelers or as top-level fields.
type SearchInput struct {
	TripType    string                    `json:"tripType" example:"round"`
	From        string                    `json:"from" example:"isb"`
	To          string                    `json:"to" example:"dxb"`
	Date        string                    `json:"date" example:"2026-01-24"`
	ReturnDate  string                    `json:"returnDate" example:"2026-01-31"`
	Segments    []apiclient.SearchSegment `json:"segments"`
	Travelers   *apiclient.Travelers      `json:"travelers"`
	Adults      *int                      `json:"adults"`
	Child       *int                      `json:"child"`
	Infant      *int                      `json:"infant"`
	TravelClass string                    `json:"travelClass" example:"Economy"`
}

const defaultTravelClass = "Economy"

var tripTypeAliases = map[string]offer.TripType{
	"roundtrip": offer.TripRound,
	"multicity": offer.TripMulti,
}

// searchRules is what a normalized search must satisfy before it is sent.
type searchRules struct {
	TripType   offer.TripType `json:"tripType" validate:"oneof=oneway round multi"`
	From       string         `json:"from" validate:"required_unless=TripType multi,omitempty,len=3,alpha,uppercase"`
	To         string         `json:"to" validate:"required_unless=TripType multi,omitempty,len=3,alpha,uppercase"`
	Date       string         `json:"date" validate:"required_unless=TripType multi,omitempty,datetime=2006-01-02"`
	ReturnDate string         `json:"returnDate" validate:"required_if=TripType round,omitempty,datetime=2006-01-02"`
	Segments   []segmentRules `json:"segments" validate:"required_if=TripType multi,dive"`
	Adults     int            `json:"adults" validate:"min=1"`
	Child      int            `json:"child" validate:"min=0"`
	Infant     int            `json:"infant" validate:"min=0"`
}

type segmentRules struct {
	From string `json:"from" validate:"required,len=3,alpha,uppercase"`
	To   string `json:"to" validate:"required,len=3,alpha,uppercase"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// NormalizeForBackend turns the form into the request the flight API expects: canonical trip
// type, upper-case codes, travelers wrapped and defaulted, and only the fields the trip type
// uses. Top-level traveler counts are dropped.
func NormalizeForBackend(v *validator.Validate, in SearchInput) (apiclient.SearchRequest, error) {
	tt := strings.ToLower(strings.TrimSpace(in.TripType))
	tripType := offer.TripType(tt)
	if alias, ok := tripTypeAliases[tt]; ok {
		tripType = alias
	}
	if tripType == "" {
		tripType = offer.TripOneWay
	}

	req := apiclient.SearchRequest{
		TripType:    tripType,
		Travelers:   travelersOf(in),
		TravelClass: strings.TrimSpace(in.TravelClass),
	}
	if req.TravelClass == "" {
		req.TravelClass = defaultTravelClass
	}

	switch tripType {
	case offer.TripMulti:
		for _, seg := range in.Segments {
			req.Segments = append(req.Segments, apiclient.SearchSegment{
				From: upperCode(seg.From),
				To:   upperCode(seg.To),
				Date: strings.TrimSpace(seg.Date),
			})
		}
	default:
		req.From = upperCode(in.From)
		req.To = upperCode(in.To)
		req.Date = strings.TrimSpace(in.Date)
		if tripType == offer.TripRound {
			req.ReturnDate = strings.TrimSpace(in.ReturnDate)
		}
	}

	if err := validateSearch(v, req); err != nil {
		return apiclient.SearchRequest{}, err
	}
	return req, nil
}

func travelersOf(in SearchInput) apiclient.Travelers {
	if in.Travelers != nil {
		return *in.Travelers
	}
	t := apiclient.Travelers{Adults: 1}
	if in.Adults != nil {
		t.Adults = *in.Adults
	}
	if in.Child != nil {
		t.Child = *in.Child
	}
	if in.Infant != nil {
		t.Infant = *in.Infant
	}
	return t
}

func upperCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validateSearch(v *validator.Validate, req apiclient.SearchRequest) error {
	rules := searchRules{
		TripType:   req.TripType,
		From:       req.From,
		To:         req.To,
		Date:       req.Date,
		ReturnDate: req.ReturnDate,
		Adults:     req.Travelers.Adults,
		Child:      req.Travelers.Child,
		Infant:     req.Travelers.Infant,
	}
	for _, seg := range req.Segments {
		rules.Segments = append(rules.Segments, segmentRules(seg))
	}

	err := v.Struct(rules)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSearch, err)
	}
	errs := []error{ErrInvalidSearch}
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: %s", fieldPath(fe), searchMessage(fe)))
	}
	return errors.Join(errs...)
}

func searchMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case "len", "alpha", "uppercase":
		return "must be a 3-letter airport code"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "oneof":
		return "must be one of oneway, round, multi"
	case "min":
		return "must be at least " + fe.Param()
	}
	return "is invalid"
}

// fieldPath is the error's namespace without the root struct name, using JSON names.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
