package storefront

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/pkg/apiclient"
)

const (
	PassengerAdult  = "ADT"
	PassengerChild  = "CNN"
	PassengerInfant = "INF"

	defaultPhoneCode = "+92"
	missingLastName  = "NA"
)

// TravelerForm is one row of the booking form. Only the lead adult's row is mandatory.
type TravelerForm struct {
	Title          string `json:"title" validate:"required" example:"Mr"`
	FullName       string `json:"fullName" validate:"required" example:"Ali Khan"`
	DOB            string `json:"dob" validate:"required" example:"1990-05-01"`
	Nationality    string `json:"nationality" validate:"required" example:"pk"`
	DocumentType   string `json:"documentType" validate:"required" example:"Passport"`
	DocumentNumber string `json:"documentNumber" validate:"required" example:"AB1234567"`
	ExpiryDate     string `json:"expiryDate" validate:"required" example:"2030-01-01"`
}

func (f TravelerForm) empty() bool {
	return f.FullName == "" && f.DOB == "" && f.DocumentNumber == "" && f.Nationality == "" && f.Title == ""
}

type ContactForm struct {
	PhoneCode   string `json:"phoneCode" validate:"required" example:"+92"`
	PhoneNumber string `json:"phoneNumber" validate:"required" example:"3001234567"`
	Email       string `json:"email" validate:"required,email" example:"ali@example.com"`
}

// BookingInput is the booking form keyed by traveler (see TravelerKey).
type BookingInput struct {
	Travelers     map[string]TravelerForm `json:"travelers"`
	Contact       ContactForm             `json:"contact"`
	FormOfPayment any                     `json:"formOfPayment"`
}

// PassengerBreakdown is the per-type count sent with a pricing request. Zero counts are left
// out; with no travelers at all a single adult is assumed.
func PassengerBreakdown(t apiclient.Travelers) []apiclient.PassengerCount {
	var out []apiclient.PassengerCount
	if t.Adults > 0 {
		out = append(out, apiclient.PassengerCount{Type: PassengerAdult, Quantity: t.Adults})
	}
	if t.Child > 0 {
		out = append(out, apiclient.PassengerCount{Type: PassengerChild, Quantity: t.Child})
	}
	if t.Infant > 0 {
		out = append(out, apiclient.PassengerCount{Type: PassengerInfant, Quantity: t.Infant})
	}
	if len(out) == 0 {
		out = []apiclient.PassengerCount{{Type: PassengerAdult, Quantity: 1}}
	}
	return out
}

// TravelerLabels names one form row per traveler: "Adult 1".."Adult n", then children, then
// infants. There is always at least "Adult 1".
func TravelerLabels(t apiclient.Travelers) []string {
	var labels []string
	add := func(kind string, n int) {
		for i := 1; i <= n; i++ {
			labels = append(labels, fmt.Sprintf("%s %d", kind, i))
		}
	}
	add("Adult", t.Adults)
	add("Child", t.Child)
	add("Infant", t.Infant)

	if len(labels) == 0 {
		labels = []string{"Adult 1"}
	}
	return labels
}

// TravelerKey is the form key for a label: "Adult 1" -> "adult1".
func TravelerKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "")
}

func passengerType(label string) string {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "child"):
		return PassengerChild
	case strings.Contains(l, "infant"):
		return PassengerInfant
	}
	return PassengerAdult
}

func genderOf(title string) string {
	switch title {
	case "Mr":
		return "M"
	case "Ms":
		return "F"
	}
	return ""
}

// splitName splits on the first space.
func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	first, last, _ = strings.Cut(full, " ")
	last = strings.TrimSpace(last)
	if last == "" {
		last = missingLastName
	}
	return first, last
}

// BuildPassengers turns the filled form rows into passengers in label order. Rows left
// completely empty are skipped.
func BuildPassengers(labels []string, forms map[string]TravelerForm) []apiclient.Passenger {
	passengers := make([]apiclient.Passenger, 0, len(labels))
	for _, label := range labels {
		f, ok := forms[TravelerKey(label)]
		if !ok || f.empty() {
			continue
		}
		first, last := splitName(f.FullName)
		passengers = append(passengers, apiclient.Passenger{
			Type:           passengerType(label),
			Title:          f.Title,
			FirstName:      first,
			LastName:       last,
			Gender:         genderOf(f.Title),
			DOB:            f.DOB,
			Nationality:    f.Nationality,
			PassportNumber: f.DocumentNumber,
			PassportExpiry: f.ExpiryDate,
		})
	}
	return passengers
}

// normalizePassengers upper-cases the coded fields before booking.
func normalizePassengers(in []apiclient.Passenger) []apiclient.Passenger {
	out := make([]apiclient.Passenger, len(in))
	for i, p := range in {
		p.Type = strings.ToUpper(p.Type)
		p.Gender = strings.ToUpper(p.Gender)
		p.Nationality = strings.ToUpper(p.Nationality)
		out[i] = p
	}
	return out
}

func (c ContactForm) withDefaults() ContactForm {
	if strings.TrimSpace(c.PhoneCode) == "" {
		c.PhoneCode = defaultPhoneCode
	}
	return c
}

func (c ContactForm) info() apiclient.ContactInfo {
	return apiclient.ContactInfo{
		Email: c.Email,
		Phone: c.PhoneCode + c.PhoneNumber,
	}
}

// validateForm checks the lead adult's row and the contact block. The result maps
// "<travelerKey>.<field>" and "contact.<field>" to a message; it is empty when the form is
// complete.
func validateForm(v *validator.Validate, labels []string, in BookingInput) map[string]string {
	problems := map[string]string{}

	lead := TravelerKey(labels[0])
	collect(problems, lead, v.Struct(in.Travelers[lead]))
	collect(problems, "contact", v.Struct(in.Contact))
	return problems
}

func collect(problems map[string]string, prefix string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		msg := "Required*"
		if fe.Tag() == "email" {
			msg = "Invalid email"
		}
		problems[prefix+"."+fe.Field()] = msg
	}
}
