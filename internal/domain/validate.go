package domain

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PhonePattern is the accepted Singapore mobile/landline format.
var PhonePattern = regexp.MustCompile(`^[89]\d{7}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("sgphone", func(fl validator.FieldLevel) bool {
		return PhonePattern.MatchString(fl.Field().String())
	})
	return v
}

// FieldErrors maps a JSON field name to a human readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fe[field])
	}
	return strings.Join(parts, "; ")
}

// Validate checks the café against its field rules. It returns nil when the
// input is acceptable.
func (in CafeInput) Validate() FieldErrors {
	return check(in)
}

func (in EmployeeInput) Validate() FieldErrors {
	return check(in)
}

func check(input any) FieldErrors {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	switch field + ":" + tag {
	case "name:required":
		return "Name is required"
	case "name:min", "name:max":
		return "Name must be 6-10 characters"
	case "description:required":
		return "Description is required"
	case "description:max":
		return "Description must not exceed 256 characters"
	case "location:required":
		return "Location is required"
	case "email_address:required":
		return "Email is required"
	case "email_address:email":
		return "Please enter a valid email"
	case "phone_number:required":
		return "Phone number is required"
	case "phone_number:sgphone":
		return "Phone must start with 8 or 9 and have 8 digits"
	case "gender:required":
		return "Gender is required"
	case "gender:oneof":
		return "Gender must be Male or Female"
	case "start_date:datetime":
		return "Start date must be formatted YYYY-MM-DD"
	}
	return field + " is invalid"
}
