package forms

import (
	"strings"

	"github.com/phillip-england/cafesuite/internal/domain"
)

// Values holds raw form input keyed by JSON field name.
type Values map[string]string

func (v Values) clone() Values {
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = value
	}
	return out
}

// Field describes one input the form renders.
type Field struct {
	Name     string
	Label    string
	Input    string
	Required bool
}

// Schema is the field layout and rule set of one record kind.
type Schema struct {
	Kind       domain.Kind
	Title      string
	Fields     []Field
	AllowsLogo bool
	validate   func(Values) domain.FieldErrors
	// prepare adjusts the values sent on submit; the form keeps its own.
	prepare    func(original, values Values)
}

func (s Schema) has(name string) bool {
	for _, field := range s.Fields {
		if field.Name == name {
			return true
		}
	}
	return false
}

// Validate runs the declarative field rules of the record kind.
func (s Schema) Validate(values Values) domain.FieldErrors {
	if s.validate == nil {
		return nil
	}
	return s.validate(values)
}

var CafeSchema = Schema{
	Kind:  domain.KindCafe,
	Title: "Cafe",
	Fields: []Field{
		{Name: "name", Label: "Name", Input: "text", Required: true},
		{Name: "description", Label: "Description", Input: "textarea", Required: true},
		{Name: "location", Label: "Location", Input: "text", Required: true},
		{Name: "logo_url", Label: "Logo", Input: "hidden"},
	},
	AllowsLogo: true,
	validate: func(values Values) domain.FieldErrors {
		return CafeInput(values).Validate()
	},
}

var EmployeeSchema = Schema{
	Kind:  domain.KindEmployee,
	Title: "Employee",
	Fields: []Field{
		{Name: "name", Label: "Name", Input: "text", Required: true},
		{Name: "email_address", Label: "Email Address", Input: "email", Required: true},
		{Name: "phone_number", Label: "Phone Number", Input: "tel", Required: true},
		{Name: "gender", Label: "Gender", Input: "radio", Required: true},
		{Name: "cafe_id", Label: "Assigned Cafe", Input: "select"},
		{Name: "start_date", Label: "Start Date", Input: "date"},
	},
	validate: func(values Values) domain.FieldErrors {
		return EmployeeInput(values).Validate()
	},
	prepare: func(original, values Values) {
		// A new café assignment starts today unless a new date was entered.
		if strings.TrimSpace(values["cafe_id"]) != strings.TrimSpace(original["cafe_id"]) &&
			values["start_date"] == original["start_date"] {
			values["start_date"] = ""
		}
	},
}

// CafeValues flattens a café into form values.
func CafeValues(c domain.Cafe) Values {
	in := c.Input()
	return Values{
		"name":        in.Name,
		"description": in.Description,
		"location":    in.Location,
		"logo_url":    in.LogoURL,
	}
}

func EmployeeValues(e domain.Employee) Values {
	in := e.Input()
	return Values{
		"name":          in.Name,
		"email_address": in.EmailAddress,
		"phone_number":  in.PhoneNumber,
		"gender":        string(in.Gender),
		"cafe_id":       in.CafeID,
		"start_date":    in.StartDate,
	}
}

// CafeInput builds the request body from form values. The record id is
// attached by the caller in edit mode.
func CafeInput(values Values) domain.CafeInput {
	return domain.CafeInput{
		Name:        strings.TrimSpace(values["name"]),
		Description: strings.TrimSpace(values["description"]),
		Location:    strings.TrimSpace(values["location"]),
		LogoURL:     strings.TrimSpace(values["logo_url"]),
	}
}

func EmployeeInput(values Values) domain.EmployeeInput {
	return domain.EmployeeInput{
		Name:         strings.TrimSpace(values["name"]),
		EmailAddress: strings.TrimSpace(values["email_address"]),
		PhoneNumber:  strings.TrimSpace(values["phone_number"]),
		Gender:       domain.Gender(strings.TrimSpace(values["gender"])),
		CafeID:       strings.TrimSpace(values["cafe_id"]),
		StartDate:    strings.TrimSpace(values["start_date"]),
	}
}
