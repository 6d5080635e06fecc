// Package domain holds the café and employee records shared by the console,
// the API client and the backend, together with their field rules.
package domain

// Kind names a record collection. It doubles as the cache namespace and the
// REST resource path segment.
type Kind string

const (
	KindCafe     Kind = "cafes"
	KindEmployee Kind = "employees"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Cafe is a café as returned by the API. Employees is computed server-side.
type Cafe struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	LogoURL     string `json:"logo_url,omitempty"`
	Employees   int    `json:"employees"`
}

// CafeInput is the body of create and update calls. ID is empty on create.
type CafeInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required,min=6,max=10"`
	Description string `json:"description" validate:"required,max=256"`
	Location    string `json:"location" validate:"required"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// Input returns the editable part of the café.
func (c Cafe) Input() CafeInput {
	return CafeInput{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Location:    c.Location,
		LogoURL:     c.LogoURL,
	}
}

// Employee is an employee as returned by the API. DaysWorked and Cafe are
// read-only.
type Employee struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
	Gender       Gender `json:"gender"`
	CafeID       string `json:"cafe_id,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	DaysWorked   int    `json:"days_worked"`
	Cafe         string `json:"cafe"`
}

type EmployeeInput struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name" validate:"required,min=6,max=10"`
	EmailAddress string `json:"email_address" validate:"required,email"`
	PhoneNumber  string `json:"phone_number" validate:"required,sgphone"`
	Gender       Gender `json:"gender" validate:"required,oneof=Male Female"`
	CafeID       string `json:"cafe_id,omitempty"`
	StartDate    string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (e Employee) Input() EmployeeInput {
	return EmployeeInput{
		ID:           e.ID,
		Name:         e.Name,
		EmailAddress: e.EmailAddress,
		PhoneNumber:  e.PhoneNumber,
		Gender:       e.Gender,
		CafeID:       e.CafeID,
		StartDate:    e.StartDate,
	}
}
