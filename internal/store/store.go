// Package store persists cafés and employees for the reference API. Two
// implementations share one contract: GormStore on PostgreSQL and
// MemoryStore for local runs and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/phillip-england/cafesuite/internal/domain"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnknownCafe = errors.New("cafe does not exist")
)

// Store is the persistence contract behind the REST handlers. Inputs are
// expected to have passed domain validation already.
type Store interface {
	ListCafes(ctx context.Context, location string) ([]domain.Cafe, error)
	CreateCafe(ctx context.Context, in domain.CafeInput) (domain.Cafe, error)
	UpdateCafe(ctx context.Context, in domain.CafeInput) (domain.Cafe, error)
	// DeleteCafe removes the café and every employee assigned to it.
	DeleteCafe(ctx context.Context, id string) error

	ListEmployees(ctx context.Context, cafeID string) ([]domain.Employee, error)
	CreateEmployee(ctx context.Context, in domain.EmployeeInput) (domain.Employee, error)
	UpdateEmployee(ctx context.Context, in domain.EmployeeInput) (domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error

	Close() error
}

const dateLayout = "2006-01-02"

// daysWorked counts whole days from start to now. Future dates count as 0.
func daysWorked(start, now time.Time) int {
	if start.IsZero() {
		return 0
	}
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(startDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// startDate resolves the assignment start for an employee. An explicit date
// wins; otherwise a kept assignment keeps its date and a new one starts
// today. Unassigned employees have no start date.
func startDate(in domain.EmployeeInput, previousCafe string, previousStart time.Time, now time.Time) (time.Time, error) {
	if strings.TrimSpace(in.CafeID) == "" {
		return time.Time{}, nil
	}
	if raw := strings.TrimSpace(in.StartDate); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid start date %q", raw)
		}
		return parsed, nil
	}
	if previousCafe == in.CafeID && !previousStart.IsZero() {
		return previousStart, nil
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// newEmployeeID returns "UI" followed by seven random digits that taken
// does not report as used.
func newEmployeeID(taken func(string) (bool, error)) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		id := fmt.Sprintf("UI%07d", rand.IntN(10_000_000))
		used, err := taken(id)
		if err != nil {
			return "", err
		}
		if !used {
			return id, nil
		}
	}
	return "", errors.New("unable to generate unique employee id")
}

func matchesLocation(location, filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || strings.Contains(strings.ToLower(location), strings.ToLower(filter))
}

// sortCafes orders by employee count, busiest first, then by name.
func sortCafes(cafes []domain.Cafe) {
	sort.SliceStable(cafes, func(i, j int) bool {
		if cafes[i].Employees != cafes[j].Employees {
			return cafes[i].Employees > cafes[j].Employees
		}
		return strings.ToLower(cafes[i].Name) < strings.ToLower(cafes[j].Name)
	})
}

// sortEmployees orders by days worked, longest first, then by id.
func sortEmployees(employees []domain.Employee) {
	sort.SliceStable(employees, func(i, j int) bool {
		if employees[i].DaysWorked != employees[j].DaysWorked {
			return employees[i].DaysWorked > employees[j].DaysWorked
		}
		return employees[i].ID < employees[j].ID
	})
}
