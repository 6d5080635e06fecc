package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phillip-england/cafesuite/internal/domain"
)

type memoryCafe struct {
	in domain.CafeInput
}

type memoryEmployee struct {
	in    domain.EmployeeInput
	start time.Time
}

// MemoryStore keeps records in process memory. It is used when no database
// is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	cafes     map[string]*memoryCafe
	employees map[string]*memoryEmployee
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cafes:     map[string]*memoryCafe{},
		employees: map[string]*memoryEmployee{},
		now:       time.Now,
	}
}

// WithClock replaces the time source used for days worked and default
// start dates.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ListCafes(ctx context.Context, location string) ([]domain.Cafe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Cafe, 0, len(s.cafes))
	for id := range s.cafes {
		cafe := s.cafeLocked(id)
		if matchesLocation(cafe.Location, location) {
			out = append(out, cafe)
		}
	}
	sortCafes(out)
	return out, nil
}

func (s *MemoryStore) CreateCafe(ctx context.Context, in domain.CafeInput) (domain.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = uuid.NewString()
	s.cafes[in.ID] = &memoryCafe{in: in}
	return s.cafeLocked(in.ID), nil
}

func (s *MemoryStore) UpdateCafe(ctx context.Context, in domain.CafeInput) (domain.Cafe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.cafes[in.ID]
	if !ok {
		return domain.Cafe{}, fmt.Errorf("cafe %s: %w", in.ID, ErrNotFound)
	}
	record.in = in
	return s.cafeLocked(in.ID), nil
}

func (s *MemoryStore) DeleteCafe(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cafes[id]; !ok {
		return fmt.Errorf("cafe %s: %w", id, ErrNotFound)
	}
	for employeeID, employee := range s.employees {
		if employee.in.CafeID == id {
			delete(s.employees, employeeID)
		}
	}
	delete(s.cafes, id)
	return nil
}

func (s *MemoryStore) ListEmployees(ctx context.Context, cafeID string) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cafeID = strings.TrimSpace(cafeID)
	out := make([]domain.Employee, 0, len(s.employees))
	for id, record := range s.employees {
		if cafeID != "" && record.in.CafeID != cafeID {
			continue
		}
		out = append(out, s.employeeLocked(id))
	}
	sortEmployees(out)
	return out, nil
}

func (s *MemoryStore) CreateEmployee(ctx context.Context, in domain.EmployeeInput) (domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEmployeeLocked("", in); err != nil {
		return domain.Employee{}, err
	}
	start, err := startDate(in, "", time.Time{}, s.now())
	if err != nil {
		return domain.Employee{}, err
	}
	id, err := newEmployeeID(func(candidate string) (bool, error) {
		_, used := s.employees[candidate]
		return used, nil
	})
	if err != nil {
		return domain.Employee{}, err
	}
	in.ID = id
	s.employees[id] = &memoryEmployee{in: in, start: start}
	return s.employeeLocked(id), nil
}

func (s *MemoryStore) UpdateEmployee(ctx context.Context, in domain.EmployeeInput) (domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.employees[in.ID]
	if !ok {
		return domain.Employee{}, fmt.Errorf("employee %s: %w", in.ID, ErrNotFound)
	}
	if err := s.checkEmployeeLocked(in.ID, in); err != nil {
		return domain.Employee{}, err
	}
	start, err := startDate(in, record.in.CafeID, record.start, s.now())
	if err != nil {
		return domain.Employee{}, err
	}
	record.in = in
	record.start = start
	return s.employeeLocked(in.ID), nil
}

func (s *MemoryStore) DeleteEmployee(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	delete(s.employees, id)
	return nil
}

func (s *MemoryStore) checkEmployeeLocked(selfID string, in domain.EmployeeInput) error {
	if in.CafeID != "" {
		if _, ok := s.cafes[in.CafeID]; !ok {
			return fmt.Errorf("cafe %s: %w", in.CafeID, ErrUnknownCafe)
		}
	}
	for id, other := range s.employees {
		if id != selfID && strings.EqualFold(other.in.EmailAddress, in.EmailAddress) {
			return fmt.Errorf("email address %s: %w", in.EmailAddress, ErrConflict)
		}
	}
	return nil
}

func (s *MemoryStore) cafeLocked(id string) domain.Cafe {
	record := s.cafes[id]
	count := 0
	for _, employee := range s.employees {
		if employee.in.CafeID == id {
			count++
		}
	}
	return domain.Cafe{
		ID:          id,
		Name:        record.in.Name,
		Description: record.in.Description,
		Location:    record.in.Location,
		LogoURL:     record.in.LogoURL,
		Employees:   count,
	}
}

func (s *MemoryStore) employeeLocked(id string) domain.Employee {
	record := s.employees[id]
	employee := domain.Employee{
		ID:           id,
		Name:         record.in.Name,
		EmailAddress: record.in.EmailAddress,
		PhoneNumber:  record.in.PhoneNumber,
		Gender:       record.in.Gender,
		CafeID:       record.in.CafeID,
		StartDate:    formatDate(record.start),
		DaysWorked:   daysWorked(record.start, s.now()),
	}
	if cafe, ok := s.cafes[record.in.CafeID]; ok {
		employee.Cafe = cafe.in.Name
	}
	return employee
}
