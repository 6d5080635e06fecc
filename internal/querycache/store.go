package querycache

import (
	"context"
	"fmt"
	"strings"

	"github.com/phillip-england/cafesuite/internal/domain"
)

// Lister is the read side of the API client.
type Lister interface {
	ListCafes(ctx context.Context, location string) ([]domain.Cafe, error)
	ListEmployees(ctx context.Context, cafeID string) ([]domain.Employee, error)
}

// Store is the typed view over a Cache that the console's views read from.
// Returned slices are shared with the cache and must not be modified.
type Store struct {
	cache *Cache
	api   Lister
}

func NewStore(cache *Cache, api Lister) *Store {
	if cache == nil {
		cache = New()
	}
	return &Store{cache: cache, api: api}
}

func (s *Store) Cafes(ctx context.Context, location string) ([]domain.Cafe, error) {
	location = strings.TrimSpace(location)
	value, err := s.cache.Read(ctx, Key{Kind: domain.KindCafe, Filter: location}, func(ctx context.Context) (any, error) {
		return s.api.ListCafes(ctx, location)
	})
	if err != nil {
		return nil, err
	}
	cafes, ok := value.([]domain.Cafe)
	if !ok {
		return nil, fmt.Errorf("querycache: unexpected %T for cafes", value)
	}
	return cafes, nil
}

func (s *Store) Employees(ctx context.Context, cafeID string) ([]domain.Employee, error) {
	cafeID = strings.TrimSpace(cafeID)
	value, err := s.cache.Read(ctx, Key{Kind: domain.KindEmployee, Filter: cafeID}, func(ctx context.Context) (any, error) {
		return s.api.ListEmployees(ctx, cafeID)
	})
	if err != nil {
		return nil, err
	}
	employees, ok := value.([]domain.Employee)
	if !ok {
		return nil, fmt.Errorf("querycache: unexpected %T for employees", value)
	}
	return employees, nil
}

// Cafe finds a café by id in the unfiltered cached list.
func (s *Store) Cafe(ctx context.Context, id string) (domain.Cafe, bool, error) {
	cafes, err := s.Cafes(ctx, "")
	if err != nil {
		return domain.Cafe{}, false, err
	}
	for _, cafe := range cafes {
		if cafe.ID == id {
			return cafe, true, nil
		}
	}
	return domain.Cafe{}, false, nil
}

func (s *Store) Employee(ctx context.Context, id string) (domain.Employee, bool, error) {
	employees, err := s.Employees(ctx, "")
	if err != nil {
		return domain.Employee{}, false, err
	}
	for _, employee := range employees {
		if employee.ID == id {
			return employee, true, nil
		}
	}
	return domain.Employee{}, false, nil
}

func (s *Store) Invalidate(kinds ...domain.Kind) {
	s.cache.Invalidate(kinds...)
}
