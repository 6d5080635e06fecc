package store

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/phillip-england/cafesuite/internal/domain"
)

var fixedNow = time.Date(2025, 3, 11, 15, 0, 0, 0, time.UTC)

// exerciseStore runs the shared contract against any Store implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	downtown, err := s.CreateCafe(ctx, domain.CafeInput{Name: "CoffeeHub", Description: "Corner shop", Location: "Downtown East"})
	if err != nil {
		t.Fatalf("create cafe: %v", err)
	}
	if downtown.ID == "" || downtown.Employees != 0 {
		t.Fatalf("unexpected created cafe %+v", downtown)
	}
	river, err := s.CreateCafe(ctx, domain.CafeInput{Name: "BeanThere", Description: "River view", Location: "Riverside"})
	if err != nil {
		t.Fatalf("create cafe: %v", err)
	}

	alice, err := s.CreateEmployee(ctx, domain.EmployeeInput{
		Name: "Alice Tan", EmailAddress: "alice@example.com", PhoneNumber: "81234567",
		Gender: domain.GenderFemale, CafeID: downtown.ID, StartDate: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if !regexp.MustCompile(`^UI\d{7}$`).MatchString(alice.ID) {
		t.Fatalf("unexpected employee id %q", alice.ID)
	}
	if alice.Cafe != "CoffeeHub" || alice.DaysWorked != 10 {
		t.Fatalf("unexpected employee %+v", alice)
	}

	bob, err := s.CreateEmployee(ctx, domain.EmployeeInput{
		Name: "Bob Lim", EmailAddress: "bob@example.com", PhoneNumber: "91234567",
		Gender: domain.GenderMale, CafeID: downtown.ID,
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if bob.StartDate != "2025-03-11" || bob.DaysWorked != 0 {
		t.Fatalf("assignment should default to today, got %+v", bob)
	}

	if _, err := s.CreateEmployee(ctx, domain.EmployeeInput{
		Name: "Alice Two", EmailAddress: "ALICE@example.com", PhoneNumber: "81234560", Gender: domain.GenderFemale,
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate email conflict, got %v", err)
	}
	if _, err := s.CreateEmployee(ctx, domain.EmployeeInput{
		Name: "Carol Ng", EmailAddress: "carol@example.com", PhoneNumber: "81234561",
		Gender: domain.GenderFemale, CafeID: "00000000-0000-0000-0000-000000000000",
	}); !errors.Is(err, ErrUnknownCafe) {
		t.Fatalf("expected unknown cafe, got %v", err)
	}

	cafes, err := s.ListCafes(ctx, "")
	if err != nil {
		t.Fatalf("list cafes: %v", err)
	}
	if len(cafes) != 2 || cafes[0].ID != downtown.ID || cafes[0].Employees != 2 {
		t.Fatalf("expected busiest cafe first, got %+v", cafes)
	}
	filtered, err := s.ListCafes(ctx, "downtown")
	if err != nil {
		t.Fatalf("list cafes by location: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != downtown.ID {
		t.Fatalf("unexpected location filter result %+v", filtered)
	}

	employees, err := s.ListEmployees(ctx, downtown.ID)
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	if len(employees) != 2 || employees[0].ID != alice.ID {
		t.Fatalf("expected longest serving first, got %+v", employees)
	}

	moved, err := s.UpdateEmployee(ctx, domain.EmployeeInput{
		ID: bob.ID, Name: "Bob Lim", EmailAddress: "bob@example.com", PhoneNumber: "91234567",
		Gender: domain.GenderMale, CafeID: river.ID,
	})
	if err != nil {
		t.Fatalf("update employee: %v", err)
	}
	if moved.Cafe != "BeanThere" || moved.CafeID != river.ID {
		t.Fatalf("unexpected moved employee %+v", moved)
	}
	if _, err := s.UpdateEmployee(ctx, domain.EmployeeInput{ID: "UI0000000", Name: "Nobody1", EmailAddress: "n@example.com"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	renamed, err := s.UpdateCafe(ctx, domain.CafeInput{ID: river.ID, Name: "BeanHere", Description: "River view", Location: "Riverside"})
	if err != nil {
		t.Fatalf("update cafe: %v", err)
	}
	if renamed.Name != "BeanHere" || renamed.Employees != 1 {
		t.Fatalf("unexpected renamed cafe %+v", renamed)
	}

	if err := s.DeleteCafe(ctx, downtown.ID); err != nil {
		t.Fatalf("delete cafe: %v", err)
	}
	remaining, err := s.ListEmployees(ctx, "")
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != bob.ID {
		t.Fatalf("delete should cascade to the cafe's employees, got %+v", remaining)
	}
	if err := s.DeleteCafe(ctx, downtown.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	if err := s.DeleteEmployee(ctx, bob.ID); err != nil {
		t.Fatalf("delete employee: %v", err)
	}
	if err := s.DeleteEmployee(ctx, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore().WithClock(func() time.Time { return fixedNow }))
}

func TestGormStoreContract(t *testing.T) {
	dsn := os.Getenv("CAFESUITE_TEST_DSN")
	if dsn == "" {
		t.Skip("CAFESUITE_TEST_DSN not set")
	}
	s, err := OpenGorm(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.db.Exec("TRUNCATE employee_cafe, employees, cafes").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	s.now = func() time.Time { return fixedNow }
	exerciseStore(t, s)
}

func TestSeedIsValidAndIdempotent(t *testing.T) {
	for _, in := range seedCafes {
		if errs := in.Validate(); errs != nil {
			t.Fatalf("seed cafe %q invalid: %v", in.Name, errs)
		}
	}
	ctx := context.Background()
	s := NewMemoryStore()
	result, err := Seed(ctx, s)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if result.Cafes != 7 || result.Employees != len(seedEmployees) {
		t.Fatalf("unexpected seed result %+v", result)
	}
	employees, _ := s.ListEmployees(ctx, "")
	for _, e := range employees {
		if errs := e.Input().Validate(); errs != nil {
			t.Fatalf("seed employee %q invalid: %v", e.Name, errs)
		}
	}
	again, err := Seed(ctx, s)
	if err != nil || !again.Skipped {
		t.Fatalf("second seed should skip, got %+v %v", again, err)
	}
}

func TestDaysWorked(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := daysWorked(start, fixedNow); got != 10 {
		t.Fatalf("expected 10 days, got %d", got)
	}
	if got := daysWorked(fixedNow.AddDate(0, 0, 3), fixedNow); got != 0 {
		t.Fatalf("future start should count 0, got %d", got)
	}
	if got := daysWorked(time.Time{}, fixedNow); got != 0 {
		t.Fatalf("unassigned should count 0, got %d", got)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}
