package store

import (
	"context"
	"fmt"

	"github.com/phillip-england/cafesuite/internal/domain"
)

var seedCafes = []domain.CafeInput{
	{Name: "Brew Haven", Description: "Modern minimalist café", Location: "Tiong Bahru"},
	{Name: "Java Jive", Description: "Hip café with live music", Location: "Marina Bay"},
	{Name: "Espresso X", Description: "Quick service café", Location: "Raffles Place"},
	{Name: "Bean Leaf", Description: "Specialty coffee and tea", Location: "Clarke Quay"},
	{Name: "DailyGrind", Description: "Neighbourhood café", Location: "Bukit Timah"},
	{Name: "Morning Co", Description: "Cozy café with artisan coffee", Location: "Orchard Road"},
	{Name: "Cappuccino", Description: "Italian-inspired café", Location: "Kampong Glam"},
}

type seedEmployee struct {
	name   string
	email  string
	phone  string
	gender domain.Gender
	start  string
}

var seedEmployees = []seedEmployee{
	{"Alice Wong", "alice.wong@email.com", "91234567", domain.GenderFemale, "2023-11-15"},
	{"Bob Tanwei", "bob.tan@email.com", "98765432", domain.GenderMale, "2024-01-01"},
	{"Charlie Li", "charlie.lim@email.com", "92345678", domain.GenderMale, "2024-02-10"},
	{"Diana Lee", "diana.lee@email.com", "93456789", domain.GenderFemale, "2024-03-05"},
	{"Edward Ng", "edward.ng@email.com", "94567890", domain.GenderMale, "2024-04-12"},
	{"Fiona Chen", "fiona.chen@email.com", "95678901", domain.GenderFemale, "2024-05-20"},
	{"George Ong", "george.ong@email.com", "96789012", domain.GenderMale, "2024-06-08"},
	{"Hannah Sim", "hannah.sim@email.com", "97890123", domain.GenderFemale, "2024-07-15"},
	{"Ivan Koh", "ivan.koh@email.com", "98901234", domain.GenderMale, "2024-08-01"},
	{"Julie Teo", "julie.teo@email.com", "99012345", domain.GenderFemale, "2024-08-22"},
	{"Kevin Loh", "kevin.loh@email.com", "90123456", domain.GenderMale, "2024-09-05"},
	{"Linda Tay", "linda.tay@email.com", "91123456", domain.GenderFemale, "2024-09-18"},
	{"Marcus Goh", "marcus.goh@email.com", "92123456", domain.GenderMale, "2024-10-01"},
	{"Nicole Ho", "nicole.chia@email.com", "93123456", domain.GenderFemale, "2024-10-10"},
	{"Oliver Tan", "oliver.tan@email.com", "94123456", domain.GenderMale, "2024-10-20"},
	{"Pamela Ng", "pamela.ng@email.com", "95123456", domain.GenderFemale, "2024-10-25"},
	{"Quincy Lee", "quincy.lee@email.com", "96123456", domain.GenderMale, "2024-10-28"},
	{"Rachel Lim", "rachel.chua@email.com", "97123456", domain.GenderFemale, "2024-11-01"},
	{"Steven Ooi", "steven.ooi@email.com", "98123456", domain.GenderMale, "2024-11-02"},
	{"Tanya Kwan", "tanya.kwan@email.com", "99123456", domain.GenderFemale, "2024-11-03"},
	{"Usha Patel", "usha.patel@email.com", "91234568", domain.GenderFemale, "2024-11-04"},
}

// SeedResult reports what Seed created.
type SeedResult struct {
	Skipped   bool
	Cafes     int
	Employees int
}

// Seed fills an empty store with sample cafés and employees spread across
// them. A store that already has cafés is left alone.
func Seed(ctx context.Context, s Store) (SeedResult, error) {
	existing, err := s.ListCafes(ctx, "")
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		return SeedResult{Skipped: true}, nil
	}

	var result SeedResult
	cafeIDs := make([]string, 0, len(seedCafes))
	for _, in := range seedCafes {
		cafe, err := s.CreateCafe(ctx, in)
		if err != nil {
			return result, fmt.Errorf("seed cafe %q: %w", in.Name, err)
		}
		cafeIDs = append(cafeIDs, cafe.ID)
		result.Cafes++
	}

	for i, e := range seedEmployees {
		in := domain.EmployeeInput{
			Name:         e.name,
			EmailAddress: e.email,
			PhoneNumber:  e.phone,
			Gender:       e.gender,
			CafeID:       cafeIDs[i%len(cafeIDs)],
			StartDate:    e.start,
		}
		if _, err := s.CreateEmployee(ctx, in); err != nil {
			return result, fmt.Errorf("seed employee %q: %w", e.name, err)
		}
		result.Employees++
	}
	return result, nil
}
