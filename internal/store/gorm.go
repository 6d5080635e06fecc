package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phillip-england/cafesuite/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type cafeRow struct {
	ID          string    `gorm:"primaryKey;type:uuid"`
	Name        string    `gorm:"size:100;not null"`
	Description string    `gorm:"size:256"`
	LogoURL     string    `gorm:"size:512"`
	Location    string    `gorm:"size:100;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (cafeRow) TableName() string { return "cafes" }

type employeeRow struct {
	ID           string `gorm:"primaryKey;type:char(9)"`
	Name         string `gorm:"size:100;not null"`
	EmailAddress string `gorm:"size:320;not null;uniqueIndex"`
	PhoneNumber  string `gorm:"size:20;not null"`
	Gender       string `gorm:"size:6;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (employeeRow) TableName() string { return "employees" }

// assignmentRow links an employee to at most one café.
type assignmentRow struct {
	EmployeeID string      `gorm:"primaryKey;type:char(9)"`
	CafeID     string      `gorm:"type:uuid;not null;index"`
	StartDate  time.Time   `gorm:"type:date;not null"`
	Employee   employeeRow `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE"`
	Cafe       cafeRow     `gorm:"foreignKey:CafeID;constraint:OnDelete:CASCADE"`
}

func (assignmentRow) TableName() string { return "employee_cafe" }

type cafeListing struct {
	ID          string
	Name        string
	Description string
	LogoURL     string
	Location    string
	Employees   int
}

type employeeListing struct {
	ID           string
	Name         string
	EmailAddress string
	PhoneNumber  string
	Gender       string
	CafeID       *string
	CafeName     *string
	StartDate    *time.Time
}

// GormStore is the PostgreSQL store.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// OpenGorm connects to PostgreSQL, migrates the schema and returns the
// store. SQL statements slower than 200ms are logged through log.
func OpenGorm(ctx context.Context, dsn string, log *slog.Logger) (*GormStore, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(slogWriter{log}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&cafeRow{}, &employeeRow{}, &assignmentRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &GormStore{db: db, now: time.Now}, nil
}

type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) ListCafes(ctx context.Context, location string) ([]domain.Cafe, error) {
	var rows []cafeListing
	query := s.db.WithContext(ctx).
		Table("cafes").
		Select("cafes.id, cafes.name, cafes.description, cafes.logo_url, cafes.location, COUNT(employee_cafe.employee_id) AS employees").
		Joins("LEFT JOIN employee_cafe ON employee_cafe.cafe_id = cafes.id").
		Group("cafes.id")
	if location = strings.TrimSpace(location); location != "" {
		query = query.Where("cafes.location ILIKE ?", "%"+escapeLike(location)+"%")
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	out := make([]domain.Cafe, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Cafe{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Location:    row.Location,
			LogoURL:     row.LogoURL,
			Employees:   row.Employees,
		})
	}
	sortCafes(out)
	return out, nil
}

func (s *GormStore) CreateCafe(ctx context.Context, in domain.CafeInput) (domain.Cafe, error) {
	row := cafeRow{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		LogoURL:     in.LogoURL,
		Location:    in.Location,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Cafe{}, fmt.Errorf("create cafe: %w", err)
	}
	return s.cafe(ctx, s.db, row.ID)
}

func (s *GormStore) UpdateCafe(ctx context.Context, in domain.CafeInput) (domain.Cafe, error) {
	if !isUUID(in.ID) {
		return domain.Cafe{}, fmt.Errorf("cafe %s: %w", in.ID, ErrNotFound)
	}
	result := s.db.WithContext(ctx).Model(&cafeRow{}).Where("id = ?", in.ID).Updates(map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"logo_url":    in.LogoURL,
		"location":    in.Location,
	})
	if result.Error != nil {
		return domain.Cafe{}, fmt.Errorf("update cafe: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.Cafe{}, fmt.Errorf("cafe %s: %w", in.ID, ErrNotFound)
	}
	return s.cafe(ctx, s.db, in.ID)
}

func (s *GormStore) DeleteCafe(ctx context.Context, id string) error {
	if !isUUID(id) {
		return fmt.Errorf("cafe %s: %w", id, ErrNotFound)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&cafeRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("delete cafe: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("cafe %s: %w", id, ErrNotFound)
		}
		assigned := tx.Model(&assignmentRow{}).Select("employee_id").Where("cafe_id = ?", id)
		if err := tx.Where("id IN (?)", assigned).Delete(&employeeRow{}).Error; err != nil {
			return fmt.Errorf("delete cafe employees: %w", err)
		}
		if err := tx.Where("cafe_id = ?", id).Delete(&assignmentRow{}).Error; err != nil {
			return fmt.Errorf("delete cafe assignments: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&cafeRow{}).Error; err != nil {
			return fmt.Errorf("delete cafe: %w", err)
		}
		return nil
	})
}

func (s *GormStore) ListEmployees(ctx context.Context, cafeID string) ([]domain.Employee, error) {
	cafeID = strings.TrimSpace(cafeID)
	if cafeID != "" && !isUUID(cafeID) {
		return []domain.Employee{}, nil
	}
	rows, err := s.employeeListings(ctx, s.db, func(q *gorm.DB) *gorm.DB {
		if cafeID != "" {
			return q.Where("employee_cafe.cafe_id = ?", cafeID)
		}
		return q
	})
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	out := make([]domain.Employee, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.toEmployee(row))
	}
	sortEmployees(out)
	return out, nil
}

func (s *GormStore) CreateEmployee(ctx context.Context, in domain.EmployeeInput) (domain.Employee, error) {
	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkEmployee(tx, "", in); err != nil {
			return err
		}
		start, err := startDate(in, "", time.Time{}, s.now())
		if err != nil {
			return err
		}
		id, err = newEmployeeID(func(candidate string) (bool, error) {
			var count int64
			err := tx.Model(&employeeRow{}).Where("id = ?", candidate).Count(&count).Error
			return count > 0, err
		})
		if err != nil {
			return err
		}
		row := employeeRow{
			ID:           id,
			Name:         in.Name,
			EmailAddress: in.EmailAddress,
			PhoneNumber:  in.PhoneNumber,
			Gender:       string(in.Gender),
		}
		if err := tx.Create(&row).Error; err != nil {
			return translate("create employee", err)
		}
		return assign(tx, id, in.CafeID, start)
	})
	if err != nil {
		return domain.Employee{}, err
	}
	return s.employee(ctx, id)
}

func (s *GormStore) UpdateEmployee(ctx context.Context, in domain.EmployeeInput) (domain.Employee, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing employeeRow
		if err := tx.Where("id = ?", in.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("employee %s: %w", in.ID, ErrNotFound)
			}
			return fmt.Errorf("update employee: %w", err)
		}
		if err := s.checkEmployee(tx, in.ID, in); err != nil {
			return err
		}
		var current assignmentRow
		previousCafe, previousStart := "", time.Time{}
		if err := tx.Where("employee_id = ?", in.ID).First(&current).Error; err == nil {
			previousCafe, previousStart = current.CafeID, current.StartDate
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("update employee: %w", err)
		}
		start, err := startDate(in, previousCafe, previousStart, s.now())
		if err != nil {
			return err
		}
		err = tx.Model(&employeeRow{}).Where("id = ?", in.ID).Updates(map[string]any{
			"name":          in.Name,
			"email_address": in.EmailAddress,
			"phone_number":  in.PhoneNumber,
			"gender":        string(in.Gender),
		}).Error
		if err != nil {
			return translate("update employee", err)
		}
		if err := tx.Where("employee_id = ?", in.ID).Delete(&assignmentRow{}).Error; err != nil {
			return fmt.Errorf("update employee: %w", err)
		}
		return assign(tx, in.ID, in.CafeID, start)
	})
	if err != nil {
		return domain.Employee{}, err
	}
	return s.employee(ctx, in.ID)
}

func (s *GormStore) DeleteEmployee(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", id).Delete(&assignmentRow{}).Error; err != nil {
			return fmt.Errorf("delete employee: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&employeeRow{})
		if result.Error != nil {
			return fmt.Errorf("delete employee: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("employee %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *GormStore) checkEmployee(tx *gorm.DB, selfID string, in domain.EmployeeInput) error {
	if in.CafeID != "" {
		if !isUUID(in.CafeID) {
			return fmt.Errorf("cafe %s: %w", in.CafeID, ErrUnknownCafe)
		}
		var count int64
		if err := tx.Model(&cafeRow{}).Where("id = ?", in.CafeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("cafe %s: %w", in.CafeID, ErrUnknownCafe)
		}
	}
	var count int64
	query := tx.Model(&employeeRow{}).Where("LOWER(email_address) = LOWER(?)", in.EmailAddress)
	if selfID != "" {
		query = query.Where("id <> ?", selfID)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("email address %s: %w", in.EmailAddress, ErrConflict)
	}
	return nil
}

func assign(tx *gorm.DB, employeeID, cafeID string, start time.Time) error {
	if cafeID == "" {
		return nil
	}
	if err := tx.Create(&assignmentRow{EmployeeID: employeeID, CafeID: cafeID, StartDate: start}).Error; err != nil {
		return fmt.Errorf("assign employee: %w", err)
	}
	return nil
}

func (s *GormStore) cafe(ctx context.Context, db *gorm.DB, id string) (domain.Cafe, error) {
	var row cafeListing
	err := db.WithContext(ctx).
		Table("cafes").
		Select("cafes.id, cafes.name, cafes.description, cafes.logo_url, cafes.location, COUNT(employee_cafe.employee_id) AS employees").
		Joins("LEFT JOIN employee_cafe ON employee_cafe.cafe_id = cafes.id").
		Where("cafes.id = ?", id).
		Group("cafes.id").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Cafe{}, fmt.Errorf("cafe %s: %w", id, ErrNotFound)
		}
		return domain.Cafe{}, fmt.Errorf("load cafe: %w", err)
	}
	return domain.Cafe{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Location:    row.Location,
		LogoURL:     row.LogoURL,
		Employees:   row.Employees,
	}, nil
}

func (s *GormStore) employee(ctx context.Context, id string) (domain.Employee, error) {
	rows, err := s.employeeListings(ctx, s.db, func(q *gorm.DB) *gorm.DB {
		return q.Where("employees.id = ?", id)
	})
	if err != nil {
		return domain.Employee{}, fmt.Errorf("load employee: %w", err)
	}
	if len(rows) == 0 {
		return domain.Employee{}, fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	return s.toEmployee(rows[0]), nil
}

func (s *GormStore) employeeListings(ctx context.Context, db *gorm.DB, scope func(*gorm.DB) *gorm.DB) ([]employeeListing, error) {
	var rows []employeeListing
	query := db.WithContext(ctx).
		Table("employees").
		Select("employees.id, employees.name, employees.email_address, employees.phone_number, employees.gender, employee_cafe.cafe_id, employee_cafe.start_date, cafes.name AS cafe_name").
		Joins("LEFT JOIN employee_cafe ON employee_cafe.employee_id = employees.id").
		Joins("LEFT JOIN cafes ON cafes.id = employee_cafe.cafe_id")
	if err := scope(query).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) toEmployee(row employeeListing) domain.Employee {
	employee := domain.Employee{
		ID:           strings.TrimSpace(row.ID),
		Name:         row.Name,
		EmailAddress: row.EmailAddress,
		PhoneNumber:  row.PhoneNumber,
		Gender:       domain.Gender(row.Gender),
	}
	if row.CafeID != nil {
		employee.CafeID = *row.CafeID
	}
	if row.CafeName != nil {
		employee.Cafe = *row.CafeName
	}
	if row.StartDate != nil {
		employee.StartDate = formatDate(*row.StartDate)
		employee.DaysWorked = daysWorked(*row.StartDate, s.now())
	}
	return employee
}

func translate(action string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", action, ErrConflict)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func isUUID(value string) bool {
	_, err := uuid.Parse(strings.TrimSpace(value))
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
