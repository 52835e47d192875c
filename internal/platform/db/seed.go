package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"hrleave/internal/domain/leave"
)

// SeedStore is what seeding needs from a leave store. Both the Postgres and
// SQLite stores satisfy it.
type SeedStore interface {
	leave.UnitOfWork
	EnsureTenant(ctx context.Context, name string) (string, error)
}

// SeedFile is the YAML layout accepted by Seed. Amounts are decimal strings
// and dates are YYYY-MM-DD.
type SeedFile struct {
	Tenant     string          `yaml:"tenant"`
	Employees  []SeedEmployee  `yaml:"employees"`
	LeaveTypes []SeedLeaveType `yaml:"leaveTypes"`
	Holidays   []SeedHoliday   `yaml:"holidays"`
	Balances   []SeedBalance   `yaml:"balances"`
}

type SeedEmployee struct {
	Code          string `yaml:"code"`
	FirstName     string `yaml:"firstName"`
	LastName      string `yaml:"lastName"`
	UserID        string `yaml:"userId"`
	ManagerUserID string `yaml:"managerUserId"`
	Inactive      bool   `yaml:"inactive"`
}

type SeedLeaveType struct {
	Code                 string `yaml:"code"`
	Name                 string `yaml:"name"`
	Color                string `yaml:"color"`
	Inactive             bool   `yaml:"inactive"`
	Unpaid               bool   `yaml:"unpaid"`
	AllowHalfDay         bool   `yaml:"allowHalfDay"`
	AllowNegativeBalance bool   `yaml:"allowNegativeBalance"`
	RequiresDocument     bool   `yaml:"requiresDocument"`
	DefaultDays          string `yaml:"defaultDays"`
	CarryForward         bool   `yaml:"carryForward"`
	MaxCarryForwardDays  string `yaml:"maxCarryForwardDays"`
}

type SeedHoliday struct {
	Name      string `yaml:"name"`
	Date      string `yaml:"date"`
	EndDate   string `yaml:"endDate"`
	Recurring bool   `yaml:"recurring"`
}

type SeedBalance struct {
	Employee  string `yaml:"employee"`
	LeaveType string `yaml:"leaveType"`
	Year      int    `yaml:"year"`
	Entitled  string `yaml:"entitled"`
}

type SeedSummary struct {
	TenantID   string
	Employees  int
	LeaveTypes int
	Holidays   int
	Balances   int
}

func LoadSeed(r io.Reader) (SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return SeedFile{}, fmt.Errorf("decode seed: %w", err)
	}
	if strings.TrimSpace(f.Tenant) == "" {
		return SeedFile{}, fmt.Errorf("seed: tenant is required")
	}
	return f, nil
}

func LoadSeedFile(path string) (SeedFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return SeedFile{}, err
	}
	defer file.Close()
	return LoadSeed(file)
}

// Seed upserts reference data for one tenant in a single unit of work.
// Employees and leave types are keyed by code; holidays by name and date.
// Running the same file twice leaves the data unchanged.
func Seed(ctx context.Context, store SeedStore, f SeedFile) (SeedSummary, error) {
	tenantID, err := store.EnsureTenant(ctx, f.Tenant)
	if err != nil {
		return SeedSummary{}, fmt.Errorf("ensure tenant: %w", err)
	}
	summary := SeedSummary{TenantID: tenantID}

	err = store.Do(ctx, tenantID, func(repos leave.Repositories) error {
		summary = SeedSummary{TenantID: tenantID}
		employees := make(map[string]int64, len(f.Employees))
		for _, e := range f.Employees {
			emp := leave.Employee{
				Code:          e.Code,
				FirstName:     e.FirstName,
				LastName:      e.LastName,
				UserID:        e.UserID,
				ManagerUserID: e.ManagerUserID,
				IsActive:      !e.Inactive,
			}
			if strings.TrimSpace(emp.Code) == "" {
				return fmt.Errorf("seed employee %q: code is required", emp.FullName())
			}
			if err := repos.Employees.Save(ctx, &emp); err != nil {
				return err
			}
			employees[emp.Code] = emp.ID
			summary.Employees++
		}

		types := make(map[string]leave.LeaveType, len(f.LeaveTypes))
		for _, t := range f.LeaveTypes {
			lt, err := t.toLeaveType()
			if err != nil {
				return err
			}
			if err := repos.LeaveTypes.Save(ctx, &lt); err != nil {
				return err
			}
			types[lt.Code] = lt
			summary.LeaveTypes++
		}

		for _, h := range f.Holidays {
			added, err := seedHoliday(ctx, repos.Holidays, h)
			if err != nil {
				return err
			}
			if added {
				summary.Holidays++
			}
		}

		for _, b := range f.Balances {
			empID, ok := employees[b.Employee]
			if !ok {
				return fmt.Errorf("seed balance: unknown employee %q", b.Employee)
			}
			lt, ok := types[b.LeaveType]
			if !ok {
				return fmt.Errorf("seed balance: unknown leave type %q", b.LeaveType)
			}
			entitled := lt.DefaultDays
			if b.Entitled != "" {
				if entitled, err = decimal.NewFromString(b.Entitled); err != nil {
					return fmt.Errorf("seed balance %s/%s: entitled: %w", b.Employee, b.LeaveType, err)
				}
			}
			if err := seedBalance(ctx, repos.Balances, leave.BalanceKey{EmployeeID: empID, LeaveTypeID: lt.ID, Year: b.Year}, entitled); err != nil {
				return err
			}
			summary.Balances++
		}
		return nil
	})
	return summary, err
}

func (t SeedLeaveType) toLeaveType() (leave.LeaveType, error) {
	if strings.TrimSpace(t.Code) == "" || strings.TrimSpace(t.Name) == "" {
		return leave.LeaveType{}, fmt.Errorf("seed leave type %q: code and name are required", t.Code)
	}
	lt := leave.LeaveType{
		Code:                 t.Code,
		Name:                 t.Name,
		Color:                t.Color,
		IsActive:             !t.Inactive,
		IsPaid:               !t.Unpaid,
		AllowHalfDay:         t.AllowHalfDay,
		AllowNegativeBalance: t.AllowNegativeBalance,
		RequiresDocument:     t.RequiresDocument,
		IsCarryForward:       t.CarryForward,
	}
	if t.DefaultDays != "" {
		days, err := decimal.NewFromString(t.DefaultDays)
		if err != nil {
			return leave.LeaveType{}, fmt.Errorf("seed leave type %s: defaultDays: %w", t.Code, err)
		}
		lt.DefaultDays = days
	}
	if t.MaxCarryForwardDays != "" {
		limit, err := decimal.NewFromString(t.MaxCarryForwardDays)
		if err != nil {
			return leave.LeaveType{}, fmt.Errorf("seed leave type %s: maxCarryForwardDays: %w", t.Code, err)
		}
		lt.MaxCarryForwardDays = &limit
	}
	return lt, nil
}

func seedHoliday(ctx context.Context, repo leave.HolidayRepository, h SeedHoliday) (bool, error) {
	date, err := time.Parse(time.DateOnly, h.Date)
	if err != nil {
		return false, fmt.Errorf("seed holiday %q: date: %w", h.Name, err)
	}
	holiday := leave.Holiday{Name: h.Name, Date: date, IsRecurring: h.Recurring}
	if h.EndDate != "" {
		end, err := time.Parse(time.DateOnly, h.EndDate)
		if err != nil {
			return false, fmt.Errorf("seed holiday %q: endDate: %w", h.Name, err)
		}
		holiday.EndDate = &end
	}

	existing, err := repo.ListBetween(ctx, date, date)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.Name == holiday.Name && e.Date.Equal(holiday.Date) {
			return false, nil
		}
	}
	return true, repo.Save(ctx, &holiday)
}

func seedBalance(ctx context.Context, repo leave.LeaveBalanceRepository, key leave.BalanceKey, entitled decimal.Decimal) error {
	b, err := repo.GetByEmployeeLeaveTypeAndYear(ctx, key.EmployeeID, key.LeaveTypeID, key.Year)
	switch {
	case err == nil:
		b.Entitled = entitled
		return repo.Save(ctx, b)
	case errors.Is(err, leave.ErrNotFound):
		return repo.Add(ctx, &leave.LeaveBalance{
			EmployeeID:  key.EmployeeID,
			LeaveTypeID: key.LeaveTypeID,
			Year:        key.Year,
			Entitled:    entitled,
			UpdatedAt:   time.Now().UTC(),
		})
	default:
		return fmt.Errorf("load balance: %w", err)
	}
}
