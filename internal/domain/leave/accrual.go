package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type ProvisionSummary struct {
	Year             int `json:"year"`
	EmployeesScanned int `json:"employeesScanned"`
	BalancesCreated  int `json:"balancesCreated"`
	BalancesSkipped  int `json:"balancesSkipped"`
}

// ProvisionBalances opens a balance row for every active employee and active
// leave type in year. Existing rows are left alone, so running it twice is
// harmless. Carry-forward types move the unspent part of the previous year's
// balance across, capped by MaxCarryForwardDays.
func (s *Service) ProvisionBalances(ctx context.Context, tenantID string, year int) (ProvisionSummary, error) {
	summary := ProvisionSummary{Year: year}
	if err := requireTenant(tenantID); err != nil {
		return summary, err
	}
	if year < 1900 || year > 9999 {
		return summary, invalid("year", "year is out of range", ErrInvalidDateRange)
	}

	err := s.UoW.Do(ctx, tenantID, func(repos Repositories) error {
		summary = ProvisionSummary{Year: year}
		employees, err := repos.Employees.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		types, err := repos.LeaveTypes.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("list leave types: %w", err)
		}

		for _, emp := range employees {
			summary.EmployeesScanned++
			for _, lt := range types {
				if err := ctx.Err(); err != nil {
					return err
				}
				existing, err := loadBalance(ctx, repos.Balances, BalanceKey{EmployeeID: emp.ID, LeaveTypeID: lt.ID, Year: year})
				if err != nil {
					return err
				}
				if existing != nil {
					summary.BalancesSkipped++
					continue
				}

				b := &LeaveBalance{
					EmployeeID:  emp.ID,
					LeaveTypeID: lt.ID,
					Year:        year,
					Entitled:    lt.DefaultDays,
					UpdatedAt:   s.now(),
				}
				if lt.IsCarryForward {
					prev, err := loadBalance(ctx, repos.Balances, BalanceKey{EmployeeID: emp.ID, LeaveTypeID: lt.ID, Year: year - 1})
					if err != nil {
						return err
					}
					b.CarriedForward = carryForward(prev, lt.MaxCarryForwardDays)
				}
				if err := repos.Balances.Add(ctx, b); err != nil {
					if errors.Is(err, ErrBalanceExists) {
						summary.BalancesSkipped++
						continue
					}
					return fmt.Errorf("add balance: %w", err)
				}
				summary.BalancesCreated++
			}
		}
		return nil
	})
	return summary, err
}

func carryForward(prev *LeaveBalance, limit *decimal.Decimal) decimal.Decimal {
	if prev == nil {
		return decimal.Zero
	}
	left := prev.Available()
	if !left.IsPositive() {
		return decimal.Zero
	}
	if limit != nil && left.GreaterThan(*limit) {
		return *limit
	}
	return left
}
