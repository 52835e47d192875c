package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/leave/sqlite"
)

type seeded struct {
	store    *sqlite.Store
	svc      *leave.Service
	tenantID string
	employee leave.Employee
	manager  leave.Employee
	annual   leave.LeaveType
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setup(t *testing.T) seeded {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "leave.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	tenantID, err := store.EnsureTenant(ctx, "acme")
	require.NoError(t, err)

	s := seeded{store: store, tenantID: tenantID}
	maxCarry := decimal.NewFromInt(3)
	err = store.Do(ctx, tenantID, func(repos leave.Repositories) error {
		s.manager = leave.Employee{Code: "M1", FirstName: "Mia", LastName: "Lund", UserID: "user-m1", IsActive: true}
		if err := repos.Employees.Save(ctx, &s.manager); err != nil {
			return err
		}
		s.employee = leave.Employee{Code: "E1", FirstName: "Eli", LastName: "Berg", UserID: "user-e1", ManagerUserID: "user-m1", IsActive: true}
		if err := repos.Employees.Save(ctx, &s.employee); err != nil {
			return err
		}
		s.annual = leave.LeaveType{Code: "AL", Name: "Annual", Color: "#2e7d32", IsActive: true, AllowHalfDay: true,
			DefaultDays: decimal.NewFromInt(25), IsCarryForward: true, MaxCarryForwardDays: &maxCarry}
		if err := repos.LeaveTypes.Save(ctx, &s.annual); err != nil {
			return err
		}
		return repos.Balances.Add(ctx, &leave.LeaveBalance{
			EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID, Year: 2025, Entitled: decimal.NewFromInt(10),
		})
	})
	require.NoError(t, err)

	s.svc = leave.NewService(store, nil)
	s.svc.Now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }
	return s
}

func (s seeded) balance(t *testing.T, year int) *leave.LeaveBalance {
	t.Helper()
	var out *leave.LeaveBalance
	require.NoError(t, s.store.Do(context.Background(), s.tenantID, func(repos leave.Repositories) error {
		b, err := repos.Balances.GetByEmployeeLeaveTypeAndYear(context.Background(), s.employee.ID, s.annual.ID, year)
		out = b
		return err
	}))
	return out
}

func TestEnsureTenantIsStable(t *testing.T) {
	s := setup(t)
	again, err := s.store.EnsureTenant(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, s.tenantID, again)

	ids, err := s.store.ListTenantIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{s.tenantID}, ids)
}

func TestLeaveLifecycleRoundTrip(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	created, err := s.svc.CreateLeave(ctx, leave.CreateLeaveCommand{
		TenantID: s.tenantID, EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID,
		StartDate: date(2025, 6, 2), EndDate: date(2025, 6, 2), IsHalfDay: true, IsHalfDayMorning: true,
		Reason: "dentist", ContactDuringLeave: "phone",
	})
	require.NoError(t, err)
	assert.True(t, created.TotalDays.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, "Eli Berg", created.EmployeeName)
	assert.Equal(t, "#2e7d32", created.LeaveTypeColor)
	assert.True(t, s.balance(t, 2025).Pending.Equal(decimal.RequireFromString("0.5")))

	approved, err := s.svc.ApproveLeave(ctx, leave.ApproveLeaveCommand{
		TenantID: s.tenantID, LeaveID: created.ID, ApproverID: s.manager.ID, IsApproved: true, Notes: "ok",
	})
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)
	assert.Equal(t, "Mia Lund", approved.ApprovedByName)
	require.NotNil(t, approved.ApprovedDate)

	b := s.balance(t, 2025)
	assert.True(t, b.Pending.IsZero())
	assert.True(t, b.Used.Equal(decimal.RequireFromString("0.5")))

	got, err := s.svc.GetLeave(ctx, s.tenantID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 6, 2), got.StartDate)
	assert.True(t, got.IsHalfDayMorning)
	assert.Equal(t, "phone", got.ContactDuringLeave)

	_, err = s.svc.CancelLeave(ctx, leave.CancelLeaveCommand{TenantID: s.tenantID, LeaveID: created.ID, Reason: "feeling better"})
	require.NoError(t, err)
	assert.True(t, s.balance(t, 2025).Used.IsZero())
}

func TestOverlapAndRollback(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	_, err := s.svc.CreateLeave(ctx, leave.CreateLeaveCommand{
		TenantID: s.tenantID, EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID,
		StartDate: date(2025, 3, 10), EndDate: date(2025, 3, 14),
	})
	require.NoError(t, err)

	_, err = s.svc.CreateLeave(ctx, leave.CreateLeaveCommand{
		TenantID: s.tenantID, EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID,
		StartDate: date(2025, 3, 14), EndDate: date(2025, 3, 20),
	})
	require.ErrorIs(t, err, leave.ErrOverlappingLeave)

	_, err = s.svc.CreateLeave(ctx, leave.CreateLeaveCommand{
		TenantID: s.tenantID, EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID,
		StartDate: date(2025, 4, 1), EndDate: date(2025, 4, 10),
	})
	require.ErrorIs(t, err, leave.ErrInsufficientBalance)

	list, err := s.svc.ListLeaves(ctx, s.tenantID, leave.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.True(t, s.balance(t, 2025).Pending.Equal(decimal.NewFromInt(5)))
}

func TestHolidaysAndProvisioning(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	s.svc.DayCounting = leave.DayCountingBusiness

	require.NoError(t, s.store.Do(ctx, s.tenantID, func(repos leave.Repositories) error {
		return repos.Holidays.Save(ctx, &leave.Holiday{Name: "New Year", Date: date(2000, 1, 1), IsRecurring: true})
	}))

	created, err := s.svc.CreateLeave(ctx, leave.CreateLeaveCommand{
		TenantID: s.tenantID, EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID,
		StartDate: date(2025, 12, 29), EndDate: date(2026, 1, 2),
	})
	require.NoError(t, err)
	assert.True(t, created.TotalDays.Equal(decimal.NewFromInt(4)))

	summary, err := s.svc.ProvisionBalances(ctx, s.tenantID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.BalancesCreated)

	next := s.balance(t, 2026)
	assert.True(t, next.Entitled.Equal(decimal.NewFromInt(25)))
	assert.True(t, next.CarriedForward.Equal(decimal.NewFromInt(3)))
}

func TestSweepMarksTaken(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	created, err := s.svc.CreateLeave(ctx, leave.CreateLeaveCommand{
		TenantID: s.tenantID, EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID,
		StartDate: date(2025, 4, 7), EndDate: date(2025, 4, 8),
	})
	require.NoError(t, err)
	_, err = s.svc.ApproveLeave(ctx, leave.ApproveLeaveCommand{TenantID: s.tenantID, LeaveID: created.ID, ApproverID: s.manager.ID, IsApproved: true})
	require.NoError(t, err)

	n, err := s.svc.MarkTakenLeaves(ctx, s.tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	taken, err := s.svc.ListLeaves(ctx, s.tenantID, leave.ListFilter{Status: leave.StatusTaken})
	require.NoError(t, err)
	assert.Equal(t, 1, taken.Total)
}

func TestDuplicateBalanceKeepsTransactionUsable(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	err := s.store.Do(ctx, s.tenantID, func(repos leave.Repositories) error {
		dup := &leave.LeaveBalance{EmployeeID: s.employee.ID, LeaveTypeID: s.annual.ID, Year: 2025, Entitled: decimal.NewFromInt(99)}
		require.ErrorIs(t, repos.Balances.Add(ctx, dup), leave.ErrBalanceExists)

		b, err := repos.Balances.GetByEmployeeLeaveTypeAndYear(ctx, s.employee.ID, s.annual.ID, 2025)
		require.NoError(t, err)
		assert.True(t, b.Entitled.Equal(decimal.NewFromInt(10)), "existing row is untouched")
		return nil
	})
	require.NoError(t, err)
}
