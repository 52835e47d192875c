package leave

import (
	"context"
	"time"
)

// Repositories return ErrNotFound (possibly wrapped) when a row is missing.
// All of them are scoped to the tenant the unit of work was opened for.

type LeaveRepository interface {
	// GetWithDetails loads the full aggregate including decision, cancellation
	// and substitute fields.
	GetWithDetails(ctx context.Context, id int64) (*Leave, error)
	Add(ctx context.Context, l *Leave) error
	Update(ctx context.Context, l *Leave) error
	// HasOverlappingLeave reports whether another occupying leave of the
	// employee intersects [start, end], bounds inclusive.
	HasOverlappingLeave(ctx context.Context, employeeID int64, start, end time.Time, excludeID *int64) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]*Leave, int, error)
	ListApprovedEndedBefore(ctx context.Context, day time.Time) ([]*Leave, error)
}

type EmployeeRepository interface {
	GetByID(ctx context.Context, id int64) (Employee, error)
	ListActive(ctx context.Context) ([]Employee, error)
	Save(ctx context.Context, e *Employee) error
}

type LeaveTypeRepository interface {
	GetByID(ctx context.Context, id int64) (LeaveType, error)
	ListActive(ctx context.Context) ([]LeaveType, error)
	Save(ctx context.Context, t *LeaveType) error
}

type LeaveBalanceRepository interface {
	GetByEmployeeLeaveTypeAndYear(ctx context.Context, employeeID, leaveTypeID int64, year int) (*LeaveBalance, error)
	// Add inserts a new balance. It returns ErrBalanceExists, leaving the
	// transaction usable, when a row for the same key is already there.
	Add(ctx context.Context, b *LeaveBalance) error
	Save(ctx context.Context, b *LeaveBalance) error
	ListByEmployee(ctx context.Context, employeeID int64, year int) ([]*LeaveBalance, error)
}

type HolidayRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]Holiday, error)
	Save(ctx context.Context, h *Holiday) error
}

type Repositories struct {
	Leaves     LeaveRepository
	Employees  EmployeeRepository
	LeaveTypes LeaveTypeRepository
	Balances   LeaveBalanceRepository
	Holidays   HolidayRepository
}

// UnitOfWork runs fn inside one transaction. A non-nil error from fn rolls
// everything back; otherwise all writes are committed together.
type UnitOfWork interface {
	Do(ctx context.Context, tenantID string, fn func(Repositories) error) error
}

// TenantLister is implemented by stores that can enumerate tenants for
// scheduled work.
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}
