package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	UoW      UnitOfWork
	Notifier Notifier
	// DayCounting selects calendar or business day counting for TotalDays.
	DayCounting string
	// LowBalanceThreshold triggers a warning notification after an approval
	// leaves fewer available days than this.
	LowBalanceThreshold decimal.Decimal
	Now                 func() time.Time
}

func NewService(uow UnitOfWork, notifier Notifier) *Service {
	return &Service{
		UoW:                 uow,
		Notifier:            notifier,
		DayCounting:         DayCountingCalendar,
		LowBalanceThreshold: decimal.NewFromInt(2),
		Now:                 time.Now,
	}
}

// CreateLeave books a new pending request and reserves its days on the
// matching balance. A missing balance row means the employee has no balance
// tracking for that type and year: nothing is checked or reserved.
func (s *Service) CreateLeave(ctx context.Context, cmd CreateLeaveCommand) (LeaveDto, error) {
	if err := cmd.Validate(); err != nil {
		return LeaveDto{}, err
	}

	var (
		out      LeaveDto
		employee Employee
	)
	err := s.UoW.Do(ctx, cmd.TenantID, func(repos Repositories) error {
		var err error
		employee, err = repos.Employees.GetByID(ctx, cmd.EmployeeID)
		if err != nil {
			return lookupErr(err, "employeeId", "employee not found")
		}
		leaveType, err := repos.LeaveTypes.GetByID(ctx, cmd.LeaveTypeID)
		if err != nil {
			return lookupErr(err, "leaveTypeId", "leave type not found")
		}
		if err := checkLeaveType(leaveType, cmd.IsHalfDay); err != nil {
			return err
		}
		if err := checkSubstitute(ctx, repos, cmd.SubstituteEmployeeID); err != nil {
			return err
		}
		if err := checkOverlap(ctx, repos, cmd.EmployeeID, cmd.StartDate, cmd.EndDate, nil); err != nil {
			return err
		}
		counter, err := s.dayCounter(ctx, repos, cmd.StartDate, cmd.EndDate)
		if err != nil {
			return err
		}

		l, err := NewLeave(NewLeaveParams{
			EmployeeID:       cmd.EmployeeID,
			LeaveTypeID:      cmd.LeaveTypeID,
			StartDate:        cmd.StartDate,
			EndDate:          cmd.EndDate,
			IsHalfDay:        cmd.IsHalfDay,
			IsHalfDayMorning: cmd.IsHalfDayMorning,
			Reason:           cmd.Reason,
			RequestDate:      s.now(),
		}, counter)
		if err != nil {
			return err
		}
		if err := l.SetTenantID(cmd.TenantID); err != nil {
			return err
		}
		if err := l.SetSubstitute(cmd.SubstituteEmployeeID, cmd.HandoverNotes); err != nil {
			return err
		}
		if err := l.SetContactDuringLeave(cmd.ContactDuringLeave); err != nil {
			return err
		}
		if err := l.SetAttachment(cmd.AttachmentURL); err != nil {
			return err
		}

		balance, err := loadBalance(ctx, repos.Balances, l.BalanceKey())
		if err != nil {
			return err
		}
		if balance != nil && !leaveType.AllowNegativeBalance && !balance.HasSufficientBalance(l.TotalDays()) {
			return insufficient(balance, l.TotalDays())
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		wctx := context.WithoutCancel(ctx)
		if balance != nil {
			balance.AddPending(l.TotalDays())
		}
		if err := repos.Leaves.Add(wctx, l); err != nil {
			return fmt.Errorf("add leave: %w", err)
		}
		if err := saveBalances(wctx, repos, balance); err != nil {
			return err
		}
		out, err = newMapper(repos).dto(wctx, l)
		return err
	})
	if err != nil {
		return LeaveDto{}, err
	}

	s.publish(ctx, Event{Type: EventSubmitted, TenantID: cmd.TenantID, Leave: out, Recipients: recipients(employee.ManagerUserID)})
	return out, nil
}

// ApproveLeave decides a pending request. Approval moves its days from
// pending to used; rejection releases them.
func (s *Service) ApproveLeave(ctx context.Context, cmd ApproveLeaveCommand) (LeaveDto, error) {
	if err := cmd.Validate(); err != nil {
		return LeaveDto{}, err
	}

	var (
		out      LeaveDto
		employee Employee
		after    *LeaveBalance
	)
	err := s.UoW.Do(ctx, cmd.TenantID, func(repos Repositories) error {
		l, err := repos.Leaves.GetWithDetails(ctx, cmd.LeaveID)
		if err != nil {
			return lookupErr(err, "leaveId", "leave not found")
		}
		if l.Status() != StatusPending {
			return invalid("status", "only pending leave can be decided, current status is "+string(l.Status()), ErrInvalidStateTransition)
		}
		if _, err := repos.Employees.GetByID(ctx, cmd.ApproverID); err != nil {
			return lookupErr(err, "approverId", "approver not found")
		}
		employee, err = optionalEmployee(ctx, repos, l.EmployeeID())
		if err != nil {
			return err
		}
		balance, err := loadBalance(ctx, repos.Balances, l.BalanceKey())
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		now := s.now()
		if cmd.IsApproved {
			if err := l.Approve(cmd.ApproverID, cmd.Notes, now); err != nil {
				return err
			}
			if balance != nil {
				balance.ConvertPendingToUsed(l.TotalDays())
			}
		} else {
			if err := l.Reject(cmd.ApproverID, cmd.RejectionReason, now); err != nil {
				return err
			}
			if balance != nil {
				balance.RemovePending(l.TotalDays())
			}
		}

		wctx := context.WithoutCancel(ctx)
		if err := persist(wctx, repos, l, balance); err != nil {
			return err
		}
		after = balance
		out, err = newMapper(repos).dto(wctx, l)
		return err
	})
	if err != nil {
		return LeaveDto{}, err
	}

	evt := EventApproved
	if !cmd.IsApproved {
		evt = EventRejected
	}
	s.publish(ctx, Event{Type: evt, TenantID: cmd.TenantID, Leave: out, Recipients: recipients(employee.UserID)})
	if cmd.IsApproved && after != nil && after.Available().LessThan(s.LowBalanceThreshold) {
		available := after.Available()
		s.publish(ctx, Event{Type: EventBalanceLow, TenantID: cmd.TenantID, Leave: out, Recipients: recipients(employee.UserID), Available: &available})
	}
	return out, nil
}

// CancelLeave withdraws a pending request, or an approved one that has not
// started yet, and returns its days to the balance.
func (s *Service) CancelLeave(ctx context.Context, cmd CancelLeaveCommand) (LeaveDto, error) {
	if err := cmd.Validate(); err != nil {
		return LeaveDto{}, err
	}

	var (
		out      LeaveDto
		employee Employee
	)
	err := s.UoW.Do(ctx, cmd.TenantID, func(repos Repositories) error {
		l, err := repos.Leaves.GetWithDetails(ctx, cmd.LeaveID)
		if err != nil {
			return lookupErr(err, "leaveId", "leave not found")
		}
		switch l.Status() {
		case StatusCancelled:
			return invalid("status", "leave is already cancelled", ErrInvalidStateTransition)
		case StatusTaken:
			return invalid("status", "leave has already been taken", ErrInvalidStateTransition)
		case StatusApproved:
			today := DateOnly(s.now())
			if !l.StartDate().After(today) {
				return invalid("startDate", "approved leave that has already started cannot be cancelled", ErrLeaveStarted)
			}
		}
		employee, err = optionalEmployee(ctx, repos, l.EmployeeID())
		if err != nil {
			return err
		}
		balance, err := loadBalance(ctx, repos.Balances, l.BalanceKey())
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		previous := l.Status()
		if err := l.Cancel(cmd.Reason, s.now()); err != nil {
			return err
		}
		if balance != nil {
			switch previous {
			case StatusPending:
				balance.RemovePending(l.TotalDays())
			case StatusApproved:
				balance.RemoveUsed(l.TotalDays())
			}
		}

		wctx := context.WithoutCancel(ctx)
		if err := persist(wctx, repos, l, balance); err != nil {
			return err
		}
		out, err = newMapper(repos).dto(wctx, l)
		return err
	})
	if err != nil {
		return LeaveDto{}, err
	}

	s.publish(ctx, Event{Type: EventCancelled, TenantID: cmd.TenantID, Leave: out, Recipients: recipients(employee.ManagerUserID)})
	return out, nil
}

// UpdateLeave edits a pending request and moves its pending reservation from
// the old balance key to the new one.
func (s *Service) UpdateLeave(ctx context.Context, cmd UpdateLeaveCommand) (LeaveDto, error) {
	if err := cmd.Validate(); err != nil {
		return LeaveDto{}, err
	}

	var out LeaveDto
	err := s.UoW.Do(ctx, cmd.TenantID, func(repos Repositories) error {
		l, err := repos.Leaves.GetWithDetails(ctx, cmd.LeaveID)
		if err != nil {
			return lookupErr(err, "leaveId", "leave not found")
		}
		if l.Status() != StatusPending {
			return invalid("status", "only pending leave can be updated, current status is "+string(l.Status()), ErrInvalidStateTransition)
		}
		if cmd.SubstituteEmployeeID != nil && *cmd.SubstituteEmployeeID == l.EmployeeID() {
			return invalid("substituteEmployeeId", "substitute must be a different employee", ErrInvalidSubstitute)
		}
		leaveType, err := repos.LeaveTypes.GetByID(ctx, cmd.LeaveTypeID)
		if err != nil {
			return lookupErr(err, "leaveTypeId", "leave type not found")
		}
		if err := checkLeaveType(leaveType, cmd.IsHalfDay); err != nil {
			return err
		}
		if err := checkSubstitute(ctx, repos, cmd.SubstituteEmployeeID); err != nil {
			return err
		}
		id := l.ID()
		if err := checkOverlap(ctx, repos, l.EmployeeID(), cmd.StartDate, cmd.EndDate, &id); err != nil {
			return err
		}
		counter, err := s.dayCounter(ctx, repos, cmd.StartDate, cmd.EndDate)
		if err != nil {
			return err
		}
		newDays, err := ComputeTotalDays(cmd.StartDate, cmd.EndDate, cmd.IsHalfDay, counter)
		if err != nil {
			return err
		}

		oldKey, oldDays := l.BalanceKey(), l.TotalDays()
		newKey := BalanceKey{EmployeeID: l.EmployeeID(), LeaveTypeID: cmd.LeaveTypeID, Year: DateOnly(cmd.StartDate).Year()}
		oldBalance, err := loadBalance(ctx, repos.Balances, oldKey)
		if err != nil {
			return err
		}
		newBalance := oldBalance
		if newKey != oldKey {
			if newBalance, err = loadBalance(ctx, repos.Balances, newKey); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var undo LeaveBalance
		if oldBalance != nil {
			undo = *oldBalance
			oldBalance.RemovePending(oldDays)
		}
		rollback := func() {
			if oldBalance != nil {
				*oldBalance = undo
			}
		}
		if newBalance != nil && !leaveType.AllowNegativeBalance && !newBalance.HasSufficientBalance(newDays) {
			rollback()
			return insufficient(newBalance, newDays)
		}
		if err := l.Update(UpdateParams{
			LeaveTypeID:      cmd.LeaveTypeID,
			StartDate:        cmd.StartDate,
			EndDate:          cmd.EndDate,
			IsHalfDay:        cmd.IsHalfDay,
			IsHalfDayMorning: cmd.IsHalfDayMorning,
			Reason:           cmd.Reason,
		}, counter, s.now()); err != nil {
			rollback()
			return err
		}
		if err := l.SetSubstitute(cmd.SubstituteEmployeeID, cmd.HandoverNotes); err != nil {
			rollback()
			return err
		}
		if err := l.SetContactDuringLeave(cmd.ContactDuringLeave); err != nil {
			rollback()
			return err
		}
		if newBalance != nil {
			newBalance.AddPending(l.TotalDays())
		}

		wctx := context.WithoutCancel(ctx)
		if err := persist(wctx, repos, l, oldBalance, newBalance); err != nil {
			return err
		}
		out, err = newMapper(repos).dto(wctx, l)
		return err
	})
	if err != nil {
		return LeaveDto{}, err
	}
	return out, nil
}

// AttachDocument stores the location of a supporting document on an open
// request.
func (s *Service) AttachDocument(ctx context.Context, tenantID string, leaveID int64, url string) (LeaveDto, error) {
	if err := requireTenant(tenantID); err != nil {
		return LeaveDto{}, err
	}
	var out LeaveDto
	err := s.UoW.Do(ctx, tenantID, func(repos Repositories) error {
		l, err := repos.Leaves.GetWithDetails(ctx, leaveID)
		if err != nil {
			return lookupErr(err, "leaveId", "leave not found")
		}
		if l.Status() != StatusPending && l.Status() != StatusApproved {
			return invalid("status", "documents can only be attached to pending or approved leave", ErrInvalidStateTransition)
		}
		if err := l.SetAttachment(url); err != nil {
			return err
		}
		if err := repos.Leaves.Update(ctx, l); err != nil {
			return fmt.Errorf("update leave: %w", err)
		}
		out, err = newMapper(repos).dto(ctx, l)
		return err
	})
	if err != nil {
		return LeaveDto{}, err
	}
	return out, nil
}

// MarkTakenLeaves moves approved leave whose end date has passed to Taken.
func (s *Service) MarkTakenLeaves(ctx context.Context, tenantID string) (int, error) {
	var marked int
	err := s.UoW.Do(ctx, tenantID, func(repos Repositories) error {
		marked = 0
		today := DateOnly(s.now())
		leaves, err := repos.Leaves.ListApprovedEndedBefore(ctx, today)
		if err != nil {
			return fmt.Errorf("list ended leave: %w", err)
		}
		for _, l := range leaves {
			if err := l.MarkTaken(s.now()); err != nil {
				return err
			}
			if err := repos.Leaves.Update(ctx, l); err != nil {
				return fmt.Errorf("update leave %d: %w", l.ID(), err)
			}
			marked++
		}
		return nil
	})
	return marked, err
}

func (s *Service) GetLeave(ctx context.Context, tenantID string, id int64) (LeaveDto, error) {
	var out LeaveDto
	err := s.UoW.Do(ctx, tenantID, func(repos Repositories) error {
		l, err := repos.Leaves.GetWithDetails(ctx, id)
		if err != nil {
			return lookupErr(err, "leaveId", "leave not found")
		}
		out, err = newMapper(repos).dto(ctx, l)
		return err
	})
	return out, err
}

func (s *Service) ListLeaves(ctx context.Context, tenantID string, filter ListFilter) (ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	var out ListResult
	err := s.UoW.Do(ctx, tenantID, func(repos Repositories) error {
		leaves, total, err := repos.Leaves.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list leave: %w", err)
		}
		mapper := newMapper(repos)
		out = ListResult{Leaves: make([]LeaveDto, 0, len(leaves)), Total: total}
		for _, l := range leaves {
			dto, err := mapper.dto(ctx, l)
			if err != nil {
				return err
			}
			out.Leaves = append(out.Leaves, dto)
		}
		return nil
	})
	return out, err
}

func (s *Service) ListBalances(ctx context.Context, tenantID string, employeeID int64, year int) ([]BalanceDto, error) {
	var out []BalanceDto
	err := s.UoW.Do(ctx, tenantID, func(repos Repositories) error {
		if _, err := repos.Employees.GetByID(ctx, employeeID); err != nil {
			return lookupErr(err, "employeeId", "employee not found")
		}
		balances, err := repos.Balances.ListByEmployee(ctx, employeeID, year)
		if err != nil {
			return fmt.Errorf("list balances: %w", err)
		}
		mapper := newMapper(repos)
		out = make([]BalanceDto, 0, len(balances))
		for _, b := range balances {
			leaveType, err := mapper.leaveType(ctx, b.LeaveTypeID)
			if err != nil {
				return err
			}
			out = append(out, b.Dto(leaveType.Name))
		}
		return nil
	})
	return out, err
}

// AdjustBalance applies a manual correction, creating the balance row from
// the leave type's default entitlement when it does not exist yet.
func (s *Service) AdjustBalance(ctx context.Context, cmd AdjustBalanceCommand) (BalanceDto, error) {
	if err := cmd.Validate(); err != nil {
		return BalanceDto{}, err
	}
	var out BalanceDto
	err := s.UoW.Do(ctx, cmd.TenantID, func(repos Repositories) error {
		if _, err := repos.Employees.GetByID(ctx, cmd.EmployeeID); err != nil {
			return lookupErr(err, "employeeId", "employee not found")
		}
		leaveType, err := repos.LeaveTypes.GetByID(ctx, cmd.LeaveTypeID)
		if err != nil {
			return lookupErr(err, "leaveTypeId", "leave type not found")
		}
		key := BalanceKey{EmployeeID: cmd.EmployeeID, LeaveTypeID: cmd.LeaveTypeID, Year: cmd.Year}
		balance, err := loadBalance(ctx, repos.Balances, key)
		if err != nil {
			return err
		}
		created := balance == nil
		if created {
			balance = &LeaveBalance{EmployeeID: key.EmployeeID, LeaveTypeID: key.LeaveTypeID, Year: key.Year, Entitled: leaveType.DefaultDays}
		}
		balance.Adjust(cmd.Amount, cmd.Reason)
		balance.UpdatedAt = s.now()
		if created {
			err = repos.Balances.Add(ctx, balance)
		} else {
			err = repos.Balances.Save(ctx, balance)
		}
		if errors.Is(err, ErrBalanceExists) {
			return conflict("year", "balance was created concurrently, retry the adjustment", err)
		}
		if err != nil {
			return fmt.Errorf("save balance: %w", err)
		}
		out = balance.Dto(leaveType.Name)
		return nil
	})
	return out, err
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) dayCounter(ctx context.Context, repos Repositories, start, end time.Time) (DayCounter, error) {
	if s.DayCounting != DayCountingBusiness {
		return CalendarDays{}, nil
	}
	holidays, err := repos.Holidays.ListBetween(ctx, DateOnly(start), DateOnly(end))
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return NewBusinessDays(ExpandHolidays(holidays, start, end)), nil
}

func checkLeaveType(t LeaveType, isHalfDay bool) error {
	if !t.IsActive {
		return invalid("leaveTypeId", "leave type is inactive", ErrLeaveTypeInactive)
	}
	if isHalfDay && !t.AllowHalfDay {
		return invalid("isHalfDay", "leave type does not allow half-day requests", ErrHalfDayNotAllowed)
	}
	return nil
}

func checkSubstitute(ctx context.Context, repos Repositories, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := repos.Employees.GetByID(ctx, *id); err != nil {
		return lookupErr(err, "substituteEmployeeId", "substitute employee not found")
	}
	return nil
}

func checkOverlap(ctx context.Context, repos Repositories, employeeID int64, start, end time.Time, excludeID *int64) error {
	overlaps, err := repos.Leaves.HasOverlappingLeave(ctx, employeeID, DateOnly(start), DateOnly(end), excludeID)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if overlaps {
		return conflict("startDate", "employee already has leave booked in this period", ErrOverlappingLeave)
	}
	return nil
}

func insufficient(b *LeaveBalance, days decimal.Decimal) error {
	return invalid("totalDays", fmt.Sprintf("insufficient balance: %s days available, %s requested", b.Available().String(), days.String()), ErrInsufficientBalance)
}

func loadBalance(ctx context.Context, repo LeaveBalanceRepository, key BalanceKey) (*LeaveBalance, error) {
	b, err := repo.GetByEmployeeLeaveTypeAndYear(ctx, key.EmployeeID, key.LeaveTypeID, key.Year)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	return b, nil
}

func optionalEmployee(ctx context.Context, repos Repositories, id int64) (Employee, error) {
	e, err := repos.Employees.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Employee{}, nil
	}
	if err != nil {
		return Employee{}, fmt.Errorf("load employee: %w", err)
	}
	return e, nil
}

func persist(ctx context.Context, repos Repositories, l *Leave, balances ...*LeaveBalance) error {
	if err := repos.Leaves.Update(ctx, l); err != nil {
		return fmt.Errorf("update leave: %w", err)
	}
	return saveBalances(ctx, repos, balances...)
}

func saveBalances(ctx context.Context, repos Repositories, balances ...*LeaveBalance) error {
	seen := make(map[*LeaveBalance]struct{}, len(balances))
	for _, b := range balances {
		if b == nil {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		if err := repos.Balances.Save(ctx, b); err != nil {
			return fmt.Errorf("save balance: %w", err)
		}
	}
	return nil
}

func lookupErr(err error, field, message string) error {
	if errors.Is(err, ErrNotFound) {
		return notFound(field, message)
	}
	return fmt.Errorf("load %s: %w", field, err)
}
