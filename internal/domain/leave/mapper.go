package leave

import (
	"context"
	"errors"
	"fmt"
)

// mapper resolves display names for DTOs, caching lookups for the lifetime
// of one unit of work.
type mapper struct {
	repos      Repositories
	employees  map[int64]Employee
	leaveTypes map[int64]LeaveType
}

func newMapper(repos Repositories) *mapper {
	return &mapper{
		repos:      repos,
		employees:  map[int64]Employee{},
		leaveTypes: map[int64]LeaveType{},
	}
}

func (m *mapper) employee(ctx context.Context, id int64) (Employee, error) {
	if e, ok := m.employees[id]; ok {
		return e, nil
	}
	e, err := m.repos.Employees.GetByID(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Employee{}, fmt.Errorf("load employee %d: %w", id, err)
	}
	m.employees[id] = e
	return e, nil
}

func (m *mapper) leaveType(ctx context.Context, id int64) (LeaveType, error) {
	if t, ok := m.leaveTypes[id]; ok {
		return t, nil
	}
	t, err := m.repos.LeaveTypes.GetByID(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return LeaveType{}, fmt.Errorf("load leave type %d: %w", id, err)
	}
	m.leaveTypes[id] = t
	return t, nil
}

func (m *mapper) dto(ctx context.Context, l *Leave) (LeaveDto, error) {
	r := l.Snapshot()
	emp, err := m.employee(ctx, r.EmployeeID)
	if err != nil {
		return LeaveDto{}, err
	}
	lt, err := m.leaveType(ctx, r.LeaveTypeID)
	if err != nil {
		return LeaveDto{}, err
	}
	out := LeaveDto{
		ID:                   r.ID,
		EmployeeID:           r.EmployeeID,
		EmployeeName:         emp.FullName(),
		EmployeeCode:         emp.Code,
		LeaveTypeID:          r.LeaveTypeID,
		LeaveTypeName:        lt.Name,
		LeaveTypeColor:       lt.Color,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		TotalDays:            r.TotalDays,
		IsHalfDay:            r.IsHalfDay,
		IsHalfDayMorning:     r.IsHalfDayMorning,
		Reason:               r.Reason,
		Status:               r.Status,
		ApprovedByID:         r.ApprovedByID,
		ApprovedDate:         r.ApprovedDate,
		ApprovalNotes:        r.ApprovalNotes,
		RejectionReason:      r.RejectionReason,
		CancellationReason:   r.CancellationReason,
		RequestDate:          r.RequestDate,
		ContactDuringLeave:   r.ContactDuringLeave,
		HandoverNotes:        r.HandoverNotes,
		SubstituteEmployeeID: r.SubstituteEmployeeID,
		AttachmentURL:        r.AttachmentURL,
		CreatedAt:            r.CreatedAt,
	}
	if r.ApprovedByID != nil {
		approver, err := m.employee(ctx, *r.ApprovedByID)
		if err != nil {
			return LeaveDto{}, err
		}
		out.ApprovedByName = approver.FullName()
	}
	if r.SubstituteEmployeeID != nil {
		sub, err := m.employee(ctx, *r.SubstituteEmployeeID)
		if err != nil {
			return LeaveDto{}, err
		}
		out.SubstituteEmployeeName = sub.FullName()
	}
	return out, nil
}
