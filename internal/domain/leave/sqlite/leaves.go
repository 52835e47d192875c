package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"hrleave/internal/domain/leave"
)

const leaveColumns = `id, tenant_id, employee_id, leave_type_id, start_date, end_date, is_half_day,
  is_half_day_morning, reason, total_days, status, approved_by_id, approved_date, approval_notes,
  rejected_by_id, rejected_date, rejection_reason, cancellation_reason, cancelled_date, request_date,
  contact_during_leave, handover_notes, substitute_employee_id, attachment_url, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type leaves struct {
	tx       *sql.Tx
	tenantID string
}

func scanLeave(row scanner) (*leave.Leave, error) {
	var (
		r                                               leave.Record
		start, end, status, requested, created, updated string
		approvedBy, rejectedBy, substitute              sql.NullInt64
		approvedAt, rejectedAt, cancelledAt             sql.NullString
	)
	if err := row.Scan(&r.ID, &r.TenantID, &r.EmployeeID, &r.LeaveTypeID, &start, &end, &r.IsHalfDay,
		&r.IsHalfDayMorning, &r.Reason, &r.TotalDays, &status, &approvedBy, &approvedAt, &r.ApprovalNotes,
		&rejectedBy, &rejectedAt, &r.RejectionReason, &r.CancellationReason, &cancelledAt, &requested,
		&r.ContactDuringLeave, &r.HandoverNotes, &substitute, &r.AttachmentURL, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if r.StartDate, err = parseDate(start); err != nil {
		return nil, fmt.Errorf("leave %d start_date: %w", r.ID, err)
	}
	if r.EndDate, err = parseDate(end); err != nil {
		return nil, fmt.Errorf("leave %d end_date: %w", r.ID, err)
	}
	if r.RequestDate, err = parseTime(requested); err != nil {
		return nil, fmt.Errorf("leave %d request_date: %w", r.ID, err)
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("leave %d created_at: %w", r.ID, err)
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("leave %d updated_at: %w", r.ID, err)
	}
	if r.ApprovedDate, err = parseNullTime(approvedAt, timeLayout); err != nil {
		return nil, err
	}
	if r.RejectedDate, err = parseNullTime(rejectedAt, timeLayout); err != nil {
		return nil, err
	}
	if r.CancelledDate, err = parseNullTime(cancelledAt, timeLayout); err != nil {
		return nil, err
	}
	r.Status = leave.Status(status)
	r.ApprovedByID = nullID(approvedBy)
	r.RejectedByID = nullID(rejectedBy)
	r.SubstituteEmployeeID = nullID(substitute)
	return leave.Restore(r), nil
}

func (s *leaves) GetWithDetails(ctx context.Context, id int64) (*leave.Leave, error) {
	l, err := scanLeave(s.tx.QueryRowContext(ctx, `SELECT `+leaveColumns+` FROM leaves WHERE tenant_id = ? AND id = ?`, s.tenantID, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return l, nil
}

func (s *leaves) Add(ctx context.Context, l *leave.Leave) error {
	if err := l.SetTenantID(s.tenantID); err != nil {
		return err
	}
	r := l.Snapshot()
	res, err := s.tx.ExecContext(ctx, `
    INSERT INTO leaves (tenant_id, employee_id, leave_type_id, start_date, end_date, is_half_day, is_half_day_morning,
      reason, total_days, status, request_date, contact_during_leave, handover_notes, substitute_employee_id,
      attachment_url, created_at, updated_at)
    VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
  `, s.tenantID, r.EmployeeID, r.LeaveTypeID, fmtDate(r.StartDate), fmtDate(r.EndDate), r.IsHalfDay, r.IsHalfDayMorning,
		r.Reason, r.TotalDays.String(), string(r.Status), fmtTime(r.RequestDate), r.ContactDuringLeave, r.HandoverNotes,
		r.SubstituteEmployeeID, r.AttachmentURL, fmtTime(r.CreatedAt), fmtTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert leave: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.SetID(id)
	return nil
}

func (s *leaves) Update(ctx context.Context, l *leave.Leave) error {
	r := l.Snapshot()
	res, err := s.tx.ExecContext(ctx, `
    UPDATE leaves
    SET leave_type_id = ?, start_date = ?, end_date = ?, is_half_day = ?, is_half_day_morning = ?,
      reason = ?, total_days = ?, status = ?, approved_by_id = ?, approved_date = ?, approval_notes = ?,
      rejected_by_id = ?, rejected_date = ?, rejection_reason = ?, cancellation_reason = ?,
      cancelled_date = ?, contact_during_leave = ?, handover_notes = ?, substitute_employee_id = ?,
      attachment_url = ?, updated_at = ?
    WHERE tenant_id = ? AND id = ?
  `, r.LeaveTypeID, fmtDate(r.StartDate), fmtDate(r.EndDate), r.IsHalfDay, r.IsHalfDayMorning,
		r.Reason, r.TotalDays.String(), string(r.Status), r.ApprovedByID, fmtNullTime(r.ApprovedDate), r.ApprovalNotes,
		r.RejectedByID, fmtNullTime(r.RejectedDate), r.RejectionReason, r.CancellationReason,
		fmtNullTime(r.CancelledDate), r.ContactDuringLeave, r.HandoverNotes, r.SubstituteEmployeeID,
		r.AttachmentURL, fmtTime(r.UpdatedAt), s.tenantID, r.ID)
	if err != nil {
		return fmt.Errorf("update leave: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return leave.ErrNotFound
	}
	return nil
}

func (s *leaves) HasOverlappingLeave(ctx context.Context, employeeID int64, start, end time.Time, excludeID *int64) (bool, error) {
	args := []any{s.tenantID, employeeID}
	placeholders := make([]string, 0, len(leave.OccupyingStatuses))
	for _, st := range leave.OccupyingStatuses {
		placeholders = append(placeholders, "?")
		args = append(args, string(st))
	}
	query := `SELECT EXISTS (SELECT 1 FROM leaves WHERE tenant_id = ? AND employee_id = ?
    AND status IN (` + strings.Join(placeholders, ",") + `)
    AND start_date <= ? AND end_date >= ?`
	args = append(args, fmtDate(end), fmtDate(start))
	if excludeID != nil {
		query += ` AND id <> ?`
		args = append(args, *excludeID)
	}
	query += `)`

	var exists bool
	if err := s.tx.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *leaves) List(ctx context.Context, filter leave.ListFilter) ([]*leave.Leave, int, error) {
	where := ` WHERE tenant_id = ?`
	args := []any{s.tenantID}
	if filter.EmployeeID != nil {
		where += ` AND employee_id = ?`
		args = append(args, *filter.EmployeeID)
	}
	if filter.Status != "" {
		where += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.From != nil {
		where += ` AND end_date >= ?`
		args = append(args, fmtDate(*filter.From))
	}
	if filter.To != nil {
		where += ` AND start_date <= ?`
		args = append(args, fmtDate(*filter.To))
	}

	var total int
	if err := s.tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM leaves`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, filter.Offset)
	out, err := s.query(ctx, `SELECT `+leaveColumns+` FROM leaves`+where+` ORDER BY start_date DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *leaves) ListApprovedEndedBefore(ctx context.Context, day time.Time) ([]*leave.Leave, error) {
	return s.query(ctx, `SELECT `+leaveColumns+` FROM leaves WHERE tenant_id = ? AND status = ? AND end_date < ? ORDER BY end_date, id`,
		s.tenantID, string(leave.StatusApproved), fmtDate(day))
}

func (s *leaves) query(ctx context.Context, query string, args ...any) ([]*leave.Leave, error) {
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*leave.Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
