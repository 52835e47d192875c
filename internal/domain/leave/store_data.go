package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrleave/internal/platform/querier"
)

const leaveColumns = `id, tenant_id::text, employee_id, leave_type_id, start_date, end_date, is_half_day,
    is_half_day_morning, reason, total_days, status, approved_by_id, approved_date, approval_notes,
    rejected_by_id, rejected_date, rejection_reason, cancellation_reason, cancelled_date, request_date,
    contact_during_leave, handover_notes, substitute_employee_id, attachment_url, created_at, updated_at`

type pgLeaves struct {
	db       querier.Querier
	tenantID string
}

func scanLeave(row pgx.Row) (*Leave, error) {
	var r Record
	var status string
	if err := row.Scan(&r.ID, &r.TenantID, &r.EmployeeID, &r.LeaveTypeID, &r.StartDate, &r.EndDate, &r.IsHalfDay,
		&r.IsHalfDayMorning, &r.Reason, &r.TotalDays, &status, &r.ApprovedByID, &r.ApprovedDate, &r.ApprovalNotes,
		&r.RejectedByID, &r.RejectedDate, &r.RejectionReason, &r.CancellationReason, &r.CancelledDate, &r.RequestDate,
		&r.ContactDuringLeave, &r.HandoverNotes, &r.SubstituteEmployeeID, &r.AttachmentURL, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	r.StartDate = DateOnly(r.StartDate)
	r.EndDate = DateOnly(r.EndDate)
	return Restore(r), nil
}

func (s *pgLeaves) GetWithDetails(ctx context.Context, id int64) (*Leave, error) {
	l, err := scanLeave(s.db.QueryRow(ctx, `
    SELECT `+leaveColumns+`
    FROM leaves
    WHERE tenant_id = $1 AND id = $2
    FOR UPDATE
  `, s.tenantID, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return l, nil
}

func (s *pgLeaves) Add(ctx context.Context, l *Leave) error {
	if err := l.SetTenantID(s.tenantID); err != nil {
		return err
	}
	r := l.Snapshot()
	var id int64
	if err := s.db.QueryRow(ctx, `
    INSERT INTO leaves (tenant_id, employee_id, leave_type_id, start_date, end_date, is_half_day, is_half_day_morning,
      reason, total_days, status, request_date, contact_during_leave, handover_notes, substitute_employee_id,
      attachment_url, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
    RETURNING id
  `, s.tenantID, r.EmployeeID, r.LeaveTypeID, r.StartDate, r.EndDate, r.IsHalfDay, r.IsHalfDayMorning,
		r.Reason, r.TotalDays, string(r.Status), r.RequestDate, r.ContactDuringLeave, r.HandoverNotes, r.SubstituteEmployeeID,
		r.AttachmentURL, r.CreatedAt, r.UpdatedAt).Scan(&id); err != nil {
		return fmt.Errorf("insert leave: %w", err)
	}
	l.SetID(id)
	return nil
}

func (s *pgLeaves) Update(ctx context.Context, l *Leave) error {
	r := l.Snapshot()
	tag, err := s.db.Exec(ctx, `
    UPDATE leaves
    SET leave_type_id = $3, start_date = $4, end_date = $5, is_half_day = $6, is_half_day_morning = $7,
      reason = $8, total_days = $9, status = $10, approved_by_id = $11, approved_date = $12, approval_notes = $13,
      rejected_by_id = $14, rejected_date = $15, rejection_reason = $16, cancellation_reason = $17,
      cancelled_date = $18, contact_during_leave = $19, handover_notes = $20, substitute_employee_id = $21,
      attachment_url = $22, updated_at = $23
    WHERE tenant_id = $1 AND id = $2
  `, s.tenantID, r.ID, r.LeaveTypeID, r.StartDate, r.EndDate, r.IsHalfDay, r.IsHalfDayMorning,
		r.Reason, r.TotalDays, string(r.Status), r.ApprovedByID, r.ApprovedDate, r.ApprovalNotes,
		r.RejectedByID, r.RejectedDate, r.RejectionReason, r.CancellationReason,
		r.CancelledDate, r.ContactDuringLeave, r.HandoverNotes, r.SubstituteEmployeeID,
		r.AttachmentURL, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update leave: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasOverlappingLeave locks the employee row first, so overlap checks for
// one employee queue behind each other until the transaction ends.
func (s *pgLeaves) HasOverlappingLeave(ctx context.Context, employeeID int64, start, end time.Time, excludeID *int64) (bool, error) {
	if _, err := s.db.Exec(ctx, `SELECT 1 FROM employees WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, s.tenantID, employeeID); err != nil {
		return false, fmt.Errorf("lock employee: %w", err)
	}
	var exists bool
	err := s.db.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leaves
      WHERE tenant_id = $1 AND employee_id = $2
        AND status = ANY($3)
        AND start_date <= $5 AND end_date >= $4
        AND ($6::bigint IS NULL OR id <> $6)
    )
  `, s.tenantID, employeeID, occupyingStatusStrings(), DateOnly(start), DateOnly(end), excludeID).Scan(&exists)
	return exists, err
}

func (s *pgLeaves) List(ctx context.Context, filter ListFilter) ([]*Leave, int, error) {
	where := " WHERE tenant_id = $1"
	args := []any{s.tenantID}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		where += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, DateOnly(*filter.From))
		where += fmt.Sprintf(" AND end_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, DateOnly(*filter.To))
		where += fmt.Sprintf(" AND start_date <= $%d", len(args))
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(1) FROM leaves"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + leaveColumns + " FROM leaves" + where +
		fmt.Sprintf(" ORDER BY start_date DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)
	leaves, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return leaves, total, nil
}

func (s *pgLeaves) ListApprovedEndedBefore(ctx context.Context, day time.Time) ([]*Leave, error) {
	return s.query(ctx, `
    SELECT `+leaveColumns+`
    FROM leaves
    WHERE tenant_id = $1 AND status = $2 AND end_date < $3
    ORDER BY end_date, id
    FOR UPDATE
  `, s.tenantID, string(StatusApproved), DateOnly(day))
}

func (s *pgLeaves) query(ctx context.Context, sql string, args ...any) ([]*Leave, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func occupyingStatusStrings() []string {
	out := make([]string, 0, len(OccupyingStatuses))
	for _, st := range OccupyingStatuses {
		out = append(out, string(st))
	}
	return out
}
