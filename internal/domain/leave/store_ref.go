package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrleave/internal/platform/querier"
)

type pgEmployees struct {
	db       querier.Querier
	tenantID string
}

func (s *pgEmployees) GetByID(ctx context.Context, id int64) (Employee, error) {
	var e Employee
	err := s.db.QueryRow(ctx, `
    SELECT id, code, first_name, last_name, user_id, manager_user_id, is_active
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, s.tenantID, id).Scan(&e.ID, &e.Code, &e.FirstName, &e.LastName, &e.UserID, &e.ManagerUserID, &e.IsActive)
	if err != nil {
		return Employee{}, notFoundOr(err)
	}
	return e, nil
}

func (s *pgEmployees) ListActive(ctx context.Context) ([]Employee, error) {
	rows, err := s.db.Query(ctx, `
    SELECT id, code, first_name, last_name, user_id, manager_user_id, is_active
    FROM employees
    WHERE tenant_id = $1 AND is_active
    ORDER BY id
  `, s.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Code, &e.FirstName, &e.LastName, &e.UserID, &e.ManagerUserID, &e.IsActive); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Save upserts by employee code.
func (s *pgEmployees) Save(ctx context.Context, e *Employee) error {
	if err := s.db.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, code, first_name, last_name, user_id, manager_user_id, is_active)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (tenant_id, code) DO UPDATE
      SET first_name = EXCLUDED.first_name,
          last_name = EXCLUDED.last_name,
          user_id = EXCLUDED.user_id,
          manager_user_id = EXCLUDED.manager_user_id,
          is_active = EXCLUDED.is_active
    RETURNING id
  `, s.tenantID, e.Code, e.FirstName, e.LastName, e.UserID, e.ManagerUserID, e.IsActive).Scan(&e.ID); err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	return nil
}

type pgLeaveTypes struct {
	db       querier.Querier
	tenantID string
}

const leaveTypeColumns = `id, code, name, color, is_active, is_paid, allow_half_day, allow_negative_balance,
    requires_document, default_days, is_carry_forward, max_carry_forward_days`

func scanLeaveType(row pgx.Row) (LeaveType, error) {
	var t LeaveType
	var maxCarry decimal.NullDecimal
	if err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Color, &t.IsActive, &t.IsPaid, &t.AllowHalfDay, &t.AllowNegativeBalance,
		&t.RequiresDocument, &t.DefaultDays, &t.IsCarryForward, &maxCarry); err != nil {
		return LeaveType{}, err
	}
	if maxCarry.Valid {
		t.MaxCarryForwardDays = &maxCarry.Decimal
	}
	return t, nil
}

func (s *pgLeaveTypes) GetByID(ctx context.Context, id int64) (LeaveType, error) {
	t, err := scanLeaveType(s.db.QueryRow(ctx, `
    SELECT `+leaveTypeColumns+`
    FROM leave_types
    WHERE tenant_id = $1 AND id = $2
  `, s.tenantID, id))
	if err != nil {
		return LeaveType{}, notFoundOr(err)
	}
	return t, nil
}

func (s *pgLeaveTypes) ListActive(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.db.Query(ctx, `
    SELECT `+leaveTypeColumns+`
    FROM leave_types
    WHERE tenant_id = $1 AND is_active
    ORDER BY name
  `, s.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveType
	for rows.Next() {
		t, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Save upserts by leave type code.
func (s *pgLeaveTypes) Save(ctx context.Context, t *LeaveType) error {
	var maxCarry decimal.NullDecimal
	if t.MaxCarryForwardDays != nil {
		maxCarry = decimal.NewNullDecimal(*t.MaxCarryForwardDays)
	}
	if err := s.db.QueryRow(ctx, `
    INSERT INTO leave_types (tenant_id, code, name, color, is_active, is_paid, allow_half_day, allow_negative_balance,
      requires_document, default_days, is_carry_forward, max_carry_forward_days)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    ON CONFLICT (tenant_id, code) DO UPDATE
      SET name = EXCLUDED.name,
          color = EXCLUDED.color,
          is_active = EXCLUDED.is_active,
          is_paid = EXCLUDED.is_paid,
          allow_half_day = EXCLUDED.allow_half_day,
          allow_negative_balance = EXCLUDED.allow_negative_balance,
          requires_document = EXCLUDED.requires_document,
          default_days = EXCLUDED.default_days,
          is_carry_forward = EXCLUDED.is_carry_forward,
          max_carry_forward_days = EXCLUDED.max_carry_forward_days
    RETURNING id
  `, s.tenantID, t.Code, t.Name, t.Color, t.IsActive, t.IsPaid, t.AllowHalfDay, t.AllowNegativeBalance,
		t.RequiresDocument, t.DefaultDays, t.IsCarryForward, maxCarry).Scan(&t.ID); err != nil {
		return fmt.Errorf("save leave type: %w", err)
	}
	return nil
}

type pgHolidays struct {
	db       querier.Querier
	tenantID string
}

// ListBetween returns holidays touching [from, to] plus every recurring
// holiday; callers project the recurring ones with ExpandHolidays.
func (s *pgHolidays) ListBetween(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	rows, err := s.db.Query(ctx, `
    SELECT id, name, date, end_date, is_recurring
    FROM holidays
    WHERE tenant_id = $1
      AND (is_recurring OR (date <= $3 AND COALESCE(end_date, date) >= $2))
    ORDER BY date
  `, s.tenantID, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.EndDate, &h.IsRecurring); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *pgHolidays) Save(ctx context.Context, h *Holiday) error {
	if err := s.db.QueryRow(ctx, `
    INSERT INTO holidays (tenant_id, name, date, end_date, is_recurring)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, s.tenantID, h.Name, DateOnly(h.Date), h.EndDate, h.IsRecurring).Scan(&h.ID); err != nil {
		return fmt.Errorf("save holiday: %w", err)
	}
	return nil
}
