package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
)

type employees struct {
	tx       *sql.Tx
	tenantID string
}

const employeeColumns = `id, code, first_name, last_name, user_id, manager_user_id, is_active`

func scanEmployee(row scanner) (leave.Employee, error) {
	var e leave.Employee
	err := row.Scan(&e.ID, &e.Code, &e.FirstName, &e.LastName, &e.UserID, &e.ManagerUserID, &e.IsActive)
	return e, err
}

func (s *employees) GetByID(ctx context.Context, id int64) (leave.Employee, error) {
	e, err := scanEmployee(s.tx.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE tenant_id = ? AND id = ?`, s.tenantID, id))
	if err != nil {
		return leave.Employee{}, notFoundOr(err)
	}
	return e, nil
}

func (s *employees) ListActive(ctx context.Context) ([]leave.Employee, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE tenant_id = ? AND is_active = 1 ORDER BY id`, s.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *employees) Save(ctx context.Context, e *leave.Employee) error {
	err := s.tx.QueryRowContext(ctx, `
    INSERT INTO employees (tenant_id, code, first_name, last_name, user_id, manager_user_id, is_active)
    VALUES (?,?,?,?,?,?,?)
    ON CONFLICT (tenant_id, code) DO UPDATE
      SET first_name = excluded.first_name,
          last_name = excluded.last_name,
          user_id = excluded.user_id,
          manager_user_id = excluded.manager_user_id,
          is_active = excluded.is_active
    RETURNING id
  `, s.tenantID, e.Code, e.FirstName, e.LastName, e.UserID, e.ManagerUserID, e.IsActive).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	return nil
}

type leaveTypes struct {
	tx       *sql.Tx
	tenantID string
}

const leaveTypeColumns = `id, code, name, color, is_active, is_paid, allow_half_day, allow_negative_balance,
  requires_document, default_days, is_carry_forward, max_carry_forward_days`

func scanLeaveType(row scanner) (leave.LeaveType, error) {
	var t leave.LeaveType
	var maxCarry decimal.NullDecimal
	if err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Color, &t.IsActive, &t.IsPaid, &t.AllowHalfDay, &t.AllowNegativeBalance,
		&t.RequiresDocument, &t.DefaultDays, &t.IsCarryForward, &maxCarry); err != nil {
		return leave.LeaveType{}, err
	}
	if maxCarry.Valid {
		t.MaxCarryForwardDays = &maxCarry.Decimal
	}
	return t, nil
}

func (s *leaveTypes) GetByID(ctx context.Context, id int64) (leave.LeaveType, error) {
	t, err := scanLeaveType(s.tx.QueryRowContext(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE tenant_id = ? AND id = ?`, s.tenantID, id))
	if err != nil {
		return leave.LeaveType{}, notFoundOr(err)
	}
	return t, nil
}

func (s *leaveTypes) ListActive(ctx context.Context) ([]leave.LeaveType, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT `+leaveTypeColumns+` FROM leave_types WHERE tenant_id = ? AND is_active = 1 ORDER BY name`, s.tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []leave.LeaveType
	for rows.Next() {
		t, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *leaveTypes) Save(ctx context.Context, t *leave.LeaveType) error {
	var maxCarry any
	if t.MaxCarryForwardDays != nil {
		maxCarry = t.MaxCarryForwardDays.String()
	}
	err := s.tx.QueryRowContext(ctx, `
    INSERT INTO leave_types (tenant_id, code, name, color, is_active, is_paid, allow_half_day, allow_negative_balance,
      requires_document, default_days, is_carry_forward, max_carry_forward_days)
    VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
    ON CONFLICT (tenant_id, code) DO UPDATE
      SET name = excluded.name,
          color = excluded.color,
          is_active = excluded.is_active,
          is_paid = excluded.is_paid,
          allow_half_day = excluded.allow_half_day,
          allow_negative_balance = excluded.allow_negative_balance,
          requires_document = excluded.requires_document,
          default_days = excluded.default_days,
          is_carry_forward = excluded.is_carry_forward,
          max_carry_forward_days = excluded.max_carry_forward_days
    RETURNING id
  `, s.tenantID, t.Code, t.Name, t.Color, t.IsActive, t.IsPaid, t.AllowHalfDay, t.AllowNegativeBalance,
		t.RequiresDocument, t.DefaultDays.String(), t.IsCarryForward, maxCarry).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("save leave type: %w", err)
	}
	return nil
}

type balances struct {
	tx       *sql.Tx
	tenantID string
}

const balanceColumns = `id, employee_id, leave_type_id, year, entitled, used, pending, carried_forward,
  adjustment, adjustment_reason, updated_at`

func scanBalance(row scanner) (*leave.LeaveBalance, error) {
	var b leave.LeaveBalance
	var updated string
	if err := row.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &b.Entitled, &b.Used, &b.Pending,
		&b.CarriedForward, &b.Adjustment, &b.AdjustmentReason, &updated); err != nil {
		return nil, err
	}
	t, err := parseTime(updated)
	if err != nil {
		return nil, fmt.Errorf("balance %d updated_at: %w", b.ID, err)
	}
	b.UpdatedAt = t
	return &b, nil
}

func (s *balances) GetByEmployeeLeaveTypeAndYear(ctx context.Context, employeeID, leaveTypeID int64, year int) (*leave.LeaveBalance, error) {
	b, err := scanBalance(s.tx.QueryRowContext(ctx, `
    SELECT `+balanceColumns+` FROM leave_balances
    WHERE tenant_id = ? AND employee_id = ? AND leave_type_id = ? AND year = ?
  `, s.tenantID, employeeID, leaveTypeID, year))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return b, nil
}

func (s *balances) Add(ctx context.Context, b *leave.LeaveBalance) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}
	res, err := s.tx.ExecContext(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, leave_type_id, year, entitled, used, pending,
      carried_forward, adjustment, adjustment_reason, updated_at)
    VALUES (?,?,?,?,?,?,?,?,?,?,?)
    ON CONFLICT (tenant_id, employee_id, leave_type_id, year) DO NOTHING
  `, s.tenantID, b.EmployeeID, b.LeaveTypeID, b.Year, b.Entitled.String(), b.Used.String(), b.Pending.String(),
		b.CarriedForward.String(), b.Adjustment.String(), b.AdjustmentReason, fmtTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return leave.ErrBalanceExists
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (s *balances) Save(ctx context.Context, b *leave.LeaveBalance) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := s.tx.ExecContext(ctx, `
    UPDATE leave_balances
    SET entitled = ?, used = ?, pending = ?, carried_forward = ?, adjustment = ?, adjustment_reason = ?, updated_at = ?
    WHERE tenant_id = ? AND id = ?
  `, b.Entitled.String(), b.Used.String(), b.Pending.String(), b.CarriedForward.String(), b.Adjustment.String(),
		b.AdjustmentReason, fmtTime(b.UpdatedAt), s.tenantID, b.ID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return leave.ErrNotFound
	}
	return nil
}

func (s *balances) ListByEmployee(ctx context.Context, employeeID int64, year int) ([]*leave.LeaveBalance, error) {
	rows, err := s.tx.QueryContext(ctx, `
    SELECT `+balanceColumns+` FROM leave_balances
    WHERE tenant_id = ? AND employee_id = ? AND year = ?
    ORDER BY leave_type_id
  `, s.tenantID, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*leave.LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type holidays struct {
	tx       *sql.Tx
	tenantID string
}

func (s *holidays) ListBetween(ctx context.Context, from, to time.Time) ([]leave.Holiday, error) {
	rows, err := s.tx.QueryContext(ctx, `
    SELECT id, name, date, end_date, is_recurring FROM holidays
    WHERE tenant_id = ? AND (is_recurring = 1 OR (date <= ? AND COALESCE(end_date, date) >= ?))
    ORDER BY date
  `, s.tenantID, fmtDate(to), fmtDate(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		var date string
		var end sql.NullString
		if err := rows.Scan(&h.ID, &h.Name, &date, &end, &h.IsRecurring); err != nil {
			return nil, err
		}
		if h.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		if h.EndDate, err = parseNullTime(end, dateLayout); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *holidays) Save(ctx context.Context, h *leave.Holiday) error {
	res, err := s.tx.ExecContext(ctx, `
    INSERT INTO holidays (tenant_id, name, date, end_date, is_recurring) VALUES (?,?,?,?,?)
  `, s.tenantID, h.Name, fmtDate(h.Date), fmtNullDate(h.EndDate), h.IsRecurring)
	if err != nil {
		return fmt.Errorf("save holiday: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}
