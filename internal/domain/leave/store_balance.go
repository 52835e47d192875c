package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrleave/internal/platform/querier"
)

const balanceColumns = `id, employee_id, leave_type_id, year, entitled, used, pending, carried_forward,
    adjustment, adjustment_reason, updated_at`

type pgBalances struct {
	db       querier.Querier
	tenantID string
}

func scanBalance(row pgx.Row) (*LeaveBalance, error) {
	var b LeaveBalance
	if err := row.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &b.Entitled, &b.Used, &b.Pending,
		&b.CarriedForward, &b.Adjustment, &b.AdjustmentReason, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByEmployeeLeaveTypeAndYear locks the row until the surrounding
// transaction ends.
func (s *pgBalances) GetByEmployeeLeaveTypeAndYear(ctx context.Context, employeeID, leaveTypeID int64, year int) (*LeaveBalance, error) {
	b, err := scanBalance(s.db.QueryRow(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND leave_type_id = $3 AND year = $4
    FOR UPDATE
  `, s.tenantID, employeeID, leaveTypeID, year))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return b, nil
}

func (s *pgBalances) Add(ctx context.Context, b *LeaveBalance) error {
	if err := s.db.QueryRow(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, leave_type_id, year, entitled, used, pending,
      carried_forward, adjustment, adjustment_reason, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
    ON CONFLICT (tenant_id, employee_id, leave_type_id, year) DO NOTHING
    RETURNING id, updated_at
  `, s.tenantID, b.EmployeeID, b.LeaveTypeID, b.Year, b.Entitled, b.Used, b.Pending,
		b.CarriedForward, b.Adjustment, b.AdjustmentReason).Scan(&b.ID, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBalanceExists
		}
		return fmt.Errorf("insert balance: %w", err)
	}
	return nil
}

func (s *pgBalances) Save(ctx context.Context, b *LeaveBalance) error {
	tag, err := s.db.Exec(ctx, `
    UPDATE leave_balances
    SET entitled = $3, used = $4, pending = $5, carried_forward = $6, adjustment = $7,
      adjustment_reason = $8, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, s.tenantID, b.ID, b.Entitled, b.Used, b.Pending, b.CarriedForward, b.Adjustment, b.AdjustmentReason)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgBalances) ListByEmployee(ctx context.Context, employeeID int64, year int) ([]*LeaveBalance, error) {
	rows, err := s.db.Query(ctx, `
    SELECT `+balanceColumns+`
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND year = $3
    ORDER BY leave_type_id
  `, s.tenantID, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LeaveBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
