package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LeaveBalance is the per employee, leave type and year ledger row.
// Used and Pending never go below zero; Available may, when the leave type
// allows a negative balance.
type LeaveBalance struct {
	ID               int64
	EmployeeID       int64
	LeaveTypeID      int64
	Year             int
	Entitled         decimal.Decimal
	Used             decimal.Decimal
	Pending          decimal.Decimal
	CarriedForward   decimal.Decimal
	Adjustment       decimal.Decimal
	AdjustmentReason string
	UpdatedAt        time.Time
}

func (b *LeaveBalance) Key() BalanceKey {
	return BalanceKey{EmployeeID: b.EmployeeID, LeaveTypeID: b.LeaveTypeID, Year: b.Year}
}

func (b *LeaveBalance) Available() decimal.Decimal {
	return b.Entitled.Add(b.CarriedForward).Add(b.Adjustment).Sub(b.Used).Sub(b.Pending)
}

func (b *LeaveBalance) HasSufficientBalance(days decimal.Decimal) bool {
	return b.Available().GreaterThanOrEqual(days)
}

func (b *LeaveBalance) AddPending(days decimal.Decimal) {
	if !days.IsPositive() {
		return
	}
	b.Pending = b.Pending.Add(days)
}

func (b *LeaveBalance) RemovePending(days decimal.Decimal) {
	if !days.IsPositive() {
		return
	}
	b.Pending = clampSub(b.Pending, days)
}

func (b *LeaveBalance) ConvertPendingToUsed(days decimal.Decimal) {
	if !days.IsPositive() {
		return
	}
	b.Pending = clampSub(b.Pending, days)
	b.Used = b.Used.Add(days)
}

func (b *LeaveBalance) RemoveUsed(days decimal.Decimal) {
	if !days.IsPositive() {
		return
	}
	b.Used = clampSub(b.Used, days)
}

// Adjust adds a signed manual correction on top of the entitlement.
func (b *LeaveBalance) Adjust(amount decimal.Decimal, reason string) {
	if amount.IsZero() {
		return
	}
	b.Adjustment = b.Adjustment.Add(amount)
	b.AdjustmentReason = strings.TrimSpace(reason)
}

func (b *LeaveBalance) Dto(leaveTypeName string) BalanceDto {
	return BalanceDto{
		EmployeeID:       b.EmployeeID,
		LeaveTypeID:      b.LeaveTypeID,
		LeaveTypeName:    leaveTypeName,
		Year:             b.Year,
		Entitled:         b.Entitled,
		Used:             b.Used,
		Pending:          b.Pending,
		CarriedForward:   b.CarriedForward,
		Adjustment:       b.Adjustment,
		AdjustmentReason: b.AdjustmentReason,
		Available:        b.Available(),
	}
}

func clampSub(value, amount decimal.Decimal) decimal.Decimal {
	out := value.Sub(amount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
