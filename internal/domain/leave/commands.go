package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreateLeaveCommand struct {
	TenantID             string
	EmployeeID           int64
	LeaveTypeID          int64
	StartDate            time.Time
	EndDate              time.Time
	IsHalfDay            bool
	IsHalfDayMorning     bool
	Reason               string
	ContactDuringLeave   string
	HandoverNotes        string
	SubstituteEmployeeID *int64
	AttachmentURL        string
}

// ApproveLeaveCommand carries both decisions; IsApproved=false rejects.
type ApproveLeaveCommand struct {
	TenantID        string
	LeaveID         int64
	ApproverID      int64
	IsApproved      bool
	Notes           string
	RejectionReason string
}

type CancelLeaveCommand struct {
	TenantID string
	LeaveID  int64
	Reason   string
}

type UpdateLeaveCommand struct {
	TenantID             string
	LeaveID              int64
	LeaveTypeID          int64
	StartDate            time.Time
	EndDate              time.Time
	IsHalfDay            bool
	IsHalfDayMorning     bool
	Reason               string
	ContactDuringLeave   string
	HandoverNotes        string
	SubstituteEmployeeID *int64
}

type AdjustBalanceCommand struct {
	TenantID    string
	EmployeeID  int64
	LeaveTypeID int64
	Year        int
	Amount      decimal.Decimal
	Reason      string
}

func (c CreateLeaveCommand) Validate() error {
	if err := requireTenant(c.TenantID); err != nil {
		return err
	}
	if c.EmployeeID <= 0 {
		return invalid("employeeId", "employee is required", ErrMissingRequiredField)
	}
	if c.LeaveTypeID <= 0 {
		return invalid("leaveTypeId", "leave type is required", ErrMissingRequiredField)
	}
	if err := validateRange(c.StartDate, c.EndDate, c.IsHalfDay); err != nil {
		return err
	}
	if c.SubstituteEmployeeID != nil && *c.SubstituteEmployeeID == c.EmployeeID {
		return invalid("substituteEmployeeId", "substitute must be a different employee", ErrInvalidSubstitute)
	}
	return validateTexts(c.Reason, c.ContactDuringLeave, c.HandoverNotes)
}

func (c ApproveLeaveCommand) Validate() error {
	if err := requireTenant(c.TenantID); err != nil {
		return err
	}
	if c.LeaveID <= 0 {
		return invalid("leaveId", "leave is required", ErrMissingRequiredField)
	}
	if c.ApproverID <= 0 {
		return invalid("approverId", "approver is required", ErrMissingRequiredField)
	}
	if !c.IsApproved && strings.TrimSpace(c.RejectionReason) == "" {
		return invalid("rejectionReason", "rejection reason is required", ErrMissingRequiredField)
	}
	if err := checkLength("notes", c.Notes, MaxReasonLength); err != nil {
		return err
	}
	return checkLength("rejectionReason", c.RejectionReason, MaxReasonLength)
}

func (c CancelLeaveCommand) Validate() error {
	if err := requireTenant(c.TenantID); err != nil {
		return err
	}
	if c.LeaveID <= 0 {
		return invalid("leaveId", "leave is required", ErrMissingRequiredField)
	}
	return checkLength("reason", c.Reason, MaxReasonLength)
}

func (c UpdateLeaveCommand) Validate() error {
	if err := requireTenant(c.TenantID); err != nil {
		return err
	}
	if c.LeaveID <= 0 {
		return invalid("leaveId", "leave is required", ErrMissingRequiredField)
	}
	if c.LeaveTypeID <= 0 {
		return invalid("leaveTypeId", "leave type is required", ErrMissingRequiredField)
	}
	if err := validateRange(c.StartDate, c.EndDate, c.IsHalfDay); err != nil {
		return err
	}
	return validateTexts(c.Reason, c.ContactDuringLeave, c.HandoverNotes)
}

func (c AdjustBalanceCommand) Validate() error {
	if err := requireTenant(c.TenantID); err != nil {
		return err
	}
	if c.EmployeeID <= 0 {
		return invalid("employeeId", "employee is required", ErrMissingRequiredField)
	}
	if c.LeaveTypeID <= 0 {
		return invalid("leaveTypeId", "leave type is required", ErrMissingRequiredField)
	}
	if c.Year < 1900 || c.Year > 9999 {
		return invalid("year", "year is out of range", ErrInvalidDateRange)
	}
	if c.Amount.IsZero() {
		return invalid("amount", "amount must not be zero", ErrMissingRequiredField)
	}
	if strings.TrimSpace(c.Reason) == "" {
		return invalid("reason", "reason is required", ErrMissingRequiredField)
	}
	return checkLength("reason", c.Reason, MaxReasonLength)
}

func requireTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return invalid("tenantId", "tenant is required", ErrMissingRequiredField)
	}
	return nil
}

func validateRange(start, end time.Time, isHalfDay bool) error {
	if start.IsZero() {
		return invalid("startDate", "start date is required", ErrMissingRequiredField)
	}
	if end.IsZero() {
		return invalid("endDate", "end date is required", ErrMissingRequiredField)
	}
	if DateOnly(end).Before(DateOnly(start)) {
		return invalid("endDate", "end date must be on or after start date", ErrInvalidDateRange)
	}
	if isHalfDay && !DateOnly(start).Equal(DateOnly(end)) {
		return invalid("isHalfDay", "half-day leave must start and end on the same date", ErrInvalidDateRange)
	}
	return nil
}

func validateTexts(reason, contact, handover string) error {
	if err := checkLength("reason", strings.TrimSpace(reason), MaxReasonLength); err != nil {
		return err
	}
	if err := checkLength("contactDuringLeave", strings.TrimSpace(contact), MaxContactLength); err != nil {
		return err
	}
	return checkLength("handoverNotes", strings.TrimSpace(handover), MaxHandoverNotesLength)
}
