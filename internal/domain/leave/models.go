package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type LeaveType struct {
	ID                   int64            `json:"id" yaml:"id"`
	Code                 string           `json:"code" yaml:"code"`
	Name                 string           `json:"name" yaml:"name"`
	Color                string           `json:"color" yaml:"color"`
	IsActive             bool             `json:"isActive" yaml:"isActive"`
	IsPaid               bool             `json:"isPaid" yaml:"isPaid"`
	AllowHalfDay         bool             `json:"allowHalfDay" yaml:"allowHalfDay"`
	AllowNegativeBalance bool             `json:"allowNegativeBalance" yaml:"allowNegativeBalance"`
	RequiresDocument     bool             `json:"requiresDocument" yaml:"requiresDocument"`
	DefaultDays          decimal.Decimal  `json:"defaultDays" yaml:"defaultDays"`
	IsCarryForward       bool             `json:"isCarryForward" yaml:"isCarryForward"`
	MaxCarryForwardDays  *decimal.Decimal `json:"maxCarryForwardDays,omitempty" yaml:"maxCarryForwardDays"`
}

type Employee struct {
	ID            int64  `json:"id" yaml:"id"`
	Code          string `json:"code" yaml:"code"`
	FirstName     string `json:"firstName" yaml:"firstName"`
	LastName      string `json:"lastName" yaml:"lastName"`
	UserID        string `json:"userId,omitempty" yaml:"userId"`
	ManagerUserID string `json:"managerUserId,omitempty" yaml:"managerUserId"`
	IsActive      bool   `json:"isActive" yaml:"isActive"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type Holiday struct {
	ID          int64      `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Date        time.Time  `json:"date" yaml:"date"`
	EndDate     *time.Time `json:"endDate,omitempty" yaml:"endDate"`
	IsRecurring bool       `json:"isRecurring" yaml:"isRecurring"`
}

// BalanceKey identifies the ledger row a leave books against. Year is the
// year of the leave's start date.
type BalanceKey struct {
	EmployeeID  int64
	LeaveTypeID int64
	Year        int
}

type LeaveDto struct {
	ID                     int64           `json:"id"`
	EmployeeID             int64           `json:"employeeId"`
	EmployeeName           string          `json:"employeeName"`
	EmployeeCode           string          `json:"employeeCode"`
	LeaveTypeID            int64           `json:"leaveTypeId"`
	LeaveTypeName          string          `json:"leaveTypeName"`
	LeaveTypeColor         string          `json:"leaveTypeColor"`
	StartDate              time.Time       `json:"startDate"`
	EndDate                time.Time       `json:"endDate"`
	TotalDays              decimal.Decimal `json:"totalDays"`
	IsHalfDay              bool            `json:"isHalfDay"`
	IsHalfDayMorning       bool            `json:"isHalfDayMorning"`
	Reason                 string          `json:"reason"`
	Status                 Status          `json:"status"`
	ApprovedByID           *int64          `json:"approvedById,omitempty"`
	ApprovedByName         string          `json:"approvedByName,omitempty"`
	ApprovedDate           *time.Time      `json:"approvedDate,omitempty"`
	ApprovalNotes          string          `json:"approvalNotes,omitempty"`
	RejectionReason        string          `json:"rejectionReason,omitempty"`
	CancellationReason     string          `json:"cancellationReason,omitempty"`
	RequestDate            time.Time       `json:"requestDate"`
	ContactDuringLeave     string          `json:"contactDuringLeave,omitempty"`
	HandoverNotes          string          `json:"handoverNotes,omitempty"`
	SubstituteEmployeeID   *int64          `json:"substituteEmployeeId,omitempty"`
	SubstituteEmployeeName string          `json:"substituteEmployeeName,omitempty"`
	AttachmentURL          string          `json:"attachmentUrl,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
}

type BalanceDto struct {
	EmployeeID       int64           `json:"employeeId"`
	LeaveTypeID      int64           `json:"leaveTypeId"`
	LeaveTypeName    string          `json:"leaveTypeName"`
	Year             int             `json:"year"`
	Entitled         decimal.Decimal `json:"entitled"`
	Used             decimal.Decimal `json:"used"`
	Pending          decimal.Decimal `json:"pending"`
	CarriedForward   decimal.Decimal `json:"carriedForward"`
	Adjustment       decimal.Decimal `json:"adjustment"`
	AdjustmentReason string          `json:"adjustmentReason,omitempty"`
	Available        decimal.Decimal `json:"available"`
}

type ListFilter struct {
	EmployeeID *int64
	Status     Status
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type ListResult struct {
	Leaves []LeaveDto `json:"leaves"`
	Total  int        `json:"total"`
}
