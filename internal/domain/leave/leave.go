package leave

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Record is the persisted shape of a Leave. Stores read and write it; domain
// code goes through the Leave methods so the invariants hold.
type Record struct {
	ID                   int64
	TenantID             string
	EmployeeID           int64
	LeaveTypeID          int64
	StartDate            time.Time
	EndDate              time.Time
	IsHalfDay            bool
	IsHalfDayMorning     bool
	Reason               string
	TotalDays            decimal.Decimal
	Status               Status
	ApprovedByID         *int64
	ApprovedDate         *time.Time
	ApprovalNotes        string
	RejectedByID         *int64
	RejectedDate         *time.Time
	RejectionReason      string
	CancellationReason   string
	CancelledDate        *time.Time
	RequestDate          time.Time
	ContactDuringLeave   string
	HandoverNotes        string
	SubstituteEmployeeID *int64
	AttachmentURL        string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Leave is one time-off request and its approval state machine.
type Leave struct {
	r Record
}

type NewLeaveParams struct {
	EmployeeID       int64
	LeaveTypeID      int64
	StartDate        time.Time
	EndDate          time.Time
	IsHalfDay        bool
	IsHalfDayMorning bool
	Reason           string
	RequestDate      time.Time
}

type UpdateParams struct {
	LeaveTypeID      int64
	StartDate        time.Time
	EndDate          time.Time
	IsHalfDay        bool
	IsHalfDayMorning bool
	Reason           string
}

func NewLeave(p NewLeaveParams, counter DayCounter) (*Leave, error) {
	if p.EmployeeID <= 0 {
		return nil, invalid("employeeId", "employee is required", ErrMissingRequiredField)
	}
	if p.LeaveTypeID <= 0 {
		return nil, invalid("leaveTypeId", "leave type is required", ErrMissingRequiredField)
	}
	days, err := ComputeTotalDays(p.StartDate, p.EndDate, p.IsHalfDay, counter)
	if err != nil {
		return nil, err
	}
	if err := checkLength("reason", p.Reason, MaxReasonLength); err != nil {
		return nil, err
	}
	requested := p.RequestDate.UTC()
	if requested.IsZero() {
		requested = time.Now().UTC()
	}
	return &Leave{r: Record{
		EmployeeID:       p.EmployeeID,
		LeaveTypeID:      p.LeaveTypeID,
		StartDate:        DateOnly(p.StartDate),
		EndDate:          DateOnly(p.EndDate),
		IsHalfDay:        p.IsHalfDay,
		IsHalfDayMorning: p.IsHalfDay && p.IsHalfDayMorning,
		Reason:           strings.TrimSpace(p.Reason),
		TotalDays:        days,
		Status:           StatusPending,
		RequestDate:      requested,
		CreatedAt:        requested,
		UpdatedAt:        requested,
	}}, nil
}

// Restore rebuilds a Leave from storage without re-running creation rules.
func Restore(r Record) *Leave {
	return &Leave{r: r}
}

// Snapshot returns a copy of the current state.
func (l *Leave) Snapshot() Record {
	return l.r
}

func (l *Leave) ID() int64                  { return l.r.ID }
func (l *Leave) TenantID() string           { return l.r.TenantID }
func (l *Leave) EmployeeID() int64          { return l.r.EmployeeID }
func (l *Leave) LeaveTypeID() int64         { return l.r.LeaveTypeID }
func (l *Leave) StartDate() time.Time       { return l.r.StartDate }
func (l *Leave) EndDate() time.Time         { return l.r.EndDate }
func (l *Leave) TotalDays() decimal.Decimal { return l.r.TotalDays }
func (l *Leave) Status() Status             { return l.r.Status }

func (l *Leave) BalanceKey() BalanceKey {
	return BalanceKey{EmployeeID: l.r.EmployeeID, LeaveTypeID: l.r.LeaveTypeID, Year: l.r.StartDate.Year()}
}

// SetID is called once by the store that inserted the leave.
func (l *Leave) SetID(id int64) {
	if l.r.ID == 0 {
		l.r.ID = id
	}
}

func (l *Leave) SetTenantID(tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if l.r.TenantID != "" && l.r.TenantID != tenantID {
		return invalid("tenantId", "tenant is already set", ErrTenantAlreadySet)
	}
	l.r.TenantID = tenantID
	return nil
}

func (l *Leave) Approve(approverID int64, notes string, at time.Time) error {
	if err := l.guard(StatusApproved); err != nil {
		return err
	}
	if approverID <= 0 {
		return invalid("approverId", "approver is required", ErrMissingRequiredField)
	}
	at = at.UTC()
	l.r.Status = StatusApproved
	l.r.ApprovedByID = &approverID
	l.r.ApprovedDate = &at
	l.r.ApprovalNotes = strings.TrimSpace(notes)
	l.r.UpdatedAt = at
	return nil
}

func (l *Leave) Reject(approverID int64, reason string, at time.Time) error {
	if err := l.guard(StatusRejected); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("rejectionReason", "rejection reason is required", ErrMissingRequiredField)
	}
	if err := checkLength("rejectionReason", reason, MaxReasonLength); err != nil {
		return err
	}
	at = at.UTC()
	l.r.Status = StatusRejected
	if approverID > 0 {
		l.r.RejectedByID = &approverID
	}
	l.r.RejectedDate = &at
	l.r.RejectionReason = reason
	l.r.UpdatedAt = at
	return nil
}

// Cancel withdraws a pending or approved leave. Whether an approved leave has
// already started is checked by the caller.
func (l *Leave) Cancel(reason string, at time.Time) error {
	if err := l.guard(StatusCancelled); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if err := checkLength("reason", reason, MaxReasonLength); err != nil {
		return err
	}
	at = at.UTC()
	l.r.Status = StatusCancelled
	l.r.CancellationReason = reason
	l.r.CancelledDate = &at
	l.r.UpdatedAt = at
	return nil
}

func (l *Leave) MarkTaken(at time.Time) error {
	if err := l.guard(StatusTaken); err != nil {
		return err
	}
	l.r.Status = StatusTaken
	l.r.UpdatedAt = at.UTC()
	return nil
}

// Update replaces the dates, type and reason of a pending request and
// recomputes TotalDays.
func (l *Leave) Update(p UpdateParams, counter DayCounter, at time.Time) error {
	if l.r.Status != StatusPending {
		return invalid("status", "only pending leave can be updated, current status is "+string(l.r.Status), ErrInvalidStateTransition)
	}
	if p.LeaveTypeID <= 0 {
		return invalid("leaveTypeId", "leave type is required", ErrMissingRequiredField)
	}
	days, err := ComputeTotalDays(p.StartDate, p.EndDate, p.IsHalfDay, counter)
	if err != nil {
		return err
	}
	if err := checkLength("reason", p.Reason, MaxReasonLength); err != nil {
		return err
	}
	l.r.LeaveTypeID = p.LeaveTypeID
	l.r.StartDate = DateOnly(p.StartDate)
	l.r.EndDate = DateOnly(p.EndDate)
	l.r.IsHalfDay = p.IsHalfDay
	l.r.IsHalfDayMorning = p.IsHalfDay && p.IsHalfDayMorning
	l.r.Reason = strings.TrimSpace(p.Reason)
	l.r.TotalDays = days
	l.r.UpdatedAt = at.UTC()
	return nil
}

// SetSubstitute replaces the substitute link. A nil id clears it.
func (l *Leave) SetSubstitute(employeeID *int64, handoverNotes string) error {
	handoverNotes = strings.TrimSpace(handoverNotes)
	if err := checkLength("handoverNotes", handoverNotes, MaxHandoverNotesLength); err != nil {
		return err
	}
	if employeeID != nil && *employeeID == l.r.EmployeeID {
		return invalid("substituteEmployeeId", "substitute must be a different employee", ErrInvalidSubstitute)
	}
	if employeeID != nil {
		id := *employeeID
		employeeID = &id
	}
	l.r.SubstituteEmployeeID = employeeID
	l.r.HandoverNotes = handoverNotes
	return nil
}

func (l *Leave) SetContactDuringLeave(contact string) error {
	contact = strings.TrimSpace(contact)
	if err := checkLength("contactDuringLeave", contact, MaxContactLength); err != nil {
		return err
	}
	l.r.ContactDuringLeave = contact
	return nil
}

func (l *Leave) SetAttachment(url string) error {
	url = strings.TrimSpace(url)
	if err := checkLength("attachmentUrl", url, MaxAttachmentURLLength); err != nil {
		return err
	}
	l.r.AttachmentURL = url
	return nil
}

func (l *Leave) guard(next Status) error {
	if !l.r.Status.CanTransitionTo(next) {
		return invalid("status", "cannot move leave from "+string(l.r.Status)+" to "+string(next), ErrInvalidStateTransition)
	}
	return nil
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return invalid(field, "must be at most "+strconv.Itoa(limit)+" characters", ErrFieldTooLong)
	}
	return nil
}
