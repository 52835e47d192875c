package leave

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *Leave {
	t.Helper()
	l, err := NewLeave(NewLeaveParams{
		EmployeeID:  7,
		LeaveTypeID: 2,
		StartDate:   day(2025, 6, 2),
		EndDate:     day(2025, 6, 4),
		Reason:      "family trip",
		RequestDate: testNow,
	}, CalendarDays{})
	require.NoError(t, err)
	return l
}

func withStatus(t *testing.T, status Status) *Leave {
	t.Helper()
	r := newPending(t).Snapshot()
	r.ID = 11
	r.Status = status
	return Restore(r)
}

func TestNewLeaveStartsPending(t *testing.T) {
	l := newPending(t)

	assert.Equal(t, StatusPending, l.Status())
	assert.True(t, l.TotalDays().Equal(decimal.NewFromInt(3)))
	assert.Equal(t, BalanceKey{EmployeeID: 7, LeaveTypeID: 2, Year: 2025}, l.BalanceKey())
	assert.Equal(t, testNow, l.Snapshot().RequestDate)
}

func TestNewLeaveRequiresEmployeeAndType(t *testing.T) {
	_, err := NewLeave(NewLeaveParams{LeaveTypeID: 2, StartDate: day(2025, 6, 2), EndDate: day(2025, 6, 2)}, nil)
	require.ErrorIs(t, err, ErrMissingRequiredField)

	_, err = NewLeave(NewLeaveParams{EmployeeID: 7, StartDate: day(2025, 6, 2), EndDate: day(2025, 6, 2)}, nil)
	require.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestTransitionsOnlyFromAllowedStates(t *testing.T) {
	all := []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusTaken}
	actions := map[string]func(*Leave) error{
		"approve": func(l *Leave) error { return l.Approve(3, "", testNow) },
		"reject":  func(l *Leave) error { return l.Reject(3, "team offsite", testNow) },
		"update": func(l *Leave) error {
			return l.Update(UpdateParams{LeaveTypeID: 2, StartDate: day(2025, 6, 9), EndDate: day(2025, 6, 9)}, nil, testNow)
		},
	}

	for name, act := range actions {
		for _, status := range all {
			l := withStatus(t, status)
			before := l.Snapshot()
			err := act(l)
			if status == StatusPending {
				assert.NoError(t, err, "%s from %s", name, status)
				continue
			}
			require.Error(t, err, "%s from %s", name, status)
			assert.True(t, IsValidation(err))
			assert.ErrorIs(t, err, ErrInvalidStateTransition)
			assert.Equal(t, before, l.Snapshot(), "%s from %s must not mutate", name, status)
		}
	}
}

func TestCancelAndTakenTransitions(t *testing.T) {
	assert.NoError(t, withStatus(t, StatusPending).Cancel("", testNow))
	assert.NoError(t, withStatus(t, StatusApproved).Cancel("plans changed", testNow))
	assert.ErrorIs(t, withStatus(t, StatusRejected).Cancel("", testNow), ErrInvalidStateTransition)
	assert.ErrorIs(t, withStatus(t, StatusTaken).Cancel("", testNow), ErrInvalidStateTransition)

	assert.NoError(t, withStatus(t, StatusApproved).MarkTaken(testNow))
	assert.ErrorIs(t, withStatus(t, StatusPending).MarkTaken(testNow), ErrInvalidStateTransition)

	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusTaken.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
}

func TestApproveRecordsDecision(t *testing.T) {
	l := newPending(t)
	require.NoError(t, l.Approve(3, "  enjoy  ", testNow))

	r := l.Snapshot()
	assert.Equal(t, StatusApproved, r.Status)
	require.NotNil(t, r.ApprovedByID)
	assert.Equal(t, int64(3), *r.ApprovedByID)
	assert.Equal(t, "enjoy", r.ApprovalNotes)
	require.NotNil(t, r.ApprovedDate)
}

func TestRejectRequiresReason(t *testing.T) {
	l := newPending(t)
	err := l.Reject(3, "   ", testNow)

	require.ErrorIs(t, err, ErrMissingRequiredField)
	f, ok := AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "rejectionReason", f.Field)
	assert.Equal(t, StatusPending, l.Status())
}

func TestUpdateRecomputesDays(t *testing.T) {
	l := newPending(t)
	err := l.Update(UpdateParams{LeaveTypeID: 4, StartDate: day(2026, 1, 5), EndDate: day(2026, 1, 5), IsHalfDay: true, IsHalfDayMorning: true}, nil, testNow)
	require.NoError(t, err)

	assert.True(t, l.TotalDays().Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, BalanceKey{EmployeeID: 7, LeaveTypeID: 4, Year: 2026}, l.BalanceKey())
}

func TestSetSubstituteRejectsSelf(t *testing.T) {
	l := newPending(t)
	self := int64(7)
	require.ErrorIs(t, l.SetSubstitute(&self, ""), ErrInvalidSubstitute)

	other := int64(8)
	require.NoError(t, l.SetSubstitute(&other, "ping #ops"))
	assert.Equal(t, int64(8), *l.Snapshot().SubstituteEmployeeID)

	require.NoError(t, l.SetSubstitute(nil, ""))
	assert.Nil(t, l.Snapshot().SubstituteEmployeeID)
}

func TestSetTenantIDOnce(t *testing.T) {
	l := newPending(t)
	require.NoError(t, l.SetTenantID("t1"))
	require.NoError(t, l.SetTenantID("t1"))
	require.ErrorIs(t, l.SetTenantID("t2"), ErrTenantAlreadySet)
}

func TestFieldLengthLimits(t *testing.T) {
	l := newPending(t)
	long := make([]byte, MaxContactLength+1)
	for i := range long {
		long[i] = 'x'
	}
	require.ErrorIs(t, l.SetContactDuringLeave(string(long)), ErrFieldTooLong)
	assert.Empty(t, l.Snapshot().ContactDuringLeave)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Approved ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	_, err = ParseStatus("archived")
	assert.Error(t, err)
}
