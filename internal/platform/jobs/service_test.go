package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/leave/leavetest"
)

type recordedRun struct {
	tenantID string
	jobType  string
	status   string
	details  string
}

type fakeRuns struct {
	mu   sync.Mutex
	runs []*recordedRun
}

func (f *fakeRuns) Start(_ context.Context, tenantID, jobType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, &recordedRun{tenantID: tenantID, jobType: jobType, status: StatusRunning})
	return string(rune('a' + len(f.runs) - 1)), nil
}

func (f *fakeRuns) Finish(_ context.Context, runID, status string, details []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := f.runs[int(runID[0]-'a')]
	run.status = status
	run.details = string(details)
	return nil
}

func (f *fakeRuns) snapshot() []recordedRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRun, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, *r)
	}
	return out
}

func setup(t *testing.T) (*leavetest.Store, *leave.Service, string, int64) {
	t.Helper()
	ctx := context.Background()
	store := leavetest.NewStore()
	tenantID, err := store.EnsureTenant(ctx, "acme")
	require.NoError(t, err)

	var leaveID int64
	require.NoError(t, store.Do(ctx, tenantID, func(repos leave.Repositories) error {
		emp := leave.Employee{Code: "E1", FirstName: "Ana", LastName: "Silva", IsActive: true}
		if err := repos.Employees.Save(ctx, &emp); err != nil {
			return err
		}
		typ := leave.LeaveType{Code: "AL", Name: "Annual", IsActive: true, DefaultDays: decimal.NewFromInt(20)}
		if err := repos.LeaveTypes.Save(ctx, &typ); err != nil {
			return err
		}
		l, err := leave.NewLeave(leave.NewLeaveParams{
			EmployeeID:  emp.ID,
			LeaveTypeID: typ.ID,
			StartDate:   time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC),
			RequestDate: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		}, leave.CalendarDays{})
		if err != nil {
			return err
		}
		if err := l.Approve(emp.ID, "", time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)); err != nil {
			return err
		}
		if err := repos.Leaves.Add(ctx, l); err != nil {
			return err
		}
		leaveID = l.ID()
		return nil
	}))

	svc := leave.NewService(store, nil)
	svc.Now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }
	return store, svc, tenantID, leaveID
}

func TestSweepTenantRecordsRun(t *testing.T) {
	store, svc, tenantID, leaveID := setup(t)
	runs := &fakeRuns{}
	jobs := New(svc, store, runs)

	details, err := jobs.SweepTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"markedTaken": 1}, details)

	rec, ok := store.Leave(tenantID, leaveID)
	require.True(t, ok)
	assert.Equal(t, leave.StatusTaken, rec.Status)

	recorded := runs.snapshot()
	require.Len(t, recorded, 1)
	assert.Equal(t, JobTakenSweep, recorded[0].jobType)
	assert.Equal(t, StatusCompleted, recorded[0].status)
	assert.JSONEq(t, `{"markedTaken":1}`, recorded[0].details)
}

func TestProvisionTenantUsesCurrentYear(t *testing.T) {
	store, svc, tenantID, _ := setup(t)
	jobs := New(svc, store, nil)
	jobs.Now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	details, err := jobs.ProvisionTenant(context.Background(), tenantID)
	require.NoError(t, err)
	summary, ok := details.(leave.ProvisionSummary)
	require.True(t, ok)
	assert.Equal(t, 2026, summary.Year)
	assert.Equal(t, 1, summary.BalancesCreated)
}

func TestRunNowMarksFailure(t *testing.T) {
	store, svc, tenantID, _ := setup(t)
	runs := &fakeRuns{}
	jobs := New(svc, store, runs)

	_, err := jobs.RunNow(context.Background(), "custom", tenantID, func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, runs.snapshot()[0].status)
}

func TestSchedulerSweepsEveryTenant(t *testing.T) {
	store, svc, tenantID, leaveID := setup(t)
	jobs := New(svc, store, nil)
	jobs.SweepInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs.Start(ctx)

	require.Eventually(t, func() bool {
		rec, ok := store.Leave(tenantID, leaveID)
		return ok && rec.Status == leave.StatusTaken
	}, 2*time.Second, 10*time.Millisecond)
}
