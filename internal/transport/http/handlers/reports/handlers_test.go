package reportshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/leave/leavetest"
	"hrleave/internal/domain/reports"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/transport/http/middleware"
)

const testSecret = "test-secret"

type stubSource struct {
	runs []reports.JobRun
}

func (s *stubSource) PendingApprovals(context.Context, string) (int, error) { return 2, nil }

func (s *stubSource) OnLeave(context.Context, string, time.Time) (int, error) { return 1, nil }

func (s *stubSource) UpcomingApproved(context.Context, string, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (s *stubSource) LowBalances(context.Context, string, int, decimal.Decimal) (int, error) {
	return 5, nil
}

func (s *stubSource) ListJobRuns(context.Context, string, reports.JobRunFilter, int, int) ([]reports.JobRun, error) {
	return s.runs, nil
}

func (s *stubSource) CountJobRuns(context.Context, string, reports.JobRunFilter) (int, error) {
	return len(s.runs), nil
}

func (s *stubSource) JobRunByID(_ context.Context, _, runID string) (reports.JobRun, error) {
	for _, run := range s.runs {
		if run.ID == runID {
			return run, nil
		}
	}
	return reports.JobRun{}, pgx.ErrNoRows
}

type testEnv struct {
	router   http.Handler
	store    *leavetest.Store
	tenantID string
	leaveID  int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := leavetest.NewStore()
	tenantID, err := store.EnsureTenant(ctx, "acme")
	if err != nil {
		t.Fatalf("ensure tenant: %v", err)
	}
	var emp, approver leave.Employee
	var annual leave.LeaveType
	err = store.Do(ctx, tenantID, func(repos leave.Repositories) error {
		emp = leave.Employee{Code: "E1", FirstName: "Alice", LastName: "Ng", IsActive: true}
		approver = leave.Employee{Code: "M1", FirstName: "Mira", LastName: "Holt", IsActive: true}
		if err := repos.Employees.Save(ctx, &emp); err != nil {
			return err
		}
		if err := repos.Employees.Save(ctx, &approver); err != nil {
			return err
		}
		annual = leave.LeaveType{Code: "AL", Name: "Annual", IsActive: true}
		return repos.LeaveTypes.Save(ctx, &annual)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := leave.NewService(store, nil)
	svc.Now = func() time.Time { return time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC) }
	created, err := svc.CreateLeave(ctx, leave.CreateLeaveCommand{
		TenantID: tenantID, EmployeeID: emp.ID, LeaveTypeID: annual.ID,
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create leave: %v", err)
	}
	if _, err := svc.ApproveLeave(ctx, leave.ApproveLeaveCommand{TenantID: tenantID, LeaveID: created.ID, ApproverID: approver.ID, IsApproved: true}); err != nil {
		t.Fatalf("approve leave: %v", err)
	}

	source := &stubSource{runs: []reports.JobRun{{
		ID: "0b0e7d5c-7f38-4a51-9a63-1d3c7a8b9c01", JobType: jobs.JobTakenSweep, Status: jobs.StatusCompleted,
		Details: map[string]any{"markedTaken": float64(3)}, StartedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}}}
	reportSvc := reports.NewService(source)
	reportSvc.Now = svc.Now

	h := NewHandler(reportSvc, jobs.New(svc, store, nil), auth.StaticPermissions{})
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	h.RegisterRoutes(r)
	return &testEnv{router: r, store: store, tenantID: tenantID, leaveID: created.ID}
}

func (e *testEnv) do(t *testing.T, method, path, role string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u1", TenantID: e.tenantID, RoleName: role}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return rec, body
}

func TestDashboardRequiresReadAll(t *testing.T) {
	e := newTestEnv(t)

	rec, _ := e.do(t, http.MethodGet, "/reports/dashboard", auth.RoleEmployee)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec, body := e.do(t, http.MethodGet, "/reports/dashboard", auth.RoleManager)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]any)
	if data["date"] != "2026-03-20" || data["pendingApprovals"] != float64(2) || data["lowBalances"] != float64(5) {
		t.Fatalf("unexpected dashboard %v", data)
	}
}

func TestJobRunsListingAndLookup(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodGet, "/reports/jobs?jobType=leave_taken_sweep", auth.RoleHR)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Total-Count") != "1" || len(body["data"].([]any)) != 1 {
		t.Fatalf("unexpected listing %v", body)
	}
	if rec, _ := e.do(t, http.MethodGet, "/reports/jobs", auth.RoleSystemAdmin); rec.Code != http.StatusOK {
		t.Fatalf("expected system admin to read job history, got %d", rec.Code)
	}
	if rec, _ := e.do(t, http.MethodGet, "/reports/jobs", auth.RoleManager); rec.Code != http.StatusForbidden {
		t.Fatalf("expected manager to be denied job history, got %d", rec.Code)
	}

	rec, _ = e.do(t, http.MethodGet, "/reports/jobs?status=exploded", auth.RoleHR)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec, _ = e.do(t, http.MethodGet, "/reports/jobs?startedFrom=03-01-2026", auth.RoleHR)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}

	rec, _ = e.do(t, http.MethodGet, "/reports/jobs/0b0e7d5c-7f38-4a51-9a63-1d3c7a8b9c01", auth.RoleHR)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec, _ = e.do(t, http.MethodGet, "/reports/jobs/9f1c2b3a-0000-4000-8000-000000000000", auth.RoleHR)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec, _ = e.do(t, http.MethodGet, "/reports/jobs/not-a-uuid", auth.RoleHR)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestManualSweepMarksEndedLeaveTaken(t *testing.T) {
	e := newTestEnv(t)

	rec, _ := e.do(t, http.MethodPost, "/reports/jobs/taken-sweep", auth.RoleManager)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager, got %d", rec.Code)
	}

	rec, body := e.do(t, http.MethodPost, "/reports/jobs/taken-sweep", auth.RoleHR)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["data"].(map[string]any)["markedTaken"] != float64(1) {
		t.Fatalf("unexpected sweep result %v", body)
	}
	rec2, ok := e.store.Leave(e.tenantID, e.leaveID)
	if !ok || rec2.Status != leave.StatusTaken {
		t.Fatalf("expected leave to be taken, got %+v", rec2)
	}
}
