package reportshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/reports"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type Reporter interface {
	Dashboard(ctx context.Context, tenantID string) (reports.Dashboard, error)
	JobRuns(ctx context.Context, tenantID string, filter reports.JobRunFilter, limit, offset int) (reports.JobRunPage, error)
	JobRun(ctx context.Context, tenantID, runID string) (reports.JobRun, error)
}

// JobRunner triggers background jobs for one tenant on demand.
type JobRunner interface {
	SweepTenant(ctx context.Context, tenantID string) (any, error)
}

type Handler struct {
	Service Reporter
	Jobs    JobRunner
	Perms   middleware.PermissionStore
}

func NewHandler(service Reporter, jobs JobRunner, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Jobs: jobs, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveReadAll, h.Perms)).Get("/dashboard", h.handleDashboard)
		r.With(middleware.RequireAnyPermission(h.Perms, auth.PermAuditRead, auth.PermSystemAdmin)).Get("/jobs", h.handleListJobRuns)
		r.With(middleware.RequireAnyPermission(h.Perms, auth.PermAuditRead, auth.PermSystemAdmin)).Get("/jobs/{runID}", h.handleGetJobRun)
		r.With(middleware.RequirePermission(auth.PermBalanceManage, h.Perms)).Post("/jobs/taken-sweep", h.handleRunSweep)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	out, err := h.Service.Dashboard(r.Context(), user.TenantID)
	if err != nil {
		slog.Error("dashboard failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListJobRuns(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	query := r.URL.Query()
	filter := reports.JobRunFilter{JobType: query.Get("jobType"), Status: query.Get("status")}
	v := shared.NewValidator()
	if raw := query.Get("startedFrom"); raw != "" {
		if from, ok := v.Date("startedFrom", raw); ok {
			filter.StartedFrom = &from
		}
	}
	if raw := query.Get("startedTo"); raw != "" {
		if to, ok := v.Date("startedTo", raw); ok {
			end := to.Add(24*time.Hour - time.Nanosecond)
			filter.StartedTo = &end
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	result, err := h.Service.JobRuns(r.Context(), user.TenantID, filter, page.Limit, page.Offset)
	if err != nil {
		var fe *reports.FilterError
		if errors.As(err, &fe) {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: fe.Field, Reason: fe.Reason}})
			return
		}
		slog.Error("job runs list failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	shared.SetTotalCount(w, result.Total)
	api.Success(w, result.Runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetJobRun(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	runID := chi.URLParam(r, "runID")
	if _, err := uuid.Parse(runID); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid job run id", middleware.GetRequestID(r.Context()))
		return
	}
	run, err := h.Service.JobRun(r.Context(), user.TenantID, runID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.Fail(w, http.StatusNotFound, "not_found", "job run not found", middleware.GetRequestID(r.Context()))
			return
		}
		slog.Error("job run lookup failed", "tenantId", user.TenantID, "runId", runID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_run_failed", "failed to load job run", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunSweep(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if h.Jobs == nil {
		api.Fail(w, http.StatusServiceUnavailable, "jobs_unavailable", "background jobs are not configured", middleware.GetRequestID(r.Context()))
		return
	}
	details, err := h.Jobs.SweepTenant(r.Context(), user.TenantID)
	if err != nil {
		slog.Error("manual taken sweep failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "taken sweep failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, details, middleware.GetRequestID(r.Context()))
}
