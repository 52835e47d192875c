package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hrleave/internal/domain/leave"
)

const (
	JobTakenSweep = "leave_taken_sweep"
	JobProvision  = "leave_balance_provision"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecorder persists job runs. Without one, runs are only logged.
type RunRecorder interface {
	Start(ctx context.Context, tenantID, jobType string) (string, error)
	Finish(ctx context.Context, runID, status string, details []byte) error
}

type Service struct {
	Leave             *leave.Service
	Tenants           leave.TenantLister
	Runs              RunRecorder
	SweepInterval     time.Duration
	ProvisionInterval time.Duration
	Now               func() time.Time
	queue             chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(svc *leave.Service, tenants leave.TenantLister, runs RunRecorder) *Service {
	return &Service{
		Leave:   svc,
		Tenants: tenants,
		Runs:    runs,
		Now:     time.Now,
		queue:   make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.SweepInterval > 0 {
		go s.schedule(ctx, s.SweepInterval, JobTakenSweep, s.sweepJob)
	}
	if s.ProvisionInterval > 0 {
		go s.schedule(ctx, s.ProvisionInterval, JobProvision, s.provisionJob)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// SweepTenant marks every approved leave of the tenant that ended before
// today as taken.
func (s *Service) SweepTenant(ctx context.Context, tenantID string) (any, error) {
	return s.RunNow(ctx, JobTakenSweep, tenantID, s.sweepJob(tenantID))
}

// ProvisionTenant creates the current year's missing balances.
func (s *Service) ProvisionTenant(ctx context.Context, tenantID string) (any, error) {
	return s.RunNow(ctx, JobProvision, tenantID, s.provisionJob(tenantID))
}

func (s *Service) sweepJob(tenantID string) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		n, err := s.Leave.MarkTakenLeaves(ctx, tenantID)
		return map[string]any{"markedTaken": n}, err
	}
}

func (s *Service) provisionJob(tenantID string) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return s.Leave.ProvisionBalances(ctx, tenantID, s.now().Year())
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.Start(ctx, j.TenantID, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
		runID = id
	}

	started := time.Now()
	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	slog.Info("job finished", "jobType", j.Type, "tenantId", j.TenantID, "status", status, "durationMs", time.Since(started).Milliseconds())

	if runID != "" {
		detailsJSON, marshalErr := json.Marshal(details)
		if marshalErr != nil {
			slog.Warn("job details marshal failed", "err", marshalErr)
			detailsJSON = []byte("{}")
		}
		if updErr := s.Runs.Finish(context.WithoutCancel(ctx), runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, interval time.Duration, jobType string, build func(string) func(context.Context) (any, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tenants, err := s.Tenants.ListTenantIDs(ctx)
			if err != nil {
				slog.Warn("job scheduler tenant lookup failed", "jobType", jobType, "err", err)
				continue
			}
			for _, tenantID := range tenants {
				s.Enqueue(jobType, tenantID, build(tenantID))
			}
		}
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
