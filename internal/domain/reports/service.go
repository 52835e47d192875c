// Package reports aggregates leave activity for dashboards and exposes the
// history of background job runs.
package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UpcomingWindow is how far ahead the dashboard looks for approved leave.
const UpcomingWindow = 14 * 24 * time.Hour

type Dashboard struct {
	Date             string `json:"date"`
	PendingApprovals int    `json:"pendingApprovals"`
	OnLeaveToday     int    `json:"onLeaveToday"`
	UpcomingApproved int    `json:"upcomingApproved"`
	LowBalances      int    `json:"lowBalances"`
}

type JobRun struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type JobRunFilter struct {
	JobType     string
	Status      string
	StartedFrom *time.Time
	StartedTo   *time.Time
}

type JobRunPage struct {
	Runs  []JobRun `json:"runs"`
	Total int      `json:"total"`
}

// Source is the read side the service needs. *Store implements it.
type Source interface {
	PendingApprovals(ctx context.Context, tenantID string) (int, error)
	OnLeave(ctx context.Context, tenantID string, day time.Time) (int, error)
	UpcomingApproved(ctx context.Context, tenantID string, from, to time.Time) (int, error)
	LowBalances(ctx context.Context, tenantID string, year int, threshold decimal.Decimal) (int, error)
	ListJobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) ([]JobRun, error)
	CountJobRuns(ctx context.Context, tenantID string, filter JobRunFilter) (int, error)
	JobRunByID(ctx context.Context, tenantID, runID string) (JobRun, error)
}

type Service struct {
	Store               Source
	LowBalanceThreshold decimal.Decimal
	Now                 func() time.Time
}

func NewService(store Source) *Service {
	return &Service{Store: store, LowBalanceThreshold: decimal.NewFromInt(2), Now: time.Now}
}

func (s *Service) Dashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	today := DayOf(s.Now())
	out := Dashboard{Date: today.Format(time.DateOnly)}

	var err error
	if out.PendingApprovals, err = s.Store.PendingApprovals(ctx, tenantID); err != nil {
		return Dashboard{}, err
	}
	if out.OnLeaveToday, err = s.Store.OnLeave(ctx, tenantID, today); err != nil {
		return Dashboard{}, err
	}
	if out.UpcomingApproved, err = s.Store.UpcomingApproved(ctx, tenantID, today, today.Add(UpcomingWindow)); err != nil {
		return Dashboard{}, err
	}
	if out.LowBalances, err = s.Store.LowBalances(ctx, tenantID, today.Year(), s.LowBalanceThreshold); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

func (s *Service) JobRuns(ctx context.Context, tenantID string, filter JobRunFilter, limit, offset int) (JobRunPage, error) {
	if err := filter.Validate(); err != nil {
		return JobRunPage{}, err
	}
	runs, err := s.Store.ListJobRuns(ctx, tenantID, filter, limit, offset)
	if err != nil {
		return JobRunPage{}, err
	}
	total, err := s.Store.CountJobRuns(ctx, tenantID, filter)
	if err != nil {
		return JobRunPage{}, err
	}
	return JobRunPage{Runs: runs, Total: total}, nil
}

func (s *Service) JobRun(ctx context.Context, tenantID, runID string) (JobRun, error) {
	return s.Store.JobRunByID(ctx, tenantID, runID)
}
