package notifications

import (
	"context"
	"errors"
	"fmt"

	"hrleave/internal/domain/leave"
)

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, inbox Inbox, limit, offset int) ([]Notification, int, error) {
	items, err := s.repo.List(ctx, inbox, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, inbox)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Unread counts what is still waiting in the user's inbox.
func (s *Service) Unread(ctx context.Context, tenantID, userID string) (int, error) {
	return s.repo.Count(ctx, Inbox{TenantID: tenantID, UserID: userID, UnreadOnly: true})
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	return s.repo.MarkRead(ctx, tenantID, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, tenantID, userID)
}

// Notify turns a committed leave event into one in-app notification per
// recipient. Delivery is attempted for every recipient; the errors are joined.
func (s *Service) Notify(ctx context.Context, evt leave.Event) error {
	ntype, title, body := render(evt)
	if ntype == "" {
		return fmt.Errorf("unsupported leave event %q", evt.Type)
	}
	var errs []error
	for _, userID := range evt.Recipients {
		if err := s.repo.Insert(ctx, evt.TenantID, userID, ntype, title, body); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

func render(evt leave.Event) (string, string, string) {
	l := evt.Leave
	span := fmt.Sprintf("%s to %s (%s days)", l.StartDate.Format("2006-01-02"), l.EndDate.Format("2006-01-02"), l.TotalDays.String())
	switch evt.Type {
	case leave.EventSubmitted:
		return TypeLeaveSubmitted, "Leave request submitted",
			fmt.Sprintf("%s requested %s leave from %s.", l.EmployeeName, l.LeaveTypeName, span)
	case leave.EventApproved:
		return TypeLeaveApproved, "Leave request approved",
			fmt.Sprintf("Your %s leave from %s was approved.", l.LeaveTypeName, span)
	case leave.EventRejected:
		return TypeLeaveRejected, "Leave request rejected",
			fmt.Sprintf("Your %s leave from %s was rejected: %s", l.LeaveTypeName, span, l.RejectionReason)
	case leave.EventCancelled:
		return TypeLeaveCancelled, "Leave request cancelled",
			fmt.Sprintf("%s cancelled %s leave from %s.", l.EmployeeName, l.LeaveTypeName, span)
	case leave.EventBalanceLow:
		available := "0"
		if evt.Available != nil {
			available = evt.Available.String()
		}
		return TypeLeaveBalanceLow, "Leave balance running low",
			fmt.Sprintf("Only %s days of %s leave remain.", available, l.LeaveTypeName)
	}
	return "", "", ""
}
