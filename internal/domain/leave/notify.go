package leave

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventSubmitted  EventType = "leave_submitted"
	EventApproved   EventType = "leave_approved"
	EventRejected   EventType = "leave_rejected"
	EventCancelled  EventType = "leave_cancelled"
	EventBalanceLow EventType = "leave_balance_low"
)

// Event is published after a command has committed.
type Event struct {
	Type       EventType
	TenantID   string
	Leave      LeaveDto
	Recipients []string
	Available  *decimal.Decimal
}

type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if s.Notifier == nil || len(evt.Recipients) == 0 {
		return
	}
	if err := s.Notifier.Notify(context.WithoutCancel(ctx), evt); err != nil {
		slog.Warn("leave notification failed", "type", evt.Type, "leaveId", evt.Leave.ID, "err", err)
	}
}

func recipients(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
