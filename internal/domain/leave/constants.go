package leave

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusTaken     Status = "taken"
)

// transitions lists the allowed target states per source state. States
// missing from the map are sinks.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled, StatusTaken},
}

// OccupyingStatuses are the statuses whose date range blocks another request
// for the same employee.
var OccupyingStatuses = []Status{StatusPending, StatusApproved, StatusTaken}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown leave status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusTaken:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) Occupies() bool {
	for _, candidate := range OccupyingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Day counting modes.
const (
	DayCountingCalendar = "calendar"
	DayCountingBusiness = "business"
)

// Free-text limits in characters. Decision notes share MaxReasonLength.
const (
	MaxReasonLength        = 1000
	MaxContactLength       = 200
	MaxHandoverNotesLength = 2000
	MaxAttachmentURLLength = 500
)

var halfDay = decimal.NewFromFloat(0.5)
