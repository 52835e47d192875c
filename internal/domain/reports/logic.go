package reports

import (
	"errors"
	"time"
)

var ErrInvalidFilter = errors.New("invalid job run filter")

// FilterError names the offending query field.
type FilterError struct {
	Field  string
	Reason string
}

func (e *FilterError) Error() string { return e.Field + ": " + e.Reason }

func (e *FilterError) Unwrap() error { return ErrInvalidFilter }

var (
	knownJobTypes = map[string]bool{"leave_taken_sweep": true, "leave_balance_provision": true}
	knownStatuses = map[string]bool{"running": true, "completed": true, "failed": true}
)

func (f JobRunFilter) Validate() error {
	if f.JobType != "" && !knownJobTypes[f.JobType] {
		return &FilterError{Field: "jobType", Reason: "unknown job type"}
	}
	if f.Status != "" && !knownStatuses[f.Status] {
		return &FilterError{Field: "status", Reason: "must be running, completed or failed"}
	}
	if f.StartedFrom != nil && f.StartedTo != nil && f.StartedTo.Before(*f.StartedFrom) {
		return &FilterError{Field: "startedTo", Reason: "must not be before startedFrom"}
	}
	return nil
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
