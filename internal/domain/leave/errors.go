package leave

import (
	"errors"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrMissingRequiredField   = errors.New("missing required field")
	ErrInsufficientBalance    = errors.New("insufficient leave balance")
	ErrOverlappingLeave       = errors.New("overlapping leave request")
	ErrInvalidDateRange       = errors.New("invalid date range")
	ErrLeaveTypeInactive      = errors.New("leave type inactive")
	ErrHalfDayNotAllowed      = errors.New("half day not allowed")
	ErrLeaveStarted           = errors.New("leave already started")
	ErrFieldTooLong           = errors.New("field too long")
	ErrTenantAlreadySet       = errors.New("tenant already set")
	ErrInvalidSubstitute      = errors.New("invalid substitute employee")
	ErrBalanceExists          = errors.New("balance already exists")
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
)

// Failure is the typed result of a rejected command. Field names the input
// that caused it and Message is safe to show to the caller.
type Failure struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func notFound(field, message string) *Failure {
	return &Failure{Kind: KindNotFound, Field: field, Message: message, Err: ErrNotFound}
}

func invalid(field, message string, err error) *Failure {
	return &Failure{Kind: KindValidation, Field: field, Message: message, Err: err}
}

func conflict(field, message string, err error) *Failure {
	return &Failure{Kind: KindConflict, Field: field, Message: message, Err: err}
}

func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == KindNotFound
}

func IsValidation(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == KindValidation
}

func IsConflict(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == KindConflict
}
