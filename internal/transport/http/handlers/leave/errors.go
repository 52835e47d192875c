package leavehandler

import (
	"errors"
	"log/slog"
	"net/http"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

var failureCodes = []struct {
	err  error
	code string
}{
	{leave.ErrOverlappingLeave, "leave_overlap"},
	{leave.ErrInsufficientBalance, "insufficient_balance"},
	{leave.ErrInvalidStateTransition, "invalid_state"},
	{leave.ErrLeaveStarted, "leave_started"},
}

// writeError maps a service error to the API envelope. Anything that is not
// a leave.Failure is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	failure, ok := leave.AsFailure(err)
	if !ok {
		slog.Error("leave request failed", "path", r.URL.Path, "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
		return
	}

	status, code := http.StatusBadRequest, "validation_error"
	switch failure.Kind {
	case leave.KindNotFound:
		status, code = http.StatusNotFound, "not_found"
	case leave.KindConflict:
		status, code = http.StatusConflict, "conflict"
	}
	for _, fc := range failureCodes {
		if errors.Is(failure, fc.err) {
			code = fc.code
			break
		}
	}

	var details any
	if failure.Field != "" {
		details = map[string]any{"fields": []shared.ValidationIssue{{Field: failure.Field, Reason: failure.Message}}}
	}
	api.FailWithDetails(w, status, code, failure.Message, details, requestID)
}
