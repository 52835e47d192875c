package leavehandler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type requestPayload struct {
	EmployeeID           int64  `json:"employeeId"`
	LeaveTypeID          int64  `json:"leaveTypeId"`
	StartDate            string `json:"startDate"`
	EndDate              string `json:"endDate"`
	IsHalfDay            bool   `json:"isHalfDay"`
	IsHalfDayMorning     bool   `json:"isHalfDayMorning"`
	Reason               string `json:"reason"`
	ContactDuringLeave   string `json:"contactDuringLeave"`
	HandoverNotes        string `json:"handoverNotes"`
	SubstituteEmployeeID *int64 `json:"substituteEmployeeId"`
}

type decisionPayload struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

// decodeJSON treats an empty body as an empty payload.
func decodeJSON(r *http.Request, out any) error {
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (p requestPayload) validate(v *shared.Validator) (time.Time, time.Time) {
	v.PositiveID("leaveTypeId", p.LeaveTypeID)
	v.MaxLen("reason", p.Reason, leave.MaxReasonLength)
	v.MaxLen("contactDuringLeave", p.ContactDuringLeave, leave.MaxContactLength)
	v.MaxLen("handoverNotes", p.HandoverNotes, leave.MaxHandoverNotesLength)
	startDate, okStart := v.Date("startDate", p.StartDate)
	endDate, okEnd := v.Date("endDate", p.EndDate)
	if okStart && okEnd {
		v.DateOrder("startDate", startDate, "endDate", endDate)
	}
	return startDate, endDate
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	query := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	filter := leave.ListFilter{Limit: page.Limit, Offset: page.Offset}

	v := shared.NewValidator()
	if id, ok := v.ID("employeeId", query.Get("employeeId")); ok {
		filter.EmployeeID = &id
	}
	if raw := query.Get("status"); raw != "" {
		status, err := leave.ParseStatus(raw)
		if err != nil {
			v.Add("status", "is not a known leave status")
		}
		filter.Status = status
	}
	if raw := query.Get("from"); raw != "" {
		if from, ok := v.Date("from", raw); ok {
			filter.From = &from
		}
	}
	if raw := query.Get("to"); raw != "" {
		if to, ok := v.Date("to", raw); ok {
			filter.To = &to
		}
	}
	if v.Reject(w, requestID) {
		return
	}

	if !h.seesAll(r.Context(), user) {
		if user.EmployeeID == 0 {
			api.Fail(w, http.StatusForbidden, "forbidden", "no employee record linked to this user", requestID)
			return
		}
		own := user.EmployeeID
		filter.EmployeeID = &own
	}

	result, err := h.Service.ListLeaves(r.Context(), user.TenantID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	shared.SetTotalCount(w, result.Total)
	api.Success(w, result, requestID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	current, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}
	api.Success(w, current, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload requestPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	employeeID := payload.EmployeeID
	if employeeID == 0 || !h.seesAll(r.Context(), user) {
		employeeID = user.EmployeeID
	}
	if employeeID == 0 {
		api.Fail(w, http.StatusForbidden, "forbidden", "no employee record linked to this user", requestID)
		return
	}

	v := shared.NewValidator()
	start, end := payload.validate(v)
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Service.CreateLeave(r.Context(), leave.CreateLeaveCommand{
		TenantID:             user.TenantID,
		EmployeeID:           employeeID,
		LeaveTypeID:          payload.LeaveTypeID,
		StartDate:            start,
		EndDate:              end,
		IsHalfDay:            payload.IsHalfDay,
		IsHalfDayMorning:     payload.IsHalfDayMorning,
		Reason:               payload.Reason,
		ContactDuringLeave:   payload.ContactDuringLeave,
		HandoverNotes:        payload.HandoverNotes,
		SubstituteEmployeeID: payload.SubstituteEmployeeID,
	})
	h.count("create", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.record(r, user, audit.ActionLeaveCreate, audit.EntityLeaveRequest, strconv.FormatInt(created.ID, 10), nil, created)
	api.Created(w, created, requestID)
}

func (h *Handler) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	current, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}

	var payload requestPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	start, end := payload.validate(v)
	if v.Reject(w, requestID) {
		return
	}

	updated, err := h.Service.UpdateLeave(r.Context(), leave.UpdateLeaveCommand{
		TenantID:             user.TenantID,
		LeaveID:              current.ID,
		LeaveTypeID:          payload.LeaveTypeID,
		StartDate:            start,
		EndDate:              end,
		IsHalfDay:            payload.IsHalfDay,
		IsHalfDayMorning:     payload.IsHalfDayMorning,
		Reason:               payload.Reason,
		ContactDuringLeave:   payload.ContactDuringLeave,
		HandoverNotes:        payload.HandoverNotes,
		SubstituteEmployeeID: payload.SubstituteEmployeeID,
	})
	h.count("update", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.record(r, user, audit.ActionLeaveUpdate, audit.EntityLeaveRequest, strconv.FormatInt(updated.ID, 10), current, updated)
	api.Success(w, updated, requestID)
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	if user.EmployeeID == 0 {
		api.Fail(w, http.StatusForbidden, "forbidden", "approver has no employee record", requestID)
		return
	}

	current, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}
	if current.EmployeeID == user.EmployeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot decide on your own leave", requestID)
		return
	}

	var payload decisionPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	if !approve {
		v.Required("reason", payload.Reason, "is required")
	}
	v.MaxLen("reason", payload.Reason, leave.MaxReasonLength)
	v.MaxLen("notes", payload.Notes, leave.MaxReasonLength)
	if v.Reject(w, requestID) {
		return
	}

	decided, err := h.Service.ApproveLeave(r.Context(), leave.ApproveLeaveCommand{
		TenantID:        user.TenantID,
		LeaveID:         current.ID,
		ApproverID:      user.EmployeeID,
		IsApproved:      approve,
		Notes:           payload.Notes,
		RejectionReason: payload.Reason,
	})
	command, action := "approve", audit.ActionLeaveApprove
	if !approve {
		command, action = "reject", audit.ActionLeaveReject
	}
	h.count(command, err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.record(r, user, action, audit.EntityLeaveRequest, strconv.FormatInt(decided.ID, 10), current, decided)
	api.Success(w, decided, requestID)
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	current, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}
	var payload decisionPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	cancelled, err := h.Service.CancelLeave(r.Context(), leave.CancelLeaveCommand{
		TenantID: user.TenantID,
		LeaveID:  current.ID,
		Reason:   payload.Reason,
	})
	h.count("cancel", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.record(r, user, audit.ActionLeaveCancel, audit.EntityLeaveRequest, strconv.FormatInt(cancelled.ID, 10), current, cancelled)
	api.Success(w, cancelled, requestID)
}
