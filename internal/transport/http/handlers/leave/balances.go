package leavehandler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type adjustPayload struct {
	EmployeeID  int64           `json:"employeeId"`
	LeaveTypeID int64           `json:"leaveTypeId"`
	Year        int             `json:"year"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
}

type provisionPayload struct {
	Year int `json:"year"`
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	v := shared.NewValidator()
	employeeID := user.EmployeeID
	if id, ok := v.ID("employeeId", r.URL.Query().Get("employeeId")); ok {
		employeeID = id
	}
	year := v.Year("year", r.URL.Query().Get("year"), h.now().Year())
	if v.Reject(w, requestID) {
		return
	}
	if employeeID == 0 {
		api.Fail(w, http.StatusForbidden, "forbidden", "no employee record linked to this user", requestID)
		return
	}
	if !h.canAccess(r.Context(), user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
		return
	}

	balances, err := h.Service.ListBalances(r.Context(), user.TenantID, employeeID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, balances, requestID)
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload adjustPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.Year == 0 {
		payload.Year = h.now().Year()
	}
	v := shared.NewValidator()
	v.PositiveID("employeeId", payload.EmployeeID)
	v.PositiveID("leaveTypeId", payload.LeaveTypeID)
	v.Required("reason", payload.Reason, "is required")
	if payload.Amount.IsZero() {
		v.Add("amount", "must not be zero")
	}
	if v.Reject(w, requestID) {
		return
	}

	balance, err := h.Service.AdjustBalance(r.Context(), leave.AdjustBalanceCommand{
		TenantID:    user.TenantID,
		EmployeeID:  payload.EmployeeID,
		LeaveTypeID: payload.LeaveTypeID,
		Year:        payload.Year,
		Amount:      payload.Amount,
		Reason:      payload.Reason,
	})
	h.count("adjust_balance", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entityID := fmt.Sprintf("%d:%d:%d", balance.EmployeeID, balance.LeaveTypeID, balance.Year)
	h.record(r, user, audit.ActionBalanceAdjust, audit.EntityLeaveBalance, entityID, nil, balance)
	api.Success(w, balance, requestID)
}

func (h *Handler) handleProvisionBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := middleware.GetRequestID(r.Context())

	var payload provisionPayload
	if err := decodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.Year == 0 {
		payload.Year = h.now().Year()
	}

	summary, err := h.Service.ProvisionBalances(r.Context(), user.TenantID, payload.Year)
	h.count("provision_balances", err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.record(r, user, audit.ActionBalanceProvision, audit.EntityLeaveBalance, strconv.Itoa(payload.Year), nil, summary)
	api.Success(w, summary, requestID)
}
