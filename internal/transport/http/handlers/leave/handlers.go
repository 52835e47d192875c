package leavehandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/storage"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

// Auditor records who changed what. The audit service implements it.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
}

// CommandRecorder counts command outcomes.
type CommandRecorder interface {
	RecordCommand(name string, err error)
}

type Handler struct {
	Service            *leave.Service
	Perms              middleware.PermissionStore
	Audit              Auditor
	Files              storage.Store
	Metrics            CommandRecorder
	Idempotency        middleware.IdempotencyStore
	MaxAttachmentBytes int64
	Now                func() time.Time
}

const defaultMaxAttachmentBytes = 5 << 20

func NewHandler(service *leave.Service, perms middleware.PermissionStore, auditor Auditor, files storage.Store) *Handler {
	return &Handler{
		Service:            service,
		Perms:              perms,
		Audit:              auditor,
		Files:              files,
		MaxAttachmentBytes: defaultMaxAttachmentBytes,
		Now:                time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms), middleware.Idempotent(h.Idempotency)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Put("/requests/{requestID}", h.handleUpdateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}/form.pdf", h.handleRequestForm)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/attachment", h.handleUploadAttachment)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermBalanceManage, h.Perms)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequirePermission(auth.PermBalanceManage, h.Perms)).Post("/balances/provision", h.handleProvisionBalances)
	})
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// seesAll reports whether the user may act on other employees' leave.
func (h *Handler) seesAll(ctx context.Context, user auth.UserContext) bool {
	allowed, err := h.Perms.HasPermission(ctx, user.RoleName, auth.PermLeaveReadAll)
	if err != nil {
		slog.Warn("leave read-all permission check failed", "err", err)
		return false
	}
	return allowed
}

// canAccess checks ownership for users limited to their own leave.
func (h *Handler) canAccess(ctx context.Context, user auth.UserContext, employeeID int64) bool {
	if h.seesAll(ctx, user) {
		return true
	}
	return user.EmployeeID != 0 && user.EmployeeID == employeeID
}

// loadAccessible fetches a leave and writes the failure response itself.
func (h *Handler) loadAccessible(w http.ResponseWriter, r *http.Request, user auth.UserContext) (leave.LeaveDto, bool) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := shared.ParseID(chi.URLParam(r, "requestID"))
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", "invalid leave request id", requestID)
		return leave.LeaveDto{}, false
	}
	current, err := h.Service.GetLeave(r.Context(), user.TenantID, id)
	if err != nil {
		writeError(w, r, err)
		return leave.LeaveDto{}, false
	}
	if !h.canAccess(r.Context(), user, current.EmployeeID) {
		// Reported as missing so ids of other employees' leave do not leak.
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
		return leave.LeaveDto{}, false
	}
	return current, true
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(context.WithoutCancel(r.Context()), audit.Entry{
		TenantID:   user.TenantID,
		ActorID:    user.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) count(command string, err error) {
	if h.Metrics != nil {
		h.Metrics.RecordCommand(command, err)
	}
}
