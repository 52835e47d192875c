package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

// EventReader is the read side of the audit trail. *audit.Service implements it.
type EventReader interface {
	List(ctx context.Context, tenantID string, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
	Count(ctx context.Context, tenantID string, filter audit.Filter) (int, error)
	Export(ctx context.Context, tenantID string, filter audit.Filter) ([]audit.Event, error)
}

type Handler struct {
	Service EventReader
	Perms   middleware.PermissionStore
}

func NewHandler(service EventReader, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events/export", h.handleExportEvents)
	})
}

// parseFilter reads the shared list and export filters. from and to are
// inclusive calendar days.
func parseFilter(r *http.Request) (audit.Filter, []shared.ValidationIssue) {
	query := r.URL.Query()
	filter := audit.Filter{
		Action:     query.Get("action"),
		EntityType: query.Get("entityType"),
		EntityID:   query.Get("entityId"),
		ActorUser:  query.Get("actorUserId"),
	}
	v := shared.NewValidator()
	var from, to time.Time
	if raw := query.Get("from"); raw != "" {
		if day, ok := v.Date("from", raw); ok {
			from = day
			filter.From = &from
		}
	}
	if raw := query.Get("to"); raw != "" {
		if day, ok := v.Date("to", raw); ok {
			to = day
			end := day.AddDate(0, 0, 1)
			filter.To = &end
		}
	}
	v.DateOrder("from", from, "to", to)
	return filter, v.Issues()
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	filter, issues := parseFilter(r)
	if len(issues) > 0 {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), issues)
		return
	}
	page := shared.ParsePagination(r, 100, 500)
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	events, err := h.Service.List(r.Context(), user.TenantID, filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "tenantId", user.TenantID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	total, err := h.Service.Count(r.Context(), user.TenantID, filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
		total = len(events)
	}

	shared.SetTotalCount(w, total)
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter, issues := parseFilter(r)
	if len(issues) > 0 {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), issues)
		return
	}

	events, err := h.Service.Export(r.Context(), user.TenantID, filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"id", "created_at", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip"})
	for _, evt := range events {
		_ = writer.Write([]string{evt.ID, evt.CreatedAt.UTC().Format(time.RFC3339), evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export failed mid-stream", "tenantId", user.TenantID, "err", err)
	}
}
