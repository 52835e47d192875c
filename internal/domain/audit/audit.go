// Package audit keeps an append-only trail of leave and balance changes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hrleave/internal/platform/querier"
)

// Entity types and actions recorded by the leave handlers.
const (
	EntityLeaveRequest = "leave_request"
	EntityLeaveBalance = "leave_balance"

	ActionLeaveCreate      = "leave.create"
	ActionLeaveUpdate      = "leave.update"
	ActionLeaveApprove     = "leave.approve"
	ActionLeaveReject      = "leave.reject"
	ActionLeaveCancel      = "leave.cancel"
	ActionLeaveAttach      = "leave.attach"
	ActionBalanceAdjust    = "leave.balance.adjust"
	ActionBalanceProvision = "leave.balance.provision"
)

// Entry is one change to record. Before and After are marshalled to JSON
// when set.
type Entry struct {
	TenantID   string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
	From       *time.Time
	To         *time.Time
}

const eventColumns = "id, actor_user_id, action, entity_type, entity_id, request_id, ip, created_at"

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	before, err := marshalState(e.Before)
	if err != nil {
		return fmt.Errorf("audit before state: %w", err)
	}
	after, err := marshalState(e.After)
	if err != nil {
		return fmt.Errorf("audit after state: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (tenant_id, actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, e.TenantID, e.ActorID, e.Action, e.EntityType, e.EntityID, before, after, e.RequestID, e.IP)
	return err
}

func marshalState(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (s *Service) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	query, args := buildQuery("SELECT COUNT(1)", tenantID, filter)
	var total int
	err := s.DB.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

// List returns one page of events, newest first. Before and after states are
// only loaded when includeDetails is set.
func (s *Service) List(ctx context.Context, tenantID string, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	cols := eventColumns
	if includeDetails {
		cols += ", before_json, after_json"
	}
	query, args := buildQuery("SELECT "+cols, tenantID, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	return s.scan(ctx, includeDetails, query, append(args, limit, offset)...)
}

// Export returns every event matching filter, oldest first, for CSV download.
func (s *Service) Export(ctx context.Context, tenantID string, filter Filter) ([]Event, error) {
	query, args := buildQuery("SELECT "+eventColumns, tenantID, filter)
	return s.scan(ctx, false, query+" ORDER BY created_at", args...)
}

func (s *Service) scan(ctx context.Context, details bool, query string, args ...any) ([]Event, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if details {
			dest = append(dest, &evt.Before, &evt.After)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func buildQuery(prefix, tenantID string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE tenant_id = $1"
	args := []any{tenantID}
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}
	if filter.ActorUser != "" {
		add("actor_user_id = $%d", filter.ActorUser)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}
	return query, args
}
