package notifications

import (
	"context"
	"errors"
	"time"

	"hrleave/internal/platform/querier"
)

// ErrNotFound is returned when a notification does not exist for the user or
// has already been read.
var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Inbox selects one user's notifications.
type Inbox struct {
	TenantID   string
	UserID     string
	UnreadOnly bool
}

func (in Inbox) where() string {
	if in.UnreadOnly {
		return " WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL"
	}
	return " WHERE tenant_id = $1 AND user_id = $2"
}

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	Insert(ctx context.Context, tenantID, userID, ntype, title, body string) error
	List(ctx context.Context, inbox Inbox, limit, offset int) ([]Notification, error)
	Count(ctx context.Context, inbox Inbox) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID string) error
	MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error)
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, tenantID, userID, ntype, title, body string) error {
	_, err := s.DB.Exec(ctx,
		"INSERT INTO notifications (tenant_id, user_id, type, title, body) VALUES ($1,$2,$3,$4,$5)",
		tenantID, userID, ntype, title, body)
	return err
}

func (s *Store) List(ctx context.Context, inbox Inbox, limit, offset int) ([]Notification, error) {
	rows, err := s.DB.Query(ctx,
		"SELECT id, type, title, body, read_at, created_at FROM notifications"+inbox.where()+
			" ORDER BY created_at DESC, id LIMIT $3 OFFSET $4",
		inbox.TenantID, inbox.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, inbox Inbox) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM notifications"+inbox.where(), inbox.TenantID, inbox.UserID).Scan(&total)
	return total, err
}

func (s *Store) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	tag, err := s.DB.Exec(ctx,
		"UPDATE notifications SET read_at = now() WHERE tenant_id = $1 AND user_id = $2 AND id = $3 AND read_at IS NULL",
		tenantID, userID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	tag, err := s.DB.Exec(ctx,
		"UPDATE notifications SET read_at = now() WHERE tenant_id = $1 AND user_id = $2 AND read_at IS NULL",
		tenantID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
