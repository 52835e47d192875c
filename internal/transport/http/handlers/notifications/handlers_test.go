package notificationshandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/transport/http/middleware"
)

type memoryInbox struct {
	items map[string][]notifications.Notification
}

func (m *memoryInbox) Insert(_ context.Context, _, userID, ntype, title, body string) error {
	id := "00000000-0000-4000-8000-00000000000" + string(rune('0'+len(m.items[userID])))
	m.items[userID] = append(m.items[userID], notifications.Notification{ID: id, Type: ntype, Title: title, Body: body, CreatedAt: time.Now()})
	return nil
}

func (m *memoryInbox) List(_ context.Context, inbox notifications.Inbox, _, _ int) ([]notifications.Notification, error) {
	out := []notifications.Notification{}
	for _, n := range m.items[inbox.UserID] {
		if inbox.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memoryInbox) Count(ctx context.Context, inbox notifications.Inbox) (int, error) {
	items, err := m.List(ctx, inbox, 0, 0)
	return len(items), err
}

func (m *memoryInbox) MarkRead(_ context.Context, _, userID, id string) error {
	for i, n := range m.items[userID] {
		if n.ID == id && n.ReadAt == nil {
			now := time.Now()
			m.items[userID][i].ReadAt = &now
			return nil
		}
	}
	return notifications.ErrNotFound
}

func (m *memoryInbox) MarkAllRead(_ context.Context, _, userID string) (int64, error) {
	var n int64
	for i := range m.items[userID] {
		if m.items[userID][i].ReadAt == nil {
			now := time.Now()
			m.items[userID][i].ReadAt = &now
			n++
		}
	}
	return n, nil
}

func setup(t *testing.T) (http.Handler, *memoryInbox) {
	t.Helper()
	repo := &memoryInbox{items: map[string][]notifications.Notification{}}
	for _, title := range []string{"first", "second"} {
		if err := repo.Insert(context.Background(), "t1", "u1", notifications.TypeLeaveApproved, title, "body"); err != nil {
			t.Fatal(err)
		}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	NewHandler(notifications.New(repo)).RegisterRoutes(r)
	return r, repo
}

func call(router http.Handler, method, path string) *httptest.ResponseRecorder {
	ctx := middleware.WithUser(context.Background(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleName: auth.RoleEmployee})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil).WithContext(ctx))
	return rec
}

func TestInboxReadFlow(t *testing.T) {
	router, repo := setup(t)
	first := repo.items["u1"][0].ID

	rec := call(router, http.MethodGet, "/notifications/")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Total-Count") != "2" || rec.Header().Get("X-Unread-Count") != "2" {
		t.Fatalf("unexpected list response %d %v", rec.Code, rec.Header())
	}

	if rec := call(router, http.MethodPost, "/notifications/"+first+"/read"); rec.Code != http.StatusOK {
		t.Fatalf("mark read: %d %s", rec.Code, rec.Body.String())
	}
	if rec := call(router, http.MethodPost, "/notifications/"+first+"/read"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second mark, got %d", rec.Code)
	}

	rec = call(router, http.MethodGet, "/notifications/?unread=true")
	var body struct {
		Data []notifications.Notification `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Title != "second" || rec.Header().Get("X-Unread-Count") != "1" {
		t.Fatalf("unexpected unread listing %+v %v", body.Data, rec.Header())
	}

	rec = call(router, http.MethodPost, "/notifications/read-all")
	if rec.Code != http.StatusOK {
		t.Fatalf("read all: %d", rec.Code)
	}
	var marked struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &marked); err != nil || marked.Data["marked"] != 1 {
		t.Fatalf("unexpected read-all body %s", rec.Body.String())
	}
}

func TestInboxRejectsBadInput(t *testing.T) {
	router, _ := setup(t)
	if rec := call(router, http.MethodGet, "/notifications/?unread=maybe"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad unread flag, got %d", rec.Code)
	}
	if rec := call(router, http.MethodPost, "/notifications/not-a-uuid/read"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rec.Code)
	}
}
