package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hrleave/internal/domain/leave"
)

type created struct {
	tenantID, userID, ntype, title, body string
}

type fakeStore struct {
	created []created
	failFor string
	read    map[int]bool
}

func (f *fakeStore) Insert(_ context.Context, tenantID, userID, ntype, title, body string) error {
	if userID == f.failFor {
		return errors.New("insert failed")
	}
	f.created = append(f.created, created{tenantID, userID, ntype, title, body})
	return nil
}

func (f *fakeStore) List(_ context.Context, inbox Inbox, _, _ int) ([]Notification, error) {
	var out []Notification
	for i, c := range f.created {
		if c.userID != inbox.UserID || (inbox.UnreadOnly && f.read[i]) {
			continue
		}
		out = append(out, Notification{Type: c.ntype, Title: c.title})
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context, inbox Inbox) (int, error) {
	items, _ := f.List(ctx, inbox, 0, 0)
	return len(items), nil
}

func (f *fakeStore) MarkRead(context.Context, string, string, string) error {
	return ErrNotFound
}

func (f *fakeStore) MarkAllRead(_ context.Context, _, userID string) (int64, error) {
	if f.read == nil {
		f.read = map[int]bool{}
	}
	var n int64
	for i, c := range f.created {
		if c.userID == userID && !f.read[i] {
			f.read[i] = true
			n++
		}
	}
	return n, nil
}

func sampleLeave() leave.LeaveDto {
	return leave.LeaveDto{
		ID:            4,
		EmployeeName:  "Ana Silva",
		LeaveTypeName: "Annual",
		StartDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		TotalDays:     decimal.NewFromInt(3),
	}
}

func TestNotifySubmittedReachesEveryRecipient(t *testing.T) {
	store := &fakeStore{}
	svc := New(store)

	err := svc.Notify(context.Background(), leave.Event{
		Type:       leave.EventSubmitted,
		TenantID:   "t1",
		Leave:      sampleLeave(),
		Recipients: []string{"mgr-1", "hr-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(store.created))
	}
	first := store.created[0]
	if first.ntype != TypeLeaveSubmitted || first.tenantID != "t1" || first.userID != "mgr-1" {
		t.Fatalf("unexpected notification %+v", first)
	}
	if !strings.Contains(first.body, "Ana Silva requested Annual leave from 2025-06-02 to 2025-06-04 (3 days)") {
		t.Fatalf("unexpected body %q", first.body)
	}
}

func TestNotifyBalanceLowIncludesAvailable(t *testing.T) {
	store := &fakeStore{}
	svc := New(store)
	available := decimal.RequireFromString("1.5")

	err := svc.Notify(context.Background(), leave.Event{
		Type:       leave.EventBalanceLow,
		TenantID:   "t1",
		Leave:      sampleLeave(),
		Recipients: []string{"emp-1"},
		Available:  &available,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.created[0].body; got != "Only 1.5 days of Annual leave remain." {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestNotifyJoinsRecipientErrors(t *testing.T) {
	store := &fakeStore{failFor: "mgr-1"}
	svc := New(store)

	err := svc.Notify(context.Background(), leave.Event{
		Type:       leave.EventApproved,
		TenantID:   "t1",
		Leave:      sampleLeave(),
		Recipients: []string{"mgr-1", "emp-1"},
	})
	if err == nil || !strings.Contains(err.Error(), "notify mgr-1") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(store.created) != 1 || store.created[0].userID != "emp-1" {
		t.Fatalf("expected delivery to emp-1 to continue, got %+v", store.created)
	}
}

func TestNotifyRejectsUnknownEvent(t *testing.T) {
	svc := New(&fakeStore{})
	if err := svc.Notify(context.Background(), leave.Event{Type: "unknown", Recipients: []string{"u"}}); err == nil {
		t.Fatal("expected error for unknown event")
	}
}

func TestListAndUnreadFollowMarkAllRead(t *testing.T) {
	store := &fakeStore{}
	svc := New(store)
	ctx := context.Background()

	err := svc.Notify(ctx, leave.Event{
		Type: leave.EventApproved, TenantID: "t1", Recipients: []string{"emp-1"}, Leave: sampleLeave(),
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	items, total, err := svc.List(ctx, Inbox{TenantID: "t1", UserID: "emp-1"}, 10, 0)
	if err != nil || total != 1 || len(items) != 1 || items[0].Type != TypeLeaveApproved {
		t.Fatalf("list = %+v total=%d err=%v", items, total, err)
	}
	if n, _ := svc.Unread(ctx, "t1", "emp-1"); n != 1 {
		t.Fatalf("unread = %d, want 1", n)
	}
	if n, err := svc.MarkAllRead(ctx, "t1", "emp-1"); err != nil || n != 1 {
		t.Fatalf("mark all = %d, %v", n, err)
	}
	if n, _ := svc.Unread(ctx, "t1", "emp-1"); n != 0 {
		t.Fatalf("unread after mark all = %d", n)
	}
	if err := svc.MarkRead(ctx, "t1", "emp-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("mark read err = %v", err)
	}
}
