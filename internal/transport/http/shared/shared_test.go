package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2025-06-02")
	if err != nil || !got.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v %v", got, err)
	}
	got, err = ParseDate("2025-06-02T23:30:00Z")
	if err != nil || !got.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected time to be truncated, got %v %v", got, err)
	}
	if _, err := ParseDate("02/06/2025"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if got, err := ParseDate(""); err != nil || !got.IsZero() {
		t.Fatalf("expected zero date, got %v %v", got, err)
	}
}

func TestParseID(t *testing.T) {
	if id, ok := ParseID("42"); !ok || id != 42 {
		t.Fatalf("unexpected %d %v", id, ok)
	}
	for _, raw := range []string{"", "0", "-3", "abc"} {
		if _, ok := ParseID(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=20", nil)
	page := ParsePagination(req, 50, 200)
	if page.Limit != 200 || page.Offset != 20 {
		t.Fatalf("unexpected page %+v", page)
	}
	page = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=-1", nil), 50, 200)
	if page.Limit != 50 || page.Offset != 0 {
		t.Fatalf("unexpected default page %+v", page)
	}
	page = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=0&offset=x", nil), 25, 0)
	if page.Limit != 25 || page.Offset != 0 {
		t.Fatalf("unexpected fallback page %+v", page)
	}
}

func TestSetTotalCount(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTotalCount(rec, 17)
	if got := rec.Header().Get("X-Total-Count"); got != "17" {
		t.Fatalf("X-Total-Count = %q", got)
	}
}

func TestValidatorRejectSortsIssues(t *testing.T) {
	v := NewValidator()
	v.Required("reason", " ", "is required")
	v.PositiveID("leaveTypeId", 0)
	start := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	v.DateOrder("startDate", start, "endDate", end)

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "validation_error" || body.RequestID != "req-1" {
		t.Fatalf("unexpected envelope %+v", body)
	}
	fields := body.Error.Details.Fields
	if len(fields) != 4 || fields[0].Field != "endDate" || fields[3].Field != "startDate" {
		t.Fatalf("unexpected field order %+v", fields)
	}
}

func TestValidatorQueryHelpers(t *testing.T) {
	v := NewValidator()
	if id, ok := v.ID("employeeId", ""); ok || id != 0 {
		t.Fatalf("empty id = %d, %v", id, ok)
	}
	if id, ok := v.ID("employeeId", "7"); !ok || id != 7 {
		t.Fatalf("id = %d, %v", id, ok)
	}
	if got := v.Year("year", "", 2026); got != 2026 {
		t.Fatalf("fallback year = %d", got)
	}
	if got := v.Year("year", "2027", 2026); got != 2027 {
		t.Fatalf("year = %d", got)
	}
	if v.HasIssues() {
		t.Fatalf("unexpected issues %+v", v.Issues())
	}

	v.ID("employeeId", "abc")
	v.Year("year", "next", 2026)
	v.MaxLen("reason", "too long", 3)
	issues := v.Issues()
	if len(issues) != 3 || issues[0].Field != "employeeId" || issues[1].Field != "reason" || issues[2].Field != "year" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	if got := ClientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded client, got %q", got)
	}
}
