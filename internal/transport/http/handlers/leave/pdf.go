package leavehandler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"hrleave/internal/domain/leave"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
)

func (h *Handler) handleRequestForm(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	current, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := renderLeaveForm(&buf, current); err != nil {
		slog.Error("leave form render failed", "leaveId", current.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to render leave form", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-%d.pdf", current.ID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("write leave form failed", "err", err)
	}
}

// renderLeaveForm writes a one-page summary of the request.
func renderLeaveForm(out *bytes.Buffer, l leave.LeaveDto) error {
	const day = "2006-01-02"

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Request")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)

	line := func(label, value string) {
		if value == "" {
			return
		}
		pdf.Cell(0, 8, fmt.Sprintf("%s: %s", label, value))
		pdf.Ln(7)
	}
	line("Request", "#"+strconv.FormatInt(l.ID, 10))
	line("Employee", fmt.Sprintf("%s (%s)", l.EmployeeName, l.EmployeeCode))
	line("Leave type", l.LeaveTypeName)
	line("Period", fmt.Sprintf("%s to %s", l.StartDate.Format(day), l.EndDate.Format(day)))
	days := l.TotalDays.String()
	if l.IsHalfDay {
		if l.IsHalfDayMorning {
			days += " (morning)"
		} else {
			days += " (afternoon)"
		}
	}
	line("Days", days)
	line("Status", string(l.Status))
	line("Requested", l.RequestDate.Format(day))
	pdf.Ln(3)
	line("Reason", l.Reason)
	line("Contact during leave", l.ContactDuringLeave)
	line("Substitute", l.SubstituteEmployeeName)
	line("Handover notes", l.HandoverNotes)

	switch l.Status {
	case leave.StatusApproved, leave.StatusTaken:
		pdf.Ln(3)
		line("Approved by", l.ApprovedByName)
		if l.ApprovedDate != nil {
			line("Approved on", l.ApprovedDate.Format(day))
		}
		line("Notes", l.ApprovalNotes)
	case leave.StatusRejected:
		pdf.Ln(3)
		line("Rejection reason", l.RejectionReason)
	case leave.StatusCancelled:
		pdf.Ln(3)
		line("Cancellation reason", l.CancellationReason)
	}

	return pdf.Output(out)
}
