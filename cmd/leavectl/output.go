package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"hrleave/internal/domain/leave"
)

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printLeaves(items []leave.LeaveDto) {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.AppendHeader(table.Row{"ID", "Employee", "Type", "Start", "End", "Days", "Status"})
	for _, l := range items {
		tw.AppendRow(table.Row{l.ID, l.EmployeeName, l.LeaveTypeName,
			l.StartDate.Format("2006-01-02"), l.EndDate.Format("2006-01-02"), l.TotalDays.String(), l.Status})
	}
	tw.Render()
}

func (c *cli) printLeave(l leave.LeaveDto) error {
	if c.v.GetBool("json") {
		return c.printJSON(l)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.AppendRow(table.Row{"ID", l.ID})
	tw.AppendRow(table.Row{"Employee", fmt.Sprintf("%s (%d)", l.EmployeeName, l.EmployeeID)})
	tw.AppendRow(table.Row{"Type", l.LeaveTypeName})
	tw.AppendRow(table.Row{"Dates", l.StartDate.Format("2006-01-02") + " .. " + l.EndDate.Format("2006-01-02")})
	tw.AppendRow(table.Row{"Days", l.TotalDays.String()})
	tw.AppendRow(table.Row{"Status", l.Status})
	if l.Reason != "" {
		tw.AppendRow(table.Row{"Reason", l.Reason})
	}
	if l.ApprovedByName != "" {
		tw.AppendRow(table.Row{"Decided by", l.ApprovedByName})
	}
	if l.RejectionReason != "" {
		tw.AppendRow(table.Row{"Rejection", l.RejectionReason})
	}
	if l.CancellationReason != "" {
		tw.AppendRow(table.Row{"Cancellation", l.CancellationReason})
	}
	if l.AttachmentURL != "" {
		tw.AppendRow(table.Row{"Attachment", l.AttachmentURL})
	}
	tw.Render()
	return nil
}

func (c *cli) printBalances(items []leave.BalanceDto) {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.AppendHeader(table.Row{"Type", "Year", "Entitled", "Carried", "Adjusted", "Used", "Pending", "Available"})
	for _, b := range items {
		tw.AppendRow(table.Row{b.LeaveTypeName, b.Year, b.Entitled.String(), b.CarriedForward.String(),
			b.Adjustment.String(), b.Used.String(), b.Pending.String(), b.Available.String()})
	}
	tw.Render()
}
