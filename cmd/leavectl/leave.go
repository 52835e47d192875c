package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/jobs"
)

func (c *cli) leaveCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "leave", Short: "Work with leave requests"}
	cmd.AddCommand(c.leaveListCmd(), c.leaveShowCmd(), c.leaveCreateCmd(),
		c.leaveDecideCmd(true), c.leaveDecideCmd(false), c.leaveCancelCmd(), c.leaveSweepCmd())
	return cmd
}

func (c *cli) leaveListCmd() *cobra.Command {
	var employeeID int64
	var status, from, to string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leave requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := leave.ListFilter{Limit: limit, Offset: offset}
			if employeeID > 0 {
				filter.EmployeeID = &employeeID
			}
			if status != "" {
				st, err := leave.ParseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = st
			}
			var err error
			if filter.From, err = optionalDate("from", from); err != nil {
				return err
			}
			if filter.To, err = optionalDate("to", to); err != nil {
				return err
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				res, err := s.svc.ListLeaves(ctx, s.tenantID, filter)
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return c.printJSON(res)
				}
				c.printLeaves(res.Leaves)
				fmt.Fprintf(c.out, "%d of %d request(s)\n", len(res.Leaves), res.Total)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&employeeID, "employee", 0, "filter by employee id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&from, "from", "", "requests ending on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "requests starting on or before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func (c *cli) leaveShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one leave request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				dto, err := s.svc.GetLeave(ctx, s.tenantID, id)
				if err != nil {
					return err
				}
				return c.printLeave(dto)
			})
		},
	}
}

func (c *cli) leaveCreateCmd() *cobra.Command {
	var (
		employeeID, leaveTypeID, substituteID int64
		start, end, reason, contact, handover string
		halfDay, morning                      bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a leave request",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDate("start", start)
			if err != nil {
				return err
			}
			endDate := startDate
			if end != "" {
				if endDate, err = parseDate("end", end); err != nil {
					return err
				}
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				command := leave.CreateLeaveCommand{
					TenantID:           s.tenantID,
					EmployeeID:         employeeID,
					LeaveTypeID:        leaveTypeID,
					StartDate:          startDate,
					EndDate:            endDate,
					IsHalfDay:          halfDay,
					IsHalfDayMorning:   morning,
					Reason:             reason,
					ContactDuringLeave: contact,
					HandoverNotes:      handover,
				}
				if substituteID > 0 {
					command.SubstituteEmployeeID = &substituteID
				}
				dto, err := s.svc.CreateLeave(ctx, command)
				if err != nil {
					return err
				}
				return c.printLeave(dto)
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&employeeID, "employee", 0, "employee id")
	f.Int64Var(&leaveTypeID, "type", 0, "leave type id")
	f.StringVar(&start, "start", "", "first day (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "last day (YYYY-MM-DD, defaults to start)")
	f.BoolVar(&halfDay, "half-day", false, "request half a day")
	f.BoolVar(&morning, "morning", false, "half day in the morning")
	f.StringVar(&reason, "reason", "", "reason")
	f.StringVar(&contact, "contact", "", "contact details during leave")
	f.StringVar(&handover, "handover", "", "handover notes")
	f.Int64Var(&substituteID, "substitute", 0, "substitute employee id")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func (c *cli) leaveDecideCmd(approve bool) *cobra.Command {
	var approverID int64
	var notes, reason string
	use, short := "approve <id>", "Approve a pending leave request"
	if !approve {
		use, short = "reject <id>", "Reject a pending leave request"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !approve && reason == "" {
				return fmt.Errorf("--reason is required when rejecting")
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				dto, err := s.svc.ApproveLeave(ctx, leave.ApproveLeaveCommand{
					TenantID:        s.tenantID,
					LeaveID:         id,
					ApproverID:      approverID,
					IsApproved:      approve,
					Notes:           notes,
					RejectionReason: reason,
				})
				if err != nil {
					return err
				}
				return c.printLeave(dto)
			})
		},
	}
	cmd.Flags().Int64Var(&approverID, "approver", 0, "approving employee id")
	cmd.Flags().StringVar(&notes, "notes", "", "approval notes")
	if !approve {
		cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	}
	_ = cmd.MarkFlagRequired("approver")
	return cmd
}

func (c *cli) leaveCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending or approved leave request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				dto, err := s.svc.CancelLeave(ctx, leave.CancelLeaveCommand{TenantID: s.tenantID, LeaveID: id, Reason: reason})
				if err != nil {
					return err
				}
				return c.printLeave(dto)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func (c *cli) leaveSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark approved leave that has ended as taken",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				out, err := jobs.New(s.svc, s.store, nil).SweepTenant(ctx, s.tenantID)
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return c.printJSON(out)
				}
				if m, ok := out.(map[string]any); ok {
					fmt.Fprintf(c.out, "marked %v leave request(s) as taken\n", m["markedTaken"])
				}
				return nil
			})
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseDate(name, raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD", name)
	}
	return t, nil
}

func optionalDate(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(name, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
