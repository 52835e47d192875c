package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"hrleave/internal/domain/leave"
)

func (c *cli) balanceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "balance", Short: "Work with leave balances"}
	cmd.AddCommand(c.balanceListCmd(), c.balanceProvisionCmd(), c.balanceAdjustCmd())
	return cmd
}

func (c *cli) balanceListCmd() *cobra.Command {
	var employeeID int64
	var year int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an employee's balances for a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				items, err := s.svc.ListBalances(ctx, s.tenantID, employeeID, year)
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return c.printJSON(items)
				}
				c.printBalances(items)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&employeeID, "employee", 0, "employee id")
	cmd.Flags().IntVar(&year, "year", 0, "balance year (defaults to the current year)")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

func (c *cli) balanceProvisionCmd() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create missing balances for every active employee and leave type",
		RunE: func(cmd *cobra.Command, args []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				summary, err := s.svc.ProvisionBalances(ctx, s.tenantID, year)
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return c.printJSON(summary)
				}
				fmt.Fprintf(c.out, "year %d: %d employee(s) scanned, %d balance(s) created, %d skipped\n",
					summary.Year, summary.EmployeesScanned, summary.BalancesCreated, summary.BalancesSkipped)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year to provision (defaults to the current year)")
	return cmd
}

func (c *cli) balanceAdjustCmd() *cobra.Command {
	var employeeID, leaveTypeID int64
	var year int
	var amount, reason string
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Add a signed manual adjustment to a balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("--amount must be a decimal number")
			}
			if year == 0 {
				year = time.Now().Year()
			}
			return c.withSession(cmd.Context(), func(ctx context.Context, s session) error {
				dto, err := s.svc.AdjustBalance(ctx, leave.AdjustBalanceCommand{
					TenantID:    s.tenantID,
					EmployeeID:  employeeID,
					LeaveTypeID: leaveTypeID,
					Year:        year,
					Amount:      delta,
					Reason:      reason,
				})
				if err != nil {
					return err
				}
				if c.v.GetBool("json") {
					return c.printJSON(dto)
				}
				c.printBalances([]leave.BalanceDto{dto})
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&employeeID, "employee", 0, "employee id")
	f.Int64Var(&leaveTypeID, "type", 0, "leave type id")
	f.IntVar(&year, "year", 0, "balance year (defaults to the current year)")
	f.StringVar(&amount, "amount", "", "signed number of days, e.g. 1.5 or -2")
	f.StringVar(&reason, "reason", "", "reason for the adjustment")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
