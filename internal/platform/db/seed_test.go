package db

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/leave/leavetest"
)

const seedYAML = `
tenant: acme
employees:
  - code: M1
    firstName: Mira
    lastName: Holt
    userId: u-manager
  - code: E1
    firstName: Alice
    lastName: Ng
    userId: u-alice
    managerUserId: u-manager
leaveTypes:
  - code: AL
    name: Annual
    color: "#2e7d32"
    allowHalfDay: true
    defaultDays: "25"
    carryForward: true
    maxCarryForwardDays: "5"
  - code: UL
    name: Unpaid
    unpaid: true
    allowNegativeBalance: true
holidays:
  - name: New Year
    date: "2026-01-01"
    recurring: true
balances:
  - employee: E1
    leaveType: AL
    year: 2026
  - employee: E1
    leaveType: UL
    year: 2026
    entitled: "0"
`

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	file, err := LoadSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	store := leavetest.NewStore()
	first, err := Seed(ctx, store, file)
	require.NoError(t, err)
	assert.Equal(t, SeedSummary{TenantID: first.TenantID, Employees: 2, LeaveTypes: 2, Holidays: 1, Balances: 2}, first)

	second, err := Seed(ctx, store, file)
	require.NoError(t, err)
	assert.Equal(t, first.TenantID, second.TenantID)
	assert.Equal(t, 0, second.Holidays)

	require.NoError(t, store.Do(ctx, first.TenantID, func(repos leave.Repositories) error {
		employees, err := repos.Employees.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, employees, 2)

		types, err := repos.LeaveTypes.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, types, 2)
		var annual leave.LeaveType
		for _, lt := range types {
			if lt.Code == "AL" {
				annual = lt
			}
		}
		assert.True(t, annual.IsPaid)
		require.NotNil(t, annual.MaxCarryForwardDays)
		assert.True(t, annual.MaxCarryForwardDays.Equal(decimal.NewFromInt(5)))

		var alice leave.Employee
		for _, e := range employees {
			if e.Code == "E1" {
				alice = e
			}
		}
		balances, err := repos.Balances.ListByEmployee(ctx, alice.ID, 2026)
		require.NoError(t, err)
		require.Len(t, balances, 2)
		return nil
	}))
}

func TestLoadSeedRejectsUnknownFields(t *testing.T) {
	_, err := LoadSeed(strings.NewReader("tenant: acme\nemployes: []\n"))
	require.Error(t, err)
}

func TestLoadSeedRequiresTenant(t *testing.T) {
	_, err := LoadSeed(strings.NewReader("employees: []\n"))
	require.Error(t, err)
}

func TestSeedRejectsUnknownBalanceReferences(t *testing.T) {
	file := SeedFile{
		Tenant:   "acme",
		Balances: []SeedBalance{{Employee: "E9", LeaveType: "AL", Year: 2026}},
	}
	store := leavetest.NewStore()
	summary, err := Seed(context.Background(), store, file)
	require.Error(t, err)
	assert.Equal(t, 0, store.LeaveCount(summary.TenantID))
	assert.Equal(t, 0, store.Commits)
}
