package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = `
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
    allowHalfDay: true
    defaultDays: "10"
balances:
  - employee: E1
    leaveType: AL
    year: 2026
`

type harness struct {
	t      *testing.T
	dbPath string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(testSeed), 0o600))
	h := harness{t: t, dbPath: filepath.Join(dir, "leave.db")}
	out := h.run("seed", "--file", seedPath)
	assert.Contains(t, out, "2 employees")
	return h
}

func (h harness) run(args ...string) string {
	h.t.Helper()
	out, err := h.exec(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h harness) exec(args ...string) (string, error) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--db", h.dbPath, "--tenant", "acme"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestLeaveLifecycleThroughCLI(t *testing.T) {
	h := newHarness(t)

	var created map[string]any
	out := h.run("leave", "create", "--json", "--employee", "2", "--type", "1",
		"--start", "2026-03-02", "--end", "2026-03-04", "--reason", "trip")
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "3", created["totalDays"])

	out = h.run("leave", "approve", "1", "--approver", "1", "--notes", "enjoy")
	assert.Contains(t, out, "approved")
	assert.Contains(t, out, "Mira Holt")

	out = h.run("balance", "list", "--employee", "2", "--year", "2026")
	assert.Contains(t, out, "Annual")
	assert.Contains(t, out, "7")

	out = h.run("leave", "list", "--status", "approved")
	assert.Contains(t, out, "Alice Ng")
	assert.Contains(t, out, "1 of 1 request(s)")

	out = h.run("leave", "sweep")
	assert.Contains(t, out, "marked 1 leave request(s) as taken")

	out = h.run("leave", "show", "1")
	assert.Contains(t, out, "taken")
}

func TestOverlapIsReported(t *testing.T) {
	h := newHarness(t)
	h.run("leave", "create", "--employee", "2", "--type", "1", "--start", "2026-05-04", "--end", "2026-05-06", "--reason", "a")

	_, err := h.exec("leave", "create", "--employee", "2", "--type", "1", "--start", "2026-05-06", "--reason", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has leave booked")
}

func TestRejectNeedsReason(t *testing.T) {
	h := newHarness(t)
	h.run("leave", "create", "--employee", "2", "--type", "1", "--start", "2026-06-01", "--reason", "a")

	_, err := h.exec("leave", "reject", "1", "--approver", "1")
	require.Error(t, err)

	out := h.run("leave", "reject", "1", "--approver", "1", "--reason", "busy week")
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "busy week")
}

func TestBalanceAdjustAndProvision(t *testing.T) {
	h := newHarness(t)

	var adjusted map[string]any
	out := h.run("balance", "adjust", "--json", "--employee", "2", "--type", "1", "--year", "2026",
		"--amount", "1.5", "--reason", "overtime")
	require.NoError(t, json.Unmarshal([]byte(out), &adjusted))
	assert.Equal(t, "11.5", adjusted["available"])

	_, err := h.exec("balance", "adjust", "--employee", "2", "--type", "1", "--amount", "lots")
	require.Error(t, err)

	out = h.run("balance", "provision", "--year", "2027")
	assert.Contains(t, out, "year 2027: 2 employee(s) scanned, 2 balance(s) created")

	out = h.run("balance", "provision", "--year", "2027")
	assert.True(t, strings.Contains(out, "0 balance(s) created"), out)
}

func TestUnknownBackend(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec("--backend", "oracle", "leave", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}
