// Package leavetest provides an in-memory leave.UnitOfWork for tests and
// local experiments.
package leavetest

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/leave"
)

type tenantData struct {
	name      string
	leaves    map[int64]leave.Record
	employees map[int64]leave.Employee
	types     map[int64]leave.LeaveType
	balances  map[int64]leave.LeaveBalance
	holidays  map[int64]leave.Holiday
}

func newTenantData(name string) *tenantData {
	return &tenantData{
		name:      name,
		leaves:    map[int64]leave.Record{},
		employees: map[int64]leave.Employee{},
		types:     map[int64]leave.LeaveType{},
		balances:  map[int64]leave.LeaveBalance{},
		holidays:  map[int64]leave.Holiday{},
	}
}

func (d *tenantData) clone() *tenantData {
	return &tenantData{
		name:      d.name,
		leaves:    maps.Clone(d.leaves),
		employees: maps.Clone(d.employees),
		types:     maps.Clone(d.types),
		balances:  maps.Clone(d.balances),
		holidays:  maps.Clone(d.holidays),
	}
}

// Store keeps every tenant in memory. Do works on a copy of the tenant and
// swaps it in only when fn succeeds, so failed commands leave no trace.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*tenantData
	nextID  int64

	// SaveBalanceErr, when set, is returned by every balance Save.
	SaveBalanceErr error
	// BeforeBalanceAdd, when set, may return a balance that lands first, as
	// if written by a concurrent transaction.
	BeforeBalanceAdd func(b leave.LeaveBalance) (leave.LeaveBalance, bool)
	// Commits counts successful units of work.
	Commits int
}

func NewStore() *Store {
	return &Store{tenants: map[string]*tenantData{}}
}

func (s *Store) Do(ctx context.Context, tenantID string, fn func(leave.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tenants[tenantID]
	if !ok {
		current = newTenantData("")
	}
	work := current.clone()
	nextID := s.nextID
	repos := &memRepos{store: s, data: work, tenantID: tenantID}
	if err := fn(repos.repositories()); err != nil {
		s.nextID = nextID
		return err
	}
	s.tenants[tenantID] = work
	s.Commits++
	return nil
}

func (s *Store) EnsureTenant(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.tenants {
		if d.name == name {
			return id, nil
		}
	}
	id := uuid.NewString()
	s.tenants[id] = newTenantData(name)
	return id, nil
}

func (s *Store) ListTenantIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Leave returns the committed state of a leave.
func (s *Store) Leave(tenantID string, id int64) (leave.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.tenants[tenantID]
	if !ok {
		return leave.Record{}, false
	}
	r, ok := d.leaves[id]
	return r, ok
}

// Balance returns the committed balance for key.
func (s *Store) Balance(tenantID string, key leave.BalanceKey) (leave.LeaveBalance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.tenants[tenantID]
	if !ok {
		return leave.LeaveBalance{}, false
	}
	for _, b := range d.balances {
		if b.Key() == key {
			return b, true
		}
	}
	return leave.LeaveBalance{}, false
}

// LeaveCount returns the number of committed leaves for the tenant.
func (s *Store) LeaveCount(tenantID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.tenants[tenantID]; ok {
		return len(d.leaves)
	}
	return 0
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type memRepos struct {
	store    *Store
	data     *tenantData
	tenantID string
}

func (r *memRepos) repositories() leave.Repositories {
	return leave.Repositories{
		Leaves:     memLeaves{r},
		Employees:  memEmployees{r},
		LeaveTypes: memLeaveTypes{r},
		Balances:   memBalances{r},
		Holidays:   memHolidays{r},
	}
}

type memLeaves struct{ *memRepos }

func (m memLeaves) GetWithDetails(_ context.Context, id int64) (*leave.Leave, error) {
	rec, ok := m.data.leaves[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	return leave.Restore(rec), nil
}

func (m memLeaves) Add(_ context.Context, l *leave.Leave) error {
	if err := l.SetTenantID(m.tenantID); err != nil {
		return err
	}
	l.SetID(m.store.id())
	m.data.leaves[l.ID()] = l.Snapshot()
	return nil
}

func (m memLeaves) Update(_ context.Context, l *leave.Leave) error {
	if _, ok := m.data.leaves[l.ID()]; !ok {
		return leave.ErrNotFound
	}
	m.data.leaves[l.ID()] = l.Snapshot()
	return nil
}

func (m memLeaves) HasOverlappingLeave(_ context.Context, employeeID int64, start, end time.Time, excludeID *int64) (bool, error) {
	for _, rec := range m.data.leaves {
		if rec.EmployeeID != employeeID || !rec.Status.Occupies() {
			continue
		}
		if excludeID != nil && rec.ID == *excludeID {
			continue
		}
		if !rec.StartDate.After(leave.DateOnly(end)) && !rec.EndDate.Before(leave.DateOnly(start)) {
			return true, nil
		}
	}
	return false, nil
}

func (m memLeaves) List(_ context.Context, filter leave.ListFilter) ([]*leave.Leave, int, error) {
	var matched []leave.Record
	for _, rec := range m.data.leaves {
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.From != nil && rec.EndDate.Before(leave.DateOnly(*filter.From)) {
			continue
		}
		if filter.To != nil && rec.StartDate.After(leave.DateOnly(*filter.To)) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartDate.Equal(matched[j].StartDate) {
			return matched[i].StartDate.After(matched[j].StartDate)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	out := make([]*leave.Leave, 0, len(matched))
	for _, rec := range matched {
		out = append(out, leave.Restore(rec))
	}
	return out, total, nil
}

func (m memLeaves) ListApprovedEndedBefore(_ context.Context, day time.Time) ([]*leave.Leave, error) {
	var out []*leave.Leave
	for _, rec := range m.data.leaves {
		if rec.Status == leave.StatusApproved && rec.EndDate.Before(leave.DateOnly(day)) {
			out = append(out, leave.Restore(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

type memEmployees struct{ *memRepos }

func (m memEmployees) GetByID(_ context.Context, id int64) (leave.Employee, error) {
	e, ok := m.data.employees[id]
	if !ok {
		return leave.Employee{}, leave.ErrNotFound
	}
	return e, nil
}

func (m memEmployees) ListActive(context.Context) ([]leave.Employee, error) {
	var out []leave.Employee
	for _, e := range m.data.employees {
		if e.IsActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memEmployees) Save(_ context.Context, e *leave.Employee) error {
	for id, existing := range m.data.employees {
		if e.Code != "" && existing.Code == e.Code {
			e.ID = id
		}
	}
	if e.ID == 0 {
		e.ID = m.store.id()
	}
	m.data.employees[e.ID] = *e
	return nil
}

type memLeaveTypes struct{ *memRepos }

func (m memLeaveTypes) GetByID(_ context.Context, id int64) (leave.LeaveType, error) {
	t, ok := m.data.types[id]
	if !ok {
		return leave.LeaveType{}, leave.ErrNotFound
	}
	return t, nil
}

func (m memLeaveTypes) ListActive(context.Context) ([]leave.LeaveType, error) {
	var out []leave.LeaveType
	for _, t := range m.data.types {
		if t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memLeaveTypes) Save(_ context.Context, t *leave.LeaveType) error {
	for id, existing := range m.data.types {
		if t.Code != "" && existing.Code == t.Code {
			t.ID = id
		}
	}
	if t.ID == 0 {
		t.ID = m.store.id()
	}
	m.data.types[t.ID] = *t
	return nil
}

type memBalances struct{ *memRepos }

func (m memBalances) GetByEmployeeLeaveTypeAndYear(_ context.Context, employeeID, leaveTypeID int64, year int) (*leave.LeaveBalance, error) {
	key := leave.BalanceKey{EmployeeID: employeeID, LeaveTypeID: leaveTypeID, Year: year}
	for _, b := range m.data.balances {
		if b.Key() == key {
			out := b
			return &out, nil
		}
	}
	return nil, leave.ErrNotFound
}

func (m memBalances) Add(_ context.Context, b *leave.LeaveBalance) error {
	if hook := m.store.BeforeBalanceAdd; hook != nil {
		if other, ok := hook(*b); ok {
			other.ID = m.store.id()
			m.data.balances[other.ID] = other
		}
	}
	for _, existing := range m.data.balances {
		if existing.Key() == b.Key() {
			return leave.ErrBalanceExists
		}
	}
	b.ID = m.store.id()
	m.data.balances[b.ID] = *b
	return nil
}

func (m memBalances) Save(_ context.Context, b *leave.LeaveBalance) error {
	if m.store.SaveBalanceErr != nil {
		return m.store.SaveBalanceErr
	}
	if _, ok := m.data.balances[b.ID]; !ok {
		return leave.ErrNotFound
	}
	m.data.balances[b.ID] = *b
	return nil
}

func (m memBalances) ListByEmployee(_ context.Context, employeeID int64, year int) ([]*leave.LeaveBalance, error) {
	var out []*leave.LeaveBalance
	for _, b := range m.data.balances {
		if b.EmployeeID == employeeID && b.Year == year {
			item := b
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveTypeID < out[j].LeaveTypeID })
	return out, nil
}

type memHolidays struct{ *memRepos }

func (m memHolidays) ListBetween(_ context.Context, from, to time.Time) ([]leave.Holiday, error) {
	var out []leave.Holiday
	for _, h := range m.data.holidays {
		last := h.Date
		if h.EndDate != nil {
			last = *h.EndDate
		}
		if h.IsRecurring || (!h.Date.After(to) && !last.Before(from)) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m memHolidays) Save(_ context.Context, h *leave.Holiday) error {
	h.ID = m.store.id()
	m.data.holidays[h.ID] = *h
	return nil
}
