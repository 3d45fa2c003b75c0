// Package memory provides an in-memory entry store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/obrasur/payroll-engine/generic"
	"github.com/obrasur/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - Period entries keyed by period, ordered by employee
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[payroll.PeriodID][]payroll.PayrollEntry
	ids     map[payroll.EntryID]payroll.PeriodID
}

func New() *Memory {
	return &Memory{
		entries: make(map[payroll.PeriodID][]payroll.PayrollEntry),
		ids:     make(map[payroll.EntryID]payroll.PeriodID),
	}
}

// Put stores an entry, replacing any entry of the same employee in the same
// period. Recomputing a period is therefore idempotent.
func (m *Memory) Put(_ context.Context, e payroll.PayrollEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(e)
}

// PutBatch stores several entries atomically. An entry ID already used by a
// different employee/period rejects the whole batch.
func (m *Memory) PutBatch(_ context.Context, entries []payroll.PayrollEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if m.conflictsLocked(e) {
			return generic.ErrDuplicate
		}
	}
	for _, e := range entries {
		if err := m.putLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) conflictsLocked(e payroll.PayrollEntry) bool {
	period, ok := m.ids[e.ID]
	if !ok || e.ID == "" {
		return false
	}
	if period != e.PeriodID {
		return true
	}
	for _, existing := range m.entries[period] {
		if existing.ID == e.ID {
			return existing.EmployeeID != e.EmployeeID
		}
	}
	return false
}

func (m *Memory) putLocked(e payroll.PayrollEntry) error {
	if m.conflictsLocked(e) {
		return generic.ErrDuplicate
	}
	list := m.entries[e.PeriodID]

	for i, existing := range list {
		if existing.EmployeeID == e.EmployeeID {
			delete(m.ids, existing.ID)
			list = append(list[:i], list[i+1:]...)
			break
		}
	}

	// Binary search for insertion point, ordered by employee id
	i := sort.Search(len(list), func(i int) bool {
		return list[i].EmployeeID > e.EmployeeID
	})
	list = append(list, payroll.PayrollEntry{})
	copy(list[i+1:], list[i:])
	list[i] = e

	m.entries[e.PeriodID] = list
	if e.ID != "" {
		m.ids[e.ID] = e.PeriodID
	}
	return nil
}

// ListPeriodEntries returns a copy of a period's entries. It implements
// payroll.EntrySource.
func (m *Memory) ListPeriodEntries(ctx context.Context, periodID payroll.PeriodID) ([]payroll.PayrollEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.entries[periodID]
	out := make([]payroll.PayrollEntry, len(list))
	copy(out, list)
	return out, nil
}

// DeletePeriod drops every entry of a period.
func (m *Memory) DeletePeriod(_ context.Context, periodID payroll.PeriodID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries[periodID] {
		delete(m.ids, e.ID)
	}
	delete(m.entries, periodID)
}

var _ payroll.EntrySource = (*Memory)(nil)
