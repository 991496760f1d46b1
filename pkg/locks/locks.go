// Package locks implements table-granularity pessimistic locking for the
// transaction core: Shared/Exclusive locks with a standard compatibility
// matrix, reentrant acquisition, and non-blocking synchronous conflict
// reporting (acquisition never parks a goroutine; callers retry after the
// deadlock detector has had a chance to pick a victim).
package locks

import (
	"fmt"
	"sync"
)

// Mode is the kind of lock held on a resource.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// ErrConflict is returned by Acquire when the request is incompatible with
// the resource's current holders.
type ErrConflict struct {
	Table   string
	Want    Mode
	Holders []uint64
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("lock conflict on %q: want %s, held by %v", e.Table, e.Want, e.Holders)
}

type entry struct {
	holders map[uint64]Mode
}

// Manager tracks per-table lock state across concurrently active transactions.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty lock manager.
func New() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// GetLockHolders returns the transaction IDs currently holding any lock on table.
func (m *Manager) GetLockHolders(table string) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[table]
	if !ok {
		return nil
	}
	holders := make([]uint64, 0, len(e.holders))
	for tx := range e.holders {
		holders = append(holders, tx)
	}
	return holders
}

// HasLock reports whether txID already holds a lock (of any mode) on table.
func (m *Manager) HasLock(txID uint64, table string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[table]
	if !ok {
		return false
	}
	_, ok = e.holders[txID]
	return ok
}

// Acquire attempts to grant txID the given mode on table. It never blocks:
// on conflict it returns *ErrConflict immediately so the caller can consult
// the deadlock detector and retry. A transaction that already holds
// Exclusive may acquire anything (reentrant). A transaction that is the
// sole Shared holder may upgrade to Exclusive in place.
func (m *Manager) Acquire(txID uint64, table string, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[table]
	if !ok {
		e = &entry{holders: make(map[uint64]Mode)}
		m.entries[table] = e
	}

	if current, held := e.holders[txID]; held {
		if current == Exclusive || mode == Shared {
			return nil
		}
		// current == Shared, mode == Exclusive: upgrade only if we are the
		// sole holder.
		if len(e.holders) == 1 {
			e.holders[txID] = Exclusive
			return nil
		}
		return m.conflictFor(e, table, mode, txID)
	}

	for holder, holderMode := range e.holders {
		if holder == txID {
			continue
		}
		if !compatible(holderMode, mode) {
			return m.conflictFor(e, table, mode, txID)
		}
	}

	e.holders[txID] = mode
	return nil
}

func (m *Manager) conflictFor(e *entry, table string, want Mode, self uint64) error {
	holders := make([]uint64, 0, len(e.holders))
	for tx := range e.holders {
		if tx != self {
			holders = append(holders, tx)
		}
	}
	return &ErrConflict{Table: table, Want: want, Holders: holders}
}

// compatible reports whether two lock modes may be held simultaneously by
// different transactions: Shared/Shared is the only compatible pairing.
func compatible(a, b Mode) bool {
	return a == Shared && b == Shared
}

// ReleaseTransactionLocks drops every lock txID holds, across all tables.
func (m *Manager) ReleaseTransactionLocks(txID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for table, e := range m.entries {
		delete(e.holders, txID)
		if len(e.holders) == 0 {
			delete(m.entries, table)
		}
	}
}
