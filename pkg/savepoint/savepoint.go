// Package savepoint implements named per-transaction snapshots of table
// state: SAVEPOINT captures it, ROLLBACK TO discards everything newer than
// the target while the target itself is kept (its snapshot becomes the
// transaction's restored state), and RELEASE drops a savepoint without
// reverting anything.
package savepoint

import (
	"errors"
	"sync"

	"github.com/coreflux/txcore/pkg/catalog"
)

// ErrNotFound is returned when a named savepoint does not exist for a transaction.
var ErrNotFound = errors.New("savepoint not found")

type entry struct {
	name  string
	state catalog.Database
}

// Manager tracks an ordered stack of savepoints per transaction.
type Manager struct {
	mu   sync.Mutex
	byTx map[uint64][]entry
}

// New creates an empty savepoint manager.
func New() *Manager {
	return &Manager{byTx: make(map[uint64][]entry)}
}

// Create pushes a new savepoint named name for txID, capturing a deep copy
// of state so later mutation of the transaction's working copy cannot
// affect it. Names are scoped per transaction and a duplicate name
// overwrites the earlier savepoint in place (its position in the creation
// order, and therefore anything newer, is unaffected).
func (m *Manager) Create(txID uint64, name string, state catalog.Database) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.byTx[txID]
	if idx := indexOf(entries, name); idx >= 0 {
		entries[idx].state = state.Clone()
		return nil
	}
	m.byTx[txID] = append(entries, entry{name: name, state: state.Clone()})
	return nil
}

// RollbackTo returns the captured state for the named savepoint and
// discards every savepoint created after it (the target itself survives,
// so a second ROLLBACK TO the same name is still valid).
func (m *Manager) RollbackTo(txID uint64, name string) (catalog.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.byTx[txID]
	idx := indexOf(entries, name)
	if idx < 0 {
		return nil, ErrNotFound
	}
	m.byTx[txID] = entries[:idx+1]
	return entries[idx].state.Clone(), nil
}

// Release drops the named savepoint and every savepoint created after it,
// without restoring any state — matching SQL RELEASE SAVEPOINT semantics.
func (m *Manager) Release(txID uint64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.byTx[txID]
	idx := indexOf(entries, name)
	if idx < 0 {
		return ErrNotFound
	}
	m.byTx[txID] = entries[:idx]
	return nil
}

// ClearTransactionSavepoints drops every savepoint for txID, called on
// commit or rollback of the whole transaction.
func (m *Manager) ClearTransactionSavepoints(txID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byTx, txID)
}

func indexOf(entries []entry, name string) int {
	for i, e := range entries {
		if e.name == name {
			return i
		}
	}
	return -1
}
