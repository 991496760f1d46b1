// Package mvcc implements multi-version concurrency control over row keys:
// one version chain per key, first-committer-wins conflict detection, and
// read-committed / read-uncommitted visibility queries used by the
// statement executor.
package mvcc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coreflux/txcore/pkg/catalog"
)

// ErrWriteConflict is returned by Write when another live transaction
// already holds an uncommitted version of the same key.
var ErrWriteConflict = errors.New("write conflict: another transaction has an uncommitted write on this key")

// ErrSerializationFailure is returned by Commit when first-committer-wins
// detects that another transaction committed a newer version of a key this
// transaction also wrote, after this transaction's snapshot began.
var ErrSerializationFailure = errors.New("serialization failure: a newer version was committed concurrently")

// ErrTransactionNotActive is returned by operations addressed to a
// transaction ID that was never begun, or has already committed/rolled back.
var ErrTransactionNotActive = errors.New("transaction is not active")

// RowKey builds the canonical MVCC key for one row: "{table}/{col_index}/{pk}".
// Only integer primary keys are tracked (see catalog.ValidateSchema), so pk
// always has a plain integer textual form.
func RowKey(table string, colIndex int, pk catalog.Value) string {
	return fmt.Sprintf("%s/%d/%s", table, colIndex, pk.String())
}

// committedVersion is one link in a key's version chain. beginTS is the
// read-timestamp the writing transaction held when it staged the write
// (not its commit time); commitTS is the timestamp it was committed at (0
// for a seeded version); endTS is the commit timestamp of whichever later
// version superseded it, or 0 if it is still current.
type committedVersion struct {
	txID     uint64
	beginTS  uint64
	commitTS uint64
	endTS    uint64
	data     catalog.Row
	deleted  bool
}

type pendingWrite struct {
	data    catalog.Row
	deleted bool
	beginTS uint64
}

// Manager is the MVCC version store, shared by every active transaction.
type Manager struct {
	mu        sync.Mutex
	clock     uint64
	active    map[uint64]uint64 // txID -> read_ts
	committed map[string][]committedVersion
	pending   map[string]map[uint64]pendingWrite
}

// New creates an empty MVCC manager.
func New() *Manager {
	return &Manager{
		active:    make(map[uint64]uint64),
		committed: make(map[string][]committedVersion),
		pending:   make(map[string]map[uint64]pendingWrite),
	}
}

// BeginTransaction assigns txID a fresh read-timestamp and marks it active.
func (m *Manager) BeginTransaction(txID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock++
	m.active[txID] = m.clock
}

// RefreshReadTimestamp re-snapshots txID's read-timestamp to the current
// commit watermark. The Transaction Manager calls this before each
// statement of a Read Committed transaction, so it sees the latest
// committed snapshot at statement start rather than the snapshot pinned
// at begin_transaction (which Repeatable Read and Serializable use
// instead).
func (m *Manager) RefreshReadTimestamp(txID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[txID]; ok {
		m.active[txID] = m.clock
	}
}

// IsActive reports whether txID has begun and not yet committed or rolled back.
func (m *Manager) IsActive(txID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[txID]
	return ok
}

// SeedCommitted installs data as the sole committed version of key, with
// begin_ts 0 so it is visible to any reader regardless of when it began.
// Used at startup to reconstruct the version chain for rows recovered
// from a storage snapshot or WAL replay, since the version store itself
// holds no durable state of its own. Any existing chain for key is
// discarded; callers only use this before any transaction has run.
func (m *Manager) SeedCommitted(key string, data catalog.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed[key] = []committedVersion{{txID: 0, beginTS: 0, data: data}}
}

// Write records a pending (uncommitted) version of key for txID. It fails
// with ErrWriteConflict if another live transaction already has an
// uncommitted write on the same key (write-write conflict, checked at
// write time; first-committer-wins itself is enforced at Commit).
func (m *Manager) Write(txID uint64, key string, data catalog.Row) error {
	return m.write(txID, key, data, false)
}

// Delete records a pending tombstone for key, subject to the same
// write-write conflict check as Write.
func (m *Manager) Delete(txID uint64, key string) error {
	return m.write(txID, key, nil, true)
}

func (m *Manager) write(txID uint64, key string, data catalog.Row, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	beginTS, ok := m.active[txID]
	if !ok {
		return ErrTransactionNotActive
	}

	if byTx, ok := m.pending[key]; ok {
		for otherTx := range byTx {
			if otherTx != txID {
				if _, stillActive := m.active[otherTx]; stillActive {
					return ErrWriteConflict
				}
			}
		}
	}

	byTx, ok := m.pending[key]
	if !ok {
		byTx = make(map[uint64]pendingWrite)
		m.pending[key] = byTx
	}
	byTx[txID] = pendingWrite{data: data, deleted: deleted, beginTS: beginTS}
	return nil
}

// ReadCommitted returns txID's own pending write for key if one exists
// (read-your-writes), otherwise the version of key visible to txID's
// current read-timestamp. tx_id = 0 is the "system read": it always sees
// the globally newest committed version, ignoring any snapshot boundary.
func (m *Manager) ReadCommitted(txID uint64, key string) (catalog.Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if byTx, ok := m.pending[key]; ok {
		if pw, ok := byTx[txID]; ok {
			if pw.deleted {
				return nil, false
			}
			return pw.data, true
		}
	}

	readTS, hasSnapshot := m.active[txID]
	versions := m.committed[key]
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		if txID != 0 && hasSnapshot {
			if v.beginTS > readTS {
				continue
			}
			if v.endTS != 0 && v.endTS <= readTS {
				continue
			}
		}
		if v.deleted {
			return nil, false
		}
		return v.data, true
	}
	return nil, false
}

// ReadUncommitted returns the newest version of key regardless of commit
// status: an active transaction's pending write if one exists (arbitrary
// choice among concurrent writers), else the newest committed version.
// Used for transparency probes, not by ordinary statement execution.
func (m *Manager) ReadUncommitted(key string) (catalog.Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if byTx, ok := m.pending[key]; ok {
		for _, pw := range byTx {
			if pw.deleted {
				return nil, false
			}
			return pw.data, true
		}
	}
	versions := m.committed[key]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i].endTS != 0 {
			continue
		}
		if versions[i].deleted {
			return nil, false
		}
		return versions[i].data, true
	}
	return nil, false
}

// Commit promotes every pending write made by txID to the committed chain.
// First-committer-wins: if, for any key txID wrote, another transaction has
// already committed a version after the read-timestamp txID's write was
// staged against, the whole commit fails with
// ErrSerializationFailure and none of txID's writes are applied (the
// caller must then roll the transaction back).
func (m *Manager) Commit(txID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[txID]; !ok {
		return ErrTransactionNotActive
	}

	for key, byTx := range m.pending {
		pw, ok := byTx[txID]
		if !ok {
			continue
		}
		for _, v := range m.committed[key] {
			if v.commitTS > pw.beginTS {
				return ErrSerializationFailure
			}
		}
	}

	m.clock++
	commitTS := m.clock

	for key, byTx := range m.pending {
		pw, ok := byTx[txID]
		if !ok {
			continue
		}
		versions := m.committed[key]
		for i := len(versions) - 1; i >= 0; i-- {
			if versions[i].endTS == 0 {
				versions[i].endTS = commitTS
				break
			}
		}
		m.committed[key] = append(versions, committedVersion{
			txID:     txID,
			beginTS:  pw.beginTS,
			commitTS: commitTS,
			data:     pw.data,
			deleted:  pw.deleted,
		})
		delete(byTx, txID)
		if len(byTx) == 0 {
			delete(m.pending, key)
		}
	}

	delete(m.active, txID)
	return nil
}

// Rollback discards every pending write made by txID and marks it inactive.
func (m *Manager) Rollback(txID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, byTx := range m.pending {
		delete(byTx, txID)
		if len(byTx) == 0 {
			delete(m.pending, key)
		}
	}
	delete(m.active, txID)
}
