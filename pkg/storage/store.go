package storage

import (
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/coreflux/txcore/pkg/catalog"
)

// Store is the row-oriented collaborator the engine commits finished
// transactions into: the durable counterpart of a transaction's working
// copy, exposing insert_table/get_table/get_table_ref/push_value/
// contains_key-shaped operations.
type Store interface {
	// InsertTable registers a new, empty table.
	InsertTable(name string, schema catalog.Schema) error
	// GetTable returns a deep copy of a table's rows, for readers that must
	// not observe later mutation.
	GetTable(name string) (*catalog.TableState, bool)
	// GetTableRef returns the live table state for in-place mutation by a
	// caller already holding the appropriate lock.
	GetTableRef(name string) (*catalog.TableState, bool)
	// PushValue appends one row to a table.
	PushValue(table string, row catalog.Row) error
	// ContainsKey reports whether a row with the given primary key value
	// already exists in the named table's primary key column.
	ContainsKey(table string, pkColumn int, value catalog.Value) bool
	// DropTable removes a table entirely.
	DropTable(name string) error
	// ReplaceTable wholesale-replaces (or creates) a table's schema and rows.
	// Used by the Transaction Manager at commit time to publish a
	// transaction's working copy of one table into committed storage.
	ReplaceTable(name string, ts *catalog.TableState) error
	// UpdateRow overwrites the row in table whose primary key (column 0)
	// equals pk with newRow. Returns false if no such row exists. Used by
	// WAL replay to reapply a committed Update record.
	UpdateRow(table string, pk catalog.Value, newRow catalog.Row) bool
	// DeleteRow removes the row in table whose primary key (column 0)
	// equals pk. Returns false if no such row exists. Used by WAL replay to
	// reapply a committed Delete record.
	DeleteRow(table string, pk catalog.Value) bool
	// Snapshot returns a deep copy of the full committed database.
	Snapshot() catalog.Database
}

// MemoryStore is an in-memory Store, sufficient on its own or as the
// working cache in front of a DiskStore snapshot.
type MemoryStore struct {
	mu sync.RWMutex
	db catalog.Database
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: make(catalog.Database)}
}

func (m *MemoryStore) InsertTable(name string, schema catalog.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.db[name]; exists {
		return catalog.ErrTableExists
	}
	m.db[name] = &catalog.TableState{Schema: schema}
	return nil
}

func (m *MemoryStore) GetTable(name string) (*catalog.TableState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.db[name]
	if !ok {
		return nil, false
	}
	return ts.Clone(), true
}

func (m *MemoryStore) GetTableRef(name string) (*catalog.TableState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.db[name]
	return ts, ok
}

func (m *MemoryStore) PushValue(table string, row catalog.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.db[table]
	if !ok {
		return catalog.ErrTableNotFound
	}
	ts.Rows = append(ts.Rows, row)
	return nil
}

func (m *MemoryStore) ContainsKey(table string, pkColumn int, value catalog.Value) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.db[table]
	if !ok {
		return false
	}
	for _, row := range ts.Rows {
		if pkColumn < len(row) && row[pkColumn].Equal(value) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) DropTable(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.db[name]; !ok {
		return catalog.ErrTableNotFound
	}
	delete(m.db, name)
	return nil
}

func (m *MemoryStore) ReplaceTable(name string, ts *catalog.TableState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db[name] = ts.Clone()
	return nil
}

func (m *MemoryStore) UpdateRow(table string, pk catalog.Value, newRow catalog.Row) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.db[table]
	if !ok {
		return false
	}
	for i, row := range ts.Rows {
		if len(row) > 0 && row[0].Equal(pk) {
			ts.Rows[i] = newRow
			return true
		}
	}
	return false
}

func (m *MemoryStore) DeleteRow(table string, pk catalog.Value) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.db[table]
	if !ok {
		return false
	}
	for i, row := range ts.Rows {
		if len(row) > 0 && row[0].Equal(pk) {
			ts.Rows = append(ts.Rows[:i], ts.Rows[i+1:]...)
			return true
		}
	}
	return false
}

func (m *MemoryStore) Snapshot() catalog.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.Clone()
}

// replaceAll atomically swaps the store's database, used by OpenDiskStore
// to install the decoded snapshot.
func (m *MemoryStore) replaceAll(db catalog.Database) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
}

// DiskStore wraps a MemoryStore with msgpack-encoded snapshot persistence
// through a Backend: all reads and writes hit the in-memory copy, and
// Flush serializes the whole database to the backend in one shot. The
// transaction core does not need page-granular random access to row data
// (only the secondary-index B+Trees in pkg/btree do), so a whole-snapshot
// codec keeps this layer simple.
type DiskStore struct {
	*MemoryStore
	backend Backend
}

// OpenDiskStore loads an existing snapshot from path, or starts empty if
// the file is new.
func OpenDiskStore(path string) (*DiskStore, error) {
	backend, err := OpenDisk(path)
	if err != nil {
		return nil, err
	}
	ds := &DiskStore{MemoryStore: NewMemoryStore(), backend: backend}
	if backend.Size() == 0 {
		return ds, nil
	}
	buf := make([]byte, backend.Size())
	if _, err := backend.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("failed to read store snapshot: %w", err)
	}
	var db catalog.Database
	if err := msgpack.Unmarshal(buf, &db); err != nil {
		return nil, fmt.Errorf("failed to decode store snapshot: %w", err)
	}
	ds.replaceAll(db)
	return ds, nil
}

// Flush serializes the current database to the backend and syncs it.
func (d *DiskStore) Flush() error {
	buf, err := msgpack.Marshal(d.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode store snapshot: %w", err)
	}
	if err := d.backend.Truncate(0); err != nil {
		return err
	}
	if _, err := d.backend.WriteAt(buf, 0); err != nil {
		return err
	}
	return d.backend.Sync()
}

// Close flushes and closes the backing file.
func (d *DiskStore) Close() error {
	if err := d.Flush(); err != nil {
		return err
	}
	return d.backend.Close()
}
