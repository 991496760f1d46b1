// Package txn implements the transactional execution core: the Transaction
// Manager that owns every active Transaction plus the shared MVCC store,
// lock manager, deadlock detector, savepoint manager, and WAL, and the
// statement executor (WHERE/JOIN/ORDER BY/projection).
package txn

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreflux/txcore/pkg/catalog"
	"github.com/coreflux/txcore/pkg/deadlock"
	"github.com/coreflux/txcore/pkg/fts"
	"github.com/coreflux/txcore/pkg/locks"
	"github.com/coreflux/txcore/pkg/mvcc"
	"github.com/coreflux/txcore/pkg/query"
	"github.com/coreflux/txcore/pkg/savepoint"
	"github.com/coreflux/txcore/pkg/storage"
)

// ManagerOptions configures the Manager's retry-with-backoff behavior.
type ManagerOptions struct {
	// MaxRetries bounds how many times a deadlock victim's own lock
	// acquisition is retried internally before giving up.
	MaxRetries int
}

// DefaultManagerOptions is the standard retry policy: 5 retries,
// 10ms*2^retry backoff.
func DefaultManagerOptions() *ManagerOptions {
	return &ManagerOptions{MaxRetries: 5}
}

// Result is the output of one executed statement: column names plus row
// data for SELECT, or just a row count for INSERT/UPDATE/DELETE/DDL.
type Result struct {
	Columns      []string
	Rows         []catalog.Row
	RowsAffected int
}

// Manager is the process-wide Transaction Manager: the single owner of
// every active Transaction and the sole caller into the shared MVCC,
// locking, deadlock, savepoint, indexing, and full-text collaborators.
type Manager struct {
	counter uint64

	mu     sync.Mutex
	active map[uint64]*Transaction

	store      storage.Store
	wal        *storage.WAL
	locks      *locks.Manager
	deadlocks  *deadlock.Detector
	mvcc       *mvcc.Manager
	savepoints *savepoint.Manager
	indexes    *catalog.IndexRegistry
	fts        *fts.Manager
	opts       *ManagerOptions
}

// NewManager wires together a Transaction Manager from its collaborators.
// wal may be nil (durability disabled, e.g. for an in-memory-only engine).
func NewManager(
	store storage.Store,
	wal *storage.WAL,
	lockMgr *locks.Manager,
	dl *deadlock.Detector,
	mvccMgr *mvcc.Manager,
	spMgr *savepoint.Manager,
	indexes *catalog.IndexRegistry,
	ftsMgr *fts.Manager,
	opts *ManagerOptions,
) *Manager {
	if opts == nil {
		opts = DefaultManagerOptions()
	}
	return &Manager{
		active:     make(map[uint64]*Transaction),
		store:      store,
		wal:        wal,
		locks:      lockMgr,
		deadlocks:  dl,
		mvcc:       mvccMgr,
		savepoints: spMgr,
		indexes:    indexes,
		fts:        ftsMgr,
		opts:       opts,
	}
}

func (m *Manager) activeIDs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint64, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) getActive(txID uint64) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.active[txID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if tx.State != Active {
		return nil, ErrTransactionNotActive
	}
	return tx, nil
}

func (m *Manager) appendWAL(txID uint64, op storage.WALOpCode, table string, row catalog.Row) error {
	if m.wal == nil {
		return nil
	}
	payload, err := storage.EncodeRow(row)
	if err != nil {
		return err
	}
	return m.wal.Append(storage.WALRecord{TxID: txID, Timestamp: time.Now(), Op: op, Table: table, Payload: payload})
}

// BeginTransaction starts a new transaction at the given isolation level
// and returns its ID.
func (m *Manager) BeginTransaction(isolation Isolation) (uint64, error) {
	id := atomic.AddUint64(&m.counter, 1)
	tx := newTransaction(id, isolation, m.store)
	m.mvcc.BeginTransaction(id)

	if m.wal != nil {
		if err := m.wal.Append(storage.WALRecord{TxID: id, Timestamp: time.Now(), Op: storage.WALBegin}); err != nil {
			m.mvcc.Rollback(id)
			return 0, fmt.Errorf("%w: %v", ErrWalIO, err)
		}
	}

	m.mu.Lock()
	m.active[id] = tx
	m.mu.Unlock()
	return id, nil
}

// AcquireLock adds wait-for edges against table's current holders, runs
// deadlock detection, and either grants the lock or fails with ErrDeadlock
// (if txID itself is the chosen victim) or ErrLockConflict (no deadlock,
// just contention the caller may retry). Wait edges for txID are cleared
// on every exit path.
func (m *Manager) AcquireLock(txID uint64, table string, mode locks.Mode) error {
	holders := m.locks.GetLockHolders(table)
	for _, h := range holders {
		if h != txID {
			m.deadlocks.AddWait(txID, h, table)
		}
	}
	defer m.deadlocks.RemoveWaitsFrom(txID)

	if victim, found := m.deadlocks.DetectDeadlock(m.activeIDs()); found && victim == txID {
		return ErrDeadlock
	}

	if err := m.locks.Acquire(txID, table, mode); err != nil {
		var conflict *locks.ErrConflict
		if errors.As(err, &conflict) {
			return fmt.Errorf("%w: %v", ErrLockConflict, err)
		}
		return err
	}
	return nil
}

// withRetry retries fn while it fails with ErrDeadlock, sleeping
// 10ms*2^retry between attempts, up to MaxRetries times.
func (m *Manager) withRetry(fn func() error) error {
	var err error
	for r := 0; r <= m.opts.MaxRetries; r++ {
		err = fn()
		if !errors.Is(err, ErrDeadlock) {
			return err
		}
		if r == m.opts.MaxRetries {
			return fmt.Errorf("%w: %v", ErrLockAcquisitionFailed, err)
		}
		time.Sleep(time.Duration(10*(1<<uint(r))) * time.Millisecond)
	}
	return err
}

// withLock acquires mode on table (retrying internally on deadlock) and
// runs fn while holding it. An error that indicates a compromised
// transaction rolls the whole transaction back before returning.
func (m *Manager) withLock(tx *Transaction, table string, mode locks.Mode, fn func() (*Result, error)) (*Result, error) {
	var result *Result
	err := m.withRetry(func() error {
		if err := m.AcquireLock(tx.ID, table, mode); err != nil {
			return err
		}
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	if err != nil {
		if isFatal(err) {
			m.rollbackInternal(tx)
		}
		return nil, err
	}
	return result, nil
}

// reconcileSerializable enforces the additional Serializable isolation
// safeguard: before a write touches table, the table's committed state
// must match what it was when this transaction first read it, or a
// concurrent transaction has already changed it under us.
func (m *Manager) reconcileSerializable(tx *Transaction, table string) error {
	if tx.Isolation != Serializable {
		return nil
	}
	snap, had := tx.startSnapshot[table]
	if !had {
		return nil
	}
	current, ok := m.store.GetTable(table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSerializationFailure, table)
	}
	if rowsDiffer(snap.Rows, current.Rows) {
		return ErrSerializationFailure
	}
	return nil
}

func rowsDiffer(a, b []catalog.Row) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return true
		}
		for j := range a[i] {
			if !a[i][j].Equal(b[i][j]) {
				return true
			}
		}
	}
	return false
}

// ExecuteStatement runs one parsed statement against txID's transaction.
// Read Committed transactions refresh their MVCC read-timestamp at the
// start of every statement.
func (m *Manager) ExecuteStatement(txID uint64, stmt query.Statement) (*Result, error) {
	tx, err := m.getActive(txID)
	if err != nil {
		return nil, err
	}
	if tx.Isolation == ReadCommitted {
		m.mvcc.RefreshReadTimestamp(txID)
	}

	switch s := stmt.(type) {
	case *query.CreateTableStmt:
		return m.withLock(tx, s.Table, locks.Exclusive, func() (*Result, error) {
			ts := tableSchema{Table: s.Table, Columns: s.Columns, IfNotExists: s.IfNotExists}
			if err := tx.createTable(ts); err != nil {
				return nil, err
			}
			return &Result{}, nil
		})
	case *query.DropTableStmt:
		return m.withLock(tx, s.Table, locks.Exclusive, func() (*Result, error) {
			if err := tx.dropTable(s.Table, s.IfExists); err != nil {
				return nil, err
			}
			m.indexes.DropTable(s.Table)
			m.fts.DropTable(s.Table)
			return &Result{}, nil
		})
	case *query.AlterAddColumnStmt:
		return m.withLock(tx, s.Table, locks.Exclusive, func() (*Result, error) {
			if err := tx.alterAddColumn(s.Table, s.Column); err != nil {
				return nil, err
			}
			return &Result{}, nil
		})
	case *query.CreateIndexStmt:
		return m.execCreateIndex(tx, s)
	case *query.DropIndexStmt:
		return m.execDropIndex(tx, s)
	case *query.InsertStmt:
		return m.execInsert(tx, s)
	case *query.DeleteStmt:
		return m.execDelete(tx, s)
	case *query.UpdateStmt:
		return m.execUpdate(tx, s)
	case *query.SelectStmt:
		return m.execSelect(tx, s)
	default:
		return nil, fmt.Errorf("%w: unsupported statement %T", ErrInvalidOperation, stmt)
	}
}

func (m *Manager) execCreateIndex(tx *Transaction, s *query.CreateIndexStmt) (*Result, error) {
	return m.withLock(tx, s.Table, locks.Exclusive, func() (*Result, error) {
		tx.touch(s.Table)
		ts, ok := tx.working[s.Table]
		if !ok {
			return nil, ErrTableNotFound
		}
		def := catalog.IndexDef{Name: s.Index, Table: s.Table, Columns: s.Columns, Unique: s.Unique}
		if err := m.indexes.Create(def, ts.Schema, ts.Rows); err != nil {
			if s.IfNotExists && errors.Is(err, catalog.ErrIndexExists) {
				return &Result{}, nil
			}
			return nil, err
		}
		return &Result{}, nil
	})
}

func (m *Manager) execDropIndex(tx *Transaction, s *query.DropIndexStmt) (*Result, error) {
	if err := m.indexes.Drop(s.Index); err != nil {
		if s.IfExists && errors.Is(err, catalog.ErrIndexNotFound) {
			return &Result{}, nil
		}
		return nil, err
	}
	return &Result{}, nil
}

func (m *Manager) execInsert(tx *Transaction, s *query.InsertStmt) (*Result, error) {
	return m.withLock(tx, s.Table, locks.Exclusive, func() (*Result, error) {
		tx.touch(s.Table)
		if err := m.reconcileSerializable(tx, s.Table); err != nil {
			return nil, err
		}
		ts, ok := tx.working[s.Table]
		if !ok {
			return nil, ErrTableNotFound
		}
		if len(s.Values) != len(ts.Schema) {
			return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidOperation, len(ts.Schema), len(s.Values))
		}
		row := catalog.Row(append([]catalog.Value{}, s.Values...))
		if err := catalog.ValidateRow(ts.Schema, ts.Rows, row, nil); err != nil {
			return nil, err
		}
		ts.Rows = append(ts.Rows, row)

		if row[0].IsInteger() {
			key := mvcc.RowKey(s.Table, 0, row[0])
			if err := m.mvcc.Write(tx.ID, key, row); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrWriteConflict, err)
			}
		}
		for i, col := range ts.Schema {
			if col.DataType == catalog.TSVector {
				m.fts.AddDocument(s.Table, col.Name, row[0].String(), row[i].String())
			}
		}
		if err := m.appendWAL(tx.ID, storage.WALInsert, s.Table, row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWalIO, err)
		}
		return &Result{RowsAffected: 1}, nil
	})
}

func (m *Manager) execDelete(tx *Transaction, s *query.DeleteStmt) (*Result, error) {
	return m.withLock(tx, s.Table, locks.Exclusive, func() (*Result, error) {
		tx.touch(s.Table)
		if err := m.reconcileSerializable(tx, s.Table); err != nil {
			return nil, err
		}
		ts, ok := tx.working[s.Table]
		if !ok {
			return nil, ErrTableNotFound
		}
		cs := catalog.NewCombinedSchema(s.Table, ts.Schema)

		kept := make([]catalog.Row, 0, len(ts.Rows))
		affected := 0
		for _, row := range ts.Rows {
			match, err := m.evalWhere(cs, s.Table, row, s.Where)
			if err != nil {
				return nil, err
			}
			if !match {
				kept = append(kept, row)
				continue
			}
			affected++
			if row[0].IsInteger() {
				key := mvcc.RowKey(s.Table, 0, row[0])
				if err := m.mvcc.Delete(tx.ID, key); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrWriteConflict, err)
				}
			}
			for _, col := range ts.Schema {
				if col.DataType == catalog.TSVector {
					m.fts.RemoveDocument(s.Table, col.Name, row[0].String())
				}
			}
			if err := m.appendWAL(tx.ID, storage.WALDelete, s.Table, row); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrWalIO, err)
			}
		}
		ts.Rows = kept
		return &Result{RowsAffected: affected}, nil
	})
}

func (m *Manager) execUpdate(tx *Transaction, s *query.UpdateStmt) (*Result, error) {
	return m.withLock(tx, s.Table, locks.Exclusive, func() (*Result, error) {
		tx.touch(s.Table)
		if err := m.reconcileSerializable(tx, s.Table); err != nil {
			return nil, err
		}
		ts, ok := tx.working[s.Table]
		if !ok {
			return nil, ErrTableNotFound
		}
		cs := catalog.NewCombinedSchema(s.Table, ts.Schema)

		sets := make(map[int]catalog.Value, len(s.Set))
		for _, set := range s.Set {
			idx := ts.Schema.IndexOf(set.Column)
			if idx < 0 {
				return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, set.Column)
			}
			sets[idx] = set.Value
		}

		affected := 0
		for i, row := range ts.Rows {
			match, err := m.evalWhere(cs, s.Table, row, s.Where)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
			newRow := row.Clone()
			for idx, v := range sets {
				newRow[idx] = v
			}
			if err := catalog.ValidateRow(ts.Schema, withoutRow(ts.Rows, i), newRow, nil); err != nil {
				return nil, err
			}
			affected++
			if row[0].IsInteger() {
				key := mvcc.RowKey(s.Table, 0, row[0])
				if err := m.mvcc.Write(tx.ID, key, newRow); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrWriteConflict, err)
				}
			}
			for ci, col := range ts.Schema {
				if col.DataType == catalog.TSVector {
					m.fts.AddDocument(s.Table, col.Name, newRow[0].String(), newRow[ci].String())
				}
			}
			if err := m.appendWAL(tx.ID, storage.WALUpdate, s.Table, newRow); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrWalIO, err)
			}
			ts.Rows[i] = newRow
		}
		return &Result{RowsAffected: affected}, nil
	})
}

func withoutRow(rows []catalog.Row, skip int) []catalog.Row {
	out := make([]catalog.Row, 0, len(rows))
	for i, r := range rows {
		if i != skip {
			out = append(out, r)
		}
	}
	return out
}

func (m *Manager) execSelect(tx *Transaction, s *query.SelectStmt) (*Result, error) {
	if tx.Isolation == Serializable {
		tables := []string{s.From.Name}
		for _, j := range s.Joins {
			tables = append(tables, j.Table.Name)
		}
		for _, t := range tables {
			if err := m.withRetry(func() error { return m.AcquireLock(tx.ID, t, locks.Shared) }); err != nil {
				if isFatal(err) {
					m.rollbackInternal(tx)
				}
				return nil, err
			}
		}
	}

	tx.touch(s.From.Name)
	baseTS, ok := tx.working[s.From.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, s.From.Name)
	}

	type joinedTable struct {
		name   string
		schema catalog.Schema
		rows   []catalog.Row
	}
	var joined []joinedTable
	var joinArg []struct {
		Name   string
		Schema catalog.Schema
	}
	for _, j := range s.Joins {
		if j.Kind != query.JoinInner {
			return nil, fmt.Errorf("%w: only INNER JOIN is implemented", ErrUnimplemented)
		}
		tx.touch(j.Table.Name)
		jts, ok := tx.working[j.Table.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, j.Table.Name)
		}
		joined = append(joined, joinedTable{name: j.Table.Name, schema: jts.Schema, rows: m.visibleRows(tx, j.Table.Name, jts)})
		joinArg = append(joinArg, struct {
			Name   string
			Schema catalog.Schema
		}{j.Table.Name, jts.Schema})
	}
	cs := catalog.NewCombinedSchema(s.From.Name, baseTS.Schema, joinArg...)

	// Resolve every WHERE column up front so an ambiguous reference is
	// reported even when no tuple reaches evalWhere.
	pendingWhere := []query.WhereExpr{s.Where}
	for len(pendingWhere) > 0 {
		e := pendingWhere[len(pendingWhere)-1]
		pendingWhere = pendingWhere[:len(pendingWhere)-1]
		switch w := e.(type) {
		case *query.WhereRegular:
			if _, err := cs.Resolve(w.Table, w.Column); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousColumn, w.Column)
			}
		case *query.WhereAnd:
			pendingWhere = append(pendingWhere, w.Left, w.Right)
		case *query.WhereOr:
			pendingWhere = append(pendingWhere, w.Left, w.Right)
		}
	}

	partials := m.baseRows(tx, s.From.Name, baseTS, len(joined) == 0, s.Where)
	for i, jt := range joined {
		jc := s.Joins[i]
		var next []catalog.Row
		for _, partial := range partials {
			for _, cand := range jt.rows {
				lv, lok := resolvePairValue(cs, partial, jt.name, jt.schema, cand, jc.LeftTable, jc.LeftColumn)
				rv, rok := resolvePairValue(cs, partial, jt.name, jt.schema, cand, jc.RightTable, jc.RightColumn)
				if lok && rok && lv.Equal(rv) {
					combined := append(append(catalog.Row{}, partial...), cand...)
					next = append(next, combined)
				}
			}
		}
		partials = next
	}

	filtered := make([]catalog.Row, 0, len(partials))
	for _, tuple := range partials {
		match, err := m.evalWhere(cs, s.From.Name, tuple, s.Where)
		if err != nil {
			return nil, err
		}
		if match {
			filtered = append(filtered, tuple)
		}
	}

	if err := sortTuples(cs, filtered, s.OrderBy); err != nil {
		return nil, err
	}

	names, rows, err := projectColumns(cs, s.Columns, filtered)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: names, Rows: rows, RowsAffected: len(rows)}, nil
}

// ExecuteStatementCommitted runs a read-only statement (SELECT only)
// against the committed database, bypassing any transaction's working
// copy. tx_id 0 is the MVCC "system read" that always sees the newest
// committed version of every key.
func (m *Manager) ExecuteStatementCommitted(stmt query.Statement) (*Result, error) {
	sel, ok := stmt.(*query.SelectStmt)
	if !ok {
		return nil, fmt.Errorf("%w: only SELECT may run against committed state", ErrInvalidOperation)
	}
	tx := newTransaction(0, ReadCommitted, m.store)
	return m.execSelect(tx, sel)
}

// CommitTransaction publishes txID's working copy into committed storage
// and finalizes its MVCC versions, releasing every lock, wait edge, and
// savepoint it held. On ErrSerializationFailure (first-committer-wins) the
// transaction is rolled back before the error is returned.
func (m *Manager) CommitTransaction(txID uint64) error {
	tx, err := m.getActive(txID)
	if err != nil {
		return err
	}

	if m.wal != nil {
		if err := m.wal.Append(storage.WALRecord{TxID: txID, Timestamp: time.Now(), Op: storage.WALCommit}); err != nil {
			m.rollbackInternal(tx)
			return fmt.Errorf("%w: %v", ErrWalIO, err)
		}
	}

	if err := m.mvcc.Commit(txID); err != nil {
		m.rollbackInternal(tx)
		if errors.Is(err, mvcc.ErrSerializationFailure) {
			return fmt.Errorf("%w: %v", ErrSerializationFailure, err)
		}
		return err
	}

	for table, ts := range tx.working {
		m.store.ReplaceTable(table, ts)
		m.indexes.RebuildTable(table, ts.Schema, ts.Rows)
	}
	for table, existed := range tx.touched {
		if !existed {
			continue
		}
		if _, stillThere := tx.working[table]; !stillThere {
			m.store.DropTable(table)
			m.indexes.DropTable(table)
			m.fts.DropTable(table)
		}
	}

	m.locks.ReleaseTransactionLocks(txID)
	m.deadlocks.RemoveTransaction(txID)
	m.savepoints.ClearTransactionSavepoints(txID)

	m.mu.Lock()
	tx.State = Committed
	delete(m.active, txID)
	m.mu.Unlock()
	return nil
}

// RollbackTransaction discards txID's working copy and pending MVCC
// writes, releasing every lock, wait edge, and savepoint it held.
func (m *Manager) RollbackTransaction(txID uint64) error {
	tx, err := m.getActive(txID)
	if err != nil {
		return err
	}
	return m.rollbackInternal(tx)
}

func (m *Manager) rollbackInternal(tx *Transaction) error {
	m.mvcc.Rollback(tx.ID)
	m.locks.ReleaseTransactionLocks(tx.ID)
	m.deadlocks.RemoveTransaction(tx.ID)
	m.savepoints.ClearTransactionSavepoints(tx.ID)
	if m.wal != nil {
		_ = m.wal.Append(storage.WALRecord{TxID: tx.ID, Timestamp: time.Now(), Op: storage.WALRollback})
	}

	m.mu.Lock()
	tx.State = RolledBack
	delete(m.active, tx.ID)
	m.mu.Unlock()
	return nil
}

// CreateSavepoint captures txID's current working copy under name,
// overwriting any earlier savepoint of the same name.
func (m *Manager) CreateSavepoint(txID uint64, name string) error {
	tx, err := m.getActive(txID)
	if err != nil {
		return err
	}
	if err := m.savepoints.Create(txID, name, tx.GetTableState()); err != nil {
		return err
	}
	if m.wal != nil {
		_ = m.wal.Append(storage.WALRecord{TxID: txID, Timestamp: time.Now(), Op: storage.WALSavepoint, Table: name})
	}
	return nil
}

// RollbackToSavepoint restores txID's working copy to the state captured
// by name, discarding every savepoint created after it, and appends a
// SavepointRollback WAL record so replay discards the same writes from
// the log's buffered view of this transaction. MVCC pending writes made
// since the savepoint are not undone at the key level (see DESIGN.md) —
// the restored working copy is what subsequent statements observe, which
// is what matters for read-your-own-writes within the transaction.
func (m *Manager) RollbackToSavepoint(txID uint64, name string) error {
	tx, err := m.getActive(txID)
	if err != nil {
		return err
	}
	state, err := m.savepoints.RollbackTo(txID, name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSavepointNotFound, err)
	}
	tx.RestoreTableState(state)
	if m.wal != nil {
		_ = m.wal.Append(storage.WALRecord{TxID: txID, Timestamp: time.Now(), Op: storage.WALSavepointRollback, Table: name})
	}
	return nil
}

// ReleaseSavepoint drops name and every savepoint created after it,
// without reverting any state.
func (m *Manager) ReleaseSavepoint(txID uint64, name string) error {
	if _, err := m.getActive(txID); err != nil {
		return err
	}
	if err := m.savepoints.Release(txID, name); err != nil {
		return fmt.Errorf("%w: %v", ErrSavepointNotFound, err)
	}
	return nil
}
