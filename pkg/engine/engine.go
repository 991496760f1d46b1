// Package engine wires the transaction core's collaborators into one
// database handle: storage, WAL, locking, deadlock detection, MVCC,
// savepoints, secondary indexes, and full-text search, behind the single
// Execute/BeginTransaction/CommitTransaction/RollbackTransaction surface
// the wire protocol and CLI drive.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coreflux/txcore/pkg/catalog"
	"github.com/coreflux/txcore/pkg/deadlock"
	"github.com/coreflux/txcore/pkg/fts"
	"github.com/coreflux/txcore/pkg/locks"
	"github.com/coreflux/txcore/pkg/mvcc"
	"github.com/coreflux/txcore/pkg/query"
	"github.com/coreflux/txcore/pkg/savepoint"
	"github.com/coreflux/txcore/pkg/storage"
	"github.com/coreflux/txcore/pkg/txn"
)

var (
	// ErrDatabaseClosed is returned by any operation on a closed DB.
	ErrDatabaseClosed = errors.New("database is closed")
)

// Options configures a DB. InMemory skips all disk persistence (no WAL,
// no snapshot file): opening with the same path twice starts empty.
type Options struct {
	InMemory   bool
	MaxRetries int
}

// DefaultOptions returns the default engine options: durable, with the
// Transaction Manager's own default retry policy (MaxRetries == 0 here
// means "use the Manager's default" rather than "never retry").
func DefaultOptions() *Options {
	return &Options{InMemory: false, MaxRetries: 0}
}

// DB is one open database: committed storage plus a Transaction Manager.
type DB struct {
	mu      sync.RWMutex
	closed  bool
	path    string
	options *Options

	store *storage.DiskStore // nil when InMemory
	mem   *storage.MemoryStore
	wal   *storage.WAL // nil when InMemory
	txns  *txn.Manager
	mvcc  *mvcc.Manager
}

// Open opens or creates a database at path. path == ":memory:" or
// opts.InMemory forces an in-memory, non-durable database regardless of
// the path string.
func Open(path string, opts *Options) (*DB, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	db := &DB{path: path, options: opts}

	lockMgr := locks.New()
	dl := deadlock.New()
	mvccMgr := mvcc.New()
	spMgr := savepoint.New()
	indexes := catalog.NewIndexRegistry()
	ftsMgr := fts.NewManager()

	mgrOpts := txn.DefaultManagerOptions()
	if opts.MaxRetries > 0 {
		mgrOpts.MaxRetries = opts.MaxRetries
	}

	if opts.InMemory || path == ":memory:" {
		db.mem = storage.NewMemoryStore()
		db.mvcc = mvccMgr
		db.txns = txn.NewManager(db.mem, nil, lockMgr, dl, mvccMgr, spMgr, indexes, ftsMgr, mgrOpts)
		return db, nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	store, err := storage.OpenDiskStore(path + ".db")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	wal, err := storage.OpenWAL(path + ".wal")
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open WAL: %w", err)
	}

	db.store = store
	db.wal = wal
	db.mvcc = mvccMgr
	db.txns = txn.NewManager(store, wal, lockMgr, dl, mvccMgr, spMgr, indexes, ftsMgr, mgrOpts)

	if err := db.replayWAL(); err != nil {
		wal.Close()
		store.Close()
		return nil, fmt.Errorf("failed to replay WAL: %w", err)
	}
	db.seedMVCC()
	return db, nil
}

// replayWAL reapplies every committed Insert/Update/Delete record against
// the loaded snapshot, then checkpoints (flush + truncate) so the WAL
// starts empty again. Records for tables created and dropped entirely
// within the WAL, with no intervening checkpoint, cannot be recovered
// this way since CREATE/DROP TABLE have no WAL record of their own; such
// Insert records are skipped: WAL replay is a best-effort recovery path
// layered on top of a whole-snapshot store.
func (db *DB) replayWAL() error {
	apply := func(rec storage.WALRecord) error {
		switch rec.Op {
		case storage.WALInsert:
			row, err := storage.DecodeRow(rec.Payload)
			if err != nil {
				return err
			}
			if err := db.store.PushValue(rec.Table, row); err != nil && !errors.Is(err, catalog.ErrTableNotFound) {
				return err
			}
			return nil
		case storage.WALUpdate:
			row, err := storage.DecodeRow(rec.Payload)
			if err != nil {
				return err
			}
			if len(row) > 0 {
				db.store.UpdateRow(rec.Table, row[0], row)
			}
			return nil
		case storage.WALDelete:
			row, err := storage.DecodeRow(rec.Payload)
			if err != nil {
				return err
			}
			if len(row) > 0 {
				db.store.DeleteRow(rec.Table, row[0])
			}
			return nil
		}
		return nil
	}
	if err := db.wal.Replay(apply); err != nil {
		return err
	}
	if err := db.store.Flush(); err != nil {
		return err
	}
	return db.wal.Truncate()
}

// seedMVCC reseeds the (in-memory, unpersisted) MVCC committed chain for
// every integer-PK row in the reconstructed snapshot, with begin_ts 0 so
// each is visible to any reader regardless of when it began. Without this
// step every MVCC-tracked row would be durable in storage but invisible to
// SELECT after a reopen: visibleRows resolves tracked rows exclusively
// through the version store, which starts empty on every Open and is
// never itself persisted.
func (db *DB) seedMVCC() {
	snapshot := db.store.Snapshot()
	for table, ts := range snapshot {
		for _, row := range ts.Rows {
			if len(row) == 0 || !row[0].IsInteger() {
				continue
			}
			db.mvcc.SeedCommitted(mvcc.RowKey(table, 0, row[0]), row)
		}
	}
}

// BeginTransaction starts a new transaction and returns its ID.
func (db *DB) BeginTransaction(isolation txn.Isolation) (uint64, error) {
	if err := db.checkOpen(); err != nil {
		return 0, err
	}
	return db.txns.BeginTransaction(isolation)
}

// CommitTransaction commits an in-flight transaction.
func (db *DB) CommitTransaction(txID uint64) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return db.txns.CommitTransaction(txID)
}

// RollbackTransaction rolls back an in-flight transaction.
func (db *DB) RollbackTransaction(txID uint64) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	return db.txns.RollbackTransaction(txID)
}

// Execute parses sql and runs it: transaction-control statements
// (BEGIN/COMMIT/ROLLBACK/SAVEPOINT/RELEASE) are handled directly against
// the Transaction Manager; everything else is dispatched through
// txID's transaction, or against committed storage if txID == 0.
func (db *DB) Execute(txID uint64, sql string) (*txn.Result, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	stmt, err := query.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *query.BeginStmt:
		id, err := db.txns.BeginTransaction(txn.ParseIsolation(s.Isolation))
		if err != nil {
			return nil, err
		}
		return &txn.Result{RowsAffected: int(id)}, nil
	case *query.CommitStmt:
		return &txn.Result{}, db.txns.CommitTransaction(txID)
	case *query.RollbackStmt:
		if s.Savepoint != "" {
			return &txn.Result{}, db.txns.RollbackToSavepoint(txID, s.Savepoint)
		}
		return &txn.Result{}, db.txns.RollbackTransaction(txID)
	case *query.SavepointStmt:
		return &txn.Result{}, db.txns.CreateSavepoint(txID, s.Name)
	case *query.ReleaseSavepointStmt:
		return &txn.Result{}, db.txns.ReleaseSavepoint(txID, s.Name)
	default:
		if txID == 0 {
			return db.txns.ExecuteStatementCommitted(stmt)
		}
		return db.txns.ExecuteStatement(txID, stmt)
	}
}

func (db *DB) checkOpen() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	return nil
}

// Close checkpoints and closes the database's storage and WAL, if any:
// the committed snapshot is flushed to disk and the WAL truncated before
// either file is closed, so the next Open does not replay records the
// snapshot already reflects.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	var firstErr error
	if db.store != nil {
		if err := db.store.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if db.wal != nil {
		if err := db.wal.Truncate(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := db.wal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if db.store != nil {
		if err := db.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
