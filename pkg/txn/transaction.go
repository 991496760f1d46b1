package txn

import (
	"strings"

	"github.com/coreflux/txcore/pkg/catalog"
	"github.com/coreflux/txcore/pkg/storage"
)

// Isolation is one of the three supported transaction isolation levels.
type Isolation int

const (
	ReadCommitted Isolation = iota
	RepeatableRead
	Serializable
)

func (i Isolation) String() string {
	switch i {
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "READ COMMITTED"
	}
}

// ParseIsolation maps a BEGIN statement's isolation name to an Isolation
// level, defaulting to ReadCommitted for an empty or unrecognized name.
func ParseIsolation(name string) Isolation {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "SERIALIZABLE":
		return Serializable
	case "REPEATABLE READ", "REPEATABLEREAD":
		return RepeatableRead
	default:
		return ReadCommitted
	}
}

// State is a transaction's lifecycle state.
type State int

const (
	Active State = iota
	Committed
	RolledBack
)

// Transaction is one in-flight unit of work: a lazily-populated working
// copy of every table it has touched, isolated from committed storage
// until commit publishes it back. Every write (DDL and row
// insert/update/delete) mutates the working copy directly; for
// MVCC-tracked rows the executor also stages a version in the sibling
// mvcc.Manager, and reads resolve those rows through it.
type Transaction struct {
	ID        uint64
	Isolation Isolation
	State     State

	store   storage.Store
	working catalog.Database
	// touched records, for every table this transaction has read or
	// written, whether it existed in committed storage at first touch.
	touched map[string]bool
	// startSnapshot captures a Serializable transaction's view of a table
	// at first touch, so writes can be reconciled against concurrent
	// commits before they are applied.
	startSnapshot catalog.Database
}

func newTransaction(id uint64, isolation Isolation, store storage.Store) *Transaction {
	return &Transaction{
		ID:            id,
		Isolation:     isolation,
		State:         Active,
		store:         store,
		working:       make(catalog.Database),
		touched:       make(map[string]bool),
		startSnapshot: make(catalog.Database),
	}
}

// touch ensures table has been loaded into the working copy from committed
// storage, the first time it is referenced by this transaction. A table
// created for the first time within the transaction (CREATE TABLE) is left
// absent by touch and populated by the DDL handler instead.
func (t *Transaction) touch(table string) {
	if _, done := t.touched[table]; done {
		return
	}
	ts, ok := t.store.GetTable(table)
	t.touched[table] = ok
	if ok {
		t.working[table] = ts
		if t.Isolation == Serializable {
			t.startSnapshot[table] = ts.Clone()
		}
	}
}

// GetTableState returns the transaction's full working copy, for
// savepoint capture.
func (t *Transaction) GetTableState() catalog.Database {
	return t.working
}

// RestoreTableState replaces the working copy wholesale, used by ROLLBACK
// TO SAVEPOINT.
func (t *Transaction) RestoreTableState(db catalog.Database) {
	t.working = db
}

func (t *Transaction) createTable(stmt tableSchema) error {
	t.touch(stmt.Table)
	if _, exists := t.working[stmt.Table]; exists {
		if stmt.IfNotExists {
			return nil
		}
		return catalog.ErrTableExists
	}
	if err := catalog.ValidateSchema(stmt.Columns); err != nil {
		return err
	}
	t.working[stmt.Table] = &catalog.TableState{Schema: stmt.Columns}
	t.touched[stmt.Table] = true
	return nil
}

// tableSchema is the minimal shape createTable needs, decoupling it from
// the query package's concrete CreateTableStmt type.
type tableSchema struct {
	Table       string
	Columns     catalog.Schema
	IfNotExists bool
}

func (t *Transaction) dropTable(table string, ifExists bool) error {
	t.touch(table)
	if _, exists := t.working[table]; !exists {
		if ifExists {
			return nil
		}
		return catalog.ErrTableNotFound
	}
	delete(t.working, table)
	return nil
}

func (t *Transaction) alterAddColumn(table string, col catalog.ColumnDef) error {
	t.touch(table)
	ts, ok := t.working[table]
	if !ok {
		return catalog.ErrTableNotFound
	}
	ts.Schema = append(ts.Schema, col)
	zero := catalog.Value{Kind: col.DataType}
	for i := range ts.Rows {
		ts.Rows[i] = append(ts.Rows[i], zero)
	}
	return nil
}
