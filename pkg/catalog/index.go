package catalog

import (
	"sync"

	"github.com/coreflux/txcore/pkg/btree"
)

// IndexDef describes one secondary index created by CREATE INDEX.
type IndexDef struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// IndexRegistry is the process-wide catalog of secondary indexes, each
// backed by an in-memory B+Tree keyed by the concatenated encoded values of
// the indexed columns and pointing at the owning row's primary key. Index
// content tracks committed state only: it is rebuilt from the authoritative
// table whenever a transaction that touched an indexed table commits, so an
// aborted transaction's writes never reach it.
type IndexRegistry struct {
	mu    sync.Mutex
	defs  map[string]*IndexDef
	trees map[string]*btree.BTree
}

// NewIndexRegistry creates an empty index registry.
func NewIndexRegistry() *IndexRegistry {
	return &IndexRegistry{
		defs:  make(map[string]*IndexDef),
		trees: make(map[string]*btree.BTree),
	}
}

// Create registers a new index named def.Name over def.Table, building its
// initial B+Tree content from rows (the table's current committed rows).
func (r *IndexRegistry) Create(def IndexDef, schema Schema, rows []Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return ErrIndexExists
	}
	tree, _ := btree.NewBTree(nil)
	colIdx := make([]int, len(def.Columns))
	for i, c := range def.Columns {
		colIdx[i] = schema.IndexOf(c)
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		_ = tree.Put(encodeIndexKey(row, colIdx), []byte(row[0].String()))
	}
	defCopy := def
	r.defs[def.Name] = &defCopy
	r.trees[def.Name] = tree
	return nil
}

// Drop removes a previously created index.
func (r *IndexRegistry) Drop(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[name]; !ok {
		return ErrIndexNotFound
	}
	delete(r.defs, name)
	delete(r.trees, name)
	return nil
}

// ForTable returns every index definition registered against table.
func (r *IndexRegistry) ForTable(table string) []IndexDef {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []IndexDef
	for _, def := range r.defs {
		if def.Table == table {
			out = append(out, *def)
		}
	}
	return out
}

// RebuildTable rebuilds every index registered against table from rows,
// the table's freshly committed row set. Called by the Transaction Manager
// after a commit publishes a table's working copy into storage.
func (r *IndexRegistry) RebuildTable(table string, schema Schema, rows []Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range r.defs {
		if def.Table != table {
			continue
		}
		tree, _ := btree.NewBTree(nil)
		colIdx := make([]int, len(def.Columns))
		for i, c := range def.Columns {
			colIdx[i] = schema.IndexOf(c)
		}
		for _, row := range rows {
			if len(row) == 0 {
				continue
			}
			_ = tree.Put(encodeIndexKey(row, colIdx), []byte(row[0].String()))
		}
		r.trees[name] = tree
	}
}

// DropTable removes every index registered against table, called when the
// table itself is dropped.
func (r *IndexRegistry) DropTable(table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range r.defs {
		if def.Table == table {
			delete(r.defs, name)
			delete(r.trees, name)
		}
	}
}

// Lookup answers a single-column equality predicate (column = value)
// directly from a covering index's B+Tree, if one exists over table,
// rather than forcing the caller to scan every row. Returns the matching
// row's primary-key string with coveredByIndex and hit both true on a hit;
// ("", true, false) if an index covers column but the value is absent from
// it; ("", false, false) if no index covers column. The caller falls back
// to a full scan on a miss, exactly as it would with no index at
// all (a probe that misses is not itself evidence the row doesn't exist,
// since the index only reflects the last committed rebuild).
func (r *IndexRegistry) Lookup(table, column string, value Value) (pk string, coveredByIndex bool, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range r.defs {
		if def.Table != table || len(def.Columns) != 1 || def.Columns[0] != column {
			continue
		}
		tree := r.trees[name]
		if tree == nil {
			continue
		}
		found, err := tree.Get(encodeIndexKey(Row{value}, []int{0}))
		if err != nil {
			return "", true, false
		}
		return string(found), true, true
	}
	return "", false, false
}

func encodeIndexKey(row Row, colIdx []int) []byte {
	var buf []byte
	for _, i := range colIdx {
		if i >= 0 && i < len(row) {
			buf = append(buf, []byte(row[i].String())...)
		}
		buf = append(buf, 0)
	}
	return buf
}
