package txn

import (
	"fmt"
	"sort"

	"github.com/coreflux/txcore/pkg/catalog"
	"github.com/coreflux/txcore/pkg/mvcc"
	"github.com/coreflux/txcore/pkg/query"
)

// visibleRows returns ts's rows as seen by tx: MVCC-tracked rows (integer
// primary key) are resolved through the mvcc.Manager at tx's current
// snapshot, so a row another transaction deleted or has not yet committed
// is omitted; non-MVCC-tracked rows (non-integer primary key) pass through
// from the working copy untouched.
func (m *Manager) visibleRows(tx *Transaction, table string, ts *catalog.TableState) []catalog.Row {
	out := make([]catalog.Row, 0, len(ts.Rows))
	for _, row := range ts.Rows {
		if len(row) == 0 || !row[0].IsInteger() {
			out = append(out, row)
			continue
		}
		key := mvcc.RowKey(table, 0, row[0])
		if data, ok := m.mvcc.ReadCommitted(tx.ID, key); ok {
			out = append(out, data)
		}
	}
	return out
}

// baseRows returns table's rows as seen by tx, same as visibleRows, but
// first tries to answer a simple top-level equality WHERE (no JOIN
// present) with a single probe against a covering secondary index instead
// of scanning and MVCC-resolving every row in the table. Any predicate
// shape the index can't answer — compound WHERE, a non-equality operator,
// no index over the column, or a probe that misses — falls back to
// visibleRows exactly as if no index existed, so the index is purely an
// access-path choice, never a second source of truth.
func (m *Manager) baseRows(tx *Transaction, table string, ts *catalog.TableState, noJoins bool, where query.WhereExpr) []catalog.Row {
	if noJoins {
		if reg, ok := where.(*query.WhereRegular); ok && reg.Op == query.OpEq && (reg.Table == "" || reg.Table == table) {
			if pk, covered, hit := m.indexes.Lookup(table, reg.Column, reg.Value); covered && hit {
				if row, found := m.resolveVisibleByPK(tx, table, ts, pk); found {
					return []catalog.Row{row}
				}
				return nil
			}
		}
	}
	return m.visibleRows(tx, table, ts)
}

// resolveVisibleByPK locates the working-copy row whose primary key
// stringifies to pk and resolves it through the MVCC manager exactly as
// visibleRows would, so an index-assisted lookup and a full scan agree on
// visibility.
func (m *Manager) resolveVisibleByPK(tx *Transaction, table string, ts *catalog.TableState, pk string) (catalog.Row, bool) {
	for _, row := range ts.Rows {
		if len(row) == 0 || row[0].String() != pk {
			continue
		}
		if !row[0].IsInteger() {
			return row, true
		}
		key := mvcc.RowKey(table, 0, row[0])
		return m.mvcc.ReadCommitted(tx.ID, key)
	}
	return nil, false
}

// compareOp applies a WHERE comparison operator between two values.
func compareOp(a catalog.Value, op query.CompareOp, b catalog.Value) bool {
	switch op {
	case query.OpEq:
		return a.Equal(b)
	case query.OpNeq:
		return !a.Equal(b)
	case query.OpLt:
		return a.Compare(b) < 0
	case query.OpLte:
		return a.Compare(b) < 0 || a.Equal(b)
	case query.OpGt:
		return a.Compare(b) > 0
	case query.OpGte:
		return a.Compare(b) > 0 || a.Equal(b)
	default:
		return false
	}
}

// evalWhere recursively evaluates a WHERE predicate against one flat tuple,
// resolving column references against cs. baseTable is the unqualified
// default table for FTS predicates.
func (m *Manager) evalWhere(cs *catalog.CombinedSchema, baseTable string, tuple catalog.Row, expr query.WhereExpr) (bool, error) {
	if expr == nil {
		return true, nil
	}
	switch e := expr.(type) {
	case *query.WhereRegular:
		idx, err := cs.Resolve(e.Table, e.Column)
		if err != nil {
			return false, fmt.Errorf("%w: %s", ErrAmbiguousColumn, e.Column)
		}
		if idx < 0 {
			return false, nil
		}
		return compareOp(tuple[idx], e.Op, e.Value), nil
	case *query.WhereAnd:
		l, err := m.evalWhere(cs, baseTable, tuple, e.Left)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return m.evalWhere(cs, baseTable, tuple, e.Right)
	case *query.WhereOr:
		l, err := m.evalWhere(cs, baseTable, tuple, e.Left)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return m.evalWhere(cs, baseTable, tuple, e.Right)
	case *query.WhereFTS:
		tbl := e.Table
		if tbl == "" {
			tbl = baseTable
		}
		start, _, found := cs.SegmentFor(tbl)
		if !found {
			return false, nil
		}
		ids := m.fts.Search(tbl, e.Column, e.Query, "", "")
		if len(ids) == 0 {
			return false, nil
		}
		_, ok := ids[tuple[start].String()]
		return ok, nil
	default:
		return false, fmt.Errorf("%w: unknown WHERE expression", ErrInvalidOperation)
	}
}

// resolvePairValue resolves one side of a join equality condition: if table
// is empty or does not name the candidate table, it is looked up in the
// already-built partial tuple via cs; otherwise it is looked up directly in
// the joined table's own candidate row, since a join pair may reference
// either side of the join.
func resolvePairValue(cs *catalog.CombinedSchema, partial catalog.Row, candTable string, candSchema catalog.Schema, cand catalog.Row, table, col string) (catalog.Value, bool) {
	if table == "" || table != candTable {
		if idx, err := cs.Resolve(table, col); err == nil && idx >= 0 && idx < len(partial) {
			return partial[idx], true
		}
	}
	if table == "" || table == candTable {
		if idx := candSchema.IndexOf(col); idx >= 0 {
			return cand[idx], true
		}
	}
	return catalog.Value{}, false
}

// sortTuples stably sorts tuples by the ORDER BY clauses, resolving each
// key against cs.
func sortTuples(cs *catalog.CombinedSchema, tuples []catalog.Row, orderBy []query.OrderByClause) error {
	if len(orderBy) == 0 {
		return nil
	}
	indices := make([]int, len(orderBy))
	for i, ob := range orderBy {
		idx, err := cs.Resolve(ob.Table, ob.Column)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrAmbiguousColumn, ob.Column)
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, ob.Column)
		}
		indices[i] = idx
	}
	sort.SliceStable(tuples, func(a, b int) bool {
		for i, idx := range indices {
			c := tuples[a][idx].Compare(tuples[b][idx])
			if orderBy[i].Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return nil
}

// projectColumns builds the output column names and per-tuple projected
// rows for a SELECT's column list, expanding "*" to every column of cs.
func projectColumns(cs *catalog.CombinedSchema, cols []query.SelectColumn, tuples []catalog.Row) ([]string, []catalog.Row, error) {
	if len(cols) == 1 && cols[0].Name == "*" && cols[0].Table == "" {
		names := make([]string, len(cs.Flat))
		for i, c := range cs.Flat {
			names[i] = c.Name
		}
		return names, tuples, nil
	}

	var indices []int
	var names []string
	for _, c := range cols {
		if c.Name == "*" {
			_, schema, found := cs.SegmentFor(c.Table)
			if !found {
				return nil, nil, fmt.Errorf("%w: %s", ErrTableNotFound, c.Table)
			}
			start, _, _ := cs.SegmentFor(c.Table)
			for i, col := range schema {
				indices = append(indices, start+i)
				names = append(names, col.Name)
			}
			continue
		}
		idx, err := cs.Resolve(c.Table, c.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrAmbiguousColumn, c.Name)
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrColumnNotFound, c.Name)
		}
		indices = append(indices, idx)
		names = append(names, c.Name)
	}

	out := make([]catalog.Row, len(tuples))
	for i, t := range tuples {
		row := make(catalog.Row, len(indices))
		for j, idx := range indices {
			row[j] = t[idx]
		}
		out[i] = row
	}
	return names, out, nil
}
