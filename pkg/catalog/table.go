package catalog

import "fmt"

// Row is one tuple, ordered to match its table's Schema.
type Row []Value

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// TableState is the schema plus row data for one table: an ordered schema
// and an ordered, insertion-stable row list.
type TableState struct {
	Schema Schema
	Rows   []Row
}

// Clone deep-copies a table's schema and rows.
func (t *TableState) Clone() *TableState {
	if t == nil {
		return nil
	}
	schema := make(Schema, len(t.Schema))
	copy(schema, t.Schema)
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Clone()
	}
	return &TableState{Schema: schema, Rows: rows}
}

// ValidateSchema enforces the CREATE TABLE-time schema constraints: at most
// one PrimaryKey column, and that column (if present) must be Integer so
// the MVCC row key format ("{table}/{col_index}/{pk}") always has an
// integer primary key to encode.
func ValidateSchema(schema Schema) error {
	pkSeen := false
	for _, col := range schema {
		if col.Has(PrimaryKey) {
			if pkSeen {
				return ErrMultiplePrimaryKeys
			}
			pkSeen = true
			if col.DataType != Integer {
				return ErrNonIntegerPrimaryKey
			}
		}
	}
	return nil
}

// ValidateRow enforces NotNull/Unique/PrimaryKey row constraints against the
// rows already present in the table. A nil cell is represented by the zero
// Value of the column's kind; callers that support an explicit NULL literal
// treat it as "absent" before calling ValidateRow.
func ValidateRow(schema Schema, existing []Row, row Row, nullMask []bool) error {
	for i, col := range schema {
		isNull := nullMask != nil && i < len(nullMask) && nullMask[i]
		if (col.Has(NotNull) || col.Has(PrimaryKey)) && isNull {
			return fmt.Errorf("%w: column %q may not be null", ErrConstraintViolation, col.Name)
		}
		if col.Has(Unique) || col.Has(PrimaryKey) {
			if isNull {
				continue
			}
			for _, existingRow := range existing {
				if i < len(existingRow) && existingRow[i].Equal(row[i]) {
					return fmt.Errorf("%w: column %q must be unique", ErrConstraintViolation, col.Name)
				}
			}
		}
	}
	return nil
}

// Database is the full table_name -> TableState mapping that a transaction's
// working copy, and the committed storage backend, each hold one of.
type Database map[string]*TableState

// Clone deep-copies every table in the database.
func (d Database) Clone() Database {
	out := make(Database, len(d))
	for name, ts := range d {
		out[name] = ts.Clone()
	}
	return out
}

// CloneTable deep-copies a single table from d into dst, used for the lazy
// per-table working-copy discipline a transaction applies on first touch.
func (d Database) CloneTable(dst Database, name string) bool {
	ts, ok := d[name]
	if !ok {
		return false
	}
	dst[name] = ts.Clone()
	return true
}
