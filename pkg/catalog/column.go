package catalog

// ColumnDef is a single column definition within a table's schema.
type ColumnDef struct {
	Name        string
	DataType    DataType
	Constraints []Constraint
}

// Has reports whether the column declares the given constraint.
func (c ColumnDef) Has(want Constraint) bool {
	for _, c := range c.Constraints {
		if c == want {
			return true
		}
	}
	return false
}

// Schema is an ordered list of column definitions, the unit the executor
// resolves names against. A "combined schema" after a JOIN is the
// concatenation of a base Schema with each joined table's Schema, in
// declaration order (see CombinedSchema.Resolve).
type Schema []ColumnDef

// IndexOf returns the position of name within the schema, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// segment names one table's slice of a combined schema.
type segment struct {
	table string
	start int
	cols  Schema
}

// CombinedSchema resolves column references across a base schema and its
// joined schemas: a table-qualified reference is restricted to that
// table's segment; an unqualified reference that resolves in more than one
// segment is ambiguous.
type CombinedSchema struct {
	segments []segment
	Flat     Schema
}

// NewCombinedSchema builds a CombinedSchema from a base table (name, schema)
// and zero or more joined tables in declaration order.
func NewCombinedSchema(baseName string, base Schema, joined ...struct {
	Name   string
	Schema Schema
}) *CombinedSchema {
	cs := &CombinedSchema{}
	cs.segments = append(cs.segments, segment{table: baseName, start: 0, cols: base})
	cs.Flat = append(cs.Flat, base...)
	for _, j := range joined {
		cs.segments = append(cs.segments, segment{table: j.Name, start: len(cs.Flat), cols: j.Schema})
		cs.Flat = append(cs.Flat, j.Schema...)
	}
	return cs
}

// Resolve returns the flat index of a (possibly table-qualified) column
// name. An empty table means "search every segment"; if the name resolves
// in more than one segment, ErrAmbiguousColumn is returned. A name that
// resolves in no segment returns (-1, nil) so callers can treat a
// missing column as "predicate is false" rather than erroring.
func (cs *CombinedSchema) Resolve(table, name string) (int, error) {
	if table != "" {
		for _, seg := range cs.segments {
			if seg.table == table {
				idx := seg.cols.IndexOf(name)
				if idx < 0 {
					return -1, nil
				}
				return seg.start + idx, nil
			}
		}
		return -1, nil
	}

	found := -1
	for _, seg := range cs.segments {
		idx := seg.cols.IndexOf(name)
		if idx < 0 {
			continue
		}
		if found >= 0 {
			return -1, ErrAmbiguousColumn
		}
		found = seg.start + idx
	}
	return found, nil
}

// SegmentFor returns the flat start index and schema slice for the named
// table within the combined schema, and whether it was found.
func (cs *CombinedSchema) SegmentFor(table string) (int, Schema, bool) {
	for _, seg := range cs.segments {
		if seg.table == table {
			return seg.start, seg.cols, true
		}
	}
	return 0, nil, false
}
