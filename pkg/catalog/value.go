package catalog

import (
	"fmt"
	"time"
)

// DataType is one of the column types accepted by the SQL surface.
type DataType uint8

const (
	Integer DataType = iota
	Float
	Text
	Boolean
	Date
	Timestamp
	TSVector
)

func (d DataType) String() string {
	switch d {
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Text:
		return "TEXT"
	case Boolean:
		return "BOOLEAN"
	case Date:
		return "DATE"
	case Timestamp:
		return "TIMESTAMP"
	case TSVector:
		return "TSVECTOR"
	default:
		return "UNKNOWN"
	}
}

// Constraint is one of the column constraints carried in the data model.
type Constraint uint8

const (
	PrimaryKey Constraint = iota
	NotNull
	Unique
)

// Value is a tagged union over the accepted cell types. Exactly one of the
// typed fields is meaningful, selected by Kind.
type Value struct {
	Kind DataType
	I    int64
	F    float64
	S    string
	B    bool
	T    time.Time
}

func IntegerValue(v int64) Value     { return Value{Kind: Integer, I: v} }
func FloatValue(v float64) Value     { return Value{Kind: Float, F: v} }
func TextValue(v string) Value       { return Value{Kind: Text, S: v} }
func BooleanValue(v bool) Value      { return Value{Kind: Boolean, B: v} }
func DateValue(v time.Time) Value    { return Value{Kind: Date, T: v} }
func TimestampValue(v time.Time) Value { return Value{Kind: Timestamp, T: v} }
func TSVectorValue(v string) Value   { return Value{Kind: TSVector, S: v} }

// IsInteger reports whether the value carries an Integer kind.
func (v Value) IsInteger() bool { return v.Kind == Integer }

func (v Value) String() string {
	switch v.Kind {
	case Integer:
		return fmt.Sprintf("%d", v.I)
	case Float:
		return fmt.Sprintf("%g", v.F)
	case Text, TSVector:
		return v.S
	case Boolean:
		return fmt.Sprintf("%t", v.B)
	case Date:
		return v.T.Format("2006-01-02")
	case Timestamp:
		return v.T.Format(time.RFC3339)
	default:
		return ""
	}
}

// numeric reports a value's numeric magnitude for cross Integer/Float compares.
func (v Value) numeric() (float64, bool) {
	switch v.Kind {
	case Integer:
		return float64(v.I), true
	case Float:
		return v.F, true
	default:
		return 0, false
	}
}

// Compare returns -1, 0, or 1 comparing v to other. Values of different
// incomparable kinds compare equal (false for every ordering predicate);
// Integer and Float compare numerically against one another.
func (v Value) Compare(other Value) int {
	if vn, ok := v.numeric(); ok {
		if on, ok2 := other.numeric(); ok2 {
			switch {
			case vn < on:
				return -1
			case vn > on:
				return 1
			default:
				return 0
			}
		}
		return 0
	}
	if v.Kind != other.Kind {
		return 0
	}
	switch v.Kind {
	case Text, TSVector:
		switch {
		case v.S < other.S:
			return -1
		case v.S > other.S:
			return 1
		default:
			return 0
		}
	case Boolean:
		if v.B == other.B {
			return 0
		}
		if !v.B && other.B {
			return -1
		}
		return 1
	case Date, Timestamp:
		if v.T.Before(other.T) {
			return -1
		}
		if v.T.After(other.T) {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Interface unwraps v to the Go value its Kind selects, for callers (the
// server's wire-protocol result rows) that need a plain interface{} rather
// than the tagged union.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case Integer:
		return v.I
	case Float:
		return v.F
	case Text, TSVector:
		return v.S
	case Boolean:
		return v.B
	case Date, Timestamp:
		return v.T
	default:
		return nil
	}
}

// Equal reports whether v and other are the same value: Integer and Float
// compare numerically; any other pair must share a Kind and Compare as 0.
func (v Value) Equal(other Value) bool {
	if vn, ok := v.numeric(); ok {
		if on, ok2 := other.numeric(); ok2 {
			return vn == on
		}
		return false
	}
	if v.Kind != other.Kind {
		return false
	}
	return v.Compare(other) == 0
}
