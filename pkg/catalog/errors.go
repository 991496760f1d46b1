package catalog

import "errors"

var (
	// ErrTableExists is returned by CREATE TABLE when the name is already registered.
	ErrTableExists = errors.New("table already exists")
	// ErrTableNotFound is returned when a table name has no matching definition.
	ErrTableNotFound = errors.New("table not found")
	// ErrColumnNotFound is returned when a column name does not resolve in scope.
	ErrColumnNotFound = errors.New("column not found")
	// ErrAmbiguousColumn is returned when an unqualified column name resolves
	// in more than one schema segment of a joined query.
	ErrAmbiguousColumn = errors.New("ambiguous column reference")
	// ErrIndexExists is returned by IndexRegistry.Create when the name is already registered.
	ErrIndexExists = errors.New("index already exists")
	// ErrIndexNotFound is returned by IndexRegistry.Drop when the name is unknown.
	ErrIndexNotFound = errors.New("index not found")
	// ErrMultiplePrimaryKeys is returned when a CREATE TABLE declares more
	// than one PrimaryKey column.
	ErrMultiplePrimaryKeys = errors.New("table declares more than one primary key column")
	// ErrNonIntegerPrimaryKey is returned when a PrimaryKey column's declared
	// type is not Integer. MVCC tracking keys on the primary key value and
	// requires it be an integer (see row key format); rather than silently
	// bypass version tracking for such rows, CREATE TABLE rejects them.
	ErrNonIntegerPrimaryKey = errors.New("primary key column must be of type Integer")
	// ErrConstraintViolation is returned by row validation (NotNull/Unique).
	ErrConstraintViolation = errors.New("constraint violation")
)
