// Package query implements the lexer, parser, and AST for the SQL surface
// accepted by the transaction core: CREATE/DROP/ALTER TABLE,
// CREATE/DROP INDEX, INSERT, UPDATE, DELETE, SELECT with INNER JOIN, WHERE,
// and ORDER BY, plus BEGIN/COMMIT/ROLLBACK/SAVEPOINT transaction control.
package query

import "github.com/coreflux/txcore/pkg/catalog"

// Statement is the parsed form of one SQL statement.
type Statement interface {
	statementNode()
}

// CreateTableStmt is CREATE TABLE name (col type constraints, ...).
type CreateTableStmt struct {
	IfNotExists bool
	Table       string
	Columns     []catalog.ColumnDef
}

func (*CreateTableStmt) statementNode() {}

// DropTableStmt is DROP TABLE name.
type DropTableStmt struct {
	IfExists bool
	Table    string
}

func (*DropTableStmt) statementNode() {}

// AlterAddColumnStmt is ALTER TABLE name ADD COLUMN col type.
type AlterAddColumnStmt struct {
	Table  string
	Column catalog.ColumnDef
}

func (*AlterAddColumnStmt) statementNode() {}

// CreateIndexStmt is CREATE [UNIQUE] INDEX name ON table (col, ...).
type CreateIndexStmt struct {
	IfNotExists bool
	Index       string
	Table       string
	Columns     []string
	Unique      bool
}

func (*CreateIndexStmt) statementNode() {}

// DropIndexStmt is DROP INDEX name.
type DropIndexStmt struct {
	IfExists bool
	Index    string
}

func (*DropIndexStmt) statementNode() {}

// InsertStmt is INSERT INTO table VALUES (...), one row per statement.
type InsertStmt struct {
	Table  string
	Values []catalog.Value
}

func (*InsertStmt) statementNode() {}

// SetClause is one column=value assignment within an UPDATE statement.
type SetClause struct {
	Column string
	Value  catalog.Value
}

// UpdateStmt is UPDATE table SET col=v [, ...] [WHERE ...].
type UpdateStmt struct {
	Table string
	Set   []SetClause
	Where WhereExpr
}

func (*UpdateStmt) statementNode() {}

// DeleteStmt is DELETE FROM table [WHERE ...].
type DeleteStmt struct {
	Table string
	Where WhereExpr
}

func (*DeleteStmt) statementNode() {}

// TableRef names a table in a FROM or JOIN clause.
type TableRef struct {
	Name string
}

// JoinKind is the kind of JOIN named in the grammar. Only Inner is
// semantically implemented; the others parse but the executor rejects them
// with ErrUnimplemented.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
)

// JoinClause is one INNER JOIN t2 ON a.x = b.y clause. The equi-join
// condition is a pair of (table, column) references on each side.
type JoinClause struct {
	Kind         JoinKind
	Table        TableRef
	LeftTable    string
	LeftColumn   string
	RightTable   string
	RightColumn  string
}

// SelectColumn is one projected column; Name == "*" requests the full row.
type SelectColumn struct {
	Table string
	Name  string
}

// OrderByClause is one ORDER BY key.
type OrderByClause struct {
	Table  string
	Column string
	Desc   bool
}

// SelectStmt is SELECT cols FROM t [JOIN ...] [WHERE ...] [ORDER BY ...].
type SelectStmt struct {
	Columns []SelectColumn
	From    TableRef
	Joins   []JoinClause
	Where   WhereExpr
	OrderBy []OrderByClause
}

func (*SelectStmt) statementNode() {}

// BeginStmt is BEGIN [TRANSACTION] [isolation-level-name].
type BeginStmt struct {
	Isolation string
}

func (*BeginStmt) statementNode() {}

// CommitStmt is COMMIT.
type CommitStmt struct{}

func (*CommitStmt) statementNode() {}

// RollbackStmt is ROLLBACK, or ROLLBACK TO SAVEPOINT name if Savepoint != "".
type RollbackStmt struct {
	Savepoint string
}

func (*RollbackStmt) statementNode() {}

// SavepointStmt is SAVEPOINT name.
type SavepointStmt struct {
	Name string
}

func (*SavepointStmt) statementNode() {}

// ReleaseSavepointStmt is RELEASE SAVEPOINT name.
type ReleaseSavepointStmt struct {
	Name string
}

func (*ReleaseSavepointStmt) statementNode() {}

// CompareOp is a WHERE clause binary comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// WhereExpr is the recursive WHERE predicate shape:
// Regular{table?, col, op, value} | And(l,r) | Or(l,r) | FTS(...).
type WhereExpr interface {
	whereNode()
}

// WhereRegular compares one column against a literal value.
type WhereRegular struct {
	Table  string // empty means "resolve across every joined schema"
	Column string
	Op     CompareOp
	Value  catalog.Value
}

func (*WhereRegular) whereNode() {}

// WhereAnd is a conjunction of two predicates.
type WhereAnd struct{ Left, Right WhereExpr }

func (*WhereAnd) whereNode() {}

// WhereOr is a disjunction of two predicates.
type WhereOr struct{ Left, Right WhereExpr }

func (*WhereOr) whereNode() {}

// WhereFTS is a full-text predicate over a TSVector column, evaluated by
// the fts collaborator rather than the generic comparison path.
type WhereFTS struct {
	Table  string
	Column string
	Query  string
}

func (*WhereFTS) whereNode() {}
