package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflux/txcore/pkg/catalog"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT UNIQUE)`)
	require.NoError(t, err)
	ct, ok := stmt.(*CreateTableStmt)
	require.True(t, ok)
	assert.Equal(t, "users", ct.Table)
	require.Len(t, ct.Columns, 3)
	assert.True(t, ct.Columns[0].Has(catalog.PrimaryKey))
	assert.True(t, ct.Columns[1].Has(catalog.NotNull))
	assert.True(t, ct.Columns[2].Has(catalog.Unique))
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse(`INSERT INTO users VALUES (1, 'alice', true)`)
	require.NoError(t, err)
	ins, ok := stmt.(*InsertStmt)
	require.True(t, ok)
	assert.Equal(t, "users", ins.Table)
	require.Len(t, ins.Values, 3)
	assert.Equal(t, catalog.IntegerValue(1), ins.Values[0])
	assert.Equal(t, catalog.TextValue("alice"), ins.Values[1])
	assert.Equal(t, catalog.BooleanValue(true), ins.Values[2])
}

func TestParseSelectWithJoinAndWhere(t *testing.T) {
	stmt, err := Parse(`SELECT users.name, orders.amount FROM users INNER JOIN orders ON users.id = orders.user_id WHERE orders.amount > 10 ORDER BY users.name DESC`)
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok)
	assert.Equal(t, "users", sel.From.Name)
	require.Len(t, sel.Joins, 1)
	assert.Equal(t, JoinInner, sel.Joins[0].Kind)
	assert.Equal(t, "orders", sel.Joins[0].Table.Name)
	where, ok := sel.Where.(*WhereRegular)
	require.True(t, ok)
	assert.Equal(t, "amount", where.Column)
	assert.Equal(t, OpGt, where.Op)
	require.Len(t, sel.OrderBy, 1)
	assert.True(t, sel.OrderBy[0].Desc)
}

func TestParseWhereAndOrPrecedence(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM t WHERE a = 1 AND b = 2 OR c = 3`)
	require.NoError(t, err)
	sel := stmt.(*SelectStmt)
	or, ok := sel.Where.(*WhereOr)
	require.True(t, ok)
	_, ok = or.Left.(*WhereAnd)
	assert.True(t, ok)
	_, ok = or.Right.(*WhereRegular)
	assert.True(t, ok)
}

func TestParseFTSMatch(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM docs WHERE docs.body MATCH 'database engine'`)
	require.NoError(t, err)
	sel := stmt.(*SelectStmt)
	fts, ok := sel.Where.(*WhereFTS)
	require.True(t, ok)
	assert.Equal(t, "body", fts.Column)
	assert.Equal(t, "database engine", fts.Query)
}

func TestParseSavepointsAndTransactionControl(t *testing.T) {
	_, err := Parse(`BEGIN TRANSACTION`)
	require.NoError(t, err)
	_, err = Parse(`SAVEPOINT sp1`)
	require.NoError(t, err)
	stmt, err := Parse(`ROLLBACK TO SAVEPOINT sp1`)
	require.NoError(t, err)
	rb := stmt.(*RollbackStmt)
	assert.Equal(t, "sp1", rb.Savepoint)
	_, err = Parse(`RELEASE SAVEPOINT sp1`)
	require.NoError(t, err)
	_, err = Parse(`COMMIT`)
	require.NoError(t, err)
}

func TestParseCreateAndDropIndex(t *testing.T) {
	stmt, err := Parse(`CREATE UNIQUE INDEX idx_email ON users (email)`)
	require.NoError(t, err)
	ci := stmt.(*CreateIndexStmt)
	assert.True(t, ci.Unique)
	assert.Equal(t, "users", ci.Table)
	assert.Equal(t, []string{"email"}, ci.Columns)

	stmt, err = Parse(`DROP INDEX IF EXISTS idx_email`)
	require.NoError(t, err)
	di := stmt.(*DropIndexStmt)
	assert.True(t, di.IfExists)
}

func TestParseAlterAddColumn(t *testing.T) {
	stmt, err := Parse(`ALTER TABLE users ADD COLUMN age INTEGER`)
	require.NoError(t, err)
	alter := stmt.(*AlterAddColumnStmt)
	assert.Equal(t, "users", alter.Table)
	assert.Equal(t, "age", alter.Column.Name)
	assert.Equal(t, catalog.Integer, alter.Column.DataType)
}
