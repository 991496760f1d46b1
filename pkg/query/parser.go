package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coreflux/txcore/pkg/catalog"
)

// Parser is a recursive-descent parser over the token stream produced by
// Lexer, targeting a trimmed SQL grammar: DDL, DML, transaction control,
// and savepoints.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser tokenizes input and prepares a Parser positioned at the first token.
func NewParser(input string) (*Parser, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return &Parser{tokens: tokens}, nil
}

// Parse tokenizes and parses a single statement, ignoring a trailing semicolon.
func Parse(input string) (Statement, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}
	return p.ParseStatement()
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) match(tt TokenType) bool {
	if p.cur().Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.cur().Type != tt {
		return Token{}, fmt.Errorf("expected %s, got %s %q at line %d",
			TokenTypeString(tt), TokenTypeString(p.cur().Type), p.cur().Literal, p.cur().Line)
	}
	return p.advance(), nil
}

// ParseStatement dispatches on the leading keyword and parses one statement.
func (p *Parser) ParseStatement() (Statement, error) {
	var stmt Statement
	var err error

	switch p.cur().Type {
	case TokenCreate:
		stmt, err = p.parseCreate()
	case TokenDrop:
		stmt, err = p.parseDrop()
	case TokenAlter:
		stmt, err = p.parseAlter()
	case TokenInsert:
		stmt, err = p.parseInsert()
	case TokenUpdate:
		stmt, err = p.parseUpdate()
	case TokenDelete:
		stmt, err = p.parseDelete()
	case TokenSelect:
		stmt, err = p.parseSelect()
	case TokenBegin:
		stmt, err = p.parseBegin()
	case TokenCommit:
		p.advance()
		stmt, err = &CommitStmt{}, nil
	case TokenRollback:
		stmt, err = p.parseRollback()
	case TokenSavepoint:
		stmt, err = p.parseSavepoint()
	case TokenRelease:
		stmt, err = p.parseRelease()
	default:
		return nil, fmt.Errorf("unexpected token %s %q at line %d", TokenTypeString(p.cur().Type), p.cur().Literal, p.cur().Line)
	}
	if err != nil {
		return nil, err
	}
	p.match(TokenSemicolon)
	return stmt, nil
}

// --- DDL ---

func (p *Parser) parseCreate() (Statement, error) {
	p.advance() // CREATE
	if p.cur().Type == TokenTable {
		return p.parseCreateTable()
	}
	if p.cur().Type == TokenUnique || p.cur().Type == TokenIndex {
		return p.parseCreateIndex()
	}
	return nil, fmt.Errorf("expected TABLE or INDEX after CREATE, got %s at line %d", TokenTypeString(p.cur().Type), p.cur().Line)
}

func (p *Parser) parseCreateTable() (*CreateTableStmt, error) {
	p.advance() // TABLE
	ifNotExists := p.parseIfNotExists()
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var cols []catalog.ColumnDef
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if !p.match(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &CreateTableStmt{IfNotExists: ifNotExists, Table: name.Literal, Columns: cols}, nil
}

func (p *Parser) parseIfNotExists() bool {
	if p.cur().Type != TokenIf {
		return false
	}
	p.advance()
	p.match(TokenNot)
	p.match(TokenExists)
	return true
}

func (p *Parser) parseIfExists() bool {
	if p.cur().Type != TokenIf {
		return false
	}
	p.advance()
	p.match(TokenExists)
	return true
}

func (p *Parser) parseColumnDef() (catalog.ColumnDef, error) {
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return catalog.ColumnDef{}, err
	}
	dt, err := p.parseDataType()
	if err != nil {
		return catalog.ColumnDef{}, err
	}
	var constraints []catalog.Constraint
	for {
		switch p.cur().Type {
		case TokenPrimary:
			p.advance()
			if _, err := p.expect(TokenKey); err != nil {
				return catalog.ColumnDef{}, err
			}
			constraints = append(constraints, catalog.PrimaryKey)
		case TokenNot:
			p.advance()
			if _, err := p.expect(TokenNull); err != nil {
				return catalog.ColumnDef{}, err
			}
			constraints = append(constraints, catalog.NotNull)
		case TokenUnique:
			p.advance()
			constraints = append(constraints, catalog.Unique)
		default:
			return catalog.ColumnDef{Name: name.Literal, DataType: dt, Constraints: constraints}, nil
		}
	}
}

func (p *Parser) parseDataType() (catalog.DataType, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenInteger:
		return catalog.Integer, nil
	case TokenFloat:
		return catalog.Float, nil
	case TokenText:
		return catalog.Text, nil
	case TokenBoolean:
		return catalog.Boolean, nil
	case TokenDate:
		return catalog.Date, nil
	case TokenTimestamp:
		return catalog.Timestamp, nil
	case TokenTsvector:
		return catalog.TSVector, nil
	default:
		return 0, fmt.Errorf("expected a data type, got %s %q at line %d", TokenTypeString(tok.Type), tok.Literal, tok.Line)
	}
}

func (p *Parser) parseDrop() (Statement, error) {
	p.advance() // DROP
	switch p.cur().Type {
	case TokenTable:
		p.advance()
		ifExists := p.parseIfExists()
		name, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		return &DropTableStmt{IfExists: ifExists, Table: name.Literal}, nil
	case TokenIndex:
		p.advance()
		ifExists := p.parseIfExists()
		name, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		return &DropIndexStmt{IfExists: ifExists, Index: name.Literal}, nil
	default:
		return nil, fmt.Errorf("expected TABLE or INDEX after DROP, got %s at line %d", TokenTypeString(p.cur().Type), p.cur().Line)
	}
}

func (p *Parser) parseAlter() (Statement, error) {
	p.advance() // ALTER
	if _, err := p.expect(TokenTable); err != nil {
		return nil, err
	}
	table, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAdd); err != nil {
		return nil, err
	}
	p.match(TokenColumn)
	col, err := p.parseColumnDef()
	if err != nil {
		return nil, err
	}
	return &AlterAddColumnStmt{Table: table.Literal, Column: col}, nil
}

func (p *Parser) parseCreateIndex() (*CreateIndexStmt, error) {
	unique := p.match(TokenUnique)
	if _, err := p.expect(TokenIndex); err != nil {
		return nil, err
	}
	ifNotExists := p.parseIfNotExists()
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenOn); err != nil {
		return nil, err
	}
	table, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var cols []string
	for {
		c, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.Literal)
		if !p.match(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &CreateIndexStmt{IfNotExists: ifNotExists, Index: name.Literal, Table: table.Literal, Columns: cols, Unique: unique}, nil
}

// --- DML ---

func (p *Parser) parseInsert() (*InsertStmt, error) {
	p.advance() // INSERT
	if _, err := p.expect(TokenInto); err != nil {
		return nil, err
	}
	table, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenValues); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var values []catalog.Value
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if !p.match(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &InsertStmt{Table: table.Literal, Values: values}, nil
}

func (p *Parser) parseUpdate() (*UpdateStmt, error) {
	p.advance() // UPDATE
	table, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenSet); err != nil {
		return nil, err
	}
	var sets []SetClause
	for {
		col, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenEq); err != nil {
			return nil, err
		}
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		sets = append(sets, SetClause{Column: col.Literal, Value: v})
		if !p.match(TokenComma) {
			break
		}
	}
	var where WhereExpr
	if p.cur().Type == TokenWhere {
		p.advance()
		where, err = p.parseWhereExpr()
		if err != nil {
			return nil, err
		}
	}
	return &UpdateStmt{Table: table.Literal, Set: sets, Where: where}, nil
}

func (p *Parser) parseDelete() (*DeleteStmt, error) {
	p.advance() // DELETE
	if _, err := p.expect(TokenFrom); err != nil {
		return nil, err
	}
	table, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	var where WhereExpr
	if p.cur().Type == TokenWhere {
		p.advance()
		where, err = p.parseWhereExpr()
		if err != nil {
			return nil, err
		}
	}
	return &DeleteStmt{Table: table.Literal, Where: where}, nil
}

func (p *Parser) parseSelect() (*SelectStmt, error) {
	p.advance() // SELECT
	var cols []SelectColumn
	for {
		sc, err := p.parseSelectColumn()
		if err != nil {
			return nil, err
		}
		cols = append(cols, sc)
		if !p.match(TokenComma) {
			break
		}
	}
	if _, err := p.expect(TokenFrom); err != nil {
		return nil, err
	}
	fromTok, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	stmt := &SelectStmt{Columns: cols, From: TableRef{Name: fromTok.Literal}}

	for isJoinStart(p.cur().Type) {
		jc, err := p.parseJoinClause()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, jc)
	}

	if p.cur().Type == TokenWhere {
		p.advance()
		where, err := p.parseWhereExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.cur().Type == TokenOrder {
		p.advance()
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		for {
			ob, err := p.parseOrderByItem()
			if err != nil {
				return nil, err
			}
			stmt.OrderBy = append(stmt.OrderBy, ob)
			if !p.match(TokenComma) {
				break
			}
		}
	}

	return stmt, nil
}

func isJoinStart(tt TokenType) bool {
	switch tt {
	case TokenJoin, TokenInner, TokenLeft, TokenRight, TokenFull:
		return true
	default:
		return false
	}
}

func (p *Parser) parseJoinClause() (JoinClause, error) {
	kind := JoinInner
	switch p.cur().Type {
	case TokenInner:
		p.advance()
	case TokenLeft:
		p.advance()
		kind = JoinLeft
	case TokenRight:
		p.advance()
		kind = JoinRight
	case TokenFull:
		p.advance()
		kind = JoinFull
	}
	if _, err := p.expect(TokenJoin); err != nil {
		return JoinClause{}, err
	}
	table, err := p.expect(TokenIdentifier)
	if err != nil {
		return JoinClause{}, err
	}
	if _, err := p.expect(TokenOn); err != nil {
		return JoinClause{}, err
	}
	leftTable, leftCol, err := p.parseQualifiedColumn()
	if err != nil {
		return JoinClause{}, err
	}
	if _, err := p.expect(TokenEq); err != nil {
		return JoinClause{}, err
	}
	rightTable, rightCol, err := p.parseQualifiedColumn()
	if err != nil {
		return JoinClause{}, err
	}
	return JoinClause{
		Kind:        kind,
		Table:       TableRef{Name: table.Literal},
		LeftTable:   leftTable,
		LeftColumn:  leftCol,
		RightTable:  rightTable,
		RightColumn: rightCol,
	}, nil
}

// parseQualifiedColumn parses `table.column` or a bare `column`.
func (p *Parser) parseQualifiedColumn() (table, column string, err error) {
	first, err := p.expect(TokenIdentifier)
	if err != nil {
		return "", "", err
	}
	if p.match(TokenDot) {
		second, err := p.expect(TokenIdentifier)
		if err != nil {
			return "", "", err
		}
		return first.Literal, second.Literal, nil
	}
	return "", first.Literal, nil
}

func (p *Parser) parseSelectColumn() (SelectColumn, error) {
	if p.cur().Type == TokenStar {
		p.advance()
		return SelectColumn{Name: "*"}, nil
	}
	table, col, err := p.parseQualifiedColumn()
	if err != nil {
		return SelectColumn{}, err
	}
	return SelectColumn{Table: table, Name: col}, nil
}

func (p *Parser) parseOrderByItem() (OrderByClause, error) {
	table, col, err := p.parseQualifiedColumn()
	if err != nil {
		return OrderByClause{}, err
	}
	desc := false
	if p.cur().Type == TokenAsc {
		p.advance()
	} else if p.cur().Type == TokenDesc {
		p.advance()
		desc = true
	}
	return OrderByClause{Table: table, Column: col, Desc: desc}, nil
}

// --- WHERE ---

func (p *Parser) parseWhereExpr() (WhereExpr, error) {
	return p.parseOrExpr()
}

func (p *Parser) parseOrExpr() (WhereExpr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == TokenOr {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &WhereOr{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (WhereExpr, error) {
	left, err := p.parseWherePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == TokenAnd {
		p.advance()
		right, err := p.parseWherePrimary()
		if err != nil {
			return nil, err
		}
		left = &WhereAnd{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseWherePrimary() (WhereExpr, error) {
	if p.match(TokenLParen) {
		expr, err := p.parseWhereExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil
	}

	table, col, err := p.parseQualifiedColumn()
	if err != nil {
		return nil, err
	}

	if p.cur().Type == TokenMatch {
		p.advance()
		lit, err := p.expect(TokenString)
		if err != nil {
			return nil, err
		}
		return &WhereFTS{Table: table, Column: col, Query: lit.Literal}, nil
	}

	op, err := p.parseCompareOp()
	if err != nil {
		return nil, err
	}
	val, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &WhereRegular{Table: table, Column: col, Op: op, Value: val}, nil
}

func (p *Parser) parseCompareOp() (CompareOp, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenEq:
		return OpEq, nil
	case TokenNeq:
		return OpNeq, nil
	case TokenLt:
		return OpLt, nil
	case TokenLte:
		return OpLte, nil
	case TokenGt:
		return OpGt, nil
	case TokenGte:
		return OpGte, nil
	default:
		return 0, fmt.Errorf("expected a comparison operator, got %s %q at line %d", TokenTypeString(tok.Type), tok.Literal, tok.Line)
	}
}

// --- Literals ---

func (p *Parser) parseLiteral() (catalog.Value, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenNumber:
		return parseNumericLiteral(tok.Literal)
	case TokenString:
		return catalog.TextValue(tok.Literal), nil
	case TokenTrue:
		return catalog.BooleanValue(true), nil
	case TokenFalse:
		return catalog.BooleanValue(false), nil
	default:
		return catalog.Value{}, fmt.Errorf("expected a literal, got %s %q at line %d", TokenTypeString(tok.Type), tok.Literal, tok.Line)
	}
}

// parseNumericLiteral classifies a TokenNumber lexeme as Integer, Float,
// Date, or Timestamp, since the lexer folds ISO-8601 date/timestamp
// literals into the same token class as plain numbers (see lexer.go).
func parseNumericLiteral(lit string) (catalog.Value, error) {
	if strings.Contains(lit, "T") {
		t, err := time.Parse(time.RFC3339, lit)
		if err != nil {
			return catalog.Value{}, fmt.Errorf("invalid timestamp literal %q: %w", lit, err)
		}
		return catalog.TimestampValue(t), nil
	}
	if strings.Count(lit, "-") >= 2 {
		t, err := time.Parse("2006-01-02", lit)
		if err != nil {
			return catalog.Value{}, fmt.Errorf("invalid date literal %q: %w", lit, err)
		}
		return catalog.DateValue(t), nil
	}
	if strings.Contains(lit, ".") {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return catalog.Value{}, fmt.Errorf("invalid float literal %q: %w", lit, err)
		}
		return catalog.FloatValue(f), nil
	}
	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return catalog.Value{}, fmt.Errorf("invalid integer literal %q: %w", lit, err)
	}
	return catalog.IntegerValue(i), nil
}

// --- transaction control ---

func (p *Parser) parseBegin() (*BeginStmt, error) {
	p.advance() // BEGIN
	p.match(TokenTransaction)
	var words []string
	for p.cur().Type == TokenIdentifier {
		words = append(words, p.advance().Literal)
	}
	return &BeginStmt{Isolation: strings.Join(words, " ")}, nil
}

func (p *Parser) parseRollback() (*RollbackStmt, error) {
	p.advance() // ROLLBACK
	if p.cur().Type != TokenTo {
		return &RollbackStmt{}, nil
	}
	p.advance() // TO
	p.match(TokenSavepoint)
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	return &RollbackStmt{Savepoint: name.Literal}, nil
}

func (p *Parser) parseSavepoint() (*SavepointStmt, error) {
	p.advance() // SAVEPOINT
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	return &SavepointStmt{Name: name.Literal}, nil
}

func (p *Parser) parseRelease() (*ReleaseSavepointStmt, error) {
	p.advance() // RELEASE
	p.match(TokenSavepoint)
	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}
	return &ReleaseSavepointStmt{Name: name.Literal}, nil
}
