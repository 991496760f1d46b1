package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueCompare(t *testing.T) {
	assert.Equal(t, -1, IntegerValue(1).Compare(IntegerValue(2)))
	assert.Equal(t, 1, IntegerValue(5).Compare(FloatValue(4.5)))
	assert.Equal(t, 0, FloatValue(3).Compare(IntegerValue(3)))
	assert.True(t, TextValue("bob").Compare(TextValue("alice")) > 0)
	assert.Equal(t, 0, BooleanValue(true).Compare(BooleanValue(true)))
}

func TestValueEqual(t *testing.T) {
	assert.True(t, IntegerValue(3).Equal(FloatValue(3)))
	assert.False(t, TextValue("a").Equal(IntegerValue(1)))
	assert.True(t, TextValue("x").Equal(TextValue("x")))
}

func TestValidateSchemaRejectsMultiplePrimaryKeys(t *testing.T) {
	schema := Schema{
		{Name: "id", DataType: Integer, Constraints: []Constraint{PrimaryKey}},
		{Name: "other", DataType: Integer, Constraints: []Constraint{PrimaryKey}},
	}
	assert.ErrorIs(t, ValidateSchema(schema), ErrMultiplePrimaryKeys)
}

func TestValidateSchemaRejectsNonIntegerPrimaryKey(t *testing.T) {
	schema := Schema{
		{Name: "id", DataType: Text, Constraints: []Constraint{PrimaryKey}},
	}
	assert.ErrorIs(t, ValidateSchema(schema), ErrNonIntegerPrimaryKey)
}

func TestValidateRowUniqueConstraint(t *testing.T) {
	schema := Schema{
		{Name: "id", DataType: Integer, Constraints: []Constraint{PrimaryKey}},
		{Name: "email", DataType: Text, Constraints: []Constraint{Unique}},
	}
	existing := []Row{{IntegerValue(1), TextValue("a@example.com")}}
	err := ValidateRow(schema, existing, Row{IntegerValue(2), TextValue("a@example.com")}, nil)
	assert.ErrorIs(t, err, ErrConstraintViolation)

	err = ValidateRow(schema, existing, Row{IntegerValue(2), TextValue("b@example.com")}, nil)
	assert.NoError(t, err)
}

func TestCombinedSchemaAmbiguity(t *testing.T) {
	users := Schema{{Name: "id", DataType: Integer}, {Name: "name", DataType: Text}}
	orders := Schema{{Name: "id", DataType: Integer}, {Name: "amount", DataType: Float}}
	cs := NewCombinedSchema("users", users, struct {
		Name   string
		Schema Schema
	}{"orders", orders})

	_, err := cs.Resolve("", "id")
	assert.ErrorIs(t, err, ErrAmbiguousColumn)

	idx, err := cs.Resolve("orders", "id")
	assert.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = cs.Resolve("", "name")
	assert.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = cs.Resolve("", "missing")
	assert.NoError(t, err)
	assert.Equal(t, -1, idx)
}
