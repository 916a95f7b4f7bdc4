package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

type (
	Position = ast.Position
	Source   = ast.Source
	Error    = gqlerror.Error
)

type ValueKind = ast.ValueKind

const (
	IntValue    ValueKind = ast.IntValue
	FloatValue  ValueKind = ast.FloatValue
	StringValue ValueKind = ast.StringValue
)

// DefinitionKind is the keyword that introduced a schema declaration.
type DefinitionKind string

const (
	Scalar   DefinitionKind = "scalar"
	Compound DefinitionKind = "type"
)

// SchemaDocument is the syntax tree of a schema text.
type SchemaDocument struct {
	Name        string
	Definitions []*Definition
}

type Definition struct {
	Kind     DefinitionKind
	Name     string
	Fields   []*FieldDefinition // Compound only
	Position *Position
}

type FieldDefinition struct {
	Name     string
	Type     *Type
	Position *Position
}

// Type is a field's declared type: a named type, optionally marked as a list.
type Type struct {
	NamedType string
	List      bool
	Position  *Position
}

func (t *Type) String() string {
	if t.List {
		return "[" + t.NamedType + "]"
	}
	return t.NamedType
}

// QueryDocument is the syntax tree of a query text.
type QueryDocument struct {
	Type         string
	SelectionSet SelectionSet
	Position     *Position
}

type SelectionSet []*Selection

// Selection is one requested field. Match reports a leading `match` keyword;
// Value holds the literal that came with it, if any. SelectionSet is nil when
// the field was given without a block.
type Selection struct {
	Name         string
	Match        bool
	Value        *Value
	SelectionSet SelectionSet
	Position     *Position
}

type Value struct {
	Kind     ValueKind
	Raw      string
	Position *Position
}
