package query

import (
	"strconv"

	language "github.com/hanpama/sineql/internal/language"
	schema "github.com/hanpama/sineql/internal/schema"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Parse parses query text and builds its node tree against s.
func Parse(s *schema.Schema, source string) (*Node, error) {
	doc, err := language.ParseQuery(source)
	if err != nil {
		return nil, err
	}
	return Build(s, doc)
}

// Build validates doc against s and returns the root node. Errors are
// positioned *language.Error values; no partial tree is returned.
//
// A compound field becomes required (MatchRequired) when it carries `match`
// itself, or when its block holds a constrained selection: a scalar literal
// or another required compound field. A compound field requested without a
// block selects every scalar field of its type.
func Build(s *schema.Schema, doc *language.QueryDocument) (*Node, error) {
	rootType := s.Type(doc.Type)
	if rootType == nil {
		return nil, gqlerror.ErrorPosf(doc.Position, "Unknown type %q", doc.Type)
	}
	if !rootType.IsCompound() {
		return nil, gqlerror.ErrorPosf(doc.Position, "Type %q is a scalar and cannot be queried", doc.Type)
	}
	b := &builder{schema: s}
	root := &Node{Name: rootType.Name, Type: rootType, Position: doc.Position}
	root.Children = b.buildSelectionSet(rootType, doc.SelectionSet)
	if b.err != nil {
		return nil, b.err
	}
	return root, nil
}

type builder struct {
	schema *schema.Schema
	err    *gqlerror.Error
}

func (b *builder) fail(pos *language.Position, format string, args ...any) {
	if b.err == nil {
		b.err = gqlerror.ErrorPosf(pos, format, args...)
	}
}

func (b *builder) buildSelectionSet(parent *schema.Type, set language.SelectionSet) []*Node {
	children := make([]*Node, 0, len(set))
	seen := make(map[string]bool, len(set))
	for _, sel := range set {
		if seen[sel.Name] {
			b.fail(sel.Position, "Field %q is requested more than once on type %q", sel.Name, parent.Name)
			return nil
		}
		seen[sel.Name] = true
		node := b.buildSelection(parent, sel)
		if b.err != nil {
			return nil
		}
		children = append(children, node)
	}
	return children
}

func (b *builder) buildSelection(parent *schema.Type, sel *language.Selection) *Node {
	field := parent.Field(sel.Name)
	if field == nil {
		b.fail(sel.Position, "Cannot query field %q on type %q", sel.Name, parent.Name)
		return nil
	}
	typ := b.schema.FieldType(field)
	node := &Node{Name: field.Name, Type: typ, Field: field, Position: sel.Position}

	if typ.IsScalar() {
		if sel.SelectionSet != nil {
			b.fail(sel.Position, "Field %q of scalar type %q cannot have a selection block", sel.Name, typ.Name)
			return nil
		}
		if sel.Match {
			if sel.Value == nil {
				b.fail(sel.Position, "Field %q expects a literal after match", sel.Name)
				return nil
			}
			v, ok := literalValue(sel.Value)
			if !ok {
				b.fail(sel.Value.Position, "Malformed literal %q", sel.Value.Raw)
				return nil
			}
			node.Match = MatchLiteral
			node.Value = v
		}
		return node
	}

	if sel.SelectionSet != nil {
		node.Children = b.buildSelectionSet(typ, sel.SelectionSet)
		if b.err != nil {
			return nil
		}
	} else {
		node.Children = b.scalarFields(typ, sel.Position)
	}
	if sel.Match || node.constrained() {
		node.Match = MatchRequired
	}
	return node
}

func (b *builder) scalarFields(typ *schema.Type, pos *language.Position) []*Node {
	var children []*Node
	for _, f := range typ.Fields {
		ft := b.schema.FieldType(f)
		if !ft.IsScalar() {
			continue
		}
		children = append(children, &Node{Name: f.Name, Type: ft, Field: f, Position: pos})
	}
	return children
}

func literalValue(v *language.Value) (any, bool) {
	switch v.Kind {
	case language.StringValue:
		return v.Raw, true
	case language.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case language.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}
