// Package query turns a parsed query document into a tree of nodes validated
// against a type graph.
package query

import (
	language "github.com/hanpama/sineql/internal/language"
	schema "github.com/hanpama/sineql/internal/schema"
)

// MatchKind describes the constraint a node carries.
type MatchKind int

const (
	// MatchNone: the field is requested without constraint.
	MatchNone MatchKind = iota
	// MatchLiteral: a scalar field must equal Node.Value.
	MatchLiteral
	// MatchRequired: a compound field must correlate to at least one child
	// record, otherwise its parent record is dropped.
	MatchRequired
)

func (k MatchKind) String() string {
	switch k {
	case MatchLiteral:
		return "literal"
	case MatchRequired:
		return "required"
	default:
		return "none"
	}
}

// Node is one field occurrence of a query, or the synthetic root.
type Node struct {
	Name     string        // field name; the type name for the root
	Type     *schema.Type  // declared type of the field
	Field    *schema.Field // nil for the root
	Match    MatchKind
	Value    any // set when Match == MatchLiteral
	Children []*Node
	Position *language.Position
}

func (n *Node) IsRoot() bool     { return n.Field == nil }
func (n *Node) IsScalar() bool   { return n.Type.IsScalar() }
func (n *Node) IsCompound() bool { return n.Type.IsCompound() }

// Required reports whether the node prunes its parent when empty.
func (n *Node) Required() bool { return n.IsCompound() && n.Match == MatchRequired }

// Child returns the child node requested under name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Scalars returns the scalar children in query order.
func (n *Node) Scalars() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsScalar() {
			out = append(out, c)
		}
	}
	return out
}

// Compounds returns the compound children in query order.
func (n *Node) Compounds() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsCompound() {
			out = append(out, c)
		}
	}
	return out
}

// Filter returns the equality constraints carried by the scalar children.
// An empty map means no constraint.
func (n *Node) Filter() map[string]any {
	filter := make(map[string]any)
	for _, c := range n.Children {
		if c.IsScalar() && c.Match == MatchLiteral {
			filter[c.Name] = c.Value
		}
	}
	return filter
}

// constrained reports whether any child narrows the result: a scalar literal
// or a required compound.
func (n *Node) constrained() bool {
	for _, c := range n.Children {
		if c.Match != MatchNone {
			return true
		}
	}
	return false
}
