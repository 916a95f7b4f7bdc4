package schema

import language "github.com/hanpama/sineql/internal/language"

// Schema is the compiled type graph. It is built once and treated as
// read-only afterwards, so it can be shared between concurrent queries.
type Schema struct {
	Name  string
	Types map[string]*Type // All named types keyed by name, built-ins included
	order []string
}

// Type is a named scalar or compound type.
type Type struct {
	Name     string
	Kind     TypeKind
	Builtin  bool               `json:",omitempty"`
	Fields   []*Field           `json:",omitempty"` // Compound only, declaration order
	Position *language.Position `json:"-"`
}

// Field references another type of the same graph by name.
type Field struct {
	Name     string
	Type     string
	List     bool               `json:",omitempty"`
	Position *language.Position `json:"-"`
}

// TypeKind tells scalar (leaf) types apart from compound ones.
type TypeKind string

const (
	TypeKindScalar   TypeKind = "SCALAR"
	TypeKindCompound TypeKind = "COMPOUND"
)

func NewSchema(name string) *Schema {
	return &Schema{Name: name, Types: make(map[string]*Type)}
}

// AddType registers t, replacing any previous type with the same name.
func (s *Schema) AddType(t *Type) *Schema {
	if _, exists := s.Types[t.Name]; !exists {
		s.order = append(s.order, t.Name)
	}
	s.Types[t.Name] = t
	return s
}

// Type returns the named type or nil.
func (s *Schema) Type(name string) *Type { return s.Types[name] }

// TypesInOrder returns every type in registration order.
func (s *Schema) TypesInOrder() []*Type {
	out := make([]*Type, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.Types[name])
	}
	return out
}

// CompoundTypes returns the compound types in declaration order.
func (s *Schema) CompoundTypes() []*Type {
	var out []*Type
	for _, t := range s.TypesInOrder() {
		if t.IsCompound() {
			out = append(out, t)
		}
	}
	return out
}

// FieldType returns the type a field refers to (nil if unresolved).
func (s *Schema) FieldType(f *Field) *Type { return s.Types[f.Type] }

func NewType(name string, kind TypeKind) *Type {
	return &Type{Name: name, Kind: kind}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

// Field returns the field with the given name or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Type) IsScalar() bool   { return t != nil && t.Kind == TypeKindScalar }
func (t *Type) IsCompound() bool { return t != nil && t.Kind == TypeKindCompound }

func NewField(name, typeName string, list bool) *Field {
	return &Field{Name: name, Type: typeName, List: list}
}
