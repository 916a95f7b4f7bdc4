package schema

import (
	"errors"
	"strings"

	language "github.com/hanpama/sineql/internal/language"
)

// ReservedPrefix starts the names of types the engine adds itself.
const ReservedPrefix = "__"

// BuildFromSource parses schema DSL text and builds the type graph.
// Syntax errors are returned as *SyntaxError, semantic ones as
// ValidationError.
func BuildFromSource(name, source string) (*Schema, error) {
	doc, err := language.ParseSchema(name, source)
	if err != nil {
		var langErr *language.Error
		if errors.As(err, &langErr) {
			return nil, &SyntaxError{Err: langErr}
		}
		return nil, err
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument builds the type graph of a parsed schema. Every field's
// type must resolve within the graph; references may be cyclic.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema(doc.Name)
	for _, t := range Builtins() {
		s.AddType(t)
	}

	var violations ValidationError
	var declared []*language.Definition
	for _, def := range doc.Definitions {
		if strings.HasPrefix(def.Name, ReservedPrefix) {
			violations = append(violations, violationReservedName(def.Name, def.Position))
			continue
		}
		if existing := s.Types[def.Name]; existing != nil {
			if existing.Builtin {
				violations = append(violations, violationBuiltinRedeclared(def.Name, def.Position))
			} else {
				violations = append(violations, violationDuplicateType(def.Name, def.Position))
			}
			continue
		}
		switch def.Kind {
		case language.Scalar:
			t := NewType(def.Name, TypeKindScalar)
			t.Position = def.Position
			s.AddType(t)
		case language.Compound:
			t := NewType(def.Name, TypeKindCompound)
			t.Position = def.Position
			s.AddType(t)
			declared = append(declared, def)
		}
	}

	// Fields are resolved in a second pass so types may refer to each other
	// regardless of declaration order.
	for _, def := range declared {
		t := s.Types[def.Name]
		if len(def.Fields) == 0 {
			violations = append(violations, violationEmptyType(def.Name, def.Position))
			continue
		}
		seen := make(map[string]bool, len(def.Fields))
		for _, fd := range def.Fields {
			if seen[fd.Name] {
				violations = append(violations, violationDuplicateField(def.Name, fd.Name, fd.Position))
				continue
			}
			seen[fd.Name] = true
			if s.Types[fd.Type.NamedType] == nil {
				violations = append(violations, violationUnknownFieldType(def.Name, fd.Name, fd.Type.NamedType, fd.Type.Position))
				continue
			}
			f := NewField(fd.Name, fd.Type.NamedType, fd.Type.List)
			f.Position = fd.Position
			t.AddField(f)
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return s, nil
}
