package schema

import (
	"fmt"
	"strings"

	language "github.com/hanpama/sineql/internal/language"
)

// Violation is one semantic problem found while building a schema.
type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationError collects every violation of a schema. No schema is
// returned alongside it.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("schema violations found:")
	for _, v := range e {
		b.WriteString("\n- ")
		b.WriteString(v.Message)
		if v.Line > 0 {
			file := v.File
			if file == "" {
				file = "schema"
			}
			fmt.Fprintf(&b, " (%s:%d:%d)", file, v.Line, v.Column)
		}
	}
	return b.String()
}

// SyntaxError is a positioned parse error of schema text. It keeps schema
// syntax errors apart from query syntax errors, which share *language.Error.
type SyntaxError struct {
	Err *language.Error
}

func (e *SyntaxError) Error() string { return e.Err.Error() }

func (e *SyntaxError) Unwrap() error { return e.Err }

func violationWithPosition(message string, pos *language.Position) *Violation {
	v := &Violation{Message: message}
	if pos == nil {
		return v
	}
	v.Line = pos.Line
	v.Column = pos.Column
	if pos.Src != nil {
		v.File = pos.Src.Name
	}
	return v
}

func violationDuplicateType(name string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Type %q is already declared", name), pos)
}

func violationBuiltinRedeclared(name string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Type %q is built in and cannot be redeclared", name), pos)
}

func violationDuplicateField(typeName, fieldName string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Field %q is declared more than once on type %q", fieldName, typeName), pos)
}

func violationUnknownFieldType(typeName, fieldName, fieldType string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Unknown type %q for field %s.%s", fieldType, typeName, fieldName), pos)
}

func violationEmptyType(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Type %q must declare at least one field", typeName), pos)
}

func violationReservedName(name string, pos *language.Position) *Violation {
	return violationWithPosition(fmt.Sprintf("Type name %q is reserved: names starting with %q are used by introspection", name, ReservedPrefix), pos)
}
