package schema

import (
	"strings"
)

// Render produces schema DSL from the Schema.
// Deterministic ordering: declaration order, built-in scalars omitted.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	for _, typ := range s.TypesInOrder() {
		if typ.Builtin {
			continue
		}
		switch typ.Kind {
		case TypeKindScalar:
			renderScalar(&b, typ)
		case TypeKindCompound:
			renderCompound(&b, typ)
		}
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

// ----- render helpers -----

func renderScalar(b *strings.Builder, typ *Type) {
	b.WriteString("scalar ")
	b.WriteString(typ.Name)
	b.WriteString("\n\n")
}

func renderCompound(b *strings.Builder, typ *Type) {
	b.WriteString("type ")
	b.WriteString(typ.Name)
	b.WriteString(" {\n")
	for _, f := range typ.Fields {
		b.WriteString("  ")
		b.WriteString(RenderFieldType(f))
		b.WriteString(" ")
		b.WriteString(f.Name)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

// RenderFieldType renders a field's type reference, e.g. "[Book]".
func RenderFieldType(f *Field) string {
	if f.List {
		return "[" + f.Type + "]"
	}
	return f.Type
}
