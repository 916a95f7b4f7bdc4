package introspection

import (
	"context"
	"strings"

	executor "github.com/hanpama/sineql/internal/executor"
	schema "github.com/hanpama/sineql/internal/schema"
)

const (
	TypeTypeName  = "__Type"
	FieldTypeName = "__Field"
)

// Wrap extends s with the __Type and __Field compound types and adds their
// handlers to handlers, so the type graph can be queried like any data:
//
//	__Type { match "Author" name fields { name type list } }
//
// Records are keyed by identity: the type name for __Type, "Type.field" for
// __Field. Both s and handlers are left untouched; the handlers describe s,
// not the extended schema.
func Wrap(s *schema.Schema, handlers map[string]executor.Handler, identity string) (*schema.Schema, map[string]executor.Handler) {
	extended := schema.NewSchema(s.Name)
	for _, t := range s.TypesInOrder() {
		extended.AddType(t)
	}
	addIntrospectionTypes(extended)

	merged := make(map[string]executor.Handler, len(handlers)+2)
	for name, h := range handlers {
		merged[name] = h
	}
	types, fields := records(s, identity)
	merged[TypeTypeName] = staticHandler(types)
	merged[FieldTypeName] = staticHandler(fields)
	return extended, merged
}

func addIntrospectionTypes(s *schema.Schema) {
	s.AddType(schema.NewType(TypeTypeName, schema.TypeKindCompound).
		AddField(schema.NewField("name", "String", false)).
		AddField(schema.NewField("kind", "String", false)).
		AddField(schema.NewField("builtin", "Boolean", false)).
		AddField(schema.NewField("fields", FieldTypeName, true)))
	s.AddType(schema.NewType(FieldTypeName, schema.TypeKindCompound).
		AddField(schema.NewField("name", "String", false)).
		AddField(schema.NewField("type", "String", false)).
		AddField(schema.NewField("list", "Boolean", false)).
		AddField(schema.NewField("owner", TypeTypeName, false)).
		AddField(schema.NewField("target", TypeTypeName, false)))
}

func records(s *schema.Schema, identity string) (types, fields []executor.Record) {
	for _, t := range s.TypesInOrder() {
		ids := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			id := t.Name + "." + f.Name
			ids = append(ids, id)
			fields = append(fields, executor.Record{
				identity: id,
				"name":   f.Name,
				"type":   schema.RenderFieldType(f),
				"list":   f.List,
				"owner":  t.Name,
				"target": f.Type,
			})
		}
		types = append(types, executor.Record{
			identity:  t.Name,
			"name":    t.Name,
			"kind":    strings.ToLower(string(t.Kind)),
			"builtin": t.Builtin,
			"fields":  ids,
		})
	}
	return types, fields
}

func staticHandler(records []executor.Record) executor.Handler {
	return executor.HandlerFunc(func(_ context.Context, req executor.Request) ([]executor.Record, error) {
		return executor.Select(records, req), nil
	})
}

func isIntrospectionType(name string) bool {
	return name == TypeTypeName || name == FieldTypeName
}
