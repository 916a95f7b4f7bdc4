package introspection

import schema "github.com/hanpama/sineql/internal/schema"

// Graph is a JSON-friendly description of a compiled type graph.
type Graph struct {
	Name   string      `json:"name,omitempty"`
	Types  []*TypeInfo `json:"types"`
	Schema string      `json:"schema"` // rendered DSL, built-ins omitted
}

type TypeInfo struct {
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	Builtin bool         `json:"builtin,omitempty"`
	Fields  []*FieldInfo `json:"fields,omitempty"`
}

type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	List bool   `json:"list,omitempty"`
}

// Describe builds the Graph of s. Types keep registration order, so built-in
// scalars come first.
func Describe(s *schema.Schema) *Graph {
	g := &Graph{Name: s.Name, Types: []*TypeInfo{}, Schema: schema.Render(s)}
	for _, t := range s.TypesInOrder() {
		if isIntrospectionType(t.Name) {
			continue
		}
		info := &TypeInfo{Name: t.Name, Kind: string(t.Kind), Builtin: t.Builtin}
		for _, f := range t.Fields {
			info.Fields = append(info.Fields, &FieldInfo{Name: f.Name, Type: f.Type, List: f.List})
		}
		g.Types = append(g.Types, info)
	}
	return g
}

// Type returns the described type with the given name, or nil.
func (g *Graph) Type(name string) *TypeInfo {
	for _, t := range g.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}
