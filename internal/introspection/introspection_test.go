package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	executor "github.com/hanpama/sineql/internal/executor"
	query "github.com/hanpama/sineql/internal/query"
	schema "github.com/hanpama/sineql/internal/schema"
	"github.com/stretchr/testify/require"
)

const src = `
scalar Date

type Book {
  String title
  Date published
}

type Author {
  String name
  [Book] books
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSource("library.schema", src)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return s
}

func TestDescribe(t *testing.T) {
	s := buildSchema(t)

	g := Describe(s)

	require.Equal(t, "library.schema", g.Name)
	require.Equal(t, schema.Render(s), g.Schema)
	require.True(t, g.Type("String").Builtin)
	want := &TypeInfo{
		Name: "Author",
		Kind: "COMPOUND",
		Fields: []*FieldInfo{
			{Name: "name", Type: "String"},
			{Name: "books", Type: "Book", List: true},
		},
	}
	if diff := cmp.Diff(want, g.Type("Author")); diff != "" {
		t.Fatalf("Author mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, g.Type("__Type"))
}

func TestWrapQueriesTypeGraph(t *testing.T) {
	s := buildSchema(t)
	base := map[string]executor.Handler{
		"Book":   executor.NewMockHandler(),
		"Author": executor.NewMockHandler(),
	}

	extended, handlers := Wrap(s, base, executor.DefaultIdentityField)

	require.Nil(t, s.Type(TypeTypeName), "original schema must not change")
	require.Len(t, base, 2, "original handlers must not change")
	reg, err := executor.NewRegistry(extended, handlers)
	require.NoError(t, err)
	exec := executor.New(extended, reg)

	root, err := query.Parse(extended, `__Type { match "Author" name kind fields { name type target { builtin } } }`)
	require.NoError(t, err)
	got, err := exec.Resolve(context.Background(), root)
	require.NoError(t, err)

	want := []executor.Record{{
		"name": "Author",
		"kind": "compound",
		"fields": []executor.Record{
			{"name": "name", "type": "String", "target": []executor.Record{{"builtin": true}}},
			{"name": "books", "type": "[Book]", "target": []executor.Record{{"builtin": false}}},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestWrapListsCompoundTypes(t *testing.T) {
	s := buildSchema(t)
	extended, handlers := Wrap(s, map[string]executor.Handler{
		"Book":   executor.NewMockHandler(),
		"Author": executor.NewMockHandler(),
	}, "key")
	reg, err := executor.NewRegistry(extended, handlers)
	require.NoError(t, err)
	exec := executor.New(extended, reg, executor.WithIdentityField("key"))

	root, err := query.Parse(extended, `__Type { match "compound" kind name }`)
	require.NoError(t, err)
	got, err := exec.Resolve(context.Background(), root)
	require.NoError(t, err)

	require.Equal(t, []executor.Record{
		{"kind": "compound", "name": "Book"},
		{"kind": "compound", "name": "Author"},
	}, got)
}
