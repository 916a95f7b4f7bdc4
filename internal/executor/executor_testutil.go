package executor

import (
	"context"
	"testing"

	query "github.com/hanpama/sineql/internal/query"
	schema "github.com/hanpama/sineql/internal/schema"
)

const librarySchema = `
scalar Date

type Book {
	String title
	Date published
}

type Author {
	String name
	Book[] books
}
`

func libraryBooks() []Record {
	return []Record{
		{"id": 1, "title": "The Wind in the Willows", "published": "1908-06-15"},
		{"id": 2, "title": "The Fart in the Fronds", "published": "1908-06-15"},
	}
}

func libraryAuthors() []Record {
	return []Record{
		{"name": "Kenneth Grahame", "books": []any{1}},
		{"name": "Frank", "books": []any{1, 2}},
		{"name": "Betty", "books": []any{2}},
	}
}

// mustBuildSchema builds a schema and fails the test on error.
func mustBuildSchema(t *testing.T, src string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSource("test.schema", src)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

// mustParseQuery builds a query tree and fails the test on error.
func mustParseQuery(t *testing.T, s *schema.Schema, q string) *query.Node {
	t.Helper()
	n, err := query.Parse(s, q)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	return n
}

// newTestExecutor wires handlers against src.
func newTestExecutor(t *testing.T, src string, handlers map[string]Handler, opts ...Option) (*Executor, *schema.Schema) {
	t.Helper()
	s := mustBuildSchema(t, src)
	reg, err := NewRegistry(s, handlers)
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}
	return New(s, reg, opts...), s
}

// resolve parses q and resolves it.
func resolve(t *testing.T, e *Executor, s *schema.Schema, q string) ([]Record, error) {
	t.Helper()
	return e.Resolve(context.Background(), mustParseQuery(t, s, q))
}
