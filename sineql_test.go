package sineql

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	eventbus "github.com/hanpama/sineql/internal/eventbus"
	events "github.com/hanpama/sineql/internal/events"
	executor "github.com/hanpama/sineql/internal/executor"
	language "github.com/hanpama/sineql/internal/language"
	reqid "github.com/hanpama/sineql/internal/reqid"
	schema "github.com/hanpama/sineql/internal/schema"
	"github.com/stretchr/testify/require"
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

func libraryHandlers() map[string]Handler {
	return map[string]Handler{
		"Book": executor.NewMockHandler(
			Record{"id": 1, "title": "The Wind in the Willows", "published": "1908-06-15"},
			Record{"id": 2, "title": "The Fart in the Fronds", "published": "1908-06-15"},
		),
		"Author": executor.NewMockHandler(
			Record{"name": "Kenneth Grahame", "books": []any{1}},
			Record{"name": "Frank", "books": []any{1, 2}},
			Record{"name": "Betty", "books": []any{2}},
		),
	}
}

func mustCompile(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := Compile(librarySchema, libraryHandlers(), opts...)
	require.NoError(t, err)
	return e
}

func TestExecute(t *testing.T) {
	e := mustCompile(t)

	cases := []struct {
		name  string
		query string
		want  *Result
	}{
		{
			name:  "frank",
			query: `Author { match "Frank" name books { title published } }`,
			want: &Result{Data: []Record{{
				"name": "Frank",
				"books": []Record{
					{"title": "The Wind in the Willows", "published": "1908-06-15"},
					{"title": "The Fart in the Fronds", "published": "1908-06-15"},
				},
			}}},
		},
		{
			name:  "betty pruned",
			query: `Author { match "Betty" name books { match "nonexistent" title published } }`,
			want:  &Result{Data: []Record{}},
		},
		{
			name:  "book projection",
			query: `Book { title published }`,
			want: &Result{Data: []Record{
				{"title": "The Wind in the Willows", "published": "1908-06-15"},
				{"title": "The Fart in the Fronds", "published": "1908-06-15"},
			}},
		},
		{
			name:  "unknown type",
			query: `Magazine { title }`,
			want: &Result{Code: CodeQuery, Error: &ErrorInfo{
				Message:   `Unknown type "Magazine"`,
				Locations: []Location{{Line: 1, Column: 1}},
			}},
		},
		{
			name:  "unknown field",
			query: "Book {\n  title\n  isbn\n}",
			want: &Result{Code: CodeQuery, Error: &ErrorInfo{
				Message:   `Cannot query field "isbn" on type "Book"`,
				Locations: []Location{{Line: 3, Column: 3}},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Execute(context.Background(), tc.query)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// The reference fixture declares books as a single Book field holding a list
// of identities, indents with tabs, and uses both match forms.
func TestExecuteReferenceFixture(t *testing.T) {
	const fixtureSchema = "scalar Date\n\ntype Book {\n\tString title\n\tDate published\n}\n\ntype Author {\n\tString name\n\tBook books\n}\n"
	e, err := Compile(fixtureSchema, libraryHandlers())
	require.NoError(t, err)

	want := &Result{Data: []Record{{
		"name": "Frank",
		"books": []Record{
			{"title": "The Wind in the Willows", "published": "1908-06-15"},
			{"title": "The Fart in the Fronds", "published": "1908-06-15"},
		},
	}}}
	for _, q := range []string{
		`Author { match "Frank" name books { title published } }`,
		`Author { match name "Frank" books { title published } }`,
	} {
		t.Run(q, func(t *testing.T) {
			got := e.Execute(context.Background(), q)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("Result mismatch (-want +got):\n%s", diff)
			}
		})
	}

	got := e.Execute(context.Background(), `Author { match "Betty" name books { match "nonexistent" title published } }`)
	require.Equal(t, &Result{Data: []Record{}}, got)
}

func TestCompileErrors(t *testing.T) {
	t.Run("dangling reference", func(t *testing.T) {
		_, err := Compile(`type Book { Publisher publisher }`, map[string]Handler{"Book": executor.NewMockHandler()})
		require.Equal(t, CodeSchema, ErrorCodeOf(err))
		var violations schema.ValidationError
		require.ErrorAs(t, err, &violations)
		require.Len(t, violations, 1)
		require.Equal(t, `Unknown type "Publisher" for field Book.publisher`, violations[0].Message)
	})

	t.Run("reserved type name", func(t *testing.T) {
		_, err := Compile(`type __Type { String name }`, map[string]Handler{"__Type": executor.NewMockHandler()}, WithDebug(true))
		require.Equal(t, CodeSchema, ErrorCodeOf(err))
		var violations schema.ValidationError
		require.ErrorAs(t, err, &violations)
		require.Len(t, violations, 1)
		require.Equal(t, `Type name "__Type" is reserved: names starting with "__" are used by introspection`, violations[0].Message)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Compile(`type Book { String }`, nil, WithSchemaName("books.schema"))
		require.Equal(t, CodeSchema, ErrorCodeOf(err))
		var langErr *language.Error
		require.ErrorAs(t, err, &langErr)
		require.Equal(t, "Expected Name, found }", langErr.Message)
		require.Equal(t, 1, langErr.Locations[0].Line)
	})
}

func TestCompileConfigurationError(t *testing.T) {
	handlers := libraryHandlers()
	delete(handlers, "Book")
	handlers["Date"] = executor.NewMockHandler()

	_, err := Compile(librarySchema, handlers)

	require.Equal(t, CodeConfiguration, ErrorCodeOf(err))
	var cfgErr *executor.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, []string{"Book"}, cfgErr.Missing)
	require.Equal(t, []string{"Date"}, cfgErr.Scalar)
}

func TestExecuteHandlerError(t *testing.T) {
	boom := errors.New("connection refused")
	handlers := libraryHandlers()
	handlers["Book"] = executor.NewMockErrorHandler(boom)
	e, err := Compile(librarySchema, handlers)
	require.NoError(t, err)

	res := e.Execute(context.Background(), `Author { name books { title } }`)

	require.Equal(t, CodeHandler, res.Code)
	require.Nil(t, res.Data)
	require.Equal(t, &ErrorInfo{Message: "handler Book: connection refused", Type: "Book"}, res.Error)

	_, err = e.Run(context.Background(), `Author { name books { title } }`)
	require.ErrorIs(t, err, boom)

	// A failed query leaves the engine usable.
	res = e.Execute(context.Background(), `Author { match "Frank" name }`)
	require.Equal(t, ErrorCode(""), res.Code)
	require.Equal(t, []Record{{"name": "Frank"}}, res.Data)
}

func TestExecuteCanceled(t *testing.T) {
	e := mustCompile(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, `Book { title }`)

	require.Equal(t, CodeCanceled, ErrorCodeOf(err))
	require.ErrorIs(t, err, context.Canceled)
}

func TestTypeGraph(t *testing.T) {
	require.Nil(t, mustCompile(t).TypeGraph())

	e := mustCompile(t, WithDebug(true))
	g := e.TypeGraph()
	require.NotNil(t, g)
	require.Equal(t, "scalar Date\n\ntype Book {\n  String title\n  Date published\n}\n\ntype Author {\n  String name\n  [Book] books\n}\n", g.Schema)
	require.Nil(t, g.Type("__Type"))

	res := e.Execute(context.Background(), `__Type { match "Book" name fields { name type } }`)
	require.Equal(t, ErrorCode(""), res.Code)
	want := []Record{{
		"name": "Book",
		"fields": []Record{
			{"name": "title", "type": "String"},
			{"name": "published", "type": "Date"},
		},
	}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("introspection mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospectionRequiresDebug(t *testing.T) {
	res := mustCompile(t).Execute(context.Background(), `__Type { name }`)
	require.Equal(t, CodeQuery, res.Code)
}

func TestQueryEvents(t *testing.T) {
	bus := eventbus.New()
	var (
		mu       sync.Mutex
		starts   []events.QueryStart
		finishes []events.QueryFinish
		handlers int
	)
	eventbus.Subscribe(bus, func(_ context.Context, e events.QueryStart) {
		mu.Lock()
		defer mu.Unlock()
		starts = append(starts, e)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e events.QueryFinish) {
		mu.Lock()
		defer mu.Unlock()
		finishes = append(finishes, e)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e events.HandlerFinish) {
		mu.Lock()
		defer mu.Unlock()
		handlers++
	})
	e := mustCompile(t, WithEventBus(bus))
	ctx, id := reqid.NewContext(context.Background())

	e.Execute(ctx, `Author { name books { title } }`)
	e.Execute(context.Background(), `Author { nope }`)

	require.Len(t, starts, 2)
	require.Len(t, finishes, 2)
	require.Equal(t, 2, handlers)
	require.Equal(t, id, starts[0].QueryID)
	require.Equal(t, id, finishes[0].QueryID)
	require.Equal(t, "", finishes[0].Code)
	require.Equal(t, 3, finishes[0].Records)
	require.NotEmpty(t, starts[1].QueryID)
	require.NotEqual(t, id, starts[1].QueryID)
	require.Equal(t, string(CodeQuery), finishes[1].Code)
	require.Error(t, finishes[1].Err)
}

func TestConcurrentQueries(t *testing.T) {
	e := mustCompile(t)
	var wg sync.WaitGroup
	results := make([]*Result, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.Execute(context.Background(), `Author { name books { match "The Fart in the Fronds" title } }`)
		}()
	}
	wg.Wait()

	want := []Record{
		{"name": "Frank", "books": []Record{{"title": "The Fart in the Fronds"}}},
		{"name": "Betty", "books": []Record{{"title": "The Fart in the Fronds"}}},
	}
	for _, res := range results {
		require.Equal(t, ErrorCode(""), res.Code)
		if diff := cmp.Diff(want, res.Data); diff != "" {
			t.Fatalf("result mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestErrorCodeOf(t *testing.T) {
	require.Equal(t, ErrorCode(""), ErrorCodeOf(nil))
	require.Equal(t, CodeCanceled, ErrorCodeOf(context.DeadlineExceeded))
	require.Equal(t, CodeHandler, ErrorCodeOf(&executor.HandlerError{Type: "Book", Message: "x"}))
	require.Equal(t, CodeConfiguration, ErrorCodeOf(&executor.ConfigurationError{Missing: []string{"Book"}}))
	require.Equal(t, CodeSchema, ErrorCodeOf(schema.ValidationError{{Message: "x"}}))
	require.Equal(t, CodeSchema, ErrorCodeOf(&schema.SyntaxError{Err: &language.Error{Message: "x"}}))
	require.Equal(t, CodeQuery, ErrorCodeOf(&language.Error{Message: "x"}))
	require.Equal(t, CodeQuery, ErrorCodeOf(&Error{Code: CodeQuery, Err: errors.New("x")}))
	require.Nil(t, ErrorInfoOf(nil))
}
