package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	eventbus "github.com/hanpama/sineql/internal/eventbus"
	events "github.com/hanpama/sineql/internal/events"
	"github.com/stretchr/testify/require"
)

func TestContract_UnsupportedFilterSkipsHandler(t *testing.T) {
	books := NewMockHandler(libraryBooks()...)
	e, s := newTestExecutor(t, librarySchema, map[string]Handler{
		"Book":   WithFilters(books, []string{"published", "title"}),
		"Author": NewMockHandler(libraryAuthors()...),
	})

	got, err := resolve(t, e, s, `Book { match "The Wind in the Willows" title }`)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Empty(t, books.Calls())

	got, err = resolve(t, e, s, `Book { match "1908-06-15" published match "The Fart in the Fronds" title }`)
	require.NoError(t, err)
	require.Equal(t, []Record{{"published": "1908-06-15", "title": "The Fart in the Fronds"}}, got)

	got, err = resolve(t, e, s, `Book { title }`)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, books.Calls(), 2)
}

func TestContract_UnsupportedChildFilterPrunesParents(t *testing.T) {
	e, s := newTestExecutor(t, librarySchema, map[string]Handler{
		"Book":   WithFilters(NewMockHandler(libraryBooks()...)),
		"Author": NewMockHandler(libraryAuthors()...),
	})

	got, err := resolve(t, e, s, `Author { name books { match "The Wind in the Willows" title } }`)

	require.NoError(t, err)
	require.Empty(t, got)
}

func TestContract_IdentityOnlyWhenRequested(t *testing.T) {
	const src = `type Item { Integer id String name }`
	e, s := newTestExecutor(t, src, map[string]Handler{
		"Item": NewMockHandler(Record{"id": 7, "name": "seven"}),
	})

	got, err := resolve(t, e, s, `Item { name }`)
	require.NoError(t, err)
	require.Equal(t, []Record{{"name": "seven"}}, got)

	got, err = resolve(t, e, s, `Item { id name }`)
	require.NoError(t, err)
	require.Equal(t, []Record{{"id": 7, "name": "seven"}}, got)
}

func TestContract_CustomIdentityField(t *testing.T) {
	e, s := newTestExecutor(t, librarySchema, map[string]Handler{
		"Book": NewMockHandler(
			Record{"isbn": "978-0", "title": "The Wind in the Willows"},
		),
		"Author": NewMockHandler(Record{"name": "Kenneth Grahame", "books": []any{"978-0"}}),
	}, WithIdentityField("isbn"))

	got, err := resolve(t, e, s, `Author { name books { title } }`)

	require.NoError(t, err)
	want := []Record{{"name": "Kenneth Grahame", "books": []Record{{"title": "The Wind in the Willows"}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "isbn", e.IdentityField())
}

func TestContract_IdentitiesCompareByValue(t *testing.T) {
	e, s := newTestExecutor(t, librarySchema, map[string]Handler{
		"Book": NewMockHandler(
			Record{"id": int64(1), "title": "one"},
			Record{"id": uint8(2), "title": "two"},
		),
		// JSON-decoded identities arrive as float64.
		"Author": NewMockHandler(
			Record{"name": "list", "books": []float64{2, 1}},
			Record{"name": "single", "books": 2.0},
		),
	})

	got, err := resolve(t, e, s, `Author { name books { title } }`)

	require.NoError(t, err)
	want := []Record{
		// Child handler order wins over the order of the identity list.
		{"name": "list", "books": []Record{{"title": "one"}, {"title": "two"}}},
		{"name": "single", "books": []Record{{"title": "two"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestContract_CyclicTypes(t *testing.T) {
	const src = `
type Book { String title Author[] authors }
type Author { String name Book[] books }
`
	e, s := newTestExecutor(t, src, map[string]Handler{
		"Book": NewMockHandler(
			Record{"id": 1, "title": "Willows", "authors": []any{"kg"}},
		),
		"Author": NewMockHandler(
			Record{"id": "kg", "name": "Kenneth Grahame", "books": []any{1}},
		),
	})

	got, err := resolve(t, e, s, `Author { name books { title authors { name } } }`)

	require.NoError(t, err)
	want := []Record{{
		"name": "Kenneth Grahame",
		"books": []Record{{
			"title":   "Willows",
			"authors": []Record{{"name": "Kenneth Grahame"}},
		}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestContract_HandlerEvents(t *testing.T) {
	bus := eventbus.New()
	var (
		mu       sync.Mutex
		starts   []events.HandlerStart
		finishes []events.HandlerFinish
	)
	eventbus.Subscribe(bus, func(_ context.Context, e events.HandlerStart) {
		mu.Lock()
		defer mu.Unlock()
		starts = append(starts, e)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e events.HandlerFinish) {
		mu.Lock()
		defer mu.Unlock()
		finishes = append(finishes, e)
	})
	e, s := newTestExecutor(t, librarySchema, map[string]Handler{
		"Book":   WithFilters(NewMockHandler(libraryBooks()...)),
		"Author": NewMockHandler(libraryAuthors()...),
	}, WithEventBus(bus))

	_, err := resolve(t, e, s, `Author { match "Frank" name books { match "x" title } }`)
	require.NoError(t, err)

	require.Len(t, starts, 2)
	require.Len(t, finishes, 2)
	byType := map[string]events.HandlerFinish{}
	for _, f := range finishes {
		byType[f.Type] = f
	}
	require.True(t, byType["Book"].Skipped)
	require.False(t, byType["Author"].Skipped)
	require.Equal(t, 1, byType["Author"].Records)
	for _, st := range starts {
		require.NotZero(t, st.CallID)
		if st.Type == "Author" {
			require.Equal(t, map[string]any{"name": "Frank"}, st.Filter)
		}
	}
}
