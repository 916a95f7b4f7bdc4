package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	config "github.com/hanpama/sineql/internal/config"
	introspection "github.com/hanpama/sineql/internal/introspection"
	"github.com/stretchr/testify/require"
)

// Fixture paths are absolute so commands can run from a scratch directory.
var (
	schemaFile = mustAbs(filepath.Join("..", "..", "testdata", "library.schema"))
	dataFile   = mustAbs(filepath.Join("..", "..", "testdata", "library.yaml"))
)

func mustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		panic(err)
	}
	return abs
}

const frankQuery = `Author { match "Frank" name books { title } }`

var frankResult = map[string]any{
	"code": "",
	"data": []any{map[string]any{
		"name": "Frank",
		"books": []any{
			map[string]any{"title": "The Wind in the Willows"},
			map[string]any{"title": "The Fart in the Fronds"},
		},
	}},
}

// execute runs the root command from an empty directory, so no sineql.yaml
// nearby is picked up.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheck(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "check", "--schema", schemaFile)
		require.NoError(t, err)
		require.Contains(t, out, "Author")
		require.Contains(t, out, "[Book] books")
		require.Contains(t, out, "compound")
		require.True(t, strings.HasSuffix(out, "(3 types)\n"), out)
	})

	t.Run("dsl", func(t *testing.T) {
		out, err := execute(t, "check", "--schema", schemaFile, "--format", "dsl")
		require.NoError(t, err)
		want := "scalar Date\n\n" +
			"type Book {\n  String title\n  Date published\n  Author author\n}\n\n" +
			"type Author {\n  String name\n  [Book] books\n  Float rating\n}\n"
		require.Equal(t, want, out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "check", "--schema", schemaFile, "--format", "json")
		require.NoError(t, err)
		var g introspection.Graph
		require.NoError(t, json.Unmarshal([]byte(out), &g))
		book := g.Type("Book")
		require.NotNil(t, book)
		require.Len(t, book.Fields, 3)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "check", "--schema", schemaFile, "--format", "xml")
		require.EqualError(t, err, `unknown format "xml" (want table, dsl or json)`)
	})

	t.Run("missing schema", func(t *testing.T) {
		_, err := execute(t, "check")
		require.EqualError(t, err, "--schema is required")
	})
}

func TestQuery(t *testing.T) {
	backends := map[string]func(t *testing.T) []string{
		"memstore": func(*testing.T) []string { return []string{"--data", dataFile} },
		"sqlite": func(t *testing.T) []string {
			dsn := filepath.Join(t.TempDir(), "library.db")
			return []string{"--data", dataFile, "--sqlite", dsn}
		},
	}
	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"query", "--schema", schemaFile}, backend(t)...)
			out, err := execute(t, append(args, frankQuery)...)
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			if diff := cmp.Diff(frankResult, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryErrors(t *testing.T) {
	out, err := execute(t, "query", "--schema", schemaFile, "--data", dataFile, "Author { isbn }")
	require.EqualError(t, err, "query failed: QUERY_ERROR")
	require.Contains(t, out, `Cannot query field \"isbn\" on type \"Author\"`)

	_, err = execute(t, "query", "--schema", schemaFile, "Author { name }")
	require.EqualError(t, err, "one of --data or --sqlite is required")

	_, err = execute(t, "query", "--schema", schemaFile, "--data", dataFile)
	require.Error(t, err)
}

func TestServe(t *testing.T) {
	cfg := &config.Config{
		Schema:   schemaFile,
		Data:     dataFile,
		Identity: "id",
		Server:   config.ServerConfig{Timeout: time.Second},
		OTel:     config.OTelConfig{Service: "sineql"},
	}
	logger, err := config.LogConfig{Level: "error", Format: "text"}.NewLogger(io.Discard)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logger, ln) }()

	body, err := json.Marshal(map[string]string{"query": frankQuery})
	require.NoError(t, err)
	resp, err := http.Post("http://"+ln.Addr().String()+"/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	if diff := cmp.Diff(frankResult, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	resp, err = http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	metricsBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(metricsBody), `sineql_queries_total{code="OK"} 1`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
