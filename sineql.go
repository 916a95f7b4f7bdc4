// Package sineql compiles a type schema and a set of per-type handlers into
// an Engine that answers graph queries.
//
//	engine, err := sineql.Compile(`
//	  type Book { String title }
//	  type Author { String name [Book] books }
//	`, map[string]sineql.Handler{"Book": books, "Author": authors})
//
//	res := engine.Execute(ctx, `Author { match "Frank" name books { title } }`)
//
// Compile validates everything that can be known up front: schema syntax and
// semantics, and that every compound type has exactly one handler. Execute
// parses the query against the compiled graph and walks it depth-first,
// calling handlers concurrently.
package sineql

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	eventbus "github.com/hanpama/sineql/internal/eventbus"
	events "github.com/hanpama/sineql/internal/events"
	executor "github.com/hanpama/sineql/internal/executor"
	introspection "github.com/hanpama/sineql/internal/introspection"
	query "github.com/hanpama/sineql/internal/query"
	reqid "github.com/hanpama/sineql/internal/reqid"
	schema "github.com/hanpama/sineql/internal/schema"
)

type (
	Handler          = executor.Handler
	HandlerFunc      = executor.HandlerFunc
	Request          = executor.Request
	Record           = executor.Record
	FilterCapability = executor.FilterCapability
)

// WithFilters declares the filter field combinations h supports. Requests
// with any other combination resolve to no records without calling h.
func WithFilters(h Handler, combinations ...[]string) Handler {
	return executor.WithFilters(h, combinations...)
}

// Engine is a compiled schema bound to its handlers. It is safe for
// concurrent use; a failing query never affects later ones.
type Engine struct {
	schema   *schema.Schema
	executor *executor.Executor
	graph    *introspection.Graph
	logger   *slog.Logger
	bus      *eventbus.Bus
}

type config struct {
	debug      bool
	logger     *slog.Logger
	identity   string
	bus        *eventbus.Bus
	schemaName string
}

type Option func(*config)

// WithDebug exposes the compiled type graph through TypeGraph and the
// __Type/__Field query types, and logs the rendered schema at compile time.
func WithDebug(debug bool) Option { return func(c *config) { c.debug = debug } }

// WithLogger sets the structured logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithIdentityField names the attribute handlers use to identify records
// ("id" by default).
func WithIdentityField(name string) Option { return func(c *config) { c.identity = name } }

// WithEventBus publishes query and handler events on b.
func WithEventBus(b *eventbus.Bus) Option { return func(c *config) { c.bus = b } }

// WithSchemaName sets the file name reported in schema error locations.
func WithSchemaName(name string) Option { return func(c *config) { c.schemaName = name } }

// Compile builds the type graph from schemaText and binds handlers to it.
// Errors are *Error values with code CodeSchema or CodeConfiguration.
func Compile(schemaText string, handlers map[string]Handler, opts ...Option) (*Engine, error) {
	cfg := config{identity: executor.DefaultIdentityField}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	s, err := schema.BuildFromSource(cfg.schemaName, schemaText)
	if err != nil {
		return nil, &Error{Code: CodeSchema, Err: err}
	}

	e := &Engine{schema: s, logger: cfg.logger, bus: cfg.bus}
	if cfg.debug {
		e.graph = introspection.Describe(s)
		s, handlers = introspection.Wrap(s, handlers, cfg.identity)
		e.schema = s
		cfg.logger.Debug("compiled schema", "name", cfg.schemaName, "schema", e.graph.Schema)
	}

	reg, err := executor.NewRegistry(s, handlers)
	if err != nil {
		return nil, &Error{Code: CodeConfiguration, Err: err}
	}
	e.executor = executor.New(s, reg,
		executor.WithIdentityField(cfg.identity),
		executor.WithLogger(cfg.logger),
		executor.WithEventBus(cfg.bus),
	)
	return e, nil
}

// TypeGraph describes the compiled schema. It is nil unless the engine was
// compiled with WithDebug(true).
func (e *Engine) TypeGraph() *introspection.Graph { return e.graph }

// Result is the outcome of Execute. Code is empty on success, in which case
// Data holds the records (never nil) and Error is nil.
type Result struct {
	Code  ErrorCode  `json:"code"`
	Data  []Record   `json:"data"`
	Error *ErrorInfo `json:"error,omitempty"`
}

// Execute runs q and reports the outcome as a Result.
func (e *Engine) Execute(ctx context.Context, q string) *Result {
	records, err := e.Run(ctx, q)
	if err != nil {
		return &Result{Code: ErrorCodeOf(err), Error: newErrorInfo(err)}
	}
	return &Result{Data: records}
}

// Run parses q against the compiled graph and resolves it. Errors are *Error
// values with code CodeQuery, CodeHandler or CodeCanceled.
func (e *Engine) Run(ctx context.Context, q string) (records []Record, err error) {
	ctx, id := reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, e.bus, events.QueryStart{QueryID: id, Query: q})
	defer func() {
		code := ErrorCodeOf(err)
		eventbus.Publish(ctx, e.bus, events.QueryFinish{
			QueryID:  id,
			Query:    q,
			Code:     string(code),
			Err:      err,
			Records:  len(records),
			Duration: time.Since(start),
		})
		if err != nil {
			e.logger.DebugContext(ctx, "query failed", "query_id", id, "code", code, "error", err)
		}
	}()

	root, err := query.Parse(e.schema, q)
	if err != nil {
		return nil, &Error{Code: CodeQuery, Err: err}
	}
	e.logger.DebugContext(ctx, "executing query", "query_id", id, "type", root.Type.Name)
	records, err = e.executor.Resolve(ctx, root)
	if err != nil {
		return nil, classifyResolveError(ctx, err)
	}
	return records, nil
}

func classifyResolveError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Code: CodeCanceled, Err: fmt.Errorf("%w: %w", ctxErr, err)}
	}
	return &Error{Code: CodeHandler, Err: err}
}
