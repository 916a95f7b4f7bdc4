package executor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	eventbus "github.com/hanpama/sineql/internal/eventbus"
	events "github.com/hanpama/sineql/internal/events"
	query "github.com/hanpama/sineql/internal/query"
	schema "github.com/hanpama/sineql/internal/schema"
	"golang.org/x/sync/errgroup"
)

// DefaultIdentityField names the attribute handlers use to identify records.
const DefaultIdentityField = "id"

// Executor resolves query trees by delegating to the handlers of a Registry.
// It holds no per-query state and may be used concurrently.
type Executor struct {
	schema   *schema.Schema
	registry *Registry
	identity string
	logger   *slog.Logger
	bus      *eventbus.Bus
	calls    atomic.Uint64
}

type Option func(*Executor)

// WithIdentityField overrides DefaultIdentityField.
func WithIdentityField(name string) Option { return func(e *Executor) { e.identity = name } }

// WithLogger sets the structured logger (discarded by default).
func WithLogger(l *slog.Logger) Option { return func(e *Executor) { e.logger = l } }

// WithEventBus publishes HandlerStart/HandlerFinish events on b.
func WithEventBus(b *eventbus.Bus) Option { return func(e *Executor) { e.bus = b } }

func New(s *schema.Schema, registry *Registry, opts ...Option) *Executor {
	e := &Executor{schema: s, registry: registry, identity: DefaultIdentityField}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// IdentityField returns the name of the identity attribute.
func (e *Executor) IdentityField() string { return e.identity }

// resolved is a projected output record together with the identity its
// parents correlate on.
type resolved struct {
	key    string
	record Record
}

// Resolve walks root depth-first and returns its records in handler order.
// The first failing handler fails the whole query; no partial result is
// returned.
func (e *Executor) Resolve(ctx context.Context, root *query.Node) ([]Record, error) {
	if !root.IsCompound() {
		return nil, fmt.Errorf("cannot resolve scalar type %s", root.Type.Name)
	}
	rs, err := e.resolveNode(ctx, root)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = r.record
	}
	return out, nil
}

func (e *Executor) resolveNode(ctx context.Context, node *query.Node) ([]resolved, error) {
	scalars := node.Scalars()
	compounds := node.Compounds()
	req := Request{
		Type:       node.Type.Name,
		Attributes: e.attributes(node),
		Filter:     node.Filter(),
	}

	// The node's own handler call and every compound sub-tree run
	// concurrently; the node joins them all before assembling its output.
	g, gctx := errgroup.WithContext(ctx)
	var raw []Record
	g.Go(func() error {
		records, err := e.call(gctx, req)
		raw = records
		return err
	})
	children := make([][]resolved, len(compounds))
	for i, c := range compounds {
		g.Go(func() error {
			rs, err := e.resolveNode(gctx, c)
			children[i] = rs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]resolved, 0, len(raw))
records:
	for _, rec := range raw {
		if rec == nil {
			return nil, malformedOutput(req.Type, "nil record")
		}
		r := make(Record, len(node.Children))
		for _, s := range scalars {
			r[s.Name] = rec[s.Name]
		}
		for i, c := range compounds {
			keys, err := identities(rec[c.Name])
			if err != nil {
				return nil, malformedOutput(req.Type, "field %s: %v", c.Name, err)
			}
			subset := correlate(children[i], keys)
			if c.Required() && len(subset) == 0 {
				continue records
			}
			r[c.Name] = subset
		}
		key, ok := identityKey(rec[e.identity])
		if !ok && !node.IsRoot() {
			return nil, malformedOutput(req.Type, "record without a usable %q attribute", e.identity)
		}
		out = append(out, resolved{key: key, record: r})
	}
	return out, nil
}

// attributes lists the requested fields plus the identity field.
func (e *Executor) attributes(node *query.Node) []string {
	attrs := make([]string, 0, len(node.Children)+1)
	for _, c := range node.Children {
		attrs = append(attrs, c.Name)
	}
	if !slices.Contains(attrs, e.identity) {
		attrs = append(attrs, e.identity)
	}
	return attrs
}

// correlate picks the children whose identity is in keys, in the child
// handler's order.
func correlate(children []resolved, keys []string) []Record {
	subset := make([]Record, 0, len(keys))
	if len(keys) == 0 {
		return subset
	}
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	for _, c := range children {
		if wanted[c.key] {
			subset = append(subset, c.record)
		}
	}
	return subset
}

// call invokes the handler of req.Type, honoring its filter capability.
func (e *Executor) call(ctx context.Context, req Request) (records []Record, err error) {
	h := e.registry.Handler(req.Type)
	if h == nil {
		return nil, &HandlerError{Type: req.Type, Message: "no handler registered"}
	}
	id := e.calls.Add(1)
	start := time.Now()
	eventbus.Publish(ctx, e.bus, events.HandlerStart{CallID: id, Type: req.Type, Attributes: req.Attributes, Filter: req.Filter})

	if fc, ok := h.(FilterCapability); ok && !fc.SupportsFilter(req.FilterFields()) {
		e.logger.DebugContext(ctx, "filter combination not supported", "type", req.Type, "filter", req.FilterFields())
		eventbus.Publish(ctx, e.bus, events.HandlerFinish{CallID: id, Type: req.Type, Skipped: true, Duration: time.Since(start)})
		return nil, nil
	}

	defer func() {
		if p := recover(); p != nil {
			records, err = nil, &HandlerError{Type: req.Type, Err: fmt.Errorf("panic: %v", p)}
		}
		eventbus.Publish(ctx, e.bus, events.HandlerFinish{CallID: id, Type: req.Type, Records: len(records), Err: err, Duration: time.Since(start)})
		if err != nil {
			e.logger.DebugContext(ctx, "handler failed", "type", req.Type, "error", err)
		}
	}()

	e.logger.DebugContext(ctx, "calling handler", "type", req.Type, "attributes", req.Attributes, "filter", req.Filter)
	records, err = h.Resolve(ctx, req)
	if err != nil {
		return nil, &HandlerError{Type: req.Type, Err: err}
	}
	return records, nil
}
