package executor

import (
	"context"
	"slices"
	"strings"
)

// Record is one result row: field name to value. Compound field values are
// []Record once resolved; in handler output they hold identities.
type Record = map[string]any

// Request is what the executor asks of a type handler.
//
//   - Attributes lists the fields to return: the requested scalar fields, the
//     requested compound fields (as identity values or lists of identities),
//     and the identity field.
//   - Filter maps field names to equality values. Every entry must hold for a
//     record to be returned. An empty filter means no constraint.
type Request struct {
	Type       string
	Attributes []string
	Filter     map[string]any
}

// FilterFields returns the sorted names of the filtered fields.
func (r Request) FilterFields() []string {
	fields := make([]string, 0, len(r.Filter))
	for name := range r.Filter {
		fields = append(fields, name)
	}
	slices.Sort(fields)
	return fields
}

// Handler resolves records of one compound type.
//
// Contract
//   - Return the records matching Filter, projected to Attributes. Extra
//     attributes are ignored by the executor.
//   - Every record must carry the identity field when the type is reached
//     through a compound field, since parents refer to children by identity.
//   - A compound attribute holds one identity or a list of identities of the
//     referenced type; never nested records.
//   - Handlers are called concurrently, must not mutate the request, and
//     should be free of side effects. The executor does not retry.
//   - Record order is preserved in the output.
type Handler interface {
	Resolve(ctx context.Context, req Request) ([]Record, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) ([]Record, error)

func (f HandlerFunc) Resolve(ctx context.Context, req Request) ([]Record, error) {
	return f(ctx, req)
}

// FilterCapability is implemented by handlers that only understand some
// combinations of filter fields. When SupportsFilter reports false for a
// request's sorted filter fields the handler is not called and the type
// resolves to no records.
type FilterCapability interface {
	SupportsFilter(fields []string) bool
}

// WithFilters declares the filter field combinations h supports. The order
// of fields within a combination does not matter. An empty filter is always
// supported.
func WithFilters(h Handler, combinations ...[]string) Handler {
	supported := make(map[string]bool, len(combinations))
	for _, combo := range combinations {
		supported[comboKey(combo)] = true
	}
	return &filteredHandler{Handler: h, supported: supported}
}

type filteredHandler struct {
	Handler
	supported map[string]bool
}

func (h *filteredHandler) SupportsFilter(fields []string) bool {
	return len(fields) == 0 || h.supported[comboKey(fields)]
}

func comboKey(fields []string) string {
	sorted := slices.Clone(fields)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}
