package executor

import (
	"slices"
	"strings"

	schema "github.com/hanpama/sineql/internal/schema"
)

// Registry maps every compound type of a schema to its handler. It is
// validated once and read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry checks handlers against s: every compound type needs a non-nil
// handler, and handlers may only be registered for compound types of s.
func NewRegistry(s *schema.Schema, handlers map[string]Handler) (*Registry, error) {
	cfgErr := &ConfigurationError{}
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, t := range s.CompoundTypes() {
		h := handlers[t.Name]
		if h == nil {
			cfgErr.Missing = append(cfgErr.Missing, t.Name)
			continue
		}
		r.handlers[t.Name] = h
	}
	for name := range handlers {
		t := s.Type(name)
		switch {
		case t == nil:
			cfgErr.Unknown = append(cfgErr.Unknown, name)
		case t.IsScalar():
			cfgErr.Scalar = append(cfgErr.Scalar, name)
		}
	}
	if cfgErr.empty() {
		return r, nil
	}
	slices.Sort(cfgErr.Unknown)
	slices.Sort(cfgErr.Scalar)
	return nil, cfgErr
}

// Handler returns the handler of a compound type.
func (r *Registry) Handler(typeName string) Handler { return r.handlers[typeName] }

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ConfigurationError reports a handler map that does not fit the schema.
type ConfigurationError struct {
	Missing []string // compound types without a handler, declaration order
	Unknown []string // handlers for types the schema does not declare
	Scalar  []string // handlers for scalar types
}

func (e *ConfigurationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unknown) == 0 && len(e.Scalar) == 0
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing handlers for compound types: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "handlers registered for unknown types: "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Scalar) > 0 {
		parts = append(parts, "handlers registered for scalar types: "+strings.Join(e.Scalar, ", "))
	}
	return strings.Join(parts, "; ")
}
