// Package memstore serves handler requests from an in-memory dataset loaded
// from YAML:
//
//	Book:
//	  - {id: 1, title: The Wind in the Willows}
//	Author:
//	  - {name: Frank, books: [1]}
package memstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	executor "github.com/hanpama/sineql/internal/executor"
	schema "github.com/hanpama/sineql/internal/schema"
	"gopkg.in/yaml.v3"
)

// Store holds records per type name. It is read-only after Load.
type Store struct {
	tables map[string][]executor.Record
}

// Load decodes a YAML dataset mapping type names to record lists.
func Load(r io.Reader) (*Store, error) {
	var raw map[string][]map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	s := &Store{tables: make(map[string][]executor.Record, len(raw))}
	for typeName, rows := range raw {
		records := make([]executor.Record, 0, len(rows))
		for i, row := range rows {
			if row == nil {
				return nil, fmt.Errorf("decode dataset: %s[%d] is not a mapping", typeName, i)
			}
			records = append(records, executor.Record(row))
		}
		s.tables[typeName] = records
	}
	return s, nil
}

// LoadFile loads the dataset at path.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Types returns the type names present in the dataset, sorted.
func (s *Store) Types() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Records returns the records of typeName in dataset order.
func (s *Store) Records(typeName string) []executor.Record { return s.tables[typeName] }

// Handler resolves requests for typeName: equality filter on every filter
// field, then projection to the requested attributes.
func (s *Store) Handler(typeName string) executor.Handler {
	records := s.tables[typeName]
	return executor.HandlerFunc(func(ctx context.Context, req executor.Request) ([]executor.Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return executor.Select(records, req), nil
	})
}

// Handlers returns a handler for every compound type of sch. Types missing
// from the dataset resolve to no records; dataset types the schema does not
// declare as compound are an error.
func Handlers(s *Store, sch *schema.Schema) (map[string]executor.Handler, error) {
	for _, name := range s.Types() {
		if !sch.Type(name).IsCompound() {
			return nil, fmt.Errorf("dataset type %q is not a compound type of the schema", name)
		}
	}
	handlers := make(map[string]executor.Handler)
	for _, t := range sch.CompoundTypes() {
		handlers[t.Name] = s.Handler(t.Name)
	}
	return handlers, nil
}
