// Package sqlstore serves handler requests from a SQL database laid out after
// the type graph:
//
//   - one table per compound type, named after the type, with an identity
//     column and one column per scalar field;
//   - one link table per compound field, named "<Type>_<field>", with
//     parent_id and child_id columns.
//
// Statements use quoted identifiers and "?" placeholders, which SQLite (the
// pure-Go modernc.org/sqlite driver registered as "sqlite") understands.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	executor "github.com/hanpama/sineql/internal/executor"
	schema "github.com/hanpama/sineql/internal/schema"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// DriverName is the database/sql driver the store opens by default.
const DriverName = "sqlite"

type Store struct {
	db       *sql.DB
	schema   *schema.Schema
	identity string
	logger   *slog.Logger
}

type Option func(*Store)

// WithIdentityColumn overrides the identity column name ("id").
func WithIdentityColumn(name string) Option { return func(s *Store) { s.identity = name } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// New binds db to the type graph sch.
func New(db *sql.DB, sch *schema.Schema, opts ...Option) *Store {
	s := &Store{db: db, schema: sch, identity: executor.DefaultIdentityField}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Open opens a SQLite database at dsn and binds it to sch. The caller owns
// the returned store and must Close it.
func Open(dsn string, sch *schema.Schema, opts ...Option) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and shared.
	db.SetMaxOpenConns(1)
	return New(db, sch, opts...), nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the tables of every compound type and the link tables of
// every compound field, skipping those that already exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.ddl() {
		s.logger.DebugContext(ctx, "migrate", "sql", stmt)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) ddl() []string {
	var stmts []string
	for _, t := range s.schema.CompoundTypes() {
		cols := []string{quote(s.identity) + " NOT NULL PRIMARY KEY"}
		var links []string
		for _, f := range t.Fields {
			if f.Name == s.identity {
				continue
			}
			ft := s.schema.FieldType(f)
			if ft.IsCompound() {
				links = append(links, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s NOT NULL, %s NOT NULL)",
					quote(linkTable(t.Name, f.Name)), quote("parent_id"), quote("child_id")))
				continue
			}
			cols = append(cols, strings.TrimSpace(quote(f.Name)+" "+columnType(ft)))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(t.Name), strings.Join(cols, ", ")))
		stmts = append(stmts, links...)
	}
	return stmts
}

// Insert stores one record of typeName: its scalar fields in the type table
// and its compound identities in the link tables.
func (s *Store) Insert(ctx context.Context, typeName string, rec executor.Record) (err error) {
	t := s.schema.Type(typeName)
	if !t.IsCompound() {
		return fmt.Errorf("unknown compound type %q", typeName)
	}
	id, ok := rec[s.identity]
	if !ok || id == nil {
		return fmt.Errorf("%s record without %q", typeName, s.identity)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cols := []string{quote(s.identity)}
	args := []any{id}
	type link struct {
		table string
		ids   []any
	}
	var links []link
	for _, f := range t.Fields {
		v, ok := rec[f.Name]
		if !ok || f.Name == s.identity {
			continue
		}
		if s.schema.FieldType(f).IsCompound() {
			links = append(links, link{table: linkTable(t.Name, f.Name), ids: identityList(v)})
			continue
		}
		cols = append(cols, quote(f.Name))
		args = append(args, v)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(t.Name), strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err = tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", typeName, err)
	}
	for _, l := range links {
		stmt := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", quote(l.table), quote("parent_id"), quote("child_id"))
		for _, child := range l.ids {
			if _, err = tx.ExecContext(ctx, stmt, id, child); err != nil {
				return fmt.Errorf("failed to insert %s link: %w", l.table, err)
			}
		}
	}
	return tx.Commit()
}

// Import inserts every record of a dataset, type by type.
func (s *Store) Import(ctx context.Context, dataset map[string][]executor.Record) error {
	for _, t := range s.schema.CompoundTypes() {
		for _, rec := range dataset[t.Name] {
			if err := s.Insert(ctx, t.Name, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Handlers returns a handler for every compound type of the schema.
func (s *Store) Handlers() map[string]executor.Handler {
	handlers := make(map[string]executor.Handler)
	for _, t := range s.schema.CompoundTypes() {
		handlers[t.Name] = s.Handler(t.Name)
	}
	return handlers
}

// Handler resolves requests for typeName with one SELECT on the type table
// and one per requested compound field on its link table.
func (s *Store) Handler(typeName string) executor.Handler {
	return executor.HandlerFunc(func(ctx context.Context, req executor.Request) ([]executor.Record, error) {
		return s.resolve(ctx, typeName, req)
	})
}

func (s *Store) resolve(ctx context.Context, typeName string, req executor.Request) ([]executor.Record, error) {
	t := s.schema.Type(typeName)
	if !t.IsCompound() {
		return nil, fmt.Errorf("unknown compound type %q", typeName)
	}

	columns := []string{s.identity}
	var compounds []*schema.Field
	for _, attr := range req.Attributes {
		if attr == s.identity {
			continue
		}
		f := t.Field(attr)
		if f == nil {
			continue
		}
		if s.schema.FieldType(f).IsCompound() {
			compounds = append(compounds, f)
		} else {
			columns = append(columns, attr)
		}
	}

	var where []string
	var args []any
	for _, name := range req.FilterFields() {
		f := t.Field(name)
		if name != s.identity && (f == nil || s.schema.FieldType(f).IsCompound()) {
			return nil, fmt.Errorf("cannot filter %s on %q", typeName, name)
		}
		where = append(where, quote(name)+" = ?")
		args = append(args, req.Filter[name])
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quote(t.Name))
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY rowid"
	s.logger.DebugContext(ctx, "select", "type", typeName, "sql", stmt, "args", args)

	records, ids, err := s.query(ctx, t, stmt, args, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", typeName, err)
	}
	for _, f := range compounds {
		linked, err := s.links(ctx, linkTable(t.Name, f.Name), ids)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s.%s: %w", typeName, f.Name, err)
		}
		for i, rec := range records {
			rec[f.Name] = linked[ids[i]]
		}
	}
	return records, nil
}

func (s *Store) query(ctx context.Context, t *schema.Type, stmt string, args []any, columns []string) ([]executor.Record, []any, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []executor.Record{}
	var ids []any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rec := make(executor.Record, len(columns))
		for i, c := range columns {
			rec[c] = s.decode(t, c, values[i])
		}
		records = append(records, rec)
		ids = append(ids, rec[s.identity])
	}
	return records, ids, rows.Err()
}

// links maps each parent identity to its child identities.
func (s *Store) links(ctx context.Context, table string, parents []any) (map[any][]any, error) {
	linked := make(map[any][]any, len(parents))
	if len(parents) == 0 {
		return linked, nil
	}
	stmt := fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s IN (%s) ORDER BY rowid",
		quote("parent_id"), quote("child_id"), quote(table), quote("parent_id"), placeholders(len(parents)))
	rows, err := s.db.QueryContext(ctx, stmt, parents...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var parent, child any
		if err := rows.Scan(&parent, &child); err != nil {
			return nil, err
		}
		parent = normalize(parent)
		linked[parent] = append(linked[parent], normalize(child))
	}
	return linked, rows.Err()
}

func (s *Store) decode(t *schema.Type, column string, v any) any {
	v = normalize(v)
	if f := t.Field(column); f != nil && f.Type == "Boolean" {
		if n, ok := v.(int64); ok {
			return n != 0
		}
	}
	return v
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func identityList(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	case []byte:
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func columnType(t *schema.Type) string {
	switch t.Name {
	case "String":
		return "TEXT"
	case "Integer", "Boolean":
		return "INTEGER"
	case "Float":
		return "REAL"
	}
	return ""
}

func linkTable(typeName, field string) string { return typeName + "_" + field }

func quote(ident string) string { return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"` }

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
