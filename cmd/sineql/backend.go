package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hanpama/sineql"
	config "github.com/hanpama/sineql/internal/config"
	executor "github.com/hanpama/sineql/internal/executor"
	memstore "github.com/hanpama/sineql/internal/memstore"
	schema "github.com/hanpama/sineql/internal/schema"
	sqlstore "github.com/hanpama/sineql/internal/sqlstore"
)

// loadSchema reads and builds the configured schema file.
func loadSchema(cfg *config.Config) (string, *schema.Schema, error) {
	if cfg.Schema == "" {
		return "", nil, errors.New("--schema is required")
	}
	src, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return "", nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.BuildFromSource(cfg.Schema, string(src))
	if err != nil {
		return "", nil, err
	}
	return string(src), sch, nil
}

// openHandlers builds a handler for every compound type of sch from the
// configured SQLite database or YAML dataset. The returned close func
// releases the backing store.
func openHandlers(ctx context.Context, cfg *config.Config, sch *schema.Schema, logger *slog.Logger) (map[string]sineql.Handler, func() error, error) {
	switch {
	case cfg.SQLite != "":
		store, err := sqlstore.Open(cfg.SQLite, sch,
			sqlstore.WithIdentityColumn(cfg.Identity),
			sqlstore.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.Data != "" {
			if err := seed(ctx, store, cfg.Data); err != nil {
				_ = store.Close()
				return nil, nil, err
			}
			logger.Info("loaded dataset into sqlite", "data", cfg.Data, "dsn", cfg.SQLite)
		}
		return store.Handlers(), store.Close, nil

	case cfg.Data != "":
		store, err := memstore.LoadFile(cfg.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("load dataset: %w", err)
		}
		handlers, err := memstore.Handlers(store, sch)
		if err != nil {
			return nil, nil, err
		}
		return handlers, func() error { return nil }, nil
	}
	return nil, nil, errors.New("one of --data or --sqlite is required")
}

// seed creates the tables of store and copies the dataset at path into them.
func seed(ctx context.Context, store *sqlstore.Store, path string) error {
	data, err := memstore.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	dataset := make(map[string][]executor.Record)
	for _, name := range data.Types() {
		dataset[name] = data.Records(name)
	}
	return store.Import(ctx, dataset)
}

// compile builds the engine described by cfg. Callers must invoke the
// returned close func once the engine is no longer used.
func compile(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...sineql.Option) (*sineql.Engine, func() error, error) {
	src, sch, err := loadSchema(cfg)
	if err != nil {
		return nil, nil, err
	}
	handlers, closeFn, err := openHandlers(ctx, cfg, sch, logger)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]sineql.Option{
		sineql.WithSchemaName(cfg.Schema),
		sineql.WithIdentityField(cfg.Identity),
		sineql.WithDebug(cfg.Debug),
		sineql.WithLogger(logger),
	}, opts...)
	engine, err := sineql.Compile(src, handlers, opts...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return engine, closeFn, nil
}
