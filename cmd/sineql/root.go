package main

import (
	"context"
	"log/slog"

	config "github.com/hanpama/sineql/internal/config"
	"github.com/spf13/cobra"
)

type configKey struct{}

type loggerKey struct{}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "sineql",
		Short: "Query typed record graphs through per-type handlers",
		Long: `sineql compiles a schema of scalar and compound types and answers
nested queries by calling one handler per compound type.

Records come from a YAML dataset (--data) or a SQLite database (--sqlite).
Given both, the dataset is loaded into the database first.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./sineql.yaml)")
	pf.String("schema", "", "Path to the schema file")
	pf.String("data", "", "Path to a YAML dataset")
	pf.String("sqlite", "", "SQLite DSN to read records from")
	pf.String("identity", "", "Identity attribute (default: id)")
	pf.Bool("debug", false, "Enable schema introspection")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (text|json)")

	root.AddCommand(newCheckCmd(), newQueryCmd(), newServeCmd())
	return root
}

func configFrom(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{Identity: "id"}
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
