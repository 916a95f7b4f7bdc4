package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanpama/sineql"
	config "github.com/hanpama/sineql/internal/config"
	eventbus "github.com/hanpama/sineql/internal/eventbus"
	metrics "github.com/hanpama/sineql/internal/metrics"
	otel "github.com/hanpama/sineql/internal/otel"
	server "github.com/hanpama/sineql/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP query endpoint",
		Long: `Serve answers queries on /query, exposes Prometheus metrics on /metrics
and, with --debug, the compiled type graph on /schema.`,
		Example: `  sineql serve --schema library.schema --data library.yaml --addr :8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cfg := configFrom(ctx)
			logger := loggerFrom(ctx)

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, logger, ln)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address (default: :8080)")
	f.Duration("server-timeout", 0, "Per-request timeout (default: 10s)")
	f.Bool("server-pretty", false, "Pretty-print JSON responses")
	f.String("otel-endpoint", "", "OTLP collector endpoint")
	f.String("otel-service", "", "OpenTelemetry service name (default: sineql)")
	return cmd
}

// app is everything serve runs behind the listener.
type app struct {
	handler  http.Handler
	shutdown func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	bus := eventbus.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	unregister := metrics.New(reg).Register(bus)

	otelShutdown, err := otel.Setup(ctx, bus, cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		unregister()
		return nil, fmt.Errorf("otel setup: %w", err)
	}

	engine, closeStore, err := compile(ctx, cfg, logger, sineql.WithEventBus(bus))
	if err != nil {
		unregister()
		_ = otelShutdown(context.Background())
		return nil, err
	}

	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithEventBus(bus),
		server.WithMetrics(reg),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	return &app{
		handler:  server.New(engine, opts...),
		shutdown: func(ctx context.Context) error {
			unregister()
			return errors.Join(otelShutdown(ctx), closeStore())
		},
	}, nil
}

// serve runs the query endpoint on ln until ctx is done, then drains
// in-flight requests.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("sineql server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		_ = a.shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if serr := <-errCh; !errors.Is(serr, http.ErrServerClosed) {
		err = errors.Join(err, serr)
	}
	return errors.Join(err, a.shutdown(shutdownCtx))
}
