package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/typegraph/internal/config"
	"github.com/hanpama/typegraph/internal/eventbus"
	"github.com/hanpama/typegraph/internal/metrics"
	"github.com/hanpama/typegraph/internal/otel"
	"github.com/hanpama/typegraph/internal/sdl"
	"github.com/hanpama/typegraph/internal/server"
	"github.com/hanpama/typegraph/internal/watch"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolved schema over GraphQL introspection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	flags := cmd.Flags()
	flags.String("addr", "", "HTTP listen address, overrides server.addr")
	flags.Bool("watch", false, "rebuild the schema when SDL files change")
	flags.Bool("introspection", true, "serve __schema and __type")
	flags.Bool("pretty", false, "pretty-print JSON responses")
	flags.String("otel-endpoint", "", "OTLP collector endpoint, overrides otel.endpoint")
	return cmd
}

// applyServeFlags copies the serve flags the user set onto cfg.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Name() != "serve" {
		return nil
	}
	flags := cmd.Flags()
	var err error
	if flags.Changed("addr") {
		cfg.Server.Addr, err = flags.GetString("addr")
	}
	if err == nil && flags.Changed("watch") {
		cfg.Server.Watch, err = flags.GetBool("watch")
	}
	if err == nil && flags.Changed("introspection") {
		cfg.Server.Introspection, err = flags.GetBool("introspection")
	}
	if err == nil && flags.Changed("pretty") {
		cfg.Server.Pretty, err = flags.GetBool("pretty")
	}
	if err == nil && flags.Changed("otel-endpoint") {
		cfg.OTel.Endpoint, err = flags.GetString("otel-endpoint")
	}
	return err
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	shutdown, err := otel.Setup(cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var m *metrics.Metrics
	if cfg.Server.Metrics {
		m = metrics.New()
		defer m.Subscribe()()
	}

	disc, err := sdl.NewFileSystemDiscovery(cfg.Schema.Paths)
	if err != nil {
		return err
	}
	sch, err := buildSchema(ctx, cfg, disc, logger)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	h, err := server.New(sch, handlerOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx, ln, newMux(cfg, h, m), logger)
	})
	if cfg.Server.Watch {
		w, err := watch.New(watch.Config{
			Dirs:     disc.BaseDirs(),
			Match:    disc.Match,
			Debounce: cfg.Server.WatchDebounce,
			Logger:   logger.Named("watch"),
		}, func(ctx context.Context, trigger string) error {
			fresh, err := sdl.NewFileSystemDiscovery(cfg.Schema.Paths)
			if err != nil {
				return err
			}
			next, err := buildSchema(ctx, cfg, fresh, logger)
			if err != nil {
				return err
			}
			return h.Swap(next)
		})
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("watch: %w", err)
		}
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}

func handlerOptions(cfg *config.Config, logger *zap.Logger) []server.Option {
	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithIntrospection(cfg.Server.Introspection),
		server.WithLogger(logger.Named("server")),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	return opts
}

func newMux(cfg *config.Config, h http.Handler, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, h)
	if m != nil {
		mux.Handle(cfg.Server.MetricsPath, m.Handler())
	}
	return mux
}
