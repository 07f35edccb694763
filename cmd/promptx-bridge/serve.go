package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jllopis/promptx-bridge/pkg/api"
	"github.com/jllopis/promptx-bridge/pkg/config"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the PromptX HTTP API",
		Long: `Serve the PromptX HTTP API under /api/promptx.

The config file (and its profile overlay) is watched while the server runs;
template path changes are applied without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, addr string) error {
	watcher, err := config.NewWatcher(configPaths(opts))
	if err != nil {
		return newConfigError(err, opts.configPath)
	}
	cfg := watcher.Config()
	applyOverrides(cfg, opts)
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return newConfigError(err, opts.configPath)
	}

	a, err := newApp(ctx, cfg, modeServe)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	watcher.OnChange(func(next *config.Config) {
		a.renderer.SetCandidates(next.Template.Paths)
		if err := a.renderer.Reload(); err != nil {
			a.logger.Warn("serve.template.keep_previous", slog.String("error", err.Error()))
		}
	})

	srvOpts := []api.Option{api.WithLogger(a.logger), api.WithMetrics(a.metrics)}
	if a.audit != nil {
		srvOpts = append(srvOpts, api.WithAuditStore(a.audit))
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.New(a.svc, a.renderer, srvOpts...).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("serve.listening", slog.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("serve.shutdown")
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	return g.Wait()
}
