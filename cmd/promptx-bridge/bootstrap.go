package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"

	"github.com/jllopis/promptx-bridge/pkg/audit"
	"github.com/jllopis/promptx-bridge/pkg/config"
	"github.com/jllopis/promptx-bridge/pkg/mcp"
	"github.com/jllopis/promptx-bridge/pkg/prompt"
	"github.com/jllopis/promptx-bridge/pkg/promptx"
	"github.com/jllopis/promptx-bridge/pkg/telemetry"
)

const serviceName = "promptx-bridge"

// configPaths returns the config file and its profile overlay, skipping
// the overlay when it does not exist.
func configPaths(opts *rootOptions) []string {
	if opts.configPath == "" {
		return nil
	}
	paths := []string{opts.configPath}
	if overlay := config.ProfilePath(opts.configPath, opts.profile); overlay != "" {
		if _, err := os.Stat(overlay); err == nil {
			paths = append(paths, overlay)
		}
	}
	return paths
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadFiles(configPaths(opts)...)
	if err != nil {
		return nil, newConfigError(err, opts.configPath)
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, newConfigError(err, opts.configPath)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, opts *rootOptions) {
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.timeoutSet && opts.timeout > 0 {
		cfg.MCP.Timeout = opts.timeout
	}
}

// app holds everything a command needs. Fields stay nil when the command
// did not ask for them.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *telemetry.ToolMetrics
	client   *mcp.Client
	audit    audit.Store
	db       *sql.DB
	svc      *promptx.Service
	renderer *prompt.Renderer
	shutdown telemetry.ShutdownFunc
}

type appMode int

const (
	// modeOffline needs no PromptX connection.
	modeOffline appMode = iota
	// modeServe tolerates a failed connection; the API then reports the
	// service as not initialized.
	modeServe
	// modeRequired fails when no connection can be made.
	modeRequired
)

func newApp(ctx context.Context, cfg *config.Config, mode appMode) (*app, error) {
	a := &app{cfg: cfg}
	a.logger = telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig(serviceName, version, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	a.shutdown = shutdown

	metrics, err := telemetry.NewToolMetrics()
	if err != nil {
		a.logger.Warn("telemetry.metrics.disabled", slog.String("error", err.Error()))
	}
	a.metrics = metrics

	a.renderer = prompt.NewRenderer(cfg.Template.Paths, prompt.WithLogger(a.logger))

	if cfg.Audit.Enabled {
		if err := a.openAudit(); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	if mode == modeOffline {
		return a, nil
	}

	var exec promptx.ToolExecutor
	if !cfg.MCP.Enabled() {
		if mode == modeRequired {
			a.Close(ctx)
			return nil, newNotConfiguredError()
		}
		a.logger.Warn("promptx.mcp.unconfigured")
	} else {
		client, err := mcp.Dial(ctx, cfg.MCP, mcp.WithClientInfo(serviceName, version), mcp.WithClientLogger(a.logger))
		switch {
		case err != nil && mode == modeRequired:
			a.Close(ctx)
			return nil, wrapConnectionError(err, mcpTarget(cfg.MCP))
		case err != nil:
			a.logger.Error("promptx.mcp.connect_failed",
				slog.String("target", mcpTarget(cfg.MCP)),
				slog.String("error", err.Error()),
			)
		default:
			a.client = client
			exec = mcp.NewExecutor(client,
				mcp.WithMetrics(a.metrics),
				mcp.WithTransportName(cfg.MCP.Transport),
				mcp.WithExecutorLogger(a.logger),
			)
			if a.audit != nil {
				exec = audit.NewRecordingExecutor(exec, a.audit, a.logger)
			}
		}
	}

	a.svc = promptx.NewService(exec,
		promptx.WithLogger(a.logger),
		promptx.WithToolNames(cfg.Tools),
	)
	return a, nil
}

// openAudit keeps records in SQLite when audit.path is set and in a bounded
// memory store otherwise.
func (a *app) openAudit() error {
	if a.cfg.Audit.Path == "" {
		a.audit = audit.NewMemoryStore(audit.WithCapacity(a.cfg.Audit.Capacity))
		return nil
	}
	db, err := audit.OpenSQLite(a.cfg.Audit.Path)
	if err != nil {
		return err
	}
	store, err := audit.NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	a.audit = store
	return nil
}

// Close releases the connection, the audit database and telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.WithoutCancel(ctx)))
	}
	return errors.Join(errs...)
}

func mcpTarget(s mcp.Settings) string {
	if s.URL != "" {
		return s.URL
	}
	return s.Command
}
