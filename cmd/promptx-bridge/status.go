package main

import (
	"context"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
)

type statusResult struct {
	Version    string            `json:"version" yaml:"version"`
	Transport  string            `json:"transport" yaml:"transport"`
	Target     string            `json:"target" yaml:"target"`
	Configured bool              `json:"configured" yaml:"configured"`
	Connected  bool              `json:"connected" yaml:"connected"`
	Available  bool              `json:"available" yaml:"available"`
	Tools      promptx.ToolNames `json:"tools" yaml:"tools"`
	Template   string            `json:"template" yaml:"template"`
	Audit      bool              `json:"audit" yaml:"audit"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the PromptX connection and the active template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}
			a, err := newApp(ctx, cfg, modeServe)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			res := statusResult{
				Version:    version,
				Transport:  cfg.MCP.Transport,
				Target:     mcpTarget(cfg.MCP),
				Configured: cfg.MCP.Enabled(),
				Connected:  a.client != nil,
				Available:  a.svc.IsAvailable(ctx),
				Tools:      a.svc.Tools(),
				Template:   a.renderer.TemplatePath(),
				Audit:      a.audit != nil,
			}
			return render(cmd.OutOrStdout(), opts.output, res, func(tw *tabwriter.Writer) {
				writeRow(tw, "VERSION", res.Version)
				writeRow(tw, "TRANSPORT", res.Transport)
				writeRow(tw, "TARGET", res.Target)
				writeRow(tw, "CONNECTED", strconv.FormatBool(res.Connected))
				writeRow(tw, "AVAILABLE", strconv.FormatBool(res.Available))
				writeRow(tw, "PROBE TOOL", res.Tools.Probe)
				writeRow(tw, "TEMPLATE", res.Template)
				writeRow(tw, "AUDIT", strconv.FormatBool(res.Audit))
			})
		},
	}
}
