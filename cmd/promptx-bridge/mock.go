package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jllopis/promptx-bridge/pkg/mcp"
	"github.com/jllopis/promptx-bridge/pkg/promptx"
	"github.com/jllopis/promptx-bridge/pkg/telemetry"
)

// sampleRoles back the mock server when no roles file is given.
var sampleRoles = []promptx.Role{
	{ID: "assistant", Name: "Assistant", Description: "General purpose helper", Source: promptx.SourceSystem},
	{ID: "luban", Name: "Luban", Description: "Tool integration expert - MCP", Source: promptx.SourceSystem},
	{ID: "product-manager", Name: "Product Manager", Description: "Requirements and roadmap", Source: promptx.SourceProject},
	{ID: "notes", Name: "Notes", Source: promptx.SourceUser},
}

func newMockCmd(opts *rootOptions) *cobra.Command {
	var (
		transport string
		addr      string
		rolesFile string
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a local MCP server that imitates PromptX",
		Long: `Run a local MCP server that publishes the PromptX role tools with canned
answers. Point mcp.url at http://<addr>/mcp (streamable-http) or set
mcp.command to "promptx-bridge mock" (stdio) to develop without PromptX.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roles := sampleRoles
			if rolesFile != "" {
				raw, err := os.ReadFile(rolesFile)
				if err != nil {
					return err
				}
				roles = nil
				if err := yaml.Unmarshal(raw, &roles); err != nil {
					return newInvalidArgumentError("roles", fmt.Sprintf("decode %s: %v", rolesFile, err))
				}
			}

			// stdout carries the protocol in stdio mode
			logger := telemetry.NewLogger(os.Stderr, levelOr(opts.logLevel, "info"), "text")
			srv := mcp.NewMockPromptX(roles, promptx.DefaultToolNames())

			switch transport {
			case mcp.TransportStdio:
				logger.Info("mock.serving", slog.String("transport", transport), slog.Int("roles", len(roles)))
				return srv.ServeStdio()
			case mcp.TransportStreamableHTTP, mcp.TransportHTTP:
				logger.Info("mock.serving",
					slog.String("transport", transport),
					slog.String("url", "http://"+displayAddr(addr)+mcp.EndpointPath),
					slog.Int("roles", len(roles)),
				)
				return srv.ServeStreamableHTTP(cmd.Context(), addr)
			default:
				return newInvalidArgumentError("transport", fmt.Sprintf("unsupported transport %q", transport))
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", mcp.TransportStdio, "stdio or streamable-http")
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address for streamable-http")
	cmd.Flags().StringVar(&rolesFile, "roles", "", "YAML list of roles to publish")
	return cmd
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
