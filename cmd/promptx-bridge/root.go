package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type rootOptions struct {
	configPath string
	profile    string
	logLevel   string
	output     string
	timeout    time.Duration
	timeoutSet bool
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptx-bridge",
		Short: "Bridge PromptX roles to HTTP clients",
		Long: `promptx-bridge connects to a PromptX MCP server, discovers its roles and
renders system prompts for them.

Run "promptx-bridge serve" to start the HTTP API, or use the roles commands
to call the PromptX tools directly.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.timeoutSet = cmd.Flags().Changed("timeout")
			switch opts.output {
			case outputTable, outputJSON, outputYAML:
				return nil
			default:
				return newInvalidArgumentError("output", fmt.Sprintf("unknown format %q", opts.output))
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	flags.StringVar(&opts.profile, "profile", "", "config profile overlay (config.<profile>.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level")
	flags.StringVarP(&opts.output, "output", "o", outputTable, "output format: table, json or yaml")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for remote calls")

	cmd.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newRolesCmd(opts),
		newRenderCmd(opts),
		newParseCmd(opts),
		newAuditCmd(opts),
		newMockCmd(opts),
	)
	return cmd
}
