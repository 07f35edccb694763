package main

import (
	"bytes"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
	"github.com/jllopis/promptx-bridge/pkg/telemetry"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var grouped bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse saved discover output into roles",
		Long: `Parse saved discover output into roles, offline.

The input may be a tool result document ({"content":[{"type":"text",...}]})
or the raw text the discover tool printed. Without a file standard input is
read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			text, err := discoverText(raw)
			if err != nil {
				return err
			}
			logger := telemetry.NewLogger(cmd.ErrOrStderr(), levelOr(opts.logLevel, "warn"), "text")
			roles := promptx.NewParser(logger).Parse(text)
			return printRoles(cmd.OutOrStdout(), opts.output, roles, grouped)
		},
	}
	cmd.Flags().BoolVar(&grouped, "grouped", false, "group roles by source")
	return cmd
}

// discoverText unwraps a tool result document; anything else is taken as
// the discover text itself.
func discoverText(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return string(raw), nil
	}
	result, err := promptx.DecodeToolResult(trimmed)
	if err != nil {
		return string(raw), nil
	}
	m, _ := result.Mapping()
	if _, ok := m["content"]; !ok {
		return string(raw), nil
	}
	text, _, err := promptx.Extract(result)
	return text, err
}

func levelOr(level, fallback string) string {
	if level == "" {
		return fallback
	}
	return level
}
