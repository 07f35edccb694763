package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jllopis/promptx-bridge/pkg/audit"
	perrors "github.com/jllopis/promptx-bridge/pkg/errors"
)

func newAuditCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded PromptX tool calls",
	}
	cmd.AddCommand(newAuditListCmd(opts))
	return cmd
}

func newAuditListCmd(opts *rootOptions) *cobra.Command {
	var filter audit.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded tool calls, newest first",
		Long: `List recorded tool calls, newest first. Requires audit.path: records kept
in memory are only visible through the running server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Audit.Path == "" {
				return NewCLIError(
					perrors.New(perrors.CodeInvalidInput, "audit.path is not set", nil),
					"set audit.path (or PROMPTX_AUDIT_PATH) to the SQLite database the server writes",
				)
			}
			cfg.Audit.Enabled = true
			a, err := newApp(cmd.Context(), cfg, modeOffline)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			records, err := a.audit.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, records, func(tw *tabwriter.Writer) {
				writeRow(tw, "STARTED", "TOOL", "ROLE", "OUTCOME", "DURATION", "ERROR")
				for _, r := range records {
					writeRow(tw,
						r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
						r.Tool, r.Role, r.Outcome,
						r.Duration().String(),
						r.Error,
					)
				}
			})
		},
	}
	cmd.Flags().StringVar(&filter.Tool, "tool", "", "only calls of this tool")
	cmd.Flags().StringVar(&filter.Role, "role", "", "only calls for this role")
	cmd.Flags().StringVar(&filter.Outcome, "outcome", "", "ok, tool_error or error")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum records (0 for all)")
	return cmd
}
