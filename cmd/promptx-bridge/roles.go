package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jllopis/promptx-bridge/pkg/promptx"
)

func newRolesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Discover and drive PromptX roles",
	}
	cmd.AddCommand(
		newRolesListCmd(opts),
		newRolesActivateCmd(opts),
		newRolesRecallCmd(opts),
		newRolesRememberCmd(opts),
	)
	return cmd
}

// withService connects to PromptX, runs fn and tears everything down.
func withService(ctx context.Context, opts *rootOptions, fn func(ctx context.Context, svc *promptx.Service) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, modeRequired)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	return fn(ctx, a.svc)
}

func newRolesListCmd(opts *rootOptions) *cobra.Command {
	var grouped bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the roles PromptX publishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *promptx.Service) error {
				roles, err := svc.Discover(ctx)
				if err != nil {
					return err
				}
				return printRoles(cmd.OutOrStdout(), opts.output, roles, grouped)
			})
		},
	}
	cmd.Flags().BoolVar(&grouped, "grouped", false, "group roles by source")
	return cmd
}

func printRoles(w io.Writer, format string, roles []promptx.Role, grouped bool) error {
	var v any = roles
	if grouped {
		v = promptx.GroupBySource(roles)
	}
	return render(w, format, v, func(tw *tabwriter.Writer) {
		writeRow(tw, "SOURCE", "ID", "NAME", "DESCRIPTION")
		for _, group := range promptx.GroupBySource(roles) {
			for _, r := range group.Roles {
				writeRow(tw, string(r.Source), r.ID, r.Name, r.Description)
			}
		}
	})
}

func newRolesActivateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <role-id>",
		Short: "Activate a role and print what PromptX returns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *promptx.Service) error {
				result, err := svc.Activate(ctx, args[0])
				if err != nil {
					return err
				}
				return printToolResult(cmd.OutOrStdout(), opts.output, args[0], result)
			})
		},
	}
}

func newRolesRecallCmd(opts *rootOptions) *cobra.Command {
	var (
		query string
		mode  string
	)
	cmd := &cobra.Command{
		Use:   "recall <role-id>",
		Short: "Recall role memories",
		Long: `Recall role memories. Without --query PromptX performs a panoramic
scan of the role's memory network.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q *string
			if cmd.Flags().Changed("query") {
				q = &query
			}
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *promptx.Service) error {
				result, err := svc.Recall(ctx, args[0], q, promptx.RecallMode(mode))
				if err != nil {
					return err
				}
				return printToolResult(cmd.OutOrStdout(), opts.output, args[0], result)
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "concepts to recall")
	cmd.Flags().StringVar(&mode, "mode", "", "creative, balanced or focused (default balanced)")
	return cmd
}

func newRolesRememberCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "remember <role-id>",
		Short: "Store engrams for a role",
		Long: `Store engrams for a role. --file names a YAML or JSON list of engrams
({content, schema, strength, type}); "-" reads standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engrams, err := readEngrams(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *promptx.Service) error {
				result, err := svc.Remember(ctx, args[0], engrams)
				if err != nil {
					return err
				}
				return printToolResult(cmd.OutOrStdout(), opts.output, args[0], result)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "engram list to store")
	return cmd
}

// readEngrams decodes a YAML (or JSON) engram list from path or stdin.
func readEngrams(stdin io.Reader, path string) ([]promptx.Engram, error) {
	var raw []byte
	var err error
	if path == "-" || path == "" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var engrams []promptx.Engram
	if err := yaml.Unmarshal(raw, &engrams); err != nil {
		return nil, newInvalidArgumentError("file", fmt.Sprintf("decode engrams: %v", err))
	}
	if len(engrams) == 0 {
		return nil, newInvalidArgumentError("file", "no engrams to store")
	}
	return engrams, nil
}

type toolOutput struct {
	Role    string             `json:"role" yaml:"role"`
	Content string             `json:"content" yaml:"content"`
	Result  promptx.ToolResult `json:"result" yaml:"-"`
}

func printToolResult(w io.Writer, format, roleID string, result promptx.ToolResult) error {
	text, _, err := promptx.Extract(result)
	if err != nil {
		return err
	}
	if format == outputTable {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	return render(w, format, toolOutput{Role: roleID, Content: text, Result: result}, nil)
}
