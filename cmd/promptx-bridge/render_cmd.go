package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var templates []string
	cmd := &cobra.Command{
		Use:   "render <role-id> <role-name> [description]",
		Short: "Render the system prompt for a role",
		Long: `Render the system prompt for a role without contacting PromptX.

--template replaces the configured template paths; the first existing file
wins and the built-in template is used when none exists.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if len(templates) > 0 {
				cfg.Template.Paths = templates
			}
			a, err := newApp(cmd.Context(), cfg, modeOffline)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			description := ""
			if len(args) == 3 {
				description = args[2]
			}
			out, err := a.renderer.Render(args[0], args[1], description)
			if err != nil {
				return err
			}
			if opts.output == outputTable {
				_, err := fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, renderOutput{
				RoleID:       args[0],
				RoleName:     args[1],
				Template:     a.renderer.TemplatePath(),
				SystemPrompt: out,
			}, nil)
		},
	}
	cmd.Flags().StringSliceVarP(&templates, "template", "t", nil, "template file(s) to probe in order")
	return cmd
}

type renderOutput struct {
	RoleID       string `json:"role_id" yaml:"role_id"`
	RoleName     string `json:"role_name" yaml:"role_name"`
	Template     string `json:"template" yaml:"template"`
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
}

