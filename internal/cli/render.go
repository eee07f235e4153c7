package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	data   string   // data file with template variables
	set    []string // key=value assignments
	output string   // output file, stdout when empty
}

func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render NAME",
		Short: "Render a template to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "variables from a .json, .jsonc, .yaml or .toml file")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "set a variable (key=value, repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, stdout io.Writer, name string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	vars, err := loadVars(opts.data, opts.set)
	if err != nil {
		return err
	}

	env, closeEnv := c.newEnvironment()
	defer closeEnv()

	tmpl, err := env.LoadTemplate(name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	if parent, ok := tmpl.Parent(); ok {
		logger.Debug("template extends", "template", name, "parent", parent)
	}

	if opts.output == "" {
		if err := tmpl.Execute(vars, stdout); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		return nil
	}

	out, err := tmpl.ExecuteToString(vars)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := os.WriteFile(opts.output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("Rendered template", "template", name, "output", opts.output, "bytes", len(out))
	return nil
}
