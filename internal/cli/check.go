package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deicod/inherit/runtime"
)

// templateExts are the file extensions check treats as templates.
var templateExts = map[string]bool{
	".html":   true,
	".htm":    true,
	".xml":    true,
	".txt":    true,
	".md":     true,
	".j2":     true,
	".jinja":  true,
	".jinja2": true,
	".tmpl":   true,
	".tpl":    true,
}

func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [DIR]",
		Short: "Parse every template below DIR and report errors",
		Long:  `Check parses each template file below DIR (default: the current directory), verifies that the templates it extends exist and that no inheritance chain loops back on itself.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return c.runCheck(cmd.Context(), cmd.OutOrStdout(), dir)
		},
	}
}

func (c *CLI) runCheck(ctx context.Context, w io.Writer, dir string) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	names, err := templateFiles(dir)
	if err != nil {
		return err
	}

	env := runtime.NewEnvironment()
	env.SetLogger(c.Logger)
	env.SetLoader(runtime.NewFileSystemLoader(dir))

	var failed int
	report := func(name string, err error) {
		failed++
		fmt.Fprintf(w, "%s: %v\n", name, err)
	}

	parents := make(map[string]string)
	for _, name := range names {
		tmpl, err := env.LoadTemplate(name)
		if err != nil {
			report(name, err)
			continue
		}
		parent, ok := tmpl.Parent()
		if !ok {
			continue
		}
		if _, err := env.LoadTemplate(parent); err != nil {
			if runtime.IsTemplateNotFound(err) {
				report(name, fmt.Errorf("extends unknown template %q", parent))
			}
			// a parent that fails to parse is reported under its own name
			continue
		}
		parents[name] = parent
	}

	for _, name := range names {
		if cycle := inheritanceCycle(parents, name); cycle != nil {
			report(name, fmt.Errorf("circular template inheritance: %s", strings.Join(cycle, " -> ")))
		}
	}

	prog.done(fmt.Sprintf("Checked %d templates", len(names)))
	if failed > 0 {
		return fmt.Errorf("%d problems in %d templates", failed, len(names))
	}
	return nil
}

// templateFiles lists the template files below dir as slash-separated
// names relative to dir, skipping hidden files and directories.
func templateFiles(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !templateExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Strings(names)
	return names, nil
}

// inheritanceCycle follows the extends chain starting at name and returns
// it when it comes back to name.
func inheritanceCycle(parents map[string]string, name string) []string {
	chain := []string{name}
	seen := map[string]bool{name: true}
	for current := name; ; {
		parent, ok := parents[current]
		if !ok {
			return nil
		}
		chain = append(chain, parent)
		if parent == name {
			return chain
		}
		if seen[parent] {
			// a loop that does not include name is reported by its members
			return nil
		}
		seen[parent] = true
		current = parent
	}
}
