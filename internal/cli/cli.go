// Package cli implements the inherit command-line interface.
//
// # Commands
//
//   - render: render a template with variables from a data file and flags
//   - check: parse every template below a directory and report errors
//   - serve: serve rendered templates over HTTP for previewing
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// enables the engine's load and render diagnostics. Loggers are passed
// through context.Context.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/deicod/inherit"
	"github.com/deicod/inherit/internal/config"
	"github.com/deicod/inherit/runtime"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath  string
	searchPaths []string
	config      *config.Config
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "inherit",
		Short:        "Render templates that extend and override each other",
		Long:         `inherit renders Jinja-style templates with extends, block and include, loading them from directories or a redis store.`,
		Version:      inherit.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $"+config.EnvVar+")")
	root.PersistentFlags().StringSliceVarP(&c.searchPaths, "path", "p", nil, "template directory searched before the configured ones")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.serveCommand())

	return root
}

// newEnvironment builds a template environment from the configuration.
// The returned function releases the loaders' connections.
func (c *CLI) newEnvironment() (*runtime.Environment, func()) {
	cfg := c.config

	env := runtime.NewEnvironment()
	env.SetAutoescape(cfg.Autoescape)
	env.SetStrictUndefined(cfg.StrictUndefined)
	env.SetCacheTTL(cfg.CacheTTL)
	env.SetLogger(c.Logger)

	var loaders []runtime.Loader
	paths := append(append([]string(nil), c.searchPaths...), cfg.SearchPaths...)
	if len(paths) > 0 {
		loaders = append(loaders, runtime.NewFileSystemLoader(paths...))
	}

	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		loaders = append(loaders, runtime.NewRedisLoader(client, cfg.Redis.Prefix))
		cleanup = func() {
			if err := client.Close(); err != nil {
				c.Logger.Warn("closing redis client", "err", err)
			}
		}
	}

	env.SetLoader(runtime.NewChoiceLoader(loaders...))
	return env, cleanup
}
