// Package cli implements the pipios command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipios/internal/config"
	"github.com/matzehuels/pipios/pkg/buildinfo"
	"github.com/matzehuels/pipios/pkg/observability"
	"github.com/matzehuels/pipios/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "pipios"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string // --config
	target     string // --target, overrides the configured target
	noCache    bool   // --no-cache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "pipios installs Python packages into a self-contained directory",
		Long: `pipios resolves Python packages against PyPI and installs them into a
target directory, for runtimes where pip itself is unavailable.

Binary wheels matching the configured platform and interpreter are preferred;
source archives are unpacked as-is and never built.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pipios/config.toml)")
	root.PersistentFlags().StringVarP(&c.target, "target", "t", "", "install directory (overrides config)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "do not reuse index responses within a run")

	root.AddCommand(c.installCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.uninstallCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.releasesCommand())
	root.AddCommand(c.pathCommand())
	root.AddCommand(c.countCommand())
	root.AddCommand(c.sizeCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner loads the configuration and creates a pipeline runner for it.
func (c *CLI) newRunner() (*pipeline.Runner, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.target != "" {
		cfg.Target = c.target
	}
	target, err := cfg.TargetDir()
	if err != nil {
		return nil, err
	}
	env, err := cfg.Environment()
	if err != nil {
		return nil, err
	}
	if c.Logger.GetLevel() <= log.DebugLevel {
		observability.NewLogHooks(c.Logger).Register()
	}
	c.Logger.Debug("configuration",
		"target", target,
		"index", cfg.IndexURL,
		"python", cfg.Python,
		"platform", cfg.Platform,
		"sys_platform", cfg.SysPlatform)

	return pipeline.NewRunner(pipeline.Options{
		Target:     target,
		IndexURL:   cfg.IndexURL,
		Env:        env,
		Workers:    cfg.Workers,
		Timeout:    cfg.Timeout,
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		NoCache:    c.noCache,
		Logger:     c.Logger,
	})
}
