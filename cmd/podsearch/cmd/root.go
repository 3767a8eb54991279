// Package cmd provides the CLI commands for podsearch.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/podsearch/internal/config"
	"github.com/Aman-CERP/podsearch/internal/logging"
	"github.com/Aman-CERP/podsearch/internal/profiling"
	"github.com/Aman-CERP/podsearch/pkg/version"
)

// skipSetup marks commands that run without loading configuration.
const skipSetup = "podsearch/skip-setup"

// globalOptions carries the persistent flags and what PersistentPreRunE
// builds from them.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	profile    profiling.Options

	cfg      *config.Config
	logger   *slog.Logger
	cleanup  func()
	profiler *profiling.Profiler
}

// NewRootCmd creates the root command for the podsearch CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "podsearch",
		Short: "Podcast search and chart rankings service",
		Long: `podsearch serves lexical, vector and hybrid search over podcast shows
and episodes, fused with Reciprocal Rank Fusion, plus cached chart
rankings fetched from Apple's marketing tools API.

Run 'podsearch serve' for the HTTP API or 'podsearch mcp' to expose the
same operations to AI assistants over the Model Context Protocol.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: g.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return g.teardown()
		},
	}

	cmd.SetVersionTemplate("podsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default ./"+config.DefaultFileName+")")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Override log format: json, text")

	cmd.PersistentFlags().StringVar(&g.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newMCPCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newRankingsCmd(g))
	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration, installs the logger and starts profiling.
func (g *globalOptions) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] == "true" {
		return nil
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		if !logging.ValidLevel(g.logLevel) {
			return fmt.Errorf("invalid --log-level %q", g.logLevel)
		}
		cfg.Logging.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}

	logger, cleanup, err := logging.Setup(cfg.LoggingSetup(true))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.SetDefault(logger)
	g.cfg, g.logger, g.cleanup = cfg, logger, cleanup

	if g.profile.Enabled() {
		p, err := profiling.Start(g.profile)
		if err != nil {
			return err
		}
		g.profiler = p
	}
	return nil
}

// teardown stops profiling and closes the log file.
func (g *globalOptions) teardown() error {
	err := g.profiler.Stop()
	g.profiler = nil
	if g.cleanup != nil {
		g.cleanup()
		g.cleanup = nil
	}
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
