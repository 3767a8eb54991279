package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/podsearch/internal/config"
	"github.com/Aman-CERP/podsearch/internal/ui"
)

const redacted = "********"

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the podsearch configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/podsearch/config.yaml)
  3. --config, or ./podsearch.yaml when present
  4. Environment variables (PODSEARCH_*)`,
		Example: `  # Write the defaults to the user config file
  podsearch config init

  # Show effective configuration
  podsearch config show

  # Print user config file path
  podsearch config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with the defaults",
		Annotations: map[string]string{
			skipSetup: "true",
		},
		Example: `  podsearch config init
  podsearch config init --path ./podsearch.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.UserConfigPath()
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&path, "path", "", "Target file (default user config path)")

	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.
Credentials are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, g.cfg, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Annotations: map[string]string{
			skipSetup: "true",
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.UserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	if path == "" {
		return fmt.Errorf("cannot determine the user config path; use --path")
	}
	p := ui.NewPrinter(cmd.OutOrStdout(), false)

	if _, err := os.Stat(path); err == nil && !force {
		p.Warning("Configuration already exists")
		p.Status("📁", "Location: "+path)
		p.Status("💡", "Use --force to overwrite it with the defaults")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}

	p.Success("Created configuration")
	p.Status("📁", "Location: "+path)
	p.Status("", "Run 'podsearch config show' to verify")
	return nil
}

func runConfigShow(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) error {
	masked := *cfg
	mask(&masked.Index.Password)
	mask(&masked.Index.APIKey)
	mask(&masked.Embedding.APIKey)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(masked)
	}

	data, err := yaml.Marshal(masked)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}
