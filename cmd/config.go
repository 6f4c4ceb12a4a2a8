package cmd

import (
	"fmt"

	"github.com/conneroisu/assetmin/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect assetmin configuration",
	Long: `Inspect the assetmin configuration.

Examples:
  assetmin config show                         # Show the effective configuration
  assetmin config validate                     # Validate the current configuration
  assetmin config validate --config prod.yml   # Validate a specific file`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration as YAML after loading the
configuration file, applying ASSETMIN_ environment overrides, command-line
flags and built-in defaults.`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration and print every error and warning.

Warnings cover settings that work but are probably unintended, such as a
stamp length longer than the digest or a URL template without {$base}.`,
	RunE: runConfigValidate,
}

var configStrict bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "treat warnings as errors")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	return writeYAML(cmd.OutOrStdout(), cfg)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Decode(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	result := config.Validate(cfg)
	out := cmd.OutOrStdout()
	if !result.HasErrors() && !result.HasWarnings() {
		fmt.Fprintln(out, "Configuration is valid")

		return nil
	}

	fmt.Fprint(out, result.String())
	if result.HasErrors() {
		return result.Err()
	}
	if configStrict {
		return fmt.Errorf("configuration has %d warnings", len(result.Warnings))
	}

	return nil
}
