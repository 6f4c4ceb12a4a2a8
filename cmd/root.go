// Package cmd provides the command-line interface for assetmin.
//
// Configuration System:
//
//	Configuration is read from multiple sources with clear precedence:
//	1. Command-line flags (--config, --left-flag, --hash-length, etc.) - highest priority
//	2. ASSETMIN_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (ASSETMIN_MERGE_HASH_LENGTH, etc.)
//	4. Configuration files (.assetmin.yml) - lowest priority
//
// Environment Variables:
//
//	ASSETMIN_CONFIG_FILE: Path to custom configuration file
//	ASSETMIN_MERGE_ROOT_PATH: Directory that asset paths resolve against
//	ASSETMIN_MERGE_HASH_LENGTH: Number of digest characters in a stamp
//	ASSETMIN_LOG_LEVEL: debug, info, warn or error
//	And every other key following the ASSETMIN_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/conneroisu/assetmin/internal/config"
	"github.com/conneroisu/assetmin/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "assetmin",
	Short: "Merge and fingerprint the assets referenced by HTML templates",
	Long: `assetmin post-processes HTML templates during a static-asset build.

Script and stylesheet references wrapped in merge markers are concatenated
into one bundle per marker pair and replaced by a single tag whose URL
carries a content fingerprint. Every other reference to an existing asset
is rewritten to its fingerprinted path.

  <!--min[1 /all.js]-->
  <script src="renderUrl('/a.js')"></script>
  <script src="renderUrl('/b.js')"></script>
  <!--min[1]-->

becomes

  <script src="renderUrl('/all-0f65d184.js')"></script>

Quick Start:
  assetmin process views/index.html   Process one template in place
  assetmin process --output dist      Process every template under build.paths
  assetmin watch                      Reprocess templates as they change
  assetmin inspect dist/index.html    List the asset URLs of a document`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .assetmin.yml, can also use ASSETMIN_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	addMergeFlags(rootCmd.PersistentFlags())
	if err := bindMergeFlags(viper.GetViper(), rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

// initConfig selects the configuration file and enables ASSETMIN_ environment
// overrides. A missing or unreadable file leaves the defaults in place.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("ASSETMIN_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assetmin")
	}

	viper.SetEnvPrefix("ASSETMIN")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads the effective configuration and builds the logger it
// describes.
func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Format,
		Output:    os.Stderr,
		Component: "assetmin",
	}), nil
}

// signalContext derives a context cancelled on SIGINT or SIGTERM. Templates
// already being written complete; no new ones start.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
