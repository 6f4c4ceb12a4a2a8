package cmd

import (
	"fmt"
	"os"

	"github.com/conneroisu/assetmin/internal/inspect"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect <file>",
	Aliases: []string{"i"},
	Short:   "List the asset URLs of a document",
	Long: `Tokenize an HTML document and print, as YAML, the source of every script
and stylesheet it references along with any merge markers still present.

Use it on processed output to check that every reference carries a stamp
and no marker was left behind.

Examples:
  assetmin inspect dist/index.html
  assetmin inspect --left-flag "<!--bundle[" views/page.phtml`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	report, err := inspect.Document(f, cfg.Merge.LeftFlag)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", args[0], err)
	}

	return writeYAML(cmd.OutOrStdout(), report)
}
