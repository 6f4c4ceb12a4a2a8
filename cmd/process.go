package cmd

import (
	"fmt"
	"os"

	"github.com/conneroisu/assetmin/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var processCmd = &cobra.Command{
	Use:     "process [files...]",
	Aliases: []string{"p"},
	Short:   "Merge marked asset groups and stamp asset references",
	Long: `Process HTML templates: every marker pair is replaced by one tag pointing
at a merged, fingerprinted bundle, and every other script or stylesheet
reference to an existing file gets its fingerprint embedded in the path.

Without arguments every template under build.paths with one of
build.extensions is processed. Templates are rewritten in place unless an
output directory is given.

Examples:
  assetmin process views/index.html            # Rewrite one template in place
  assetmin process views/admin                 # Rewrite every template under a directory
  assetmin process --output dist               # Mirror processed templates into dist/
  assetmin process --dry-run --report out.yml  # Report what would change, touch nothing`,
	RunE: runProcess,
}

var (
	processDryRun bool
	processReport string
)

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("output", "o", "", "directory to write processed templates to (default: in place)")
	processCmd.Flags().IntP("jobs", "j", 0, "number of templates processed at once (default 1)")
	processCmd.Flags().BoolVarP(&processDryRun, "dry-run", "n", false, "run in memory without writing templates or bundles")
	processCmd.Flags().StringVar(&processReport, "report", "", `write a YAML report of every document to this file ("-" for stdout)`)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := bindBuildFlags(viper.GetViper(), cmd.Flags()); err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var fs afero.Fs = afero.NewOsFs()
	if processDryRun {
		fs = dryRunFs(fs)
	}

	files, err := resolveTargets(fs, cfg.Build, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No templates found")

		return nil
	}

	p, err := newProcessor(cfg, fs, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	report, runErr := p.processAll(ctx, files)
	report.DryRun = processDryRun

	switch processReport {
	case "":
	case "-":
		if err := writeYAML(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	default:
		if err := saveReport(processReport, report); err != nil {
			return err
		}
	}

	prefix := ""
	if processDryRun {
		prefix = "(dry run) "
	}
	summary := cmd.OutOrStdout()
	if processReport == "-" {
		summary = cmd.ErrOrStderr()
	}
	fmt.Fprintf(summary, "%sProcessed %d templates: %d changed, %d failed\n",
		prefix, report.Processed, report.Changed, report.Failed)

	return runErr
}

// resolveTargets expands args into template files. Directories are walked
// like build.paths; no arguments means every configured path.
func resolveTargets(fs afero.Fs, build config.BuildConfig, args []string) ([]string, error) {
	if len(args) == 0 {
		return discover(fs, build)
	}

	var files []string
	for _, arg := range args {
		info, err := fs.Stat(arg)
		if err != nil || !info.IsDir() {
			files = append(files, arg)

			continue
		}

		sub := build
		sub.Paths = []string{arg}
		found, err := discover(fs, sub)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	return files, nil
}

func saveReport(path string, report *runReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	if err := writeYAML(f, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
