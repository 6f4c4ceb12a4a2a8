package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/conneroisu/assetmin/internal/watcher"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Reprocess templates whenever they change",
	Long: `Watch build.paths for template changes and reprocess every changed
template. Bursts of changes are debounced by build.debounce.

Templates are processed once at startup. When they are rewritten in place
the second pass over a stamped template finds nothing left to change, so
the watcher's own writes do not loop.

Examples:
  assetmin watch                  # Watch all configured paths
  assetmin watch --output dist    # Mirror processed templates into dist/
  assetmin watch --skip-initial   # Only process templates as they change`,
	RunE: runWatch,
}

var watchSkipInitial bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not process every template at startup")
	watchCmd.Flags().StringP("output", "o", "", "directory to write processed templates to (default: in place)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := bindBuildFlags(viper.GetViper(), cmd.Flags()); err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	p, err := newProcessor(cfg, fs, logger)
	if err != nil {
		return err
	}

	fileWatcher, err := watcher.NewFileWatcher(cfg.Build.Debounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.ExtensionFilter(cfg.Build.Extensions...))
	fileWatcher.AddFilter(watcher.ExcludeFilter(cfg.Build.Exclude...))

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	fileWatcher.AddHandler(changeHandler(ctx, p))

	skipDir := func(path string) bool {
		return watcher.Excluded(path, cfg.Build.Exclude) ||
			(cfg.Build.OutputDir != "" && filepath.Clean(path) == filepath.Clean(cfg.Build.OutputDir))
	}
	for _, path := range cfg.Build.Paths {
		if err := fileWatcher.AddRecursive(path, skipDir); err != nil {
			logger.Warn(ctx, err, "Failed to watch path", "path", path)

			continue
		}
		logger.Info(ctx, "Watching", "path", path)
	}

	if !watchSkipInitial {
		files, err := discover(fs, cfg.Build)
		if err != nil {
			return err
		}
		report, err := p.processAll(ctx, files)
		if err != nil {
			logger.Warn(ctx, err, "Initial pass finished with failures")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Processed %d templates: %d changed, %d failed\n",
			report.Processed, report.Changed, report.Failed)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes... (Press Ctrl+C to stop)")

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Stopping file watcher...")

	return nil
}

// changeHandler reprocesses every template in a batch that still exists.
func changeHandler(ctx context.Context, p *processor) watcher.ChangeHandler {
	return func(events []watcher.ChangeEvent) error {
		var files []string
		for _, event := range events {
			if event.Type == watcher.EventTypeDeleted || event.Type == watcher.EventTypeRenamed {
				continue
			}
			files = append(files, event.Path)
		}
		if len(files) == 0 {
			return nil
		}

		_, err := p.processAll(ctx, files)

		return err
	}
}
