package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/assetmin/internal/config"
	"github.com/conneroisu/assetmin/internal/directive"
	asseterrors "github.com/conneroisu/assetmin/internal/errors"
	"github.com/conneroisu/assetmin/internal/fingerprint"
	"github.com/conneroisu/assetmin/internal/logging"
	"github.com/conneroisu/assetmin/internal/watcher"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// processor runs the directive engine over template files on one filesystem
// and writes the rewritten documents back, either in place or mirrored
// under an output directory.
type processor struct {
	scanner   *directive.Scanner
	fs        afero.Fs
	outputDir string
	roots     []string
	workers   int
	logger    logging.Logger
	errors    *asseterrors.ErrorHandler
	digests   *fingerprint.DigestCache
}

// digestCacheSize bounds how many asset digests a long-running watch keeps.
const digestCacheSize = 4096

func newProcessor(cfg *config.Config, fs afero.Fs, logger logging.Logger) (*processor, error) {
	digests := fingerprint.NewDigestCache(digestCacheSize)
	scanner, err := directive.New(cfg.Merge,
		directive.WithFs(fs),
		directive.WithLogger(logger),
		directive.WithDigestCache(digests))
	if err != nil {
		return nil, err
	}

	return &processor{
		scanner:   scanner,
		fs:        fs,
		outputDir: cfg.Build.OutputDir,
		roots:     cfg.Build.Paths,
		workers:   max(cfg.Build.Concurrency, 1),
		logger:    logger.WithComponent("processor"),
		errors:    asseterrors.NewErrorHandler(logger),
		digests:   digests,
	}, nil
}

// runReport is the YAML document written by --report.
type runReport struct {
	Processed int              `yaml:"processed"`
	Changed   int              `yaml:"changed"`
	Failed    int              `yaml:"failed"`
	DryRun    bool             `yaml:"dry_run,omitempty"`
	Documents []documentReport `yaml:"documents"`
}

type documentReport struct {
	Path       string            `yaml:"path"`
	Output     string            `yaml:"output,omitempty"`
	Changed    bool              `yaml:"changed"`
	Bundles    []bundleReport    `yaml:"bundles,omitempty"`
	References []referenceReport `yaml:"references,omitempty"`
	Orphans    []string          `yaml:"orphans,omitempty"`
	Fallbacks  []string          `yaml:"fallbacks,omitempty"`
	Halted     bool              `yaml:"halted,omitempty"`
	HaltOffset int               `yaml:"halt_offset,omitempty"`
	Error      string            `yaml:"error,omitempty"`
}

type bundleReport struct {
	Path    string   `yaml:"path"`
	Stamp   string   `yaml:"stamp"`
	Sources []string `yaml:"sources"`
	Missing []string `yaml:"missing,omitempty"`
}

type referenceReport struct {
	Kind    string `yaml:"kind"`
	Path    string `yaml:"path"`
	Stamped string `yaml:"stamped"`
}

// processFile transforms one template. Failures are recorded in the returned
// report as well as returned.
func (p *processor) processFile(ctx context.Context, path string) (documentReport, error) {
	doc := documentReport{Path: path}

	contents, err := afero.ReadFile(p.fs, path)
	if err != nil {
		err = asseterrors.NewIOError(asseterrors.ErrCodeFileNotFound, "failed to read template", err).
			WithLocation(path, 0)
		doc.Error = err.Error()

		return doc, err
	}

	out, result, err := p.scanner.Transform(ctx, directive.Unit{Path: path, Contents: contents})
	if err != nil {
		doc.Error = err.Error()

		return doc, err
	}
	fillReport(&doc, result)

	target := p.outputPath(path)
	if !out.Changed && target == path {
		return doc, nil
	}

	if err := p.write(target, out.Contents, path); err != nil {
		doc.Error = err.Error()

		return doc, err
	}
	doc.Output = target
	p.logger.Info(ctx, "Template written", "path", path, "output", target, "changed", out.Changed)

	return doc, nil
}

// processAll transforms files with at most workers templates in flight.
// Documents are reported in input order. A failing file is logged and does
// not stop the run.
func (p *processor) processAll(ctx context.Context, files []string) (*runReport, error) {
	docs := make([]documentReport, len(files))
	errs := make([]error, len(files))
	started := make([]bool, len(files))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					err := asseterrors.NewInternalError(asseterrors.ErrCodeInternalError,
						"template processing panicked", fmt.Errorf("%v", r)).WithLocation(path, 0)
					docs[i], errs[i] = documentReport{Path: path, Error: err.Error()}, err
				}
			}()
			docs[i], errs[i] = p.processFile(ctx, path)

			return nil
		})
	}
	_ = g.Wait()

	report := &runReport{}
	for i := range files {
		if !started[i] {
			continue
		}
		report.Processed++
		report.Documents = append(report.Documents, docs[i])
		if errs[i] != nil {
			report.Failed++
			p.errors.Handle(ctx, errs[i])

			continue
		}
		if docs[i].Changed {
			report.Changed++
		}
	}

	stats := p.digests.Stats()
	p.logger.Debug(ctx, "Digest cache",
		"entries", stats.Entries,
		"hits", stats.Hits,
		"misses", stats.Misses)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("%d of %d templates failed", report.Failed, report.Processed)
	}

	return report, nil
}

func fillReport(doc *documentReport, result *directive.Result) {
	if result == nil {
		return
	}
	doc.Changed = result.Changed
	doc.Orphans = result.Scan.Orphans
	doc.Fallbacks = result.Scan.Fallbacks
	doc.Halted = result.Scan.Halted
	doc.HaltOffset = result.Scan.HaltOffset

	for _, rep := range result.Scan.Replacements {
		doc.Bundles = append(doc.Bundles, bundleReport{
			Path:    rep.Path,
			Stamp:   rep.Stamp,
			Sources: rep.Sources,
			Missing: rep.Missing,
		})
	}
	for _, ref := range result.References {
		doc.References = append(doc.References, referenceReport(ref))
	}
}

// outputPath mirrors path under the output directory, or returns it as is
// when templates are rewritten in place. The mirrored path is relative to the
// build path containing the template when there is one.
func (p *processor) outputPath(path string) string {
	if p.outputDir == "" {
		return path
	}

	clean := filepath.Clean(path)
	for _, root := range p.roots {
		if rel, ok := within(root, clean); ok {
			return filepath.Join(p.outputDir, rel)
		}
	}
	if !filepath.IsAbs(clean) && !strings.HasPrefix(clean, "..") {
		return filepath.Join(p.outputDir, clean)
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, ok := within(wd, clean); ok {
			return filepath.Join(p.outputDir, rel)
		}
	}

	return filepath.Join(p.outputDir, filepath.Base(clean))
}

func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return rel, true
}

func (p *processor) write(target string, contents []byte, source string) error {
	mode := os.FileMode(0o644)
	if info, err := p.fs.Stat(source); err == nil {
		mode = info.Mode().Perm()
	}

	if dir := filepath.Dir(target); dir != "." {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return asseterrors.NewIOError(asseterrors.ErrCodeWriteOutput, "failed to create output directory", err).
				WithLocation(target, 0)
		}
	}
	if err := afero.WriteFile(p.fs, target, contents, mode); err != nil {
		return asseterrors.NewIOError(asseterrors.ErrCodeWriteOutput, "failed to write template", err).
			WithLocation(target, 0)
	}

	return nil
}

// discover walks the configured paths and returns every template whose
// extension is listed, skipping excluded elements and the output directory.
func discover(fs afero.Fs, build config.BuildConfig) ([]string, error) {
	accept := watcher.ExtensionFilter(build.Extensions...)
	output := ""
	if build.OutputDir != "" {
		output = filepath.Clean(build.OutputDir)
	}

	var files []string
	seen := make(map[string]bool)
	for _, root := range build.Paths {
		err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if path != root && watcher.Excluded(path, build.Exclude) {
				if info.IsDir() {
					return filepath.SkipDir
				}

				return nil
			}
			if info.IsDir() {
				if output != "" && filepath.Clean(path) == output {
					return filepath.SkipDir
				}

				return nil
			}
			if accept(path) && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	return files, nil
}

// dryRunFs layers an in-memory overlay over a read-only view of base. Bundles
// and templates written through it never reach base.
func dryRunFs(base afero.Fs) afero.Fs {
	return afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewMemMapFs())
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}
