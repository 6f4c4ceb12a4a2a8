// Package directive implements the merge-marker scanner and rewrite engine.
//
// A document is scanned once from left to right with explicit cursor
// arithmetic. Every matched marker pair produces a merged bundle on disk and
// a pending Replacement. Replacements are applied only after the scan, in
// reverse document order, so applying one never shifts the offsets of the
// ones still waiting. A final pass then stamps the standalone asset
// references that were never part of a merge.
package directive

import (
	"context"
	"strings"
	"sync"

	"github.com/conneroisu/assetmin/internal/config"
	"github.com/conneroisu/assetmin/internal/fingerprint"
	"github.com/conneroisu/assetmin/internal/logging"
	"github.com/conneroisu/assetmin/internal/tags"
	"github.com/spf13/afero"
)

// Scanner processes documents against an immutable set of flags.
// A Scanner is safe for concurrent use; writes to the same bundle path are
// serialized.
type Scanner struct {
	flags    config.Flags
	fs       afero.Fs
	computer *fingerprint.Computer
	patterns tags.Set
	logger   logging.Logger
	cache    *fingerprint.DigestCache

	// bundleLocks maps a bundle path to the *sync.Mutex guarding its writes.
	bundleLocks sync.Map
}

// Option configures a Scanner at construction.
type Option func(*Scanner)

// WithFs sets the filesystem used for reading sources and writing bundles.
// Paths are resolved against the flags' root path on this filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Scanner) {
		s.fs = fs
	}
}

// WithLogger sets the logger used for skipped files and halted scans.
func WithLogger(logger logging.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithDigestCache lets the final stamping pass reuse digests of assets that
// have not changed since an earlier document referenced them.
func WithDigestCache(cache *fingerprint.DigestCache) Option {
	return func(s *Scanner) {
		s.cache = cache
	}
}

// New builds a Scanner. flags is copied; later changes by the caller are not
// observed.
func New(flags config.Flags, opts ...Option) (*Scanner, error) {
	computer, err := fingerprint.New(flags.Algorithm)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		flags:    flags,
		fs:       afero.NewOsFs(),
		computer: computer,
		patterns: tags.NewSet(flags.URLFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil {
		s.computer = s.computer.WithCache(s.cache)
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.WithComponent("directive")

	return s, nil
}

// Flags returns the flags the scanner was built with.
func (s *Scanner) Flags() config.Flags {
	return s.flags
}

// ScanResult is the outcome of scanning a single document.
type ScanResult struct {
	// Replacements in document order.
	Replacements []Replacement
	// Orphans lists ids of opening markers that had no closing marker.
	Orphans []string
	// Halted is set when a malformed marker stopped the scan at HaltOffset.
	Halted     bool
	HaltOffset int
	// Fallbacks lists bundle names whose extension was neither .js nor .css.
	Fallbacks []string
}

// Scan walks text once, writes a merged bundle for every matched marker pair
// and returns the replacements to apply. text is not modified.
func (s *Scanner) Scan(ctx context.Context, text string) (*ScanResult, error) {
	left, right := s.flags.LeftFlag, s.flags.RightFlag
	result := &ScanResult{}
	cursor := 0

	for {
		idx := strings.Index(text[cursor:], left)
		if idx < 0 {
			break
		}
		openStart := cursor + idx
		bodyStart := openStart + len(left)

		idx = strings.Index(text[bodyStart:], right)
		if idx < 0 {
			break
		}
		bodyEnd := bodyStart + idx
		openEnd := bodyEnd + len(right)

		fields := strings.Fields(text[bodyStart:bodyEnd])
		if len(fields) != 2 {
			result.Halted = true
			result.HaltOffset = openStart
			s.logger.Warn(ctx, nil, "Malformed merge marker, ignoring remaining directives",
				"offset", openStart,
				"marker", text[openStart:openEnd])

			break
		}
		id, name := fields[0], fields[1]

		closer := left + id + right
		idx = strings.Index(text[openEnd:], closer)
		if idx < 0 {
			result.Orphans = append(result.Orphans, id)
			s.logger.Debug(ctx, "Opening marker has no closing marker",
				"id", id,
				"offset", openStart)
			cursor = openEnd

			continue
		}
		closeStart := openEnd + idx
		closeEnd := closeStart + len(closer)

		pattern, fallback := s.patterns.ForOutput(name)
		if fallback {
			result.Fallbacks = append(result.Fallbacks, name)
			s.logger.Warn(ctx, nil, "Bundle extension is neither .js nor .css, extracting script references",
				"bundle", name)
		}
		sources := tags.Extract(text[openEnd:closeStart], pattern)

		bundle, err := s.writeBundle(ctx, name, sources)
		if err != nil {
			return nil, err
		}

		result.Replacements = append(result.Replacements, Replacement{
			Start:   openStart,
			End:     closeEnd,
			Type:    bundleType(name),
			Path:    name,
			Stamp:   s.computer.Digest(bundle.Content),
			Sources: bundle.Included,
			Missing: bundle.Missing,
		})

		cursor = closeEnd
	}

	return result, nil
}
