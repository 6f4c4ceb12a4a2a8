package directive

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	asseterrors "github.com/conneroisu/assetmin/internal/errors"
	"github.com/spf13/afero"
)

// Bundle is the concatenated content written for one marker pair.
type Bundle struct {
	Path     string
	Content  []byte
	Included []string
	Missing  []string
}

// resolve maps a logical asset path onto the filesystem root.
func (s *Scanner) resolve(assetPath string) string {
	return filepath.Join(s.flags.RootPath, filepath.FromSlash(assetPath))
}

// withinRoot reports whether target lies under the root path.
func (s *Scanner) withinRoot(target string) bool {
	rel, err := filepath.Rel(filepath.Clean(s.flags.RootPath), target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Concat reads sources in order and concatenates them, each preceded by a
// one-line comment naming the file. Missing sources are skipped.
func (s *Scanner) Concat(ctx context.Context, sources []string) (*Bundle, error) {
	var buf bytes.Buffer
	bundle := &Bundle{}

	for _, src := range sources {
		full := s.resolve(src)
		data, err := afero.ReadFile(s.fs, full)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				bundle.Missing = append(bundle.Missing, src)
				s.logger.Warn(ctx, err, "Merge source does not exist, skipping",
					"file", full)

				continue
			}

			return nil, asseterrors.NewIOError(asseterrors.ErrCodeReadAsset, "failed to read merge source "+full, err)
		}

		buf.WriteString("/* ")
		buf.WriteString(src)
		buf.WriteString("*/\n")
		buf.Write(data)
		buf.WriteByte('\n')
		bundle.Included = append(bundle.Included, src)
	}

	bundle.Content = buf.Bytes()

	return bundle, nil
}

// writeBundle concatenates sources and overwrites the bundle named name
// under the root path. Names resolving outside the root are rejected.
func (s *Scanner) writeBundle(ctx context.Context, name string, sources []string) (*Bundle, error) {
	target := s.resolve(name)
	if !s.withinRoot(target) {
		return nil, asseterrors.ErrOutsideRoot(name, s.flags.RootPath)
	}

	bundle, err := s.Concat(ctx, sources)
	if err != nil {
		return nil, err
	}
	bundle.Path = target

	mu := s.bundleLock(target)
	mu.Lock()
	defer mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, asseterrors.ErrWriteBundle(target, err)
	}
	if err := afero.WriteFile(s.fs, target, bundle.Content, os.FileMode(0o644)); err != nil {
		return nil, asseterrors.ErrWriteBundle(target, err)
	}

	s.logger.Info(ctx, "Merged bundle written",
		"bundle", target,
		"files", len(bundle.Included),
		"missing", len(bundle.Missing),
		"bytes", len(bundle.Content))

	return bundle, nil
}

func (s *Scanner) bundleLock(target string) *sync.Mutex {
	mu, _ := s.bundleLocks.LoadOrStore(target, &sync.Mutex{})

	return mu.(*sync.Mutex)
}
