package directive

import (
	"context"
	"errors"
	"io/fs"

	asseterrors "github.com/conneroisu/assetmin/internal/errors"
	"github.com/conneroisu/assetmin/internal/tags"
)

// StampedReference records a standalone reference rewritten by the final pass.
type StampedReference struct {
	Kind    string
	Path    string
	Stamped string
}

// StampReferences rewrites the path of every script reference, then every
// link reference, whose file exists under the root path. References to
// missing files are left as they are.
func (s *Scanner) StampReferences(ctx context.Context, text string) (string, []StampedReference, error) {
	var (
		stamped []StampedReference
		readErr error
	)

	for _, pattern := range s.patterns.All() {
		kind := pattern.Kind.String()
		text = pattern.ReplaceFunc(text, func(ref tags.Reference) string {
			if readErr != nil {
				return ref.String()
			}

			full := s.resolve(ref.Path)
			digest, err := s.computer.FileDigest(s.fs, full)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					readErr = asseterrors.NewIOError(asseterrors.ErrCodeReadAsset, "failed to read asset "+full, err)
				}

				return ref.String()
			}

			newPath := s.stampedPath(ref.Path, digest)
			stamped = append(stamped, StampedReference{Kind: kind, Path: ref.Path, Stamped: newPath})
			s.logger.Debug(ctx, "Asset reference stamped",
				"kind", kind,
				"path", ref.Path,
				"stamped", newPath)

			return ref.Prefix + newPath + ref.Suffix
		})
		if readErr != nil {
			return "", nil, readErr
		}
	}

	return text, stamped, nil
}
