package directive

import (
	"bytes"
	"context"
	"errors"

	asseterrors "github.com/conneroisu/assetmin/internal/errors"
	"github.com/conneroisu/assetmin/internal/logging"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Unit is one document handed to the engine. A nil Contents means the unit
// carries no content and is passed through untouched.
type Unit struct {
	Path     string
	Contents []byte
	// Changed is set on output units whose contents were rewritten.
	Changed bool
}

// Result describes everything that happened to one document.
type Result struct {
	Scan       *ScanResult
	References []StampedReference
	Text       string
	Changed    bool
}

// Process runs the full pipeline over text: scan and merge, apply the
// structural replacements, then stamp the remaining references.
func (s *Scanner) Process(ctx context.Context, text string) (*Result, error) {
	scan, err := s.Scan(ctx, text)
	if err != nil {
		return nil, err
	}

	merged := s.Apply(text, scan.Replacements)

	stamped, refs, err := s.StampReferences(ctx, merged)
	if err != nil {
		return nil, err
	}

	return &Result{
		Scan:       scan,
		References: refs,
		Text:       stamped,
		Changed:    len(scan.Replacements) > 0 || stamped != merged,
	}, nil
}

// Transform applies Process to a unit. The returned unit carries new
// contents only when a merge happened or a reference was stamped; otherwise
// the original bytes are returned as they are. Contents that are not UTF-8
// text fail with an input error.
func (s *Scanner) Transform(ctx context.Context, unit Unit) (Unit, *Result, error) {
	if unit.Contents == nil {
		return unit, nil, nil
	}

	if err := checkText(unit.Contents); err != nil {
		return unit, nil, asseterrors.ErrBinaryContent(unit.Path, err)
	}

	op := logging.StartOperation(s.logger.With("document", unit.Path), "transform")

	result, err := s.Process(ctx, string(unit.Contents))
	if err != nil {
		var ae *asseterrors.AssetError
		if errors.As(err, &ae) && ae.FilePath == "" {
			ae.FilePath = unit.Path
		}
		op.EndWithError(ctx, err)

		return unit, nil, err
	}
	op.End(ctx,
		"replacements", len(result.Scan.Replacements),
		"stamped", len(result.References),
		"changed", result.Changed)

	out := Unit{Path: unit.Path, Contents: unit.Contents}
	if result.Changed {
		out.Contents = []byte(result.Text)
		out.Changed = true
	}

	return out, result, nil
}

var errNulByte = errors.New("content contains NUL bytes")

// checkText rejects content containing NUL bytes or invalid UTF-8.
func checkText(b []byte) error {
	if bytes.IndexByte(b, 0) >= 0 {
		return errNulByte
	}
	if _, _, err := transform.Bytes(encoding.UTF8Validator, b); err != nil {
		return err
	}

	return nil
}
