package directive

import (
	"path"
	"strings"

	"github.com/conneroisu/assetmin/internal/fingerprint"
)

// Replacement is a pending substitution of the span [Start, End) covering a
// marker pair, from the first byte of the opening marker through the last
// byte of the closing marker. It is created once by Scan and consumed once
// by Apply.
type Replacement struct {
	Start int
	End   int
	// Type is the lower-cased bundle extension without the dot, e.g. "js".
	Type string
	// Path is the bundle name declared in the opening marker.
	Path string
	// Stamp is the full digest of the merged bundle.
	Stamp   string
	Sources []string
	Missing []string
}

func bundleType(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// splitAsset splits an asset path into "<dir>/<name>" and its extension.
// A path without a directory yields "/<name>".
func splitAsset(assetPath string) (base, ext string) {
	file := path.Base(assetPath)
	ext = path.Ext(file)
	if ext == file {
		ext = ""
	}
	name := strings.TrimSuffix(file, ext)

	dir := path.Dir(assetPath)
	if dir == "." || dir == "/" {
		dir = ""
	}

	return dir + "/" + name, ext
}

// URL renders the configured URL template for assetPath stamped with digest.
// Each placeholder is substituted once.
func (s *Scanner) URL(assetPath, digest string) string {
	base, ext := splitAsset(assetPath)

	url := strings.Replace(s.flags.NewPath, "{$base}", base, 1)
	url = strings.Replace(url, "{$ext}", ext, 1)
	url = strings.Replace(url, "{$stamp}", fingerprint.Stamp(digest, s.flags.HashLength), 1)

	return url
}

// stampedPath returns "<dir>/<name>-<stamp><ext>" for a standalone reference.
func (s *Scanner) stampedPath(assetPath, digest string) string {
	base, ext := splitAsset(assetPath)

	return base + "-" + fingerprint.Stamp(digest, s.flags.HashLength) + ext
}

// Tag renders the element that replaces a merge directive, including the
// trailing newline.
func (s *Scanner) Tag(rep Replacement) string {
	url := s.URL(rep.Path, rep.Stamp)

	if rep.Type == "css" {
		return `<link rel="stylesheet" type="text/css" href="` + url + `"/>` + "\n"
	}

	return `<script src="` + url + `"></script>` + "\n"
}

// Apply substitutes every replacement in text. reps must be in document
// order and non-overlapping, as returned by Scan; they are applied from the
// last to the first so earlier offsets stay valid.
func (s *Scanner) Apply(text string, reps []Replacement) string {
	for i := len(reps) - 1; i >= 0; i-- {
		rep := reps[i]
		text = text[:rep.Start] + s.Tag(rep) + text[rep.End:]
	}

	return text
}
