// Package tags recognizes script and link elements whose URL attribute is a
// templated call such as renderUrl('js/app.js') and extracts or rewrites the
// logical asset path inside that call.
//
// Each pattern keeps three explicit capture groups: the markup before the
// path, the path itself and the markup after it. Rewriting only ever touches
// the path group so the surrounding markup is reproduced unchanged.
package tags

import (
	"path"
	"regexp"
	"strings"
)

// Kind identifies which element a pattern matches.
type Kind int

const (
	KindScript Kind = iota
	KindLink
)

// String returns the string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// Pattern is one reference variant compiled for a given URL function name.
type Pattern struct {
	Kind Kind
	re   *regexp.Regexp
}

// Reference is a single match of a Pattern. Start and End are byte offsets
// of the whole match in the searched text.
type Reference struct {
	Start  int
	End    int
	Prefix string
	Path   string
	Suffix string
}

// String reassembles the matched markup.
func (r Reference) String() string {
	return r.Prefix + r.Path + r.Suffix
}

// The path group rejects quotes and hyphens: a hyphen means the path already
// carries a stamp and must not be extracted or stamped again.
const pathGroup = `([^'"-]+)`

// NewScriptPattern matches <script ...FUNC('path')...></script>.
func NewScriptPattern(urlFunc string) *Pattern {
	fn := regexp.QuoteMeta(urlFunc)

	return &Pattern{
		Kind: KindScript,
		re: regexp.MustCompile(
			`(<script\s[^>]*?` + fn + `\(['"])` + pathGroup + `(['"]\)[^/]*?></script>)`,
		),
	}
}

// NewLinkPattern matches <link ...FUNC('path')...> with either a void,
// self-closing or explicit </link> ending.
func NewLinkPattern(urlFunc string) *Pattern {
	fn := regexp.QuoteMeta(urlFunc)

	return &Pattern{
		Kind: KindLink,
		re: regexp.MustCompile(
			`(<link\s[^>]*?` + fn + `\(['"])` + pathGroup + `(['"]\)[^/]*?(?:/?>|</link>))`,
		),
	}
}

// FindAll returns every reference in text in document order.
func (p *Pattern) FindAll(text string) []Reference {
	matches := p.re.FindAllStringSubmatchIndex(text, -1)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, Reference{
			Start:  m[0],
			End:    m[1],
			Prefix: text[m[2]:m[3]],
			Path:   text[m[4]:m[5]],
			Suffix: text[m[6]:m[7]],
		})
	}

	return refs
}

// ReplaceFunc rewrites every reference in text with the markup returned by
// fn. Text outside the matches is copied verbatim.
func (p *Pattern) ReplaceFunc(text string, fn func(Reference) string) string {
	refs := p.FindAll(text)
	if len(refs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, ref := range refs {
		b.WriteString(text[last:ref.Start])
		b.WriteString(fn(ref))
		last = ref.End
	}
	b.WriteString(text[last:])

	return b.String()
}

// Extract returns the logical paths referenced in region, in the order they
// appear. The order is the concatenation order of a merge bundle.
func Extract(region string, p *Pattern) []string {
	refs := p.FindAll(region)
	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		paths = append(paths, ref.Path)
	}

	return paths
}

// Set holds both pattern variants for one URL function name.
type Set struct {
	Script *Pattern
	Link   *Pattern
}

// NewSet compiles the script and link patterns for urlFunc.
func NewSet(urlFunc string) Set {
	return Set{
		Script: NewScriptPattern(urlFunc),
		Link:   NewLinkPattern(urlFunc),
	}
}

// ForOutput selects the pattern used to extract merge sources for a bundle
// named outputName. ".js" selects the script pattern and ".css" the link
// pattern. Any other extension falls back to the script pattern and reports
// fallback so the caller can warn about it.
func (s Set) ForOutput(outputName string) (p *Pattern, fallback bool) {
	switch strings.ToLower(path.Ext(outputName)) {
	case ".js":
		return s.Script, false
	case ".css":
		return s.Link, false
	default:
		return s.Script, true
	}
}

// All returns the patterns in the order the final stamping pass applies them.
func (s Set) All() []*Pattern {
	return []*Pattern{s.Script, s.Link}
}
