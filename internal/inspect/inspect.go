// Package inspect lists the asset URLs of a processed document and any merge
// markers left in it, using the golang.org/x/net/html tokenizer. It is a
// read-only report and never rewrites markup.
package inspect

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Asset is one script or stylesheet reference found in a document.
type Asset struct {
	Kind string `yaml:"kind" json:"kind"`
	URL  string `yaml:"url" json:"url"`
}

// Report is the outcome of inspecting one document.
type Report struct {
	Assets []Asset `yaml:"assets" json:"assets"`
	// Markers holds merge markers still present as HTML comments.
	Markers []string `yaml:"markers,omitempty" json:"markers,omitempty"`
}

// Document tokenizes r and collects script sources, stylesheet links and
// comments that look like merge markers opened with leftFlag.
func Document(r io.Reader, leftFlag string) (*Report, error) {
	markerPrefix, isComment := strings.CutPrefix(leftFlag, "<!--")
	report := &Report{}
	z := html.NewTokenizer(r)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return report, nil
			}

			return nil, z.Err()

		case html.CommentToken:
			if !isComment {
				continue
			}
			data := strings.TrimSpace(string(z.Text()))
			if strings.HasPrefix(data, markerPrefix) {
				report.Markers = append(report.Markers, "<!--"+data+"-->")
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script:
				if src, ok := attr(tok, "src"); ok {
					report.Assets = append(report.Assets, Asset{Kind: "script", URL: src})
				}
			case atom.Link:
				rel, _ := attr(tok, "rel")
				href, ok := attr(tok, "href")
				if ok && strings.EqualFold(strings.TrimSpace(rel), "stylesheet") {
					report.Assets = append(report.Assets, Asset{Kind: "stylesheet", URL: href})
				}
			}
		}
	}
}

func attr(tok html.Token, key string) (string, bool) {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}
