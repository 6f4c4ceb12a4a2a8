package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/conneroisu/assetmin/internal/config"
	"github.com/conneroisu/assetmin/internal/logging"
	"github.com/conneroisu/assetmin/internal/watcher"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const (
	mergeTemplate = "<head>\n" +
		"<!--min[1 /all.js]-->\n" +
		`<script src="renderUrl('a.js')"></script>` + "\n" +
		`<script src="renderUrl('b.js')"></script>` + "\n" +
		"<!--min[1]-->\n" +
		"</head>\n"
	mergedTemplate = "<head>\n" +
		`<script src="renderUrl('/all-0f65d184.js')"></script>` + "\n\n" +
		"</head>\n"
)

// newTestFs seeds an in-memory site rooted at /site.
func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/site/"+name, []byte(content), 0o644))
	}

	return fs
}

func testConfig(outputDir string) *config.Config {
	return &config.Config{
		Merge: config.DefaultFlags().WithOverrides(config.Flags{RootPath: "/site"}),
		Build: config.BuildConfig{
			Paths:      []string{"/site"},
			Extensions: []string{".html", ".phtml"},
			Exclude:    []string{"node_modules", "*.bak"},
			OutputDir:  outputDir,
		},
	}
}

func newTestProcessor(t *testing.T, fs afero.Fs, outputDir string) *processor {
	t.Helper()

	p, err := newProcessor(testConfig(outputDir), fs, logging.NewNopLogger())
	require.NoError(t, err)

	return p
}

func readString(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	return string(data)
}

var siteFiles = map[string]string{
	"a.js":             "var a=1;",
	"b.js":             "var b=2;",
	"views/index.html": mergeTemplate,
}

func TestProcessFileInPlace(t *testing.T) {
	fs := newTestFs(t, siteFiles)
	p := newTestProcessor(t, fs, "")

	doc, err := p.processFile(context.Background(), "/site/views/index.html")
	require.NoError(t, err)

	assert.True(t, doc.Changed)
	assert.Equal(t, "/site/views/index.html", doc.Output)
	require.Len(t, doc.Bundles, 1)
	assert.Equal(t, "/all.js", doc.Bundles[0].Path)
	assert.Equal(t, []string{"a.js", "b.js"}, doc.Bundles[0].Sources)
	assert.Equal(t, mergedTemplate, readString(t, fs, "/site/views/index.html"))
	assert.Equal(t, "/* a.js*/\nvar a=1;\n/* b.js*/\nvar b=2;\n", readString(t, fs, "/site/all.js"))

	// A second pass finds nothing left to do and leaves the file alone.
	again, err := p.processFile(context.Background(), "/site/views/index.html")
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Empty(t, again.Output)
}

func TestProcessFileOutputDir(t *testing.T) {
	fs := newTestFs(t, siteFiles)
	p := newTestProcessor(t, fs, "/out")

	doc, err := p.processFile(context.Background(), "/site/views/index.html")
	require.NoError(t, err)

	assert.Equal(t, "/out/views/index.html", doc.Output)
	assert.Equal(t, mergedTemplate, readString(t, fs, "/out/views/index.html"))
	assert.Equal(t, mergeTemplate, readString(t, fs, "/site/views/index.html"))
}

func TestOutputPath(t *testing.T) {
	p := &processor{outputDir: "dist"}

	assert.Equal(t, "dist/views/index.html", p.outputPath("views/index.html"))
	assert.Equal(t, "dist/views/index.html", p.outputPath("./views/../views/index.html"))
	assert.Equal(t, "dist/page.html", p.outputPath("../elsewhere/page.html"))

	rooted := &processor{outputDir: "/out", roots: []string{"/srv/site/views", "/srv/site"}}
	assert.Equal(t, "/out/index.html", rooted.outputPath("/srv/site/views/index.html"))
	assert.Equal(t, "/out/admin/index.html", rooted.outputPath("/srv/site/admin/index.html"))
	assert.Equal(t, "/out/page.html", rooted.outputPath("/elsewhere/page.html"))

	inPlace := &processor{}
	assert.Equal(t, "views/index.html", inPlace.outputPath("views/index.html"))
}

func TestProcessAllContinuesAfterFailure(t *testing.T) {
	files := map[string]string{
		"a.js":              "var a=1;",
		"b.js":              "var b=2;",
		"views/binary.html": "GIF89a\x00\x01",
		"views/index.html":  mergeTemplate,
		"views/plain.html":  "<p>nothing to do</p>",
	}
	fs := newTestFs(t, files)
	p := newTestProcessor(t, fs, "")

	report, err := p.processAll(context.Background(), []string{
		"/site/views/binary.html",
		"/site/views/index.html",
		"/site/views/plain.html",
		"/site/views/missing.html",
	})
	require.Error(t, err)

	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 1, report.Changed)
	assert.Equal(t, 2, report.Failed)
	assert.Contains(t, report.Documents[0].Error, "ERR_BINARY_CONTENT")
	assert.Empty(t, report.Documents[1].Error)
	assert.False(t, report.Documents[2].Changed)
	assert.Contains(t, report.Documents[3].Error, "ERR_FILE_NOT_FOUND")
	assert.Equal(t, mergedTemplate, readString(t, fs, "/site/views/index.html"))
}

func TestProcessAllConcurrent(t *testing.T) {
	files := map[string]string{"a.js": "var a=1;", "b.js": "var b=2;"}
	var paths []string
	for i := range 8 {
		name := fmt.Sprintf("views/page%d.html", i)
		files[name] = mergeTemplate
		paths = append(paths, "/site/"+name)
	}
	fs := newTestFs(t, files)

	cfg := testConfig("/out")
	cfg.Build.Concurrency = 4
	p, err := newProcessor(cfg, fs, logging.NewNopLogger())
	require.NoError(t, err)

	report, err := p.processAll(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, 8, report.Processed)
	assert.Equal(t, 8, report.Changed)
	require.Len(t, report.Documents, 8)
	for i, doc := range report.Documents {
		assert.Equal(t, paths[i], doc.Path)
		assert.Equal(t, mergedTemplate, readString(t, fs, fmt.Sprintf("/out/views/page%d.html", i)))
	}
	assert.Equal(t, "/* a.js*/\nvar a=1;\n/* b.js*/\nvar b=2;\n", readString(t, fs, "/site/all.js"))
}

func TestProcessAllCancelled(t *testing.T) {
	fs := newTestFs(t, siteFiles)
	p := newTestProcessor(t, fs, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.processAll(ctx, []string{"/site/views/index.html"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Processed)
	assert.Equal(t, mergeTemplate, readString(t, fs, "/site/views/index.html"))
}

func TestDryRunLeavesBaseUntouched(t *testing.T) {
	base := newTestFs(t, siteFiles)
	overlay := dryRunFs(base)
	p := newTestProcessor(t, overlay, "")

	doc, err := p.processFile(context.Background(), "/site/views/index.html")
	require.NoError(t, err)
	require.Len(t, doc.Bundles, 1)
	assert.Equal(t, "0f65d18487590be1b831bbded0ab8595", doc.Bundles[0].Stamp)

	assert.Equal(t, mergedTemplate, readString(t, overlay, "/site/views/index.html"))
	assert.Equal(t, mergeTemplate, readString(t, base, "/site/views/index.html"))

	exists, err := afero.Exists(base, "/site/all.js")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiscover(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"a.js":                      "var a=1;",
		"views/index.html":          "",
		"views/layout.phtml":        "",
		"views/old.html.bak":        "",
		"views/partials/head.html":  "",
		"node_modules/pkg/doc.html": "",
		"dist/index.html":           "",
	})

	build := testConfig("/site/dist").Build
	build.Paths = []string{"/site", "/site/views"}

	files, err := discover(fs, build)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/site/views/index.html",
		"/site/views/layout.phtml",
		"/site/views/partials/head.html",
	}, files)
}

func TestResolveTargets(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"views/index.html":       "",
		"views/admin/users.html": "",
		"views/admin/style.css":  "",
	})
	build := testConfig("").Build

	files, err := resolveTargets(fs, build, []string{"/site/views/index.html", "/site/views/admin", "/site/views/new.html"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/site/views/index.html",
		"/site/views/admin/users.html",
		"/site/views/new.html",
	}, files)

	all, err := resolveTargets(fs, build, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/site/views/admin/users.html", "/site/views/index.html"}, all)
}

func TestDiscoverMissingRoot(t *testing.T) {
	build := testConfig("").Build
	build.Paths = []string{"/nope"}

	_, err := discover(afero.NewMemMapFs(), build)
	assert.Error(t, err)
}

func TestChangeHandlerSkipsDeleted(t *testing.T) {
	fs := newTestFs(t, siteFiles)
	p := newTestProcessor(t, fs, "")

	handler := changeHandler(context.Background(), p)
	err := handler([]watcher.ChangeEvent{
		{Type: watcher.EventTypeDeleted, Path: "/site/views/gone.html"},
		{Type: watcher.EventTypeModified, Path: "/site/views/index.html"},
	})
	require.NoError(t, err)

	assert.Equal(t, mergedTemplate, readString(t, fs, "/site/views/index.html"))
}

func TestMergeFlagsOverrideConfig(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("merge:\n  url_func: staticUrl\n  hash_length: 10\n")))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addMergeFlags(fs)
	require.NoError(t, bindMergeFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--hash-length", "12", "--left-flag", "<!--bundle["}))

	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Merge.HashLength)
	assert.Equal(t, "<!--bundle[", cfg.Merge.LeftFlag)
	assert.Equal(t, "staticUrl", cfg.Merge.URLFunc)
	assert.Equal(t, config.DefaultRightFlag, cfg.Merge.RightFlag)
	assert.Equal(t, config.DefaultNewPath, cfg.Merge.NewPath)
}

func TestBindMergeFlagsUnregistered(t *testing.T) {
	err := bindMergeFlags(viper.New(), pflag.NewFlagSet("empty", pflag.ContinueOnError))
	assert.Error(t, err)
}

func TestReportYAML(t *testing.T) {
	fs := newTestFs(t, siteFiles)
	p := newTestProcessor(t, fs, "")

	report, err := p.processAll(context.Background(), []string{"/site/views/index.html"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, report))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded["processed"])
	assert.Equal(t, 1, decoded["changed"])

	docs := decoded["documents"].([]interface{})
	require.Len(t, docs, 1)
	bundles := docs[0].(map[string]interface{})["bundles"].([]interface{})
	assert.Equal(t, "0f65d18487590be1b831bbded0ab8595", bundles[0].(map[string]interface{})["stamp"])

	var typed runReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &typed))
	if diff := cmp.Diff(report, &typed, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("report changed after a YAML round trip (-want +got):\n%s", diff)
	}
}

func TestVersionCommand(t *testing.T) {
	defer func() {
		versionFormat, versionShort, versionDetailed = "text", false, false
	}()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	versionFormat = "json"
	require.NoError(t, runVersionCommand(cmd, nil))

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	buf.Reset()
	versionFormat = "xml"
	assert.Error(t, runVersionCommand(cmd, nil))

	buf.Reset()
	versionFormat = "text"
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Contains(t, buf.String(), "assetmin ")
}
