package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/spaces/internal/output"
	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
	"github.com/panbanda/spaces/pkg/config"
)

const shapesPy = `def f(a, b):
    if a and b:
        return 1
    if c and d:
        return 1

class Shape:
    def area(self):
        return 0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decodeAnalysis(t *testing.T, buf *bytes.Buffer) output.AnalysisView {
	t.Helper()
	var view output.AnalysisView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view), buf.String())
	return view
}

func testParams(paths []string, stdout *bytes.Buffer) cyclomaticParams {
	return cyclomaticParams{
		paths:   paths,
		cfg:     config.DefaultConfig(),
		format:  output.FormatJSON,
		noCache: true,
		stdout:  stdout,
	}
}

func TestRunCyclomatic_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.py", shapesPy)
	writeFile(t, dir, "notes.txt", "not code")

	var buf bytes.Buffer
	require.NoError(t, runCyclomatic(context.Background(), testParams([]string{dir}, &buf)))

	view := decodeAnalysis(t, &buf)
	require.Len(t, view.Files, 1)
	assert.True(t, strings.HasSuffix(view.Files[0].Path, "shapes.py"))
	assert.Equal(t, output.SummaryView{Sum: 8, Average: 2, Min: 1, Max: 5}, view.Files[0].Cyclomatic)
	assert.Equal(t, 1, view.Summary.TotalFiles)
	assert.Equal(t, 4, view.Summary.TotalSpaces)
	assert.Equal(t, 2, view.Summary.TotalFunctions)
	assert.Empty(t, view.Violations)
}

func TestRunCyclomatic_ThresholdOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.py", shapesPy)

	var buf bytes.Buffer
	p := testParams([]string{dir}, &buf)
	p.threshold = 4
	require.NoError(t, runCyclomatic(context.Background(), p))

	view := decodeAnalysis(t, &buf)
	require.Len(t, view.Violations, 1)
	assert.Equal(t, "f", view.Violations[0].Function)
	assert.Equal(t, "warning", view.Violations[0].Severity)
}

func TestRunCyclomatic_FailOnViolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.py", shapesPy)

	var buf bytes.Buffer
	p := testParams([]string{dir}, &buf)
	p.threshold = 2
	p.failOnViolation = true

	err := runCyclomatic(context.Background(), p)
	require.Error(t, err)
	var exit cli.ExitCoder
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.ExitCode())

	// The report is still written before failing.
	view := decodeAnalysis(t, &buf)
	assert.NotEmpty(t, view.Violations)
}

func TestRunCyclomatic_NoFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "# nothing\n")

	var buf bytes.Buffer
	require.NoError(t, runCyclomatic(context.Background(), testParams([]string{dir}, &buf)))
	assert.Empty(t, buf.String())
}

func TestRunCyclomatic_Text(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.py", shapesPy)

	var buf bytes.Buffer
	p := testParams([]string{dir}, &buf)
	p.format = output.FormatText
	require.NoError(t, runCyclomatic(context.Background(), p))

	out := buf.String()
	assert.Contains(t, out, "Cyclomatic Complexity")
	assert.Contains(t, out, "Shape.area")
}

func TestRunCyclomatic_OutputFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.py", shapesPy)
	outPath := filepath.Join(t.TempDir(), "report.json")

	p := testParams([]string{dir}, nil)
	p.outputPath = outPath
	require.NoError(t, runCyclomatic(context.Background(), p))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	view := decodeAnalysis(t, bytes.NewBuffer(data))
	assert.Len(t, view.Files, 1)
}

func commitAll(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestRunCyclomatic_Ref(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "src/a.py", "def g():\n    return 1\n")
	writeFile(t, dir, "other/b.py", "def h():\n    return 1\n")
	commitAll(t, repo, "initial")

	// Working tree changes must not leak into the revision.
	writeFile(t, dir, "src/a.py", shapesPy)

	t.Run("whole tree", func(t *testing.T) {
		var buf bytes.Buffer
		p := testParams([]string{dir}, &buf)
		p.ref = "HEAD"
		require.NoError(t, runCyclomatic(context.Background(), p))

		view := decodeAnalysis(t, &buf)
		require.Len(t, view.Files, 2)
		assert.Equal(t, "other/b.py", view.Files[0].Path)
		assert.Equal(t, "src/a.py", view.Files[1].Path)
		assert.Equal(t, 2.0, view.Files[1].Cyclomatic.Sum)
	})

	t.Run("unknown ref", func(t *testing.T) {
		var buf bytes.Buffer
		p := testParams([]string{dir}, &buf)
		p.ref = "no-such-branch"
		assert.Error(t, runCyclomatic(context.Background(), p))
	})
}

func TestRevisionPrefixes(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"dot", []string{"."}, nil},
		{"relative", []string{".", "./src", "pkg/"}, []string{"src", "pkg"}},
		{"absolute skipped", []string{"/repo", "lib"}, []string{"lib"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, revisionPrefixes(tt.paths))
		})
	}
}

func TestRunTree(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "shapes.py", shapesPy)

	var buf bytes.Buffer
	require.NoError(t, runTree(treeParams{
		path:   path,
		cfg:    config.DefaultConfig(),
		format: output.FormatText,
		stdout: &buf,
	}))

	out := buf.String()
	assert.Contains(t, out, "function f")
	assert.Contains(t, out, "class Shape")
	assert.Contains(t, out, "  function area")

	buf.Reset()
	require.NoError(t, runTree(treeParams{
		path:   path,
		cfg:    config.DefaultConfig(),
		format: output.FormatJSON,
		stdout: &buf,
	}))
	var root output.SpaceView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &root))
	assert.Equal(t, "unit", root.Kind)
	assert.Equal(t, 8.0, root.Cyclomatic.Sum)
	assert.Len(t, root.Spaces, 2)
}

func TestRunTree_Unsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "hello")
	err := runTree(treeParams{path: path, cfg: config.DefaultConfig(), format: output.FormatText, stdout: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".spaces", "spaces.toml")

	var buf bytes.Buffer
	require.NoError(t, runInit(path, false, &buf))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Thresholds, cfg.Thresholds)

	err = runInit(path, false, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	assert.NoError(t, runInit(path, true, &buf))
}

func TestCacheStatsAndClear(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.py", shapesPy)
	writeFile(t, dir, "b.py", "def g():\n    return 1\n")

	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")

	p := testParams([]string{dir}, &bytes.Buffer{})
	p.cfg = cfg
	p.noCache = false
	require.NoError(t, runCyclomatic(context.Background(), p))

	var out bytes.Buffer
	require.NoError(t, runCacheStats(cfg, &out))
	assert.Contains(t, out.String(), "Directory: "+cfg.Cache.Dir)
	assert.Contains(t, out.String(), "Entries:   2")
	assert.Contains(t, out.String(), "Oldest:")

	out.Reset()
	require.NoError(t, runCacheClear(cfg, &out))
	assert.Contains(t, out.String(), "Removed 2 entries")

	out.Reset()
	require.NoError(t, runCacheStats(cfg, &out))
	assert.Contains(t, out.String(), "Entries:   0")
	assert.NotContains(t, out.String(), "Oldest:")
}

func TestReportChanges(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "shapes.py", shapesPy)
	b := writeFile(t, dir, "b.py", "def g():\n    return 1\n")

	an := cyclomatic.New(cyclomatic.WithThresholds(cyclomatic.Thresholds{Cyclomatic: 4}))
	defer an.Close()

	var out bytes.Buffer
	reportChanges(context.Background(), an, dir, []string{a, b}, &out)

	got := out.String()
	assert.Contains(t, got, "2 file(s) changed")
	assert.Contains(t, got, "shapes.py  4 spaces  sum: 8,")
	assert.Contains(t, got, "b.py  2 spaces  sum: 2,")
	assert.Contains(t, got, "changed files  6 spaces  sum: 10,")
	assert.Contains(t, got, "f has cyclomatic complexity 5")

	out.Reset()
	reportChanges(context.Background(), an, dir, []string{b}, &out)
	assert.NotContains(t, out.String(), "changed files")
}

func TestNewApp(t *testing.T) {
	app := newApp()

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"cyclomatic", "tree", "schema", "init", "watch", "cache", "mcp"}, names)
}

func TestSchemaCommand(t *testing.T) {
	app := newApp()
	var buf bytes.Buffer
	app.Writer = &buf

	require.NoError(t, app.Run([]string{"spaces", "schema"}))
	assert.JSONEq(t, output.Schema, buf.String())
}

func TestCyclomaticCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.py", shapesPy)
	outPath := filepath.Join(t.TempDir(), "out.json")

	app := newApp()
	require.NoError(t, app.Run([]string{"spaces", "cc", "--no-cache", "-f", "json", "-o", outPath, dir}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	view := decodeAnalysis(t, bytes.NewBuffer(data))
	assert.Equal(t, 1, view.Summary.TotalFiles)
}
