package cyclomatic

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/spaces/internal/cache"
	"github.com/panbanda/spaces/pkg/analyzer"
	"github.com/panbanda/spaces/pkg/config"
	metric "github.com/panbanda/spaces/pkg/metrics/cyclomatic"
	"github.com/panbanda/spaces/pkg/parser"
	"github.com/panbanda/spaces/pkg/spaces"
)

const pySource = `def f(a, b):
    if a and b:
        return 1
    if c and d:
        return 1
`

const rustSource = `fn f() {
    if true {
        match true {
            true => println!("test"),
            false => println!("test"),
        }
    }
}
`

const javaSource = `public class Example {
    int a = 10;
    boolean b = (a > 5) ? true : false;
    boolean c = b && true;

    public void m1() {
        if (a % 2 == 0) {
            b = b || c;
        }
    }
    public void m2() {
        while (a > 3) {
            m1();
            a--;
        }
    }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "foo.py", pySource)

	a := New()
	defer a.Close()

	fr, err := a.AnalyzeFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, fr.Path)
	assert.Equal(t, "python", fr.Language)
	assert.Equal(t, metric.Record{Sum: 6, Average: 3, Min: 1, Max: 5}, fr.Cyclomatic.Record())
	require.Len(t, fr.Functions, 1)
	assert.Equal(t, FunctionResult{
		Name:       "f",
		Kind:       spaces.KindFunction,
		File:       path,
		StartLine:  1,
		EndLine:    5,
		Complexity: 5,
		Cyclomatic: fr.Spaces.Spaces[0].Cyclomatic,
	}, fr.Functions[0])
	assert.Equal(t, 2, fr.MaxDepth)
	assert.Equal(t, 0, fr.Types)
	assert.Equal(t, 2, fr.SpaceCount())
	assert.False(t, fr.Cached)
}

func TestAnalyzeFile_Errors(t *testing.T) {
	dir := t.TempDir()
	a := New(WithLanguages(parser.LangRust))
	defer a.Close()

	_, err := a.AnalyzeFile(filepath.Join(dir, "missing.py"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = a.AnalyzeFile(writeFile(t, dir, "notes.txt", "hello"))
	assert.ErrorIs(t, err, parser.ErrUnsupportedLanguage)

	_, err = a.AnalyzeFile(writeFile(t, dir, "a.py", pySource))
	assert.ErrorIs(t, err, ErrLanguageDisabled)

	_, err = a.AnalyzeFile(writeFile(t, dir, "a.rs", rustSource))
	assert.NoError(t, err)
}

type mapSource map[string]string

func (m mapSource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

func TestAnalyzeFileFromSource(t *testing.T) {
	a := New()
	defer a.Close()

	fr, err := a.AnalyzeFileFromSource(mapSource{"src/lib.rs": rustSource}, "src/lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "rust", fr.Language)
	assert.Equal(t, "sum: 5, average: 2.5, min: 1, max: 4", fr.Cyclomatic.String())

	_, err = a.AnalyzeFileFromSource(mapSource{}, "src/missing.rs")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyzeProjectFromSource(t *testing.T) {
	src := mapSource{
		"b/foo.py":       pySource,
		"a/lib.rs":       rustSource,
		"c/Example.java": javaSource,
		"d/README.md":    "# readme",
	}
	files := []string{"b/foo.py", "a/lib.rs", "c/Example.java", "d/README.md", "e/gone.py"}

	a := New(WithThresholds(Thresholds{}))
	defer a.Close()

	analysis, err := a.AnalyzeProjectFromSource(context.Background(), files, src)
	require.NoError(t, err)

	require.Len(t, analysis.Files, 3)
	assert.Equal(t, "a/lib.rs", analysis.Files[0].Path)
	assert.Equal(t, "b/foo.py", analysis.Files[1].Path)
	assert.Equal(t, "c/Example.java", analysis.Files[2].Path)

	// python {6,2}, rust {5,2}, java {9,4}
	sum := analysis.Summary
	assert.Equal(t, 3, sum.TotalFiles)
	assert.Equal(t, 8, sum.TotalSpaces)
	assert.Equal(t, 4, sum.TotalFunctions)
	assert.Equal(t, 1, sum.TotalTypes)
	assert.Equal(t, 3, sum.MaxDepth)
	assert.Equal(t, metric.Record{Sum: 20, Average: 2.5, Min: 1, Max: 5}, sum.Cyclomatic.Record())
	assert.Equal(t, 5.0, sum.Functions.Max)
	assert.Equal(t, 4, sum.Functions.Count)

	require.Len(t, analysis.Errors, 2)
	assert.Equal(t, "d/README.md", analysis.Errors[0].Path)
	assert.Equal(t, "e/gone.py", analysis.Errors[1].Path)
	assert.Empty(t, analysis.Violations)
}

func TestAnalyze_Filesystem(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "foo.py", pySource),
		writeFile(t, dir, "lib.rs", rustSource),
	}

	a := New(WithWorkers(2))
	defer a.Close()

	tracker := analyzer.NewTracker(nil)
	ctx := analyzer.WithTracker(context.Background(), tracker)

	analysis, err := a.Analyze(ctx, files)
	require.NoError(t, err)
	assert.Len(t, analysis.Files, 2)
	assert.Equal(t, 2, tracker.Current())
	assert.Equal(t, metric.Record{Sum: 11, Average: 2.75, Min: 1, Max: 5}, analysis.Summary.Cyclomatic.Record())
}

func TestAnalyze_Empty(t *testing.T) {
	a := New()
	defer a.Close()

	analysis, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, analysis.Files)
	assert.NotNil(t, analysis.Files)
	assert.True(t, analysis.Summary.Cyclomatic.IsZero())

	data, err := json.Marshal(analysis)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"files":[]`)
}

func TestAnalyze_Cancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "foo.py", pySource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New()
	defer a.Close()

	analysis, err := a.Analyze(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, analysis)
	assert.Empty(t, analysis.Files)
}

func TestAnalyze_MaxFileSizeLogged(t *testing.T) {
	dir := t.TempDir()
	small := writeFile(t, dir, "small.py", "x = 1\n")
	large := writeFile(t, dir, "large.py", pySource)

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	a := New(WithMaxFileSize(16), WithLogger(logger))
	defer a.Close()

	analysis, err := a.Analyze(context.Background(), []string{small, large})
	require.NoError(t, err)
	require.Len(t, analysis.Files, 1)
	assert.Equal(t, small, analysis.Files[0].Path)
	require.Len(t, analysis.Errors, 1)
	assert.Equal(t, large, analysis.Errors[0].Path)
	assert.Contains(t, buf.String(), "skipped file")
}

func TestViolations(t *testing.T) {
	src := mapSource{"foo.py": pySource, "Example.java": javaSource}

	a := New(WithThresholds(Thresholds{Cyclomatic: 2, CyclomaticAverage: 2.5}))
	defer a.Close()

	analysis, err := a.AnalyzeProjectFromSource(context.Background(), []string{"foo.py", "Example.java"}, src)
	require.NoError(t, err)

	byKey := map[string]Violation{}
	for _, v := range analysis.Violations {
		byKey[v.File+"|"+v.Rule+"|"+v.Function] = v
	}

	f := byKey["foo.py|cyclomatic|f"]
	assert.Equal(t, SeverityError, f.Severity)
	assert.Equal(t, 5.0, f.Value)
	assert.Equal(t, 1, f.Line)

	m1 := byKey["Example.java|cyclomatic|Example.m1"]
	assert.Equal(t, SeverityWarning, m1.Severity)
	assert.Equal(t, 3.0, m1.Value)

	avg := byKey["foo.py|cyclomatic-average|"]
	assert.Equal(t, 3.0, avg.Value)
	assert.Equal(t, SeverityWarning, avg.Severity)

	// java: m1 3, m2 2 (within limit); average 2.25 within limit
	assert.Len(t, analysis.Violations, 3)
	assert.Equal(t, len(analysis.Violations), analysis.Summary.ViolationCount)
}

func TestAnalyze_Cache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "foo.py", pySource)

	c, err := cache.New(filepath.Join(dir, ".cache"), time.Hour, CacheVersion)
	require.NoError(t, err)

	a := New(WithCache(c))
	defer a.Close()

	first, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Cyclomatic, second.Cyclomatic)
	assert.Equal(t, first.Functions, second.Functions)

	firstJSON, err := json.Marshal(first.Spaces)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Spaces)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	// changed content misses
	writeFile(t, dir, "foo.py", "x = 1\n")
	third, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 1.0, third.Cyclomatic.Sum())
}

func TestAnalyze_CacheDropsUnreadableEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "foo.py", pySource)

	c, err := cache.New(filepath.Join(dir, ".cache"), time.Hour, CacheVersion)
	require.NoError(t, err)

	key := cacheKey(path, parser.LangPython)
	hash := cache.HashBytes([]byte(pySource))
	require.NoError(t, c.Store(key, hash, []byte(`{"path":"foo.py","language":"python"}`)))

	a := New(WithCache(c))
	defer a.Close()

	_, ok := a.lookup(key, hash)
	assert.False(t, ok)
	_, ok = c.Lookup(key, hash)
	assert.False(t, ok, "unreadable entry is removed")

	fr, err := a.AnalyzeFile(path)
	require.NoError(t, err)
	assert.False(t, fr.Cached)
	_, ok = c.Lookup(key, hash)
	assert.True(t, ok)
}

func TestCachedSpaceRoundTrip(t *testing.T) {
	a := New()
	defer a.Close()

	fr, err := a.AnalyzeFileFromSource(mapSource{"Example.java": javaSource}, "Example.java")
	require.NoError(t, err)

	restored, err := fromCached(toCached(fr.Spaces))
	require.NoError(t, err)
	assert.Equal(t, fr.Spaces, restored)
}

func TestWithConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.Languages = []string{"rust"}
	cfg.Analysis.MaxFileSize = 123
	cfg.Analysis.Workers = 3
	cfg.Thresholds.Cyclomatic = 7
	cfg.Thresholds.CyclomaticAverage = 0

	a := New(WithConfig(cfg))
	defer a.Close()

	assert.Equal(t, int64(123), a.maxFileSize)
	assert.Equal(t, 3, a.workers)
	assert.Equal(t, Thresholds{Cyclomatic: 7}, a.Thresholds())
	assert.Equal(t, map[parser.Language]bool{parser.LangRust: true}, a.languages)

	b := New(WithConfig(nil))
	defer b.Close()
	assert.Equal(t, DefaultThresholds(), b.Thresholds())
}
