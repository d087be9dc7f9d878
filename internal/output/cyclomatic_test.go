package output

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
)

const pySource = `def f(a, b):
    if a and b:
        return 1
    if c and d:
        return 1
`

const jsSource = `class Counter {
  inc(n) {
    return n > 0 ? n + 1 : 0;
  }
}
const add = (a, b) => a || b;
`

func sampleAnalysis(t *testing.T) *cyclomatic.Analysis {
	t.Helper()
	dir := t.TempDir()
	py := filepath.Join(dir, "a.py")
	js := filepath.Join(dir, "b.js")
	require.NoError(t, os.WriteFile(py, []byte(pySource), 0o644))
	require.NoError(t, os.WriteFile(js, []byte(jsSource), 0o644))

	a := cyclomatic.New(cyclomatic.WithThresholds(cyclomatic.Thresholds{Cyclomatic: 3}))
	defer a.Close()

	analysis, err := a.Analyze(context.Background(), []string{py, js, filepath.Join(dir, "missing.py")})
	require.NoError(t, err)
	return analysis
}

func compileSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(Schema))
	require.NoError(t, err, "schema is valid json")
	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("schema.json", sch))
	compiled, err := compiler.Compile("schema.json")
	require.NoError(t, err)
	return compiled
}

func validate(t *testing.T, compiled *jsonschema.Schema, data []byte) {
	t.Helper()
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NoError(t, compiled.Validate(inst))
}

func TestCyclomaticReport_JSONValidAgainstSchema(t *testing.T) {
	compiled := compileSchema(t)
	report := NewCyclomaticReport(sampleAnalysis(t), 0)

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatJSON, &buf, false).Output(report))
	validate(t, compiled, buf.Bytes())

	var view AnalysisView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	assert.Equal(t, SchemaVersion, view.Version)
	require.Len(t, view.Files, 2)
	assert.Equal(t, SummaryView{Sum: 6, Average: 3, Min: 1, Max: 5}, view.Files[0].Cyclomatic)
	require.NotNil(t, view.Files[0].Spaces)
	assert.Equal(t, "unit", view.Files[0].Spaces.Kind)
	require.Len(t, view.Errors, 1)
	assert.Equal(t, 1, view.Summary.ViolationCount)

	// b.js: unit > Counter > inc
	assert.Equal(t, 2, view.Files[0].MaxDepth)
	assert.Equal(t, 3, view.Files[1].MaxDepth)
	assert.Equal(t, 1, view.Files[1].Types)
	assert.Equal(t, 1, view.Summary.TotalTypes)
	assert.Equal(t, 3, view.Summary.MaxDepth)
}

func TestCyclomaticReport_EmptyAnalysisValid(t *testing.T) {
	compiled := compileSchema(t)
	a := cyclomatic.New()
	defer a.Close()

	analysis, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)

	data, err := json.Marshal(NewAnalysisView(analysis))
	require.NoError(t, err)
	validate(t, compiled, data)
	assert.Contains(t, string(data), `"files":[]`)
	assert.Contains(t, string(data), `"violations":[]`)
}

// The view must serialize exactly like the analyzer's own types.
func TestSpaceViewMatchesFuncSpaceJSON(t *testing.T) {
	analysis := sampleAnalysis(t)
	unit := analysis.Files[1].Spaces

	direct, err := json.Marshal(unit)
	require.NoError(t, err)
	viewed, err := json.Marshal(NewSpaceView(unit))
	require.NoError(t, err)
	assert.JSONEq(t, string(direct), string(viewed))
}

func TestCyclomaticReport_Text(t *testing.T) {
	report := NewCyclomaticReport(sampleAnalysis(t), 0)

	var buf bytes.Buffer
	require.NoError(t, report.RenderText(&buf, false))
	out := buf.String()

	for _, want := range []string{
		"Cyclomatic Complexity",
		"Files: 2",
		"Types: 1",
		"Max depth: 3",
		"Violations: 1",
		"a.py",
		"b.js",
		"Counter.inc",
		"Violations",
		"Errors",
		"missing.py",
	} {
		assert.Contains(t, out, want)
	}
}

func TestCyclomaticReport_TopFunctions(t *testing.T) {
	report := NewCyclomaticReport(sampleAnalysis(t), 1)

	var buf bytes.Buffer
	require.NoError(t, report.RenderMarkdown(&buf))
	out := buf.String()

	assert.Contains(t, out, "## Top 1 of 3 functions")
	assert.Contains(t, out, "| f |")
	assert.NotContains(t, out, "| Counter.inc |")
}

func TestCyclomaticReport_TOON(t *testing.T) {
	report := NewCyclomaticReport(sampleAnalysis(t), 0)

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatTOON, &buf, false).Output(report))
	out := buf.String()
	assert.Contains(t, out, "total_files")
	assert.Contains(t, out, "a.py")
}

func TestSpaceTree(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(path, []byte(pySource), 0o644))

	a := cyclomatic.New()
	defer a.Close()
	fr, err := a.AnalyzeFile(path)
	require.NoError(t, err)

	tree := NewSpaceTree("a.py", fr.Spaces)

	var text bytes.Buffer
	require.NoError(t, tree.RenderText(&text, false))
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "unit a.py [1-"))
	assert.True(t, strings.HasSuffix(lines[0], "complexity 1 (sum: 6, average: 3, min: 1, max: 5)"))
	assert.Equal(t, "  function f [1-5] complexity 5 (sum: 5, average: 5, min: 5, max: 5)", lines[1])

	var md bytes.Buffer
	require.NoError(t, tree.RenderMarkdown(&md))
	assert.Contains(t, md.String(), "  - **function** `f` lines 1-5, complexity 5")

	view, ok := tree.RenderData().(SpaceView)
	require.True(t, ok)
	require.Len(t, view.Spaces, 1)
	assert.Equal(t, "f", view.Spaces[0].Name)
}

func TestSpaceTree_Nil(t *testing.T) {
	tree := NewSpaceTree("x", nil)
	var buf bytes.Buffer
	require.NoError(t, tree.RenderText(&buf, false))
	require.NoError(t, tree.RenderMarkdown(&buf))
	assert.Empty(t, buf.String())
	assert.Nil(t, tree.RenderData())
}
