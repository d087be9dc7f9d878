package output

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
	metric "github.com/panbanda/spaces/pkg/metrics/cyclomatic"
	"github.com/panbanda/spaces/pkg/spaces"
)

// DefaultTopFunctions is how many functions the text and markdown reports
// list when no limit is given.
const DefaultTopFunctions = 20

// SummaryView is the serialized cyclomatic record of a space or a set of
// spaces. The tags mirror metric.Record so JSON and TOON agree.
type SummaryView struct {
	Sum     float64 `json:"sum" toon:"sum"`
	Average float64 `json:"average" toon:"average"`
	Min     float64 `json:"min" toon:"min"`
	Max     float64 `json:"max" toon:"max"`
}

func summaryView(s metric.Summary) SummaryView {
	r := s.Record()
	return SummaryView{Sum: r.Sum, Average: r.Average, Min: r.Min, Max: r.Max}
}

// SpaceView is one node of a serialized space tree.
type SpaceView struct {
	Name       string      `json:"name,omitempty" toon:"name,omitempty"`
	Kind       string      `json:"kind" toon:"kind"`
	StartLine  int         `json:"start_line" toon:"start_line"`
	EndLine    int         `json:"end_line" toon:"end_line"`
	Complexity float64     `json:"complexity" toon:"complexity"`
	Cyclomatic SummaryView `json:"cyclomatic" toon:"cyclomatic"`
	Spaces     []SpaceView `json:"spaces,omitempty" toon:"spaces,omitempty"`
}

// NewSpaceView converts a space tree into its serialized form.
func NewSpaceView(s *spaces.FuncSpace) SpaceView {
	v := SpaceView{
		Name:       s.Name,
		Kind:       string(s.Kind),
		StartLine:  s.StartLine,
		EndLine:    s.EndLine,
		Complexity: s.Complexity,
		Cyclomatic: summaryView(s.Cyclomatic),
	}
	if len(s.Spaces) > 0 {
		v.Spaces = make([]SpaceView, len(s.Spaces))
		for i, child := range s.Spaces {
			v.Spaces[i] = NewSpaceView(child)
		}
	}
	return v
}

// FunctionView is one row of the function listing.
type FunctionView struct {
	Name       string      `json:"name" toon:"name"`
	Kind       string      `json:"kind" toon:"kind"`
	File       string      `json:"file" toon:"file"`
	StartLine  int         `json:"start_line" toon:"start_line"`
	EndLine    int         `json:"end_line" toon:"end_line"`
	Complexity float64     `json:"complexity" toon:"complexity"`
	Cyclomatic SummaryView `json:"cyclomatic" toon:"cyclomatic"`
}

// FileView is the serialized result of one file.
type FileView struct {
	Path       string         `json:"path" toon:"path"`
	Language   string         `json:"language" toon:"language"`
	Cyclomatic SummaryView    `json:"cyclomatic" toon:"cyclomatic"`
	MaxDepth   int            `json:"max_depth" toon:"max_depth"`
	Types      int            `json:"types" toon:"types"`
	Spaces     *SpaceView     `json:"spaces,omitempty" toon:"spaces,omitempty"`
	Functions  []FunctionView `json:"functions" toon:"functions"`
}

// DistributionView describes per-function local complexity.
type DistributionView struct {
	Count  int     `json:"count" toon:"count"`
	Mean   float64 `json:"mean" toon:"mean"`
	StdDev float64 `json:"std_dev" toon:"std_dev"`
	P50    float64 `json:"p50" toon:"p50"`
	P90    float64 `json:"p90" toon:"p90"`
	P95    float64 `json:"p95" toon:"p95"`
	Max    float64 `json:"max" toon:"max"`
}

// SummaryReportView holds the project totals.
type SummaryReportView struct {
	TotalFiles     int              `json:"total_files" toon:"total_files"`
	TotalSpaces    int              `json:"total_spaces" toon:"total_spaces"`
	TotalFunctions int              `json:"total_functions" toon:"total_functions"`
	TotalTypes     int              `json:"total_types" toon:"total_types"`
	MaxDepth       int              `json:"max_depth" toon:"max_depth"`
	Cyclomatic     SummaryView      `json:"cyclomatic" toon:"cyclomatic"`
	Functions      DistributionView `json:"functions" toon:"functions"`
	ViolationCount int              `json:"violation_count" toon:"violation_count"`
}

// ViolationView is a threshold violation.
type ViolationView struct {
	Severity  string  `json:"severity" toon:"severity"`
	Rule      string  `json:"rule" toon:"rule"`
	Message   string  `json:"message" toon:"message"`
	Value     float64 `json:"value" toon:"value"`
	Threshold float64 `json:"threshold" toon:"threshold"`
	File      string  `json:"file" toon:"file"`
	Line      int     `json:"line" toon:"line"`
	Function  string  `json:"function,omitempty" toon:"function,omitempty"`
}

// ErrorView is a file that could not be analyzed.
type ErrorView struct {
	Path  string `json:"path" toon:"path"`
	Error string `json:"error" toon:"error"`
}

// AnalysisView is the machine-readable cyclomatic report. Its JSON form is
// described by Schema.
type AnalysisView struct {
	Version    string            `json:"version" toon:"version"`
	Files      []FileView        `json:"files" toon:"files"`
	Summary    SummaryReportView `json:"summary" toon:"summary"`
	Violations []ViolationView   `json:"violations" toon:"violations"`
	Errors     []ErrorView       `json:"errors,omitempty" toon:"errors,omitempty"`
}

// NewAnalysisView converts an analysis into its serialized form.
func NewAnalysisView(a *cyclomatic.Analysis) AnalysisView {
	v := AnalysisView{
		Version:    SchemaVersion,
		Files:      make([]FileView, 0, len(a.Files)),
		Violations: make([]ViolationView, 0, len(a.Violations)),
	}
	for _, fr := range a.Files {
		fv := FileView{
			Path:       fr.Path,
			Language:   fr.Language,
			Cyclomatic: summaryView(fr.Cyclomatic),
			MaxDepth:   fr.MaxDepth,
			Types:      fr.Types,
			Functions:  make([]FunctionView, 0, len(fr.Functions)),
		}
		if fr.Spaces != nil {
			sv := NewSpaceView(fr.Spaces)
			fv.Spaces = &sv
		}
		for _, fn := range fr.Functions {
			fv.Functions = append(fv.Functions, functionView(fn))
		}
		v.Files = append(v.Files, fv)
	}

	s := a.Summary
	v.Summary = SummaryReportView{
		TotalFiles:     s.TotalFiles,
		TotalSpaces:    s.TotalSpaces,
		TotalFunctions: s.TotalFunctions,
		TotalTypes:     s.TotalTypes,
		MaxDepth:       s.MaxDepth,
		Cyclomatic:     summaryView(s.Cyclomatic),
		Functions: DistributionView{
			Count:  s.Functions.Count,
			Mean:   s.Functions.Mean,
			StdDev: s.Functions.StdDev,
			P50:    s.Functions.P50,
			P90:    s.Functions.P90,
			P95:    s.Functions.P95,
			Max:    s.Functions.Max,
		},
		ViolationCount: s.ViolationCount,
	}

	for _, vi := range a.Violations {
		v.Violations = append(v.Violations, ViolationView{
			Severity:  string(vi.Severity),
			Rule:      vi.Rule,
			Message:   vi.Message,
			Value:     vi.Value,
			Threshold: vi.Threshold,
			File:      vi.File,
			Line:      vi.Line,
			Function:  vi.Function,
		})
	}
	for _, e := range a.Errors {
		v.Errors = append(v.Errors, ErrorView(e))
	}
	return v
}

func functionView(fn cyclomatic.FunctionResult) FunctionView {
	return FunctionView{
		Name:       fn.Name,
		Kind:       string(fn.Kind),
		File:       fn.File,
		StartLine:  fn.StartLine,
		EndLine:    fn.EndLine,
		Complexity: fn.Complexity,
		Cyclomatic: summaryView(fn.Cyclomatic),
	}
}

// NewCyclomaticReport builds the report for an analysis. topFunctions limits
// the function table of the text and markdown renderings; zero or less uses
// DefaultTopFunctions. Serialized formats always carry every function.
func NewCyclomaticReport(a *cyclomatic.Analysis, topFunctions int) *Report {
	if topFunctions <= 0 {
		topFunctions = DefaultTopFunctions
	}
	view := NewAnalysisView(a)

	sections := []Renderable{
		&Section{Title: "Summary", Content: summaryContent(a)},
		filesTable(a),
	}
	if fns := functionsTable(a, topFunctions); fns != nil {
		sections = append(sections, fns)
	}
	if len(a.Violations) > 0 {
		sections = append(sections, violationsTable(a))
	}
	if len(a.Errors) > 0 {
		sections = append(sections, errorsTable(a))
	}

	return &Report{
		Title:    "Cyclomatic Complexity",
		Sections: sections,
		Data:     view,
	}
}

func summaryContent(a *cyclomatic.Analysis) string {
	s := a.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Files: %d\n", s.TotalFiles)
	fmt.Fprintf(&b, "Spaces: %d\n", s.TotalSpaces)
	fmt.Fprintf(&b, "Functions: %d\n", s.TotalFunctions)
	fmt.Fprintf(&b, "Types: %d\n", s.TotalTypes)
	fmt.Fprintf(&b, "Max depth: %d\n", s.MaxDepth)
	fmt.Fprintf(&b, "Cyclomatic: %s\n", s.Cyclomatic)
	if s.Functions.Count > 0 {
		fmt.Fprintf(&b, "Function complexity: p50 %s, p90 %s, p95 %s, max %s\n",
			num(s.Functions.P50), num(s.Functions.P90), num(s.Functions.P95), num(s.Functions.Max))
	}
	fmt.Fprintf(&b, "Violations: %d", s.ViolationCount)
	return b.String()
}

func filesTable(a *cyclomatic.Analysis) *Table {
	rows := make([][]string, 0, len(a.Files))
	for _, fr := range a.Files {
		r := fr.Cyclomatic.Record()
		rows = append(rows, []string{
			fr.Path,
			fr.Language,
			strconv.Itoa(fr.SpaceCount()),
			strconv.Itoa(fr.MaxDepth),
			num(r.Sum),
			num(r.Average),
			num(r.Min),
			num(r.Max),
		})
	}
	r := a.Summary.Cyclomatic.Record()
	footer := []string{
		"Total",
		"",
		strconv.Itoa(a.Summary.TotalSpaces),
		strconv.Itoa(a.Summary.MaxDepth),
		num(r.Sum),
		num(r.Average),
		num(r.Min),
		num(r.Max),
	}
	return NewTable("Files",
		[]string{"File", "Language", "Spaces", "Depth", "Sum", "Average", "Min", "Max"},
		rows, footer, nil)
}

// functionsTable lists the most complex functions, highest local complexity
// first. It returns nil when the analysis has no functions.
func functionsTable(a *cyclomatic.Analysis, limit int) *Table {
	var fns []cyclomatic.FunctionResult
	for _, fr := range a.Files {
		fns = append(fns, fr.Functions...)
	}
	if len(fns) == 0 {
		return nil
	}
	sort.SliceStable(fns, func(i, j int) bool {
		if fns[i].Complexity != fns[j].Complexity {
			return fns[i].Complexity > fns[j].Complexity
		}
		if fns[i].File != fns[j].File {
			return fns[i].File < fns[j].File
		}
		return fns[i].StartLine < fns[j].StartLine
	})

	title := "Functions"
	if len(fns) > limit {
		title = fmt.Sprintf("Top %d of %d functions", limit, len(fns))
		fns = fns[:limit]
	}

	rows := make([][]string, 0, len(fns))
	for _, fn := range fns {
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", fn.File, fn.StartLine),
			fn.Name,
			string(fn.Kind),
			num(fn.Complexity),
			num(fn.Cyclomatic.Sum()),
		})
	}
	return NewTable(title,
		[]string{"Location", "Function", "Kind", "Complexity", "Total"},
		rows, nil, nil)
}

func violationsTable(a *cyclomatic.Analysis) *Table {
	rows := make([][]string, 0, len(a.Violations))
	for _, v := range a.Violations {
		rows = append(rows, []string{
			string(v.Severity),
			v.Rule,
			fmt.Sprintf("%s:%d", v.File, v.Line),
			v.Message,
		})
	}
	return NewTable("Violations",
		[]string{"Severity", "Rule", "Location", "Message"},
		rows, nil, nil)
}

func errorsTable(a *cyclomatic.Analysis) *Table {
	rows := make([][]string, 0, len(a.Errors))
	for _, e := range a.Errors {
		rows = append(rows, []string{e.Path, e.Error})
	}
	return NewTable("Errors", []string{"File", "Error"}, rows, nil, nil)
}

// num formats a metric without trailing zeros and at most two decimals.
func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// SpaceTree renders the space tree of a single file.
type SpaceTree struct {
	Path string
	Root *spaces.FuncSpace
}

// NewSpaceTree wraps a file's space tree for rendering.
func NewSpaceTree(path string, root *spaces.FuncSpace) *SpaceTree {
	return &SpaceTree{Path: path, Root: root}
}

func (t *SpaceTree) RenderData() any {
	if t.Root == nil {
		return nil
	}
	return NewSpaceView(t.Root)
}

func (t *SpaceTree) RenderText(w io.Writer, colored bool) error {
	if t.Root == nil {
		return nil
	}
	var walk func(s *spaces.FuncSpace, depth int)
	walk = func(s *spaces.FuncSpace, depth int) {
		label := fmt.Sprintf("%s %s", s.Kind, s.DisplayName())
		if s.Kind == spaces.KindUnit {
			label = fmt.Sprintf("%s %s", s.Kind, t.Path)
		}
		if colored {
			label = color.New(color.Bold).Sprint(label)
		}
		fmt.Fprintf(w, "%s%s [%d-%d] complexity %s (%s)\n",
			strings.Repeat("  ", depth), label, s.StartLine, s.EndLine,
			num(s.Complexity), s.Cyclomatic)
		for _, child := range s.Spaces {
			walk(child, depth+1)
		}
	}
	walk(t.Root, 0)
	return nil
}

func (t *SpaceTree) RenderMarkdown(w io.Writer) error {
	if t.Root == nil {
		return nil
	}
	fmt.Fprintf(w, "## %s\n\n", t.Path)
	var walk func(s *spaces.FuncSpace, depth int)
	walk = func(s *spaces.FuncSpace, depth int) {
		fmt.Fprintf(w, "%s- **%s** `%s` lines %d-%d, complexity %s, %s\n",
			strings.Repeat("  ", depth), s.Kind, s.DisplayName(), s.StartLine, s.EndLine,
			num(s.Complexity), s.Cyclomatic)
		for _, child := range s.Spaces {
			walk(child, depth+1)
		}
	}
	walk(t.Root, 0)
	fmt.Fprintln(w)
	return nil
}
