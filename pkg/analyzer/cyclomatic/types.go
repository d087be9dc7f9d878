package cyclomatic

import (
	metric "github.com/panbanda/spaces/pkg/metrics/cyclomatic"
	"github.com/panbanda/spaces/pkg/spaces"
	"github.com/panbanda/spaces/pkg/stats"
)

// FunctionResult is one function or closure space of a file.
type FunctionResult struct {
	// Name is the dotted path of enclosing space names, e.g. "Matrix.init".
	Name      string      `json:"name"`
	Kind      spaces.Kind `json:"kind"`
	File      string      `json:"file"`
	StartLine int         `json:"start_line"`
	EndLine   int         `json:"end_line"`
	// Complexity is the local cyclomatic complexity of the function body,
	// excluding nested spaces.
	Complexity float64 `json:"complexity"`
	// Cyclomatic aggregates the function and everything nested in it.
	Cyclomatic metric.Summary `json:"cyclomatic"`
}

// FileResult is the cyclomatic analysis of one file.
type FileResult struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	// Cyclomatic is the unit summary: every space of the file.
	Cyclomatic metric.Summary `json:"cyclomatic"`
	// MaxDepth is the deepest space nesting, the unit counting as 1.
	MaxDepth  int               `json:"max_depth"`
	Types     int               `json:"types"`
	Spaces    *spaces.FuncSpace `json:"spaces"`
	Functions []FunctionResult  `json:"functions"`
	Cached    bool              `json:"-"`
}

// SpaceCount returns the number of spaces of the file, the unit included.
func (fr FileResult) SpaceCount() int {
	return fr.Cyclomatic.Count()
}

// FileError records a file that could not be analyzed.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Analysis represents the full analysis result.
type Analysis struct {
	Files      []FileResult `json:"files"`
	Summary    Summary      `json:"summary"`
	Violations []Violation  `json:"violations"`
	Errors     []FileError  `json:"errors,omitempty"`
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalFiles     int `json:"total_files"`
	TotalSpaces    int `json:"total_spaces"`
	TotalFunctions int `json:"total_functions"`
	// TotalTypes counts class, struct, trait, impl, interface and
	// namespace spaces.
	TotalTypes int `json:"total_types"`
	MaxDepth   int `json:"max_depth"`
	// Cyclomatic merges the unit summaries of all files.
	Cyclomatic metric.Summary `json:"cyclomatic"`
	// Functions describes the local complexity of every function space.
	Functions      stats.Distribution `json:"functions"`
	ViolationCount int                `json:"violation_count"`
}

// Thresholds defines the limits for complexity violations. A zero limit
// disables its rule.
type Thresholds struct {
	// Cyclomatic limits the local complexity of a single function.
	Cyclomatic float64 `json:"cyclomatic"`
	// CyclomaticAverage limits the average complexity of a file's spaces.
	CyclomaticAverage float64 `json:"cyclomatic_average"`
}

// DefaultThresholds returns sensible defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Cyclomatic:        10,
		CyclomaticAverage: 5,
	}
}

// Severity indicates the severity of a complexity violation.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rule names.
const (
	RuleCyclomatic        = "cyclomatic"
	RuleCyclomaticAverage = "cyclomatic-average"
)

// Violation represents a complexity threshold violation.
type Violation struct {
	Severity  Severity `json:"severity"`
	Rule      string   `json:"rule"`
	Message   string   `json:"message"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
	File      string   `json:"file"`
	Line      int      `json:"line"`
	Function  string   `json:"function,omitempty"`
}

// severityFor escalates to an error at twice the threshold.
func severityFor(value, threshold float64) Severity {
	if value >= 2*threshold {
		return SeverityError
	}
	return SeverityWarning
}
