// Package cyclomatic analyzes files into space trees and aggregates their
// cyclomatic complexity per file and across a project.
package cyclomatic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/panbanda/spaces/internal/cache"
	"github.com/panbanda/spaces/internal/fileproc"
	"github.com/panbanda/spaces/pkg/analyzer"
	"github.com/panbanda/spaces/pkg/config"
	metric "github.com/panbanda/spaces/pkg/metrics/cyclomatic"
	"github.com/panbanda/spaces/pkg/parser"
	"github.com/panbanda/spaces/pkg/source"
	"github.com/panbanda/spaces/pkg/spaces"
	"github.com/panbanda/spaces/pkg/stats"
)

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// ErrLanguageDisabled is returned for files whose language is supported but
// not enabled for the analysis.
var ErrLanguageDisabled = errors.New("language not enabled")

// CacheVersion tags cache entries; bump it when results change shape or
// classification rules change.
const CacheVersion = "cyclomatic/2"

// Analyzer computes cyclomatic complexity over space trees.
type Analyzer struct {
	parser      *parser.Parser
	maxFileSize int64
	workers     int
	cache       *cache.Cache
	logger      *log.Logger
	thresholds  Thresholds
	languages   map[parser.Language]bool
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMaxFileSize sets the maximum file size to analyze (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(a *Analyzer) {
		a.maxFileSize = maxSize
	}
}

// WithWorkers sets how many files are analyzed at once (0 = 2x NumCPU).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// WithCache reuses results for files whose content is unchanged.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithLogger sets the logger for skipped and failed files.
func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithThresholds sets the violation limits.
func WithThresholds(t Thresholds) Option {
	return func(a *Analyzer) {
		a.thresholds = t
	}
}

// WithLanguages restricts analysis to the given languages. No languages
// means all supported languages.
func WithLanguages(langs ...parser.Language) Option {
	return func(a *Analyzer) {
		if len(langs) == 0 {
			a.languages = nil
			return
		}
		a.languages = make(map[parser.Language]bool, len(langs))
		for _, l := range langs {
			a.languages[l] = true
		}
	}
}

// WithConfig applies the analysis and threshold sections of cfg. The
// cache is opened separately since it owns a directory.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		if cfg == nil {
			return
		}
		a.maxFileSize = cfg.Analysis.MaxFileSize
		a.workers = cfg.Analysis.Workers
		a.thresholds = Thresholds{
			Cyclomatic:        cfg.Thresholds.Cyclomatic,
			CyclomaticAverage: cfg.Thresholds.CyclomaticAverage,
		}
		WithLanguages(cfg.Languages()...)(a)
	}
}

// New creates a new cyclomatic analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		parser:     parser.New(),
		logger:     log.New(io.Discard),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Thresholds returns the configured violation limits.
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// AnalyzeFile analyzes a single file from the filesystem.
func (a *Analyzer) AnalyzeFile(path string) (*FileResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fr, err := a.analyzeContent(context.Background(), a.parser, path, content)
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// AnalyzeFileFromSource analyzes a single file read from src.
func (a *Analyzer) AnalyzeFileFromSource(src source.ContentSource, path string) (*FileResult, error) {
	content, err := src.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fr, err := a.analyzeContent(context.Background(), a.parser, path, content)
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

// Analyze analyzes all files in a project using parallel processing.
// Progress is tracked via context using analyzer.WithTracker.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Analysis, error) {
	return a.AnalyzeProjectFromSource(ctx, files, source.NewFilesystem())
}

// AnalyzeProjectFromSource analyzes all files read from src using parallel
// processing. Files that fail are logged and listed in Analysis.Errors; they
// never abort the run. The only error returned is context cancellation.
func (a *Analyzer) AnalyzeProjectFromSource(ctx context.Context, files []string, src source.ContentSource) (*Analysis, error) {
	opts := fileproc.Options{Workers: a.workers, MaxFileSize: a.maxFileSize}
	results, errs := fileproc.MapSourceFiles(ctx, files, src, opts,
		func(psr *parser.Parser, path string, content []byte) (FileResult, error) {
			return a.analyzeContent(ctx, psr, path, content)
		})

	analysis := a.buildAnalysis(results)
	if errs.HasErrors() {
		for _, pe := range errs.Errors {
			a.logFailure(pe)
			analysis.Errors = append(analysis.Errors, FileError{Path: pe.Path, Error: pe.Err.Error()})
		}
		sort.Slice(analysis.Errors, func(i, j int) bool {
			return analysis.Errors[i].Path < analysis.Errors[j].Path
		})
	}

	if err := ctx.Err(); err != nil {
		return analysis, fmt.Errorf("analysis interrupted: %w", err)
	}
	return analysis, nil
}

func (a *Analyzer) logFailure(pe fileproc.ProcessingError) {
	switch {
	case errors.Is(pe.Err, context.Canceled), errors.Is(pe.Err, context.DeadlineExceeded):
		return
	case errors.Is(pe.Err, fileproc.ErrFileTooLarge),
		errors.Is(pe.Err, parser.ErrUnsupportedLanguage),
		errors.Is(pe.Err, ErrLanguageDisabled):
		a.logger.Debug("skipped file", "path", pe.Path, "err", pe.Err)
	default:
		a.logger.Warn("failed to analyze file", "path", pe.Path, "err", pe.Err)
	}
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {
	a.parser.Close()
}

// analyzeContent is shared by the single-file and parallel paths.
func (a *Analyzer) analyzeContent(ctx context.Context, psr *parser.Parser, path string, content []byte) (FileResult, error) {
	lang := parser.DetectLanguage(path)
	if lang == parser.LangUnknown {
		return FileResult{}, fmt.Errorf("%w: %s", parser.ErrUnsupportedLanguage, path)
	}
	if a.languages != nil && !a.languages[lang] {
		return FileResult{}, fmt.Errorf("%w: %s", ErrLanguageDisabled, lang)
	}

	key := cacheKey(path, lang)
	hash := cache.HashBytes(content)
	if fr, ok := a.lookup(key, hash); ok {
		return fr, nil
	}

	result, err := psr.ParseCtx(ctx, content, lang, path)
	if err != nil {
		return FileResult{}, err
	}
	defer result.Close()

	unit := spaces.Build(lang, result.Root(), path)
	fr := newFileResult(path, lang, unit)
	a.store(key, hash, fr)
	return fr, nil
}

// newFileResult derives the file result from a finalized unit space.
func newFileResult(path string, lang parser.Language, unit *spaces.FuncSpace) FileResult {
	fr := FileResult{
		Path:       path,
		Language:   string(lang),
		Cyclomatic: unit.Cyclomatic,
		MaxDepth:   unit.Depth(),
		Spaces:     unit,
		Functions:  make([]FunctionResult, 0),
	}
	for _, e := range unit.Flatten() {
		if e.Space.Kind.IsType() {
			fr.Types++
		}
	}
	for _, e := range unit.Functions() {
		fr.Functions = append(fr.Functions, FunctionResult{
			Name:       e.Path,
			Kind:       e.Space.Kind,
			File:       path,
			StartLine:  e.Space.StartLine,
			EndLine:    e.Space.EndLine,
			Complexity: e.Space.Complexity,
			Cyclomatic: e.Space.Cyclomatic,
		})
	}
	return fr
}

// buildAnalysis aggregates file results. The project summary is a tree
// reduction of the unit summaries.
func (a *Analyzer) buildAnalysis(results []FileResult) *Analysis {
	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	analysis := &Analysis{
		Files:      results,
		Violations: make([]Violation, 0),
	}
	if analysis.Files == nil {
		analysis.Files = make([]FileResult, 0)
	}

	units := make([]metric.Summary, 0, len(results))
	var locals []float64
	for _, fr := range results {
		units = append(units, fr.Cyclomatic)
		analysis.Summary.TotalTypes += fr.Types
		if fr.MaxDepth > analysis.Summary.MaxDepth {
			analysis.Summary.MaxDepth = fr.MaxDepth
		}
		for _, fn := range fr.Functions {
			locals = append(locals, fn.Complexity)
		}
		analysis.Violations = append(analysis.Violations, a.violations(fr)...)
	}

	if project, ok := fileproc.Reduce(units, a.workers, metric.Summary.Merge); ok {
		analysis.Summary.Cyclomatic = project
		analysis.Summary.TotalSpaces = project.Count()
	}
	analysis.Summary.TotalFiles = len(results)
	analysis.Summary.TotalFunctions = len(locals)
	analysis.Summary.Functions = stats.Describe(locals)
	analysis.Summary.ViolationCount = len(analysis.Violations)
	return analysis
}

// violations checks one file against the thresholds.
func (a *Analyzer) violations(fr FileResult) []Violation {
	var out []Violation

	if limit := a.thresholds.Cyclomatic; limit > 0 {
		for _, fn := range fr.Functions {
			if fn.Complexity <= limit {
				continue
			}
			out = append(out, Violation{
				Severity:  severityFor(fn.Complexity, limit),
				Rule:      RuleCyclomatic,
				Message:   fmt.Sprintf("%s has cyclomatic complexity %g (limit %g)", fn.Name, fn.Complexity, limit),
				Value:     fn.Complexity,
				Threshold: limit,
				File:      fr.Path,
				Line:      fn.StartLine,
				Function:  fn.Name,
			})
		}
	}

	if limit := a.thresholds.CyclomaticAverage; limit > 0 {
		if avg := fr.Cyclomatic.Average(); avg > limit {
			out = append(out, Violation{
				Severity:  severityFor(avg, limit),
				Rule:      RuleCyclomaticAverage,
				Message:   fmt.Sprintf("average cyclomatic complexity %.2f over %d spaces (limit %g)", avg, fr.Cyclomatic.Count(), limit),
				Value:     avg,
				Threshold: limit,
				File:      fr.Path,
				Line:      1,
			})
		}
	}
	return out
}
