package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/spaces/internal/cache"
	"github.com/panbanda/spaces/internal/output"
	"github.com/panbanda/spaces/internal/progress"
	"github.com/panbanda/spaces/internal/scanner"
	"github.com/panbanda/spaces/pkg/analyzer"
	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
	"github.com/panbanda/spaces/pkg/config"
	"github.com/panbanda/spaces/pkg/source"
)

// errViolations is returned by --fail-on-violation when the analysis found
// error-severity violations.
var errViolations = errors.New("complexity violations found")

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon (default from config)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

func cyclomaticCmd() *cli.Command {
	return &cli.Command{
		Name:      "cyclomatic",
		Aliases:   []string{"cc"},
		Usage:     "Report hierarchical cyclomatic complexity",
		ArgsUsage: "[path...]",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Analyze the files of a git commit, branch or tag instead of the working tree",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Files analyzed at once (default 2x CPUs)",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Local complexity limit per function (default from config)",
			},
			&cli.Float64Flag{
				Name:  "average-threshold",
				Usage: "Average complexity limit per file (default from config)",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: output.DefaultTopFunctions,
				Usage: "Functions listed in text and markdown output",
			},
			&cli.BoolFlag{
				Name:  "fail-on-violation",
				Usage: "Exit non-zero when an error-severity violation is found",
			},
		),
		Action: runCyclomaticCmd,
	}
}

// cyclomaticParams holds the parsed flags for the cyclomatic command.
type cyclomaticParams struct {
	paths            []string
	cfg              *config.Config
	format           output.Format
	outputPath       string
	colored          bool
	ref              string
	noCache          bool
	workers          int
	threshold        float64
	averageThreshold float64
	top              int
	failOnViolation  bool
	showProgress     bool
	logger           *log.Logger
	stdout           io.Writer
}

func runCyclomaticCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	verbose := c.Bool("verbose") || cfg.Output.Verbose
	format := output.ParseFormat(formatOrDefault(c, cfg))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCyclomatic(ctx, cyclomaticParams{
		paths:            getPaths(c),
		cfg:              cfg,
		format:           format,
		outputPath:       c.String("output"),
		colored:          cfg.Output.Color && !c.Bool("no-color"),
		ref:              c.String("ref"),
		noCache:          c.Bool("no-cache"),
		workers:          c.Int("workers"),
		threshold:        c.Float64("threshold"),
		averageThreshold: c.Float64("average-threshold"),
		top:              c.Int("top"),
		failOnViolation:  c.Bool("fail-on-violation"),
		showProgress:     format == output.FormatText && !verbose,
		logger:           newLogger(verbose),
	})
}

func formatOrDefault(c *cli.Context, cfg *config.Config) string {
	if f := c.String("format"); f != "" {
		return f
	}
	return cfg.Output.Format
}

// runCyclomatic is the testable body of the cyclomatic command.
func runCyclomatic(ctx context.Context, p cyclomaticParams) error {
	if p.cfg == nil {
		p.cfg = config.DefaultConfig()
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}

	files, src, err := resolveFiles(p)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}

	opts := []cyclomatic.Option{
		cyclomatic.WithConfig(p.cfg),
		cyclomatic.WithLogger(p.logger),
	}
	if p.workers > 0 {
		opts = append(opts, cyclomatic.WithWorkers(p.workers))
	}
	thresholds := cyclomatic.Thresholds{
		Cyclomatic:        p.cfg.Thresholds.Cyclomatic,
		CyclomaticAverage: p.cfg.Thresholds.CyclomaticAverage,
	}
	if p.threshold > 0 {
		thresholds.Cyclomatic = p.threshold
	}
	if p.averageThreshold > 0 {
		thresholds.CyclomaticAverage = p.averageThreshold
	}
	opts = append(opts, cyclomatic.WithThresholds(thresholds))

	if c := openCache(p); c != nil {
		opts = append(opts, cyclomatic.WithCache(c))
	}

	a := cyclomatic.New(opts...)
	defer a.Close()

	var bar *progress.Tracker
	if p.showProgress {
		bar = progress.NewTracker("Analyzing cyclomatic complexity...", len(files))
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(bar.Report))
	}
	analysis, err := a.AnalyzeProjectFromSource(ctx, files, src)
	if bar != nil {
		if err != nil {
			bar.FinishError(err)
		} else {
			bar.FinishSuccess()
		}
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	formatter, err := newFormatter(p)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(output.NewCyclomaticReport(analysis, p.top)); err != nil {
		return err
	}

	if p.failOnViolation {
		for _, v := range analysis.Violations {
			if v.Severity == cyclomatic.SeverityError {
				return cli.Exit(errViolations.Error(), 2)
			}
		}
	}
	return nil
}

func newFormatter(p cyclomaticParams) (*output.Formatter, error) {
	if p.stdout != nil && p.outputPath == "" {
		return output.NewWriterFormatter(p.format, p.stdout, p.colored), nil
	}
	return output.NewFormatter(p.format, p.outputPath, p.colored)
}

// resolveFiles lists the files to analyze and the source they are read
// from: the working tree, or the tree of p.ref.
func resolveFiles(p cyclomaticParams) ([]string, source.ContentSource, error) {
	sc := scanner.NewScanner(p.cfg)
	if p.ref == "" {
		files, err := sc.Scan(p.paths...)
		if err != nil {
			return nil, nil, err
		}
		return files, source.NewFilesystem(), nil
	}

	tree, err := source.OpenRevision(p.paths[0], p.ref)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Debug("analyzing revision", "ref", p.ref, "commit", tree.Revision())

	prefixes := revisionPrefixes(p.paths)
	files, err := tree.Files(func(path string) bool {
		if !sc.Accept(path) {
			return false
		}
		if len(prefixes) == 0 {
			return true
		}
		for _, prefix := range prefixes {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, nil, err
	}
	return files, tree, nil
}

// revisionPrefixes turns path arguments into repository-relative prefixes.
// The first argument locates the repository, so "." alone selects every
// file.
func revisionPrefixes(paths []string) []string {
	var prefixes []string
	for _, p := range paths {
		clean := filepath.ToSlash(filepath.Clean(p))
		if clean == "." || filepath.IsAbs(p) {
			continue
		}
		prefixes = append(prefixes, strings.TrimPrefix(clean, "./"))
	}
	return prefixes
}

func openCache(p cyclomaticParams) *cache.Cache {
	if p.noCache || !p.cfg.Cache.Enabled {
		return nil
	}
	c, err := cache.New(p.cfg.Cache.Dir, p.cfg.Cache.TTLDuration(), cyclomatic.CacheVersion)
	if err != nil {
		p.logger.Warn("cache disabled", "err", err)
		return nil
	}
	return c
}

func treeCmd() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Print the space tree of a file",
		ArgsUsage: "<file>",
		Flags:     outputFlags(),
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("tree takes exactly one file")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return runTree(treeParams{
				path:       c.Args().First(),
				cfg:        cfg,
				format:     output.ParseFormat(formatOrDefault(c, cfg)),
				outputPath: c.String("output"),
				colored:    cfg.Output.Color && !c.Bool("no-color"),
			})
		},
	}
}

type treeParams struct {
	path       string
	cfg        *config.Config
	format     output.Format
	outputPath string
	colored    bool
	stdout     io.Writer
}

// runTree analyzes one file and prints its space tree.
func runTree(p treeParams) error {
	a := cyclomatic.New(cyclomatic.WithConfig(p.cfg))
	defer a.Close()

	fr, err := a.AnalyzeFile(p.path)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(cyclomaticParams{
		format:     p.format,
		outputPath: p.outputPath,
		colored:    p.colored,
		stdout:     p.stdout,
	})
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.NewSpaceTree(p.path, fr.Spaces))
}
