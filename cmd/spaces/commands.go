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
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/spaces/internal/mcpserver"
	"github.com/panbanda/spaces/internal/output"
	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
	"github.com/panbanda/spaces/pkg/config"
	metric "github.com/panbanda/spaces/pkg/metrics/cyclomatic"
	"github.com/panbanda/spaces/pkg/watch"
)

func schemaCmd() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON Schema of the cyclomatic JSON report",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintln(c.App.Writer, output.Schema)
			return err
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new spaces configuration file",
		Description: `Creates a spaces.toml configuration file with the default settings.

Examples:
  spaces init                        # Creates spaces.toml in current directory
  spaces init -o .spaces/spaces.toml # Creates config in .spaces directory
  spaces init --force                # Overwrite existing config file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "spaces.toml",
				Usage:   "Output file path",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: func(c *cli.Context) error {
			return runInit(c.String("output"), c.Bool("force"), c.App.Writer)
		},
	}
}

func runInit(outputPath string, force bool, w io.Writer) error {
	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}
	if err := config.DefaultConfig().WriteFile(outputPath, force); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
		}
		return err
	}

	color.Green("Created %s", outputPath)
	fmt.Fprintln(w, "Edit this file to customize analysis settings.")
	return nil
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for file changes and re-analyze them",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a file must be unchanged before it is analyzed",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c.Bool("verbose") || cfg.Output.Verbose)

	absPath, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := watch.NewWatcher(absPath, cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.SetLogger(logger)

	a := cyclomatic.New(cyclomatic.WithConfig(cfg), cyclomatic.WithLogger(logger))
	defer a.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher.SetCallback(func(paths []string) {
		reportChanges(ctx, a, absPath, paths, c.App.Writer)
	})

	color.Cyan("Watching for changes in %s...", absPath)
	color.Cyan("Press Ctrl+C to stop")
	fmt.Fprintln(c.App.Writer)

	if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// reportChanges analyzes changed files and prints one line per file, a
// combined line when several files changed, and any violations.
func reportChanges(ctx context.Context, a *cyclomatic.Analyzer, root string, paths []string, w io.Writer) {
	analysis, err := a.Analyze(ctx, paths)
	if err != nil {
		return
	}

	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w, color.YellowString("%s: %d file(s) changed", time.Now().Format(time.TimeOnly), len(paths)))
	units := make([]metric.Summary, 0, len(analysis.Files))
	for _, fr := range analysis.Files {
		rel, err := filepath.Rel(root, fr.Path)
		if err != nil {
			rel = fr.Path
		}
		fmt.Fprintf(w, "%s  %d spaces  %s\n", rel, fr.SpaceCount(), fr.Cyclomatic)
		units = append(units, fr.Cyclomatic)
	}
	if total, ok := metric.MergeAll(units); ok && len(units) > 1 {
		fmt.Fprintf(w, "changed files  %d spaces  %s\n", total.Count(), total)
	}
	for _, v := range analysis.Violations {
		fmt.Fprintf(w, "  %s %s:%d %s\n", output.SeverityLabel(v.Severity), v.File, v.Line, v.Message)
	}
	for _, e := range analysis.Errors {
		fmt.Fprintln(w, color.RedString("  %s: %s", e.Path, e.Error))
	}
	fmt.Fprintln(w)
}

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes the cyclomatic
analyzer as a tool that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "spaces": {
        "command": "spaces",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_cyclomatic    Hierarchical cyclomatic complexity per space`,
		Subcommands: []*cli.Command{
			{
				Name:  "manifest",
				Usage: "Print the MCP registry manifest (server.json)",
				Action: func(c *cli.Context) error {
					data, err := mcpserver.GenerateManifest(version)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.App.Writer, string(data))
					return err
				},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			// stdout is the transport; logs go to stderr only.
			server := mcpserver.NewServer(version, cfg, newLogger(c.Bool("verbose")))
			return server.Run(c.Context)
		},
	}
}
