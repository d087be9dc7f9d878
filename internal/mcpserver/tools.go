package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"

	"github.com/panbanda/spaces/internal/output"
	"github.com/panbanda/spaces/internal/scanner"
	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
)

// AnalyzeInput is the base input for analyze tools.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Paths to analyze. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// CyclomaticInput adds cyclomatic-specific options.
type CyclomaticInput struct {
	AnalyzeInput
	Threshold        float64 `json:"threshold,omitempty" jsonschema:"Local complexity limit per function. Defaults to the configured value (10)."`
	AverageThreshold float64 `json:"average_threshold,omitempty" jsonschema:"Average complexity limit per file. Defaults to the configured value (5)."`
	IncludeSpaces    bool    `json:"include_spaces,omitempty" jsonschema:"Include the full space tree of every file."`
	FunctionsOnly    bool    `json:"functions_only,omitempty" jsonschema:"Return only the function list and summary, omit per-file records."`
	Top              int     `json:"top,omitempty" jsonschema:"Functions listed in markdown output. Default 20."`
}

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		if r, ok := data.(output.Renderable); ok {
			var buf bytes.Buffer
			if err := r.RenderMarkdown(&buf); err != nil {
				return "", err
			}
			return buf.String(), nil
		}
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return "```\n" + string(out) + "\n```", nil
	default:
		if r, ok := data.(output.Renderable); ok {
			data = r.RenderData()
		}
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// functionsOnly is the reduced payload for functions_only.
type functionsOnly struct {
	Functions  []output.FunctionView    `json:"functions" toon:"functions"`
	Summary    output.SummaryReportView `json:"summary" toon:"summary"`
	Violations []output.ViolationView   `json:"violations" toon:"violations"`
}

func (s *Server) handleAnalyzeCyclomatic(ctx context.Context, req *mcp.CallToolRequest, input CyclomaticInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.AnalyzeInput)
	format := getFormat(input.AnalyzeInput)

	files, err := scanner.NewScanner(s.config).Scan(paths...)
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no source files found")
	}

	thresholds := cyclomatic.Thresholds{
		Cyclomatic:        s.config.Thresholds.Cyclomatic,
		CyclomaticAverage: s.config.Thresholds.CyclomaticAverage,
	}
	if input.Threshold > 0 {
		thresholds.Cyclomatic = input.Threshold
	}
	if input.AverageThreshold > 0 {
		thresholds.CyclomaticAverage = input.AverageThreshold
	}

	a := cyclomatic.New(
		cyclomatic.WithConfig(s.config),
		cyclomatic.WithThresholds(thresholds),
		cyclomatic.WithLogger(s.logger),
	)
	defer a.Close()

	analysis, err := a.Analyze(ctx, files)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		return toolError(err.Error())
	}

	if format == output.FormatMarkdown {
		return toolResult(output.NewCyclomaticReport(analysis, input.Top), format)
	}

	view := output.NewAnalysisView(analysis)
	if input.FunctionsOnly {
		out := functionsOnly{Summary: view.Summary, Violations: view.Violations}
		for _, f := range view.Files {
			out.Functions = append(out.Functions, f.Functions...)
		}
		return toolResult(out, format)
	}
	if !input.IncludeSpaces {
		for i := range view.Files {
			view.Files[i].Spaces = nil
		}
	}
	return toolResult(view, format)
}
