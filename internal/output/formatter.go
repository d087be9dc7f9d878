package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	toon "github.com/toon-format/toon-go"

	"github.com/panbanda/spaces/pkg/analyzer/cyclomatic"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// Formats lists every supported format in flag order.
var Formats = []Format{FormatText, FormatJSON, FormatMarkdown, FormatTOON}

// ParseFormat converts a flag value to a Format. Anything unrecognized is
// text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// serialized reports whether the format is a data encoding rather than a
// human rendering.
func (f Format) serialized() bool {
	return f == FormatJSON || f == FormatTOON
}

// Renderable is a report value that knows its human renderings. JSON and
// TOON encode RenderData instead.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	RenderData() any
}

// Formatter writes reports in one format to stdout, a file or a caller
// supplied writer.
type Formatter struct {
	format  Format
	w       io.Writer
	closer  io.Closer
	colored bool
}

// NewFormatter writes to path, or to stdout when path is empty. Reports
// written to a file are never colored.
func NewFormatter(format Format, path string, colored bool) (*Formatter, error) {
	if path == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report %s: %w", path, err)
	}
	return &Formatter{format: format, w: f, closer: f}, nil
}

// NewWriterFormatter writes to w. The caller owns w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Close closes the report file, if the formatter opened one.
func (f *Formatter) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Output writes data in the configured format. Plain values have no text
// rendering and fall back to indented JSON.
func (f *Formatter) Output(data any) error {
	r, ok := data.(Renderable)
	switch {
	case f.format.serialized() && ok:
		return f.encode(r.RenderData())
	case f.format.serialized():
		return f.encode(data)
	case !ok && f.format == FormatMarkdown:
		if _, err := fmt.Fprintln(f.w, "```json"); err != nil {
			return err
		}
		if err := f.encode(data); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.w, "```")
		return err
	case !ok:
		return f.encode(data)
	case f.format == FormatMarkdown:
		return r.RenderMarkdown(f.w)
	default:
		return r.RenderText(f.w, f.colored)
	}
}

// encode writes data as TOON for FormatTOON and as indented JSON otherwise.
// TOON reads the same struct tags, so both encodings share one schema.
func (f *Formatter) encode(data any) error {
	if f.format != FormatTOON {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return fmt.Errorf("encode toon: %w", err)
	}
	out = append(out, '\n')
	_, err = f.w.Write(out)
	return err
}

// heading writes a title underlined with rule.
func heading(w io.Writer, title, rule string, colored bool, attrs ...color.Attribute) {
	if colored {
		color.New(append([]color.Attribute{color.Bold}, attrs...)...).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat(rule, len(title)))
}

// Table is a titled table. Columns whose cells are all numbers are right
// aligned in text and markdown.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  []string
	// Data replaces the rows in JSON and TOON output when set.
	Data any
}

// NewTable creates a table. data may be nil.
func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{Title: title, Headers: headers, Rows: rows, Footer: footer, Data: data}
}

// RenderData returns Data, or one header-keyed map per row.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	out := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]string, len(row))
		for j, h := range t.Headers {
			if j < len(row) {
				m[h] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// numeric reports, per column, whether every non-empty row cell parses as a
// number. Empty columns are not numeric.
func (t *Table) numeric() []bool {
	cols := make([]bool, len(t.Headers))
	for j := range cols {
		seen := false
		cols[j] = true
		for _, row := range t.Rows {
			if j >= len(row) || row[j] == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(row[j], 64); err != nil {
				cols[j] = false
				break
			}
		}
		cols[j] = cols[j] && seen
	}
	return cols
}

func (t *Table) alignment() tw.CellAlignment {
	numeric := t.numeric()
	per := make([]tw.Align, len(numeric))
	for i, n := range numeric {
		per[i] = tw.AlignLeft
		if n {
			per[i] = tw.AlignRight
		}
	}
	return tw.CellAlignment{Global: tw.AlignLeft, PerColumn: per}
}

func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		heading(w, t.Title, "=", colored)
		fmt.Fprintln(w)
	}

	align := t.alignment()
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  align,
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row:    tw.CellConfig{Alignment: align},
			Footer: tw.CellConfig{Alignment: align},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
			},
		}),
	)

	table.Header(t.Headers)
	if err := table.Bulk(t.Rows); err != nil {
		return fmt.Errorf("table %q: %w", t.Title, err)
	}
	if len(t.Footer) > 0 {
		footer := make([]any, len(t.Footer))
		for i, cell := range t.Footer {
			footer[i] = cell
		}
		table.Footer(footer...)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("table %q: %w", t.Title, err)
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}

	rule := make([]string, len(t.Headers))
	for i, n := range t.numeric() {
		rule[i] = "---"
		if n {
			rule[i] = "---:"
		}
	}
	mdRow(w, t.Headers)
	mdRow(w, rule)
	for _, row := range t.Rows {
		mdRow(w, row)
	}
	if len(t.Footer) > 0 {
		mdRow(w, t.Footer)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// mdRow writes one pipe table row. Pipes inside cells are escaped, since
// closure parameters and messages may contain them.
func mdRow(w io.Writer, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
}

// Section is a titled block of text with optional subsections.
type Section struct {
	Title    string    `json:"title,omitempty"`
	Content  string    `json:"content,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Data     any       `json:"data,omitempty"`
}

func (s *Section) RenderData() any {
	if s.Data != nil {
		return s.Data
	}
	return s
}

func (s *Section) RenderText(w io.Writer, colored bool) error {
	s.text(w, colored, "=")
	return nil
}

func (s *Section) text(w io.Writer, colored bool, rule string) {
	if s.Title != "" {
		heading(w, s.Title, rule, colored)
	}
	if s.Content != "" {
		fmt.Fprintln(w, s.Content)
	}
	for i := range s.Sections {
		fmt.Fprintln(w)
		s.Sections[i].text(w, colored, "-")
	}
}

func (s *Section) RenderMarkdown(w io.Writer) error {
	s.markdown(w, 2)
	return nil
}

func (s *Section) markdown(w io.Writer, level int) {
	if s.Title != "" {
		fmt.Fprintf(w, "%s %s\n\n", strings.Repeat("#", level), s.Title)
	}
	if s.Content != "" {
		fmt.Fprintf(w, "%s\n\n", s.Content)
	}
	for i := range s.Sections {
		s.Sections[i].markdown(w, level+1)
	}
}

// Report is a titled sequence of sections and tables. Data, when set, is
// what JSON and TOON encode.
type Report struct {
	Title    string       `json:"title,omitempty"`
	Sections []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	parts := make([]any, len(r.Sections))
	for i, s := range r.Sections {
		parts[i] = s.RenderData()
	}
	return map[string]any{"title": r.Title, "sections": parts}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	if r.Title != "" {
		heading(w, r.Title, "=", colored, color.FgCyan)
		fmt.Fprintln(w)
	}
	for i, s := range r.Sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := s.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", r.Title)
	}
	for _, s := range r.Sections {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// SeverityLabel returns the severity name, red for errors and yellow for
// warnings.
func SeverityLabel(s cyclomatic.Severity) string {
	switch s {
	case cyclomatic.SeverityError:
		return color.RedString(string(s))
	case cyclomatic.SeverityWarning:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}
