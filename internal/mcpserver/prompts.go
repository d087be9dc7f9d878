package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/spaces/pkg/config"
)

//go:embed prompts/*.md
var promptFiles embed.FS

var errNoFrontmatter = errors.New("missing frontmatter")

// promptArgument declares one argument a client may pass to a prompt.
type promptArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	// Default is used when the client leaves the argument empty.
	Default string `yaml:"default"`
}

type promptMeta struct {
	Description string           `yaml:"description"`
	Arguments   []promptArgument `yaml:"arguments"`
}

// promptData is what prompt bodies are executed against. Arguments are
// reached as {{.Args.name}}, configured limits as {{.Thresholds.Cyclomatic}}.
type promptData struct {
	Args       map[string]string
	Thresholds config.ThresholdConfig
}

// registerPrompts registers every prompts/*.md file as a prompt named
// after the file. Files with broken frontmatter or templates are skipped.
func (s *Server) registerPrompts() {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		s.logger.Warn("no prompts", "err", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")

		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			s.logger.Warn("skipping prompt", "name", name, "err", err)
			continue
		}
		meta, body, err := parseFrontmatter(content)
		if err != nil {
			s.logger.Warn("skipping prompt", "name", name, "err", err)
			continue
		}
		tmpl, err := template.New(name).Option("missingkey=zero").Parse(body)
		if err != nil {
			s.logger.Warn("skipping prompt", "name", name, "err", err)
			continue
		}

		prompt := &mcp.Prompt{Name: name, Description: meta.Description}
		for _, a := range meta.Arguments {
			prompt.Arguments = append(prompt.Arguments, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.server.AddPrompt(prompt, s.promptHandler(meta, tmpl))
	}
}

// parseFrontmatter splits a prompt file into its YAML frontmatter and the
// template body.
func parseFrontmatter(content []byte) (promptMeta, string, error) {
	var meta promptMeta
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return meta, "", errNoFrontmatter
	}
	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return meta, "", errNoFrontmatter
	}
	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, "", fmt.Errorf("frontmatter: %w", err)
	}
	for _, a := range meta.Arguments {
		if a.Name == "" {
			return meta, "", errors.New("frontmatter: argument without a name")
		}
	}
	return meta, strings.TrimPrefix(string(rest[end+5:]), "\n"), nil
}

// promptArgs resolves the client's arguments against the declared ones.
// Undeclared arguments are dropped.
func promptArgs(meta promptMeta, given map[string]string) (map[string]string, error) {
	args := make(map[string]string, len(meta.Arguments))
	var missing []string
	for _, a := range meta.Arguments {
		v := strings.TrimSpace(given[a.Name])
		if v == "" {
			v = a.Default
		}
		if v == "" && a.Required {
			missing = append(missing, a.Name)
		}
		args[a.Name] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required argument(s): %s", strings.Join(missing, ", "))
	}
	return args, nil
}

func (s *Server) promptHandler(meta promptMeta, tmpl *template.Template) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		var given map[string]string
		if req != nil && req.Params != nil {
			given = req.Params.Arguments
		}
		args, err := promptArgs(meta, given)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", tmpl.Name(), err)
		}

		var text bytes.Buffer
		if err := tmpl.Execute(&text, promptData{Args: args, Thresholds: s.config.Thresholds}); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", tmpl.Name(), err)
		}
		return &mcp.GetPromptResult{
			Description: meta.Description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: text.String()}},
			},
		}, nil
	}
}
