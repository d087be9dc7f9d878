package mcpserver

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/spaces/pkg/config"
)

// Server wraps the MCP server and registers the spaces tools and prompts.
type Server struct {
	server *mcp.Server
	config *config.Config
	logger *log.Logger
}

// NewServer creates a new MCP server. A nil config uses the defaults and a
// nil logger discards output; stdout belongs to the transport.
func NewServer(version string, cfg *config.Config, logger *log.Logger) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "spaces",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, config: cfg, logger: logger}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcp.StdioTransport{})
}

// RunWithTransport serves a single session on t until it ends or ctx is
// done.
func (s *Server) RunWithTransport(ctx context.Context, t mcp.Transport) error {
	return s.server.Run(ctx, t)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_cyclomatic",
		Description: describeCyclomatic(),
	}, s.handleAnalyzeCyclomatic)
}
