package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docsmcp/internal/config"
	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/telemetry"
	"github.com/Aman-CERP/docsmcp/pkg/version"
)

// Server is the MCP server for docsmcp. It exposes the documentation router
// to AI clients as tools and per-corpus resources.
type Server struct {
	mcp    *mcp.Server
	router *search.Router
	config *config.Config
	logger *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ResourceInfo contains information about a resource.
type ResourceInfo struct {
	URI      string
	Name     string
	MIMEType string
}

var tools = []ToolInfo{
	{
		Name: ToolSearchDocs,
		Description: "Search the Cedar-OS and Mastra documentation. Returns ranked sections with headings, " +
			"line citations and a prompt describing how to answer. The domain is picked from the query " +
			"unless given; use domain \"all\" to search every corpus. Answer only from the returned sections. " +
			"If not found, say 'not in docs'.",
	},
	{
		Name: ToolSearchMastraDocs,
		Description: "Search the Mastra backend documentation: agents, workflows, tools, memory, MCP integration, " +
			"authentication and deployment. Returns ranked sections with source URLs. " +
			"If not found, say 'not in docs'.",
	},
}

// NewServer creates a new MCP server over router. A nil cfg uses the
// built-in defaults.
func NewServer(router *search.Router, cfg *config.Config) (*Server, error) {
	if router == nil {
		return nil, errors.New("search router is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		router: router,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools/resources
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetMetrics sets the query metrics collector and registers the
// query_metrics resource.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return version.Name, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo{}, tools...)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[0].Name,
		Description: tools[0].Description,
	}, s.searchDocsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        tools[1].Name,
		Description: tools[1].Description,
	}, s.searchMastraDocsHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

// searchDocsHandler is the MCP SDK handler for the searchDocs tool.
func (s *Server) searchDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.runSearch(ctx, ToolSearchDocs, input.Domain, input.Query, input.Limit, input.KeywordOnly)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, out, nil
}

// searchMastraDocsHandler is the MCP SDK handler for the searchMastraDocs
// tool. It always searches the mastra domain.
func (s *Server) searchMastraDocsHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchMastraDocsInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.runSearch(ctx, ToolSearchMastraDocs, "mastra", input.Query, input.Limit, input.KeywordOnly)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if len(out.Results) == 0 {
		out.Suggestion = mastraSuggestion
	}
	return nil, out, nil
}

// Search runs a query outside of an MCP session, producing the same output
// as the searchDocs tool. domain is "auto", "all" or a corpus name.
func (s *Server) Search(ctx context.Context, domain, query string, limit int, keywordOnly bool) (SearchOutput, error) {
	return s.runSearch(ctx, "cli", domain, query, limit, keywordOnly)
}

func (s *Server) runSearch(ctx context.Context, tool, domain, query string, limit int, keywordOnly bool) (SearchOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	query = strings.TrimSpace(query)
	if query == "" {
		return SearchOutput{}, MapError(docserrors.New(docserrors.ErrCodeQueryEmpty,
			"query parameter is required and must not be blank", nil))
	}

	opts := search.SearchOptions{
		Limit:       clampLimit(limit, s.defaultLimit(), MinLimit, s.maxLimit()),
		KeywordOnly: keywordOnly,
	}

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("tool", tool),
		slog.String("domain", domain),
		slog.String("query", query),
		slog.Int("limit", opts.Limit))

	var (
		out SearchOutput
		err error
	)
	if domain == DomainAll {
		out, err = s.searchAll(ctx, query, opts)
	} else {
		out, err = s.searchDomain(ctx, domain, query, opts)
	}
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.String("tool", tool),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	if len(out.Results) == 0 {
		out.Note = NotFoundNote
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.String("tool", tool),
		slog.String("domain", out.Domain),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(out.Results)))

	s.record(telemetry.QueryEvent{
		Query:       query,
		Domain:      out.Domain,
		Origin:      primaryOrigin(out.Results),
		ResultCount: len(out.Results),
		Latency:     duration,
		Timestamp:   start,
	})

	return out, nil
}

func (s *Server) searchDomain(ctx context.Context, domain, query string, opts search.SearchOptions) (SearchOutput, error) {
	results, resolved, err := s.router.Search(ctx, domain, query, opts)
	if err != nil {
		return SearchOutput{}, err
	}
	return SearchOutput{
		Prompt:  promptFor(resolved, s.corpusTitle(resolved), query),
		Domain:  resolved,
		Results: toResultOutputs(resolved, results),
	}, nil
}

func (s *Server) searchAll(ctx context.Context, query string, opts search.SearchOptions) (SearchOutput, error) {
	perDomain, err := s.router.SearchAll(ctx, query, opts)
	if err != nil {
		return SearchOutput{}, err
	}
	return SearchOutput{
		Prompt:  promptFor(DomainAll, "", query),
		Domain:  DomainAll,
		Results: mergeResults(s.router.Domains(), perDomain, opts.Limit),
	}, nil
}

func (s *Server) record(ev telemetry.QueryEvent) {
	s.mu.RLock()
	m := s.metrics
	s.mu.RUnlock()
	if m != nil {
		m.Record(ev)
	}
}

func (s *Server) corpusTitle(domain string) string {
	if cc := s.config.Corpus(domain); cc != nil {
		return cc.Title
	}
	return ""
}

func (s *Server) defaultLimit() int {
	if s.config.Search.DefaultLimit > 0 {
		return s.config.Search.DefaultLimit
	}
	return DefaultLimit
}

func (s *Server) maxLimit() int {
	if s.config.Search.MaxLimit > 0 {
		return s.config.Search.MaxLimit
	}
	return MaxLimit
}

// Serve runs the server on the given transport until ctx is canceled.
// Only stdio is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
