package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	"github.com/Aman-CERP/docsmcp/internal/config"
	docsmcp "github.com/Aman-CERP/docsmcp/internal/mcp"
	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/watcher"
)

// Integration Tests - these load corpora from disk through config, serve
// them over MCP and reload them on change, to verify the packages work
// together.

const cedarDoc = `# Voice Setup
Enable voice input for the chat.

# Theming
Customize colors and fonts.
`

const mastraDoc = `Source: https://mastra.ai/en/docs/agents/overview
[EN] Source: https://mastra.ai/en/docs/agents/overview
# Agents Overview
Agents use LLMs and tools.
Source: https://mastra.ai/en/docs/workflows/overview
[EN] Source: https://mastra.ai/en/docs/workflows/overview
# Workflows
Workflow steps call an agent.
`

// loadConfig writes both corpora under a temp dir and loads configuration
// for it with the environment isolated.
func loadConfig(t *testing.T, projectYAML string) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()

	cedarDir := filepath.Join(dir, "cedar")
	require.NoError(t, os.MkdirAll(cedarDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cedarDir, "voice.md"), []byte(cedarDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mastra.txt"), []byte(mastraDoc), 0o644))

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, k := range []string{"DOCSMCP_DEFAULT_DOMAIN", "DOCSMCP_SEMANTIC_DSN", "DOCSMCP_SEMANTIC_ENABLED",
		"SUPABASE_URL", "SUPABASE_KEY", "OPENAI_API_KEY", "CEDAR_DOCS_PATH", "MASTRA_DOCS_PATH"} {
		t.Setenv(k, "")
	}

	yaml := "corpora:\n  - name: cedar\n    path: cedar\n  - name: mastra\n    path: mastra.txt\n" + projectYAML
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsmcp.yaml"), []byte(yaml), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	return cfg, dir
}

func corpusOf(t *testing.T, cc config.CorpusConfig) search.Corpus {
	t.Helper()
	dialect, err := chunk.ParseDialect(cc.Dialect)
	require.NoError(t, err)
	return search.Corpus{
		Name:       cc.Name,
		Title:      cc.Title,
		Path:       cc.Path,
		Dialect:    dialect,
		Provenance: chunk.ProvenanceOptions{SourceMarker: cc.SourceMarker, SectionMarker: cc.SectionMarker},
		Extensions: cc.Extensions,
		Scorer: search.ScorerConfig{
			HeadingWeight: cc.HeadingWeight,
			SalientTokens: cc.SalientTokens,
			SalientWeight: cc.SalientWeight,
		},
		ShortTokens:     cc.ShortTokens,
		SectionPattern:  cc.SectionPattern,
		ContentLimit:    cc.ContentLimit,
		CitationLineCap: cc.CitationLineCap,
	}
}

// newRouter loads every configured corpus.
func newRouter(t *testing.T, cfg *config.Config) *search.Router {
	t.Helper()
	routes := make([]search.Route, 0, len(cfg.Corpora))
	for _, cc := range cfg.Corpora {
		routes = append(routes, search.Route{Domain: cc.Name, Keywords: cc.RouteKeywords})
	}
	router := search.NewRouter(cfg.Router.DefaultDomain, routes...)
	for _, cc := range cfg.Corpora {
		_, err := router.Swap(cc.Name, search.Load(context.Background(), corpusOf(t, cc)))
		require.NoError(t, err)
	}
	return router
}

func connect(t *testing.T, srv *docsmcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "integration", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callSearch(t *testing.T, cs *mcp.ClientSession, tool string, args map[string]any) docsmcp.SearchOutput {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tool, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError)

	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out docsmcp.SearchOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestIntegration_LoadAndSearchOverMCP(t *testing.T) {
	// Given: both corpora loaded from disk behind an MCP server
	cfg, _ := loadConfig(t, "")
	srv, err := docsmcp.NewServer(newRouter(t, cfg), cfg)
	require.NoError(t, err)
	cs := connect(t, srv)

	tests := []struct {
		name        string
		tool        string
		args        map[string]any
		wantDomain  string
		wantHeading string
		wantURL     string
	}{
		{
			name:        "auto routes voice to cedar",
			tool:        docsmcp.ToolSearchDocs,
			args:        map[string]any{"query": "voice input"},
			wantDomain:  "cedar",
			wantHeading: "Voice Setup",
		},
		{
			name:        "auto routes workflow to mastra",
			tool:        docsmcp.ToolSearchDocs,
			args:        map[string]any{"query": "workflow steps"},
			wantDomain:  "mastra",
			wantHeading: "Workflows",
			wantURL:     "https://mastra.ai/en/docs/workflows/overview",
		},
		{
			name:        "mastra tool is pinned",
			tool:        docsmcp.ToolSearchMastraDocs,
			args:        map[string]any{"query": "agents"},
			wantDomain:  "mastra",
			wantHeading: "Agents Overview",
			wantURL:     "https://mastra.ai/en/docs/agents/overview",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: the tool is called
			out := callSearch(t, cs, tt.tool, tt.args)

			// Then: the top result comes from the expected corpus
			assert.Equal(t, tt.wantDomain, out.Domain)
			require.NotEmpty(t, out.Results)
			assert.Equal(t, tt.wantHeading, out.Results[0].Heading)
			assert.Equal(t, tt.wantURL, out.Results[0].URL)
			assert.Equal(t, search.OriginKeyword, out.Results[0].Origin)
		})
	}
}

func TestIntegration_CitationPointsAtSourceLines(t *testing.T) {
	// Given: the cedar corpus
	cfg, dir := loadConfig(t, "")
	router := newRouter(t, cfg)

	// When: searching a token on a known line
	results, _, err := router.Search(context.Background(), "cedar", "colors", search.SearchOptions{Limit: 1})

	// Then: the citation names the file and line
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Citation)
	assert.Equal(t, filepath.Join(dir, "cedar", "voice.md"), results[0].Citation.Source)
	assert.Equal(t, []int{5}, results[0].Citation.TokenLines["colors"])
}

func TestIntegration_EmptyCorpus_ReturnsNotInDocs(t *testing.T) {
	// Given: cedar pointing at a missing directory
	cfg, _ := loadConfig(t, "")
	cfg.Corpus("cedar").Path = filepath.Join(t.TempDir(), "missing")
	srv, err := docsmcp.NewServer(newRouter(t, cfg), cfg)
	require.NoError(t, err)
	cs := connect(t, srv)

	// When: searching it
	out := callSearch(t, cs, docsmcp.ToolSearchDocs, map[string]any{"query": "voice", "domain": "cedar"})

	// Then: nothing is found and the note says so
	assert.Empty(t, out.Results)
	assert.Equal(t, docsmcp.NotFoundNote, out.Note)
}

func TestIntegration_ReloadOnChange_ReflectedInResources(t *testing.T) {
	// Given: a served router with a corpus watcher
	cfg, dir := loadConfig(t, "")
	router := newRouter(t, cfg)
	srv, err := docsmcp.NewServer(router, cfg)
	require.NoError(t, err)
	cs := connect(t, srv)

	build := func(ctx context.Context, domain string) (*search.Index, error) {
		corpus := corpusOf(t, *cfg.Corpus(domain))
		res, err := chunk.NewLoader(chunk.LoaderOptions{
			Dialect:    corpus.Dialect,
			Provenance: corpus.Provenance,
			Extensions: corpus.Extensions,
		}).Load(ctx, corpus.Path)
		if err != nil {
			return nil, err
		}
		return search.New(corpus, res), nil
	}
	cedar := cfg.Corpus("cedar")
	cw := watcher.NewCorpusWatcher(router, build, watcher.Options{Debounce: 50 * time.Millisecond},
		watcher.Target{Domain: "cedar", Path: cedar.Path, Extensions: cedar.Extensions})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = cw.Run(ctx) }()
	time.Sleep(150 * time.Millisecond)

	// When: a new file is added to the corpus
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cedar", "spells.md"),
		[]byte("# Radial Spells\nCast spells from a radial menu.\n"), 0o644))

	// Then: the describe resource and searches see it
	require.Eventually(t, func() bool {
		res, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: "cedar://docs"})
		if err != nil || len(res.Contents) == 0 {
			return false
		}
		var desc search.Description
		if json.Unmarshal([]byte(res.Contents[0].Text), &desc) != nil {
			return false
		}
		return desc.NumChunks == 3
	}, 5*time.Second, 20*time.Millisecond)

	out := callSearch(t, cs, docsmcp.ToolSearchDocs, map[string]any{"query": "radial spells"})
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "Radial Spells", out.Results[0].Heading)
}

func TestIntegration_ConcurrentSearchesDuringSwap_NoRace(t *testing.T) {
	// Given: a loaded router
	cfg, _ := loadConfig(t, "")
	router := newRouter(t, cfg)
	cedar := corpusOf(t, *cfg.Corpus("cedar"))

	// When: searches run while the cedar index is swapped repeatedly
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _, err := router.Search(context.Background(), search.DomainAuto, "voice", search.SearchOptions{Limit: 3})
				assert.NoError(t, err)
				_, err = router.SearchAll(context.Background(), "workflow", search.SearchOptions{Limit: 3})
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		_, err := router.Swap("cedar", search.Load(context.Background(), cedar))
		require.NoError(t, err)
	}
	wg.Wait()

	// Then: the final index is complete
	idx, err := router.Index("cedar")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}

func TestIntegration_CustomCorpusFromConfig(t *testing.T) {
	// Given: a project config adding an acme corpus with its own keywords
	cfg, dir := loadConfig(t, "  - name: acme\n    path: acme\n    route_keywords: [widget]\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "acme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme", "widgets.md"),
		[]byte("# Widget Assembly\nBolt the widget together.\n"), 0o644))

	// When: routing and searching a widget question
	router := newRouter(t, cfg)
	results, domain, err := router.Search(context.Background(), search.DomainAuto, "widget assembly", search.SearchOptions{Limit: 3})

	// Then: the custom corpus answers
	require.NoError(t, err)
	assert.Equal(t, "acme", domain)
	require.NotEmpty(t, results)
	assert.Equal(t, "Widget Assembly", results[0].Heading)
	assert.Equal(t, []string{"cedar", "mastra", "acme"}, router.Domains())
}
