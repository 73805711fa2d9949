package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	"github.com/Aman-CERP/docsmcp/internal/config"
	"github.com/Aman-CERP/docsmcp/internal/embed"
	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/semantic"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

// app is the loaded engine shared by serve and the one-shot commands.
type app struct {
	cfg    *config.Config
	router *search.Router
	// adapters holds one semantic adapter per domain; empty when semantic
	// search is off.
	adapters map[string]*semantic.Adapter
	store    store.VectorStore // nil when semantic search is off
	logger   *slog.Logger
	closers  []func() error
}

// Close releases the embedder and vector store.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

// loadConfig loads configuration for the --config-dir directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newApp builds the semantic stack and loads every corpus into a router.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := a.initSemantic(); err != nil {
		a.Close()
		return nil, err
	}

	routes := make([]search.Route, 0, len(cfg.Corpora))
	for _, cc := range cfg.Corpora {
		routes = append(routes, search.Route{Domain: cc.Name, Keywords: cc.RouteKeywords})
	}
	a.router = search.NewRouter(cfg.Router.DefaultDomain, routes...)

	for _, cc := range cfg.Corpora {
		corpus, err := corpusFromConfig(cc)
		if err != nil {
			a.Close()
			return nil, err
		}
		idx := search.Load(ctx, corpus, a.indexOptions(cc.Name)...)
		if _, err := a.router.Swap(cc.Name, idx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// buildIndex reloads one domain from disk. Unlike search.Load it fails when
// the corpus cannot be read, so a reload keeps the previous index.
func (a *app) buildIndex(ctx context.Context, domain string) (*search.Index, error) {
	cc := a.cfg.Corpus(domain)
	if cc == nil {
		return nil, fmt.Errorf("unknown domain %s", domain)
	}
	corpus, err := corpusFromConfig(*cc)
	if err != nil {
		return nil, err
	}
	loader := chunk.NewLoader(chunk.LoaderOptions{
		Dialect:    corpus.Dialect,
		Provenance: corpus.Provenance,
		Extensions: corpus.Extensions,
	})
	res, err := loader.Load(ctx, corpus.Path)
	if err != nil {
		return nil, err
	}
	return search.New(corpus, res, a.indexOptions(domain)...), nil
}

func (a *app) indexOptions(domain string) []search.Option {
	opts := []search.Option{search.WithLogger(a.logger)}
	if adapter, ok := a.adapters[domain]; ok {
		opts = append(opts, search.WithSemantic(adapter, a.cfg.Semantic.Threshold))
	}
	return opts
}

// initSemantic wires CachedEmbedder(OpenAIEmbedder) and the configured
// vector store into one semantic adapter per corpus, each filtered by the
// corpus' product id. Without an embedding API key the adapters skip the
// similarity function and use the direct scan. Without a vector store
// semantic search stays off rather than failing.
func (a *app) initSemantic() error {
	sc := a.cfg.Semantic
	if !sc.Enabled {
		return nil
	}

	vs, err := newVectorStore(a.cfg)
	if err != nil {
		a.logger.Warn("vector store unavailable; using keyword search", slog.String("error", err.Error()))
		return nil
	}
	if vs == nil {
		a.logger.Warn("semantic search enabled without vector store credentials; using keyword search",
			slog.String("backend", sc.Backend))
		return nil
	}
	a.store = vs
	a.closers = append(a.closers, vs.Close)

	timeout := a.cfg.SemanticTimeout()
	var embedder embed.Embedder
	model := "none"
	if sc.Embedding.APIKey != "" {
		cached := embed.NewCachedEmbedder(embed.NewOpenAIEmbedder(embed.Config{
			BaseURL:           sc.Embedding.BaseURL,
			APIKey:            sc.Embedding.APIKey,
			Model:             sc.Embedding.Model,
			Dimensions:        sc.Embedding.Dimensions,
			Timeout:           timeout,
			RequestsPerSecond: sc.Embedding.RequestsPerSecond,
		}), sc.Embedding.CacheSize)
		a.closers = append(a.closers, cached.Close)
		embedder = cached
		model = cached.ModelName()
	} else {
		a.logger.Info("no embedding API key; semantic search uses the direct scan")
	}

	a.adapters = make(map[string]*semantic.Adapter, len(a.cfg.Corpora))
	for _, cc := range a.cfg.Corpora {
		a.adapters[cc.Name] = semantic.NewAdapter(embedder, vs, semantic.Config{
			ProductID: a.cfg.ProductID(cc.Name),
			Timeout:   timeout,
		})
	}
	a.logger.Info("semantic search enabled",
		slog.String("backend", sc.Backend),
		slog.String("model", model),
		slog.Float64("threshold", sc.Threshold))
	return nil
}

// newVectorStore opens the configured backend. It returns nil, nil when the
// backend has no credentials.
func newVectorStore(cfg *config.Config) (store.VectorStore, error) {
	sc := cfg.Semantic
	switch strings.ToLower(sc.Backend) {
	case config.BackendPostgres:
		if sc.DSN == "" {
			return nil, nil
		}
		s, err := store.NewPostgresStore(store.PostgresConfig{
			DSN:     sc.DSN,
			Table:   sc.Table,
			Timeout: cfg.SemanticTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		if sc.URL == "" || sc.Key == "" {
			return nil, nil
		}
		s, err := store.NewPostgRESTStore(store.PostgRESTConfig{
			URL:     sc.URL,
			Key:     sc.Key,
			Table:   sc.Table,
			Timeout: cfg.SemanticTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// corpusFromConfig converts a corpus configuration into a search corpus.
func corpusFromConfig(cc config.CorpusConfig) (search.Corpus, error) {
	dialect, err := chunk.ParseDialect(cc.Dialect)
	if err != nil {
		return search.Corpus{}, fmt.Errorf("corpus %s: %w", cc.Name, err)
	}
	return search.Corpus{
		Name:    cc.Name,
		Title:   cc.Title,
		Path:    cc.Path,
		Dialect: dialect,
		Provenance: chunk.ProvenanceOptions{
			SourceMarker:  cc.SourceMarker,
			SectionMarker: cc.SectionMarker,
		},
		Extensions:  cc.Extensions,
		ShortTokens: cc.ShortTokens,
		Scorer: search.ScorerConfig{
			HeadingWeight: cc.HeadingWeight,
			SalientTokens: cc.SalientTokens,
			SalientWeight: cc.SalientWeight,
		},
		SectionPattern:  cc.SectionPattern,
		ContentLimit:    cc.ContentLimit,
		CitationLineCap: cc.CitationLineCap,
	}, nil
}
