package search

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/semantic"
)

const (
	// DefaultContentLimit is the maximum number of characters of chunk
	// content returned per result.
	DefaultContentLimit = 2000

	// DefaultCitationLineCap is the maximum number of lines listed per token
	// in a citation.
	DefaultCitationLineCap = 10
)

// Corpus describes one documentation domain and how to index it.
type Corpus struct {
	// Name is the domain name used for routing, e.g. "cedar".
	Name string
	// Title is the human-readable type reported by Describe.
	Title string
	// Path is a file or directory. Empty means no local corpus.
	Path string

	Dialect    chunk.Dialect
	Provenance chunk.ProvenanceOptions
	Extensions []string

	ShortTokens []string
	Scorer      ScorerConfig

	// SectionPattern extracts section names from chunk section markers for
	// Describe. Its first submatch is the section.
	SectionPattern string

	ContentLimit    int
	CitationLineCap int
}

// SemanticSearcher is the remote similarity search consulted before the
// keyword path. Implementations never fail; an empty slice means no match.
type SemanticSearcher interface {
	SearchByVector(ctx context.Context, query string, limit int, threshold float64) []semantic.Match
}

// Option configures an Index.
type Option func(*Index)

// WithSemantic attaches a semantic searcher queried with the given
// similarity threshold.
func WithSemantic(s SemanticSearcher, threshold float64) Option {
	return func(ix *Index) {
		ix.semantic = s
		ix.threshold = threshold
	}
}

// WithLogger sets the logger used during loading and search.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// Index is an immutable, searchable view of one corpus.
type Index struct {
	corpus    Corpus
	docs      []*document
	texts     map[string]*sourceText
	sources   []string
	sections  []string
	tokenizer *Tokenizer
	scorer    *Scorer

	semantic  SemanticSearcher
	threshold float64
	logger    *slog.Logger
}

// Load reads the corpus and builds an index. Load errors are logged and
// produce an empty index rather than failing, so a missing corpus never
// prevents the other domains from serving.
func Load(ctx context.Context, corpus Corpus, opts ...Option) *Index {
	ix := newIndex(corpus, opts...)
	if corpus.Path == "" {
		ix.logger.Info("no corpus path configured", slog.String("domain", corpus.Name))
		return ix
	}

	loader := chunk.NewLoader(chunk.LoaderOptions{
		Dialect:    corpus.Dialect,
		Provenance: corpus.Provenance,
		Extensions: corpus.Extensions,
	})
	res, err := loader.Load(ctx, corpus.Path)
	if err != nil {
		attrs := append([]slog.Attr{slog.String("domain", corpus.Name)}, docserrors.LogAttrs(err)...)
		ix.logger.LogAttrs(ctx, slog.LevelWarn, "corpus load failed", attrs...)
		return ix
	}
	ix.build(res)
	ix.logger.Info("corpus loaded",
		slog.String("domain", corpus.Name),
		slog.String("path", corpus.Path),
		slog.Int("files", res.Files),
		slog.Int("chunks", len(ix.docs)),
		slog.Int("skipped", len(res.Skipped)))
	return ix
}

// New builds an index from an already loaded result.
func New(corpus Corpus, res *chunk.LoadResult, opts ...Option) *Index {
	ix := newIndex(corpus, opts...)
	if res != nil {
		ix.build(res)
	}
	return ix
}

func newIndex(corpus Corpus, opts ...Option) *Index {
	if corpus.ContentLimit <= 0 {
		corpus.ContentLimit = DefaultContentLimit
	}
	if corpus.CitationLineCap <= 0 {
		corpus.CitationLineCap = DefaultCitationLineCap
	}
	ix := &Index{
		corpus:    corpus,
		texts:     map[string]*sourceText{},
		sources:   []string{},
		tokenizer: NewTokenizer(corpus.ShortTokens),
		scorer:    NewScorer(corpus.Scorer),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func (ix *Index) build(res *chunk.LoadResult) {
	ix.docs = make([]*document, 0, len(res.Chunks))
	for _, c := range res.Chunks {
		ix.docs = append(ix.docs, newDocument(c))
	}
	for source, text := range res.Texts {
		ix.texts[source] = newSourceText(text)
	}
	ix.sources = collectSources(res.Chunks)
	ix.sections = ix.collectSections(res.Chunks)
}

// collectSources returns the sorted distinct sources, reducing absolute
// paths to their base name.
func collectSources(chunks []*chunk.Chunk) []string {
	set := make(map[string]struct{})
	for _, c := range chunks {
		name := c.Source
		if filepath.IsAbs(name) {
			name = filepath.Base(name)
		}
		set[name] = struct{}{}
	}
	sources := make([]string, 0, len(set))
	for s := range set {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

func (ix *Index) collectSections(chunks []*chunk.Chunk) []string {
	if ix.corpus.Dialect != chunk.DialectStructured || ix.corpus.SectionPattern == "" {
		return nil
	}
	re, err := regexp.Compile(ix.corpus.SectionPattern)
	if err != nil {
		ix.logger.Warn("invalid section pattern",
			slog.String("domain", ix.corpus.Name),
			slog.String("error", err.Error()))
		return nil
	}
	set := make(map[string]struct{})
	for _, c := range chunks {
		if m := re.FindStringSubmatch(c.Section); len(m) > 1 && m[1] != "" {
			set[m[1]] = struct{}{}
		}
	}
	sections := make([]string, 0, len(set))
	for s := range set {
		sections = append(sections, s)
	}
	sort.Strings(sections)
	return sections
}

// Name returns the domain name of the index.
func (ix *Index) Name() string { return ix.corpus.Name }

// Corpus returns the configuration the index was built from.
func (ix *Index) Corpus() Corpus { return ix.corpus }

// Len returns the number of chunks.
func (ix *Index) Len() int { return len(ix.docs) }

// SemanticEnabled reports whether a semantic searcher is attached.
func (ix *Index) SemanticEnabled() bool { return ix.semantic != nil }

// Search returns up to opts.Limit results for query. The semantic path is
// tried first; when it is disabled or returns nothing, the keyword scorer
// runs. Search never fails: problems degrade to fewer results.
func (ix *Index) Search(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	if opts.Limit <= 0 || strings.TrimSpace(query) == "" {
		return []SearchResult{}
	}

	if ix.semantic != nil && !opts.KeywordOnly {
		matches := ix.semantic.SearchByVector(ctx, query, opts.Limit, ix.threshold)
		if len(matches) > 0 {
			return ix.fromMatches(matches, opts.Limit)
		}
		ix.logger.Debug("semantic search empty, using keyword scorer",
			slog.String("domain", ix.corpus.Name))
	}

	return ix.searchKeyword(ctx, query, opts.Limit)
}

func (ix *Index) searchKeyword(ctx context.Context, query string, limit int) []SearchResult {
	tokens := ix.tokenizer.QueryTokens(query)
	ranked := ix.scorer.Rank(ix.docs, tokens, limit)

	results := make([]SearchResult, 0, len(ranked))
	lines := make(lineCache)
	for _, r := range ranked {
		c := r.doc.chunk
		result := SearchResult{
			Source:        c.Source,
			Heading:       c.Heading,
			Content:       truncate(c.Body, ix.corpus.ContentLimit),
			Score:         r.score,
			MatchedTokens: r.hits,
			URL:           c.URL,
			Section:       c.Section,
			Origin:        OriginKeyword,
		}
		if st, ok := ix.texts[c.Source]; ok && len(r.matched) > 0 {
			span, err := st.citation(c.Source, r.matched, ix.corpus.CitationLineCap, lines)
			if err != nil {
				attrs := append([]slog.Attr{
					slog.String("domain", ix.corpus.Name),
					slog.String("source", c.Source),
				}, docserrors.LogAttrs(err)...)
				ix.logger.LogAttrs(ctx, slog.LevelDebug, "citation skipped", attrs...)
			}
			result.Citation = span
		}
		results = append(results, result)
	}
	return results
}

func (ix *Index) fromMatches(matches []semantic.Match, limit int) []SearchResult {
	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		similarity := m.Similarity
		source := m.Source
		if source == "" {
			source = ix.corpus.Name
		}
		origin := OriginVector
		if m.Path == semantic.PathDirect {
			origin = OriginDirect
		}
		results = append(results, SearchResult{
			Source:     source,
			Heading:    m.Heading,
			Content:    truncate(m.Content, ix.corpus.ContentLimit),
			Score:      similarity,
			Similarity: &similarity,
			URL:        m.URL,
			Origin:     origin,
		})
	}
	return results
}

// Describe summarizes the corpus.
func (ix *Index) Describe() Description {
	d := Description{
		Type:            ix.corpus.Title,
		Domain:          ix.corpus.Name,
		NumChunks:       len(ix.docs),
		Sources:         append([]string{}, ix.sources...),
		SemanticEnabled: ix.semantic != nil,
	}
	if ix.corpus.Path != "" {
		p := ix.corpus.Path
		d.DocsPath = &p
	}
	if ix.sections != nil {
		d.Sections = append([]string{}, ix.sections...)
	}
	return d
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
