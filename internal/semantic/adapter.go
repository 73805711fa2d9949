// Package semantic queries a remote vector store for documentation chunks
// similar to a query, falling back to a client-side term overlap scan when
// the similarity path is unavailable.
package semantic

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/docsmcp/internal/embed"
	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
	"github.com/Aman-CERP/docsmcp/internal/store"
)

// Path records which lookup produced a match.
type Path string

const (
	PathVector Path = "vector"
	PathDirect Path = "direct"
)

// State describes how an adapter will serve the next call.
type State string

const (
	// StateUninitialized means no embedder is configured; every call uses
	// the direct scan.
	StateUninitialized State = "uninitialized"
	// StateReady means calls try the similarity function first. A failing
	// call degrades to the direct scan for that call only.
	StateReady State = "ready"
)

// Match is one semantic search hit.
type Match struct {
	ID         string
	Content    string
	Source     string
	Heading    string
	URL        string
	Metadata   map[string]any
	Similarity float64
	Path       Path
}

// Config configures an Adapter.
type Config struct {
	ProductID string
	Timeout   time.Duration
	// ScanFactor multiplies the limit to size the direct scan.
	ScanFactor int
}

// DefaultConfig returns the settings of the hosted documentation store.
func DefaultConfig() Config {
	return Config{
		ProductID:  store.DefaultProductID,
		Timeout:    store.DefaultTimeout,
		ScanFactor: 3,
	}
}

// Adapter performs semantic lookups. It is safe for concurrent use.
type Adapter struct {
	embedder embed.Embedder
	store    store.VectorStore
	config   Config
	logger   *slog.Logger
}

// NewAdapter creates an adapter. A nil or unavailable embedder puts the
// adapter in StateUninitialized.
func NewAdapter(embedder embed.Embedder, vs store.VectorStore, cfg Config) *Adapter {
	def := DefaultConfig()
	if cfg.ProductID == "" {
		cfg.ProductID = def.ProductID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ScanFactor <= 0 {
		cfg.ScanFactor = def.ScanFactor
	}
	return &Adapter{
		embedder: embedder,
		store:    vs,
		config:   cfg,
		logger:   slog.Default(),
	}
}

// State reports whether the similarity path will be attempted.
func (a *Adapter) State() State {
	if !a.canEmbed(context.Background()) {
		return StateUninitialized
	}
	return StateReady
}

func (a *Adapter) canEmbed(ctx context.Context) bool {
	return a.embedder != nil && a.embedder.Available(ctx)
}

// SearchByVector returns up to limit matches for query. It never fails:
// errors on the similarity path fall through to the direct scan, and a
// failing scan yields no matches.
func (a *Adapter) SearchByVector(ctx context.Context, query string, limit int, threshold float64) []Match {
	if a.store == nil || limit <= 0 || strings.TrimSpace(query) == "" {
		return nil
	}

	if a.canEmbed(ctx) {
		matches, err := a.vectorSearch(ctx, query, limit, threshold)
		if err == nil && len(matches) > 0 {
			return matches
		}
		attrs := []slog.Attr{slog.String("path", string(PathDirect))}
		if err != nil {
			attrs = append(attrs, docserrors.LogAttrs(err)...)
		} else {
			attrs = append(attrs, slog.String("reason", "no rows above threshold"))
		}
		a.logger.LogAttrs(ctx, slog.LevelInfo, "semantic search degraded", attrs...)
	}

	matches, err := a.directSearch(ctx, query, limit)
	if err != nil {
		attrs := append([]slog.Attr{slog.String("path", string(PathDirect))}, docserrors.LogAttrs(err)...)
		a.logger.LogAttrs(ctx, slog.LevelInfo, "semantic search unavailable", attrs...)
		return nil
	}
	return matches
}

func (a *Adapter) vectorSearch(ctx context.Context, query string, limit int, threshold float64) ([]Match, error) {
	embedCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	vec, err := a.embedder.Embed(embedCtx, query)
	cancel()
	if err != nil {
		return nil, err
	}

	matchCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	rows, err := a.store.MatchDocuments(matchCtx, store.MatchParams{
		Embedding:     vec,
		Threshold:     threshold,
		Count:         limit,
		ProductFilter: a.config.ProductID,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, Match{
			ID:         row.ID,
			Content:    row.Content,
			Source:     metaString(row.Metadata, "source_label"),
			Heading:    metaString(row.Metadata, "section_title"),
			URL:        metaString(row.Metadata, "url"),
			Metadata:   row.Metadata,
			Similarity: row.Similarity,
			Path:       PathVector,
		})
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (a *Adapter) directSearch(ctx context.Context, query string, limit int) ([]Match, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	rows, err := a.store.ListByProduct(ctx, a.config.ProductID, limit*a.config.ScanFactor)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		text := rowText(row)
		relevance := Relevance(terms, text, metaStrings(row.Metadata, "headers"), metaString(row.Metadata, "section_title"))
		if relevance <= 0 {
			continue
		}
		source := metaString(row.Metadata, "source_label")
		if source == "" {
			source = metaString(row.Metadata, "url")
		}
		matches = append(matches, Match{
			ID:         row.ID,
			Content:    text,
			Source:     source,
			Heading:    metaString(row.Metadata, "section_title"),
			URL:        metaString(row.Metadata, "url"),
			Metadata:   row.Metadata,
			Similarity: relevance,
			Path:       PathDirect,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Relevance scores text by the share of query terms it contains as
// substrings, plus half the share found in the headers and half the share
// found in the section title. terms must be lowercase.
func Relevance(terms []string, text string, headers []string, sectionTitle string) float64 {
	if len(terms) == 0 {
		return 0
	}
	score := overlap(terms, strings.ToLower(text))
	if len(headers) > 0 {
		score += overlap(terms, strings.ToLower(strings.Join(headers, " "))) * 0.5
	}
	if sectionTitle != "" {
		score += overlap(terms, strings.ToLower(sectionTitle)) * 0.5
	}
	return score
}

func overlap(terms []string, haystack string) float64 {
	n := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			n++
		}
	}
	return float64(n) / float64(len(terms))
}

// rowText prefers metadata.text, then the text column, then content.
func rowText(row store.Row) string {
	if t := metaString(row.Metadata, "text"); t != "" {
		return t
	}
	if row.Text != "" {
		return row.Text
	}
	return row.Content
}

func metaString(md map[string]any, key string) string {
	if s, ok := md[key].(string); ok {
		return s
	}
	return ""
}

func metaStrings(md map[string]any, key string) []string {
	switch v := md[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
