package search

// Origin records which retrieval path produced a result.
type Origin string

const (
	// OriginKeyword marks results from the local keyword scorer.
	OriginKeyword Origin = "keyword"
	// OriginVector marks results from the remote similarity function.
	OriginVector Origin = "vector"
	// OriginDirect marks results from the remote direct-scan fallback.
	OriginDirect Origin = "direct"
)

// SearchOptions configures a single search.
type SearchOptions struct {
	// Limit is the maximum number of results. Values <= 0 yield no results.
	Limit int

	// KeywordOnly skips the semantic path even when one is configured.
	KeywordOnly bool
}

// SearchResult is one ranked hit. MatchedTokens maps each matched query
// token to its weighted hit count and is set only for keyword results;
// Similarity is set only for semantic results.
type SearchResult struct {
	Source        string         `json:"source"`
	Heading       string         `json:"heading"`
	Content       string         `json:"content"`
	Score         float64        `json:"score"`
	MatchedTokens map[string]int `json:"matched_tokens,omitempty"`
	Citation      *CitationSpan  `json:"citation,omitempty"`
	Similarity    *float64       `json:"similarity,omitempty"`
	URL           string         `json:"url,omitempty"`
	Section       string         `json:"section,omitempty"`
	Origin        Origin         `json:"origin"`
}

// CitationSpan locates the matched tokens in the source file.
// Lines are 1-based.
type CitationSpan struct {
	Source     string           `json:"source"`
	StartLine  int              `json:"start_line"`
	EndLine    int              `json:"end_line"`
	TokenLines map[string][]int `json:"token_lines"`
}

// Description summarizes a loaded corpus.
type Description struct {
	Type            string   `json:"type"`
	Domain          string   `json:"domain"`
	DocsPath        *string  `json:"docs_path"`
	NumChunks       int      `json:"num_chunks"`
	Sources         []string `json:"sources"`
	Sections        []string `json:"sections,omitempty"`
	SemanticEnabled bool     `json:"semantic_enabled"`
}
