package mcp

import "github.com/Aman-CERP/docsmcp/internal/search"

// Tool names.
const (
	ToolSearchDocs       = "searchDocs"
	ToolSearchMastraDocs = "searchMastraDocs"
)

// DomainAll searches every domain.
const DomainAll = "all"

// NotFoundNote is set on outputs with no results.
const NotFoundNote = "not in docs"

// SearchDocsInput defines the input schema for the searchDocs tool.
type SearchDocsInput struct {
	Query       string `json:"query" jsonschema:"the documentation search query"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	Domain      string `json:"domain,omitempty" jsonschema:"documentation domain: auto (default), all, or a corpus name such as cedar or mastra"`
	KeywordOnly bool   `json:"keyword_only,omitempty" jsonschema:"skip semantic search and use keyword scoring only"`
}

// SearchMastraDocsInput defines the input schema for the searchMastraDocs tool.
type SearchMastraDocsInput struct {
	Query       string `json:"query" jsonschema:"search query for Mastra concepts"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	KeywordOnly bool   `json:"keyword_only,omitempty" jsonschema:"skip semantic search and use keyword scoring only"`
}

// SearchOutput defines the output schema of both search tools.
type SearchOutput struct {
	Prompt     string         `json:"prompt" jsonschema:"instructions for answering from the returned sections"`
	Domain     string         `json:"domain" jsonschema:"the domain searched, or all"`
	Results    []ResultOutput `json:"results" jsonschema:"ranked documentation sections"`
	Note       string         `json:"note,omitempty" jsonschema:"set to 'not in docs' when nothing matched"`
	Suggestion string         `json:"suggestion,omitempty" jsonschema:"follow-up queries to try when nothing matched"`
}

// ResultOutput is one ranked documentation section.
type ResultOutput struct {
	Domain        string               `json:"domain" jsonschema:"the corpus the section came from"`
	Source        string               `json:"source" jsonschema:"source file or corpus name"`
	Heading       string               `json:"heading,omitempty" jsonschema:"section heading"`
	Content       string               `json:"content" jsonschema:"section text, truncated"`
	Score         float64              `json:"score" jsonschema:"relevance score, higher is better"`
	MatchedTokens map[string]int       `json:"matched_tokens,omitempty" jsonschema:"weighted hits per matched query token"`
	Similarity    *float64             `json:"similarity,omitempty" jsonschema:"cosine similarity for semantic results"`
	Citation      *search.CitationSpan `json:"citation,omitempty" jsonschema:"line span of the matched tokens in the source"`
	URL           string               `json:"url,omitempty" jsonschema:"canonical page URL"`
	Section       string               `json:"section,omitempty" jsonschema:"section marker of the page"`
	Origin        search.Origin        `json:"origin" jsonschema:"keyword, vector or direct"`
}
