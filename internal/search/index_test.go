package search

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	"github.com/Aman-CERP/docsmcp/internal/semantic"
)

// mockSemantic returns canned matches and counts calls.
type mockSemantic struct {
	matches []semantic.Match
	calls   atomic.Int32
}

func (m *mockSemantic) SearchByVector(_ context.Context, _ string, limit int, _ float64) []semantic.Match {
	m.calls.Add(1)
	if len(m.matches) > limit {
		return m.matches[:limit]
	}
	return m.matches
}

func cedarCorpus(path string) Corpus {
	return Corpus{
		Name:        "cedar",
		Title:       "Cedar-OS Documentation",
		Path:        path,
		Dialect:     chunk.DialectGeneric,
		ShortTokens: []string{"ui", "os", "ai", "llm", "sse", "ux"},
		Scorer:      ScorerConfig{HeadingWeight: 2},
	}
}

func writeCorpusFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const cedarSample = `Cedar-OS is a framework for AI native apps.
# Installation
Run the CLI to install Cedar.
# Streaming
Cedar supports SSE streaming for chat.
Streaming responses arrive incrementally.
# State
Register state with useCedarState so agents can read it.
`

func loadSample(t *testing.T, opts ...Option) *Index {
	t.Helper()
	dir := t.TempDir()
	writeCorpusFile(t, dir, "cedar.md", cedarSample)
	return Load(context.Background(), cedarCorpus(dir), opts...)
}

func TestLoad_BuildsChunks(t *testing.T) {
	// Given/When: a directory corpus with one markdown file
	ix := loadSample(t)

	// Then: the preamble and three sections are indexed
	assert.Equal(t, 4, ix.Len())
	assert.Equal(t, "cedar", ix.Name())
	assert.False(t, ix.SemanticEnabled())
}

func TestLoad_MissingPathYieldsEmptyIndex(t *testing.T) {
	ix := Load(context.Background(), cedarCorpus(filepath.Join(t.TempDir(), "missing")))

	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, ix.Search(context.Background(), "streaming", SearchOptions{Limit: 5}))
}

func TestLoad_NoPath(t *testing.T) {
	ix := Load(context.Background(), cedarCorpus(""))

	d := ix.Describe()
	assert.Nil(t, d.DocsPath)
	assert.Equal(t, 0, d.NumChunks)
	assert.Empty(t, d.Sources)
}

func TestIndex_Search_KeywordResult(t *testing.T) {
	ix := loadSample(t)

	// When: searching for a token in one section
	results := ix.Search(context.Background(), "streaming", SearchOptions{Limit: 5})

	// Then: the Streaming section wins with a citation into the file
	require.NotEmpty(t, results)
	top := results[0]
	assert.Equal(t, "Streaming", top.Heading)
	assert.Equal(t, OriginKeyword, top.Origin)
	assert.Nil(t, top.Similarity)
	// heading 1*2 + body 2
	assert.Equal(t, 4.0, top.Score)
	assert.Equal(t, map[string]int{"streaming": 4}, top.MatchedTokens)
	require.NotNil(t, top.Citation)
	assert.Equal(t, top.Source, top.Citation.Source)
	assert.Equal(t, 4, top.Citation.StartLine)
	assert.Equal(t, 6, top.Citation.EndLine)
	assert.Equal(t, []int{4, 5, 6}, top.Citation.TokenLines["streaming"])
}

func TestIndex_Search_MatchedTokensPerToken(t *testing.T) {
	// Given: a section whose heading and body both mention the query tokens
	dir := t.TempDir()
	writeCorpusFile(t, dir, "setup.md", "# Streaming Setup\nconfigure sse endpoint for streaming\n")
	ix := Load(context.Background(), cedarCorpus(dir))

	// When: searching for two tokens
	results := ix.Search(context.Background(), "streaming endpoint", SearchOptions{Limit: 5})

	// Then: each token carries its own weighted count
	require.Len(t, results, 1)
	assert.Equal(t, 4.0, results[0].Score)
	assert.Equal(t, map[string]int{"streaming": 3, "endpoint": 1}, results[0].MatchedTokens)

	data, err := json.Marshal(results[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"matched_tokens":{"endpoint":1,"streaming":3}`)
}

func TestIndex_Search_SemanticResultsOmitMatchedTokens(t *testing.T) {
	sem := &mockSemantic{matches: []semantic.Match{{Content: "streaming over sse", Similarity: 0.9, Path: semantic.PathVector}}}
	ix := loadSample(t, WithSemantic(sem, 0.5))

	results := ix.Search(context.Background(), "streaming", SearchOptions{Limit: 5})

	require.Len(t, results, 1)
	assert.Nil(t, results[0].MatchedTokens)
	data, err := json.Marshal(results[0])
	require.NoError(t, err)
	assert.NotContains(t, string(data), "matched_tokens")
}

func TestIndex_Search_ShortTokens(t *testing.T) {
	ix := loadSample(t)

	results := ix.Search(context.Background(), "sse", SearchOptions{Limit: 5})

	require.Len(t, results, 1)
	assert.Equal(t, "Streaming", results[0].Heading)
}

func TestIndex_Search_EmptyQueryOrLimit(t *testing.T) {
	ix := loadSample(t)
	ctx := context.Background()

	for _, limit := range []int{-1, 0, 1, 5, 100} {
		assert.Empty(t, ix.Search(ctx, "", SearchOptions{Limit: limit}))
		assert.Empty(t, ix.Search(ctx, "   ", SearchOptions{Limit: limit}))
	}
	for _, q := range []string{"streaming", "cedar state"} {
		assert.Empty(t, ix.Search(ctx, q, SearchOptions{Limit: 0}))
		assert.Empty(t, ix.Search(ctx, q, SearchOptions{Limit: -2}))
	}
	assert.NotNil(t, ix.Search(ctx, "", SearchOptions{Limit: 5}))
}

func TestIndex_Search_Properties(t *testing.T) {
	ix := loadSample(t)
	ctx := context.Background()
	queries := []string{"cedar", "streaming state", "install cli", "agents read", "nothing matches zzz"}

	for _, q := range queries {
		for _, limit := range []int{1, 2, 3, 10} {
			results := ix.Search(ctx, q, SearchOptions{Limit: limit})

			assert.LessOrEqual(t, len(results), limit)
			for _, r := range results {
				assert.GreaterOrEqual(t, r.Score, 0.0)
				assert.LessOrEqual(t, len([]rune(r.Content)), DefaultContentLimit)
				if r.Citation == nil {
					continue
				}
				assert.LessOrEqual(t, r.Citation.StartLine, r.Citation.EndLine)
				for tok, lines := range r.Citation.TokenLines {
					for i := 1; i < len(lines); i++ {
						assert.Less(t, lines[i-1], lines[i], "token %q lines must ascend", tok)
					}
				}
			}
		}
	}
}

func TestIndex_Search_Deterministic(t *testing.T) {
	ix := loadSample(t)
	ctx := context.Background()

	first := ix.Search(ctx, "cedar streaming state", SearchOptions{Limit: 10})
	second := ix.Search(ctx, "cedar streaming state", SearchOptions{Limit: 10})

	assert.Equal(t, first, second)
}

func TestIndex_Search_ContentTruncated(t *testing.T) {
	// Given: a chunk body longer than the content limit
	dir := t.TempDir()
	writeCorpusFile(t, dir, "long.md", "# Long\n"+strings.Repeat("é", 2500)+" widget\n")
	ix := Load(context.Background(), cedarCorpus(dir))

	// When: searching it
	results := ix.Search(context.Background(), "long", SearchOptions{Limit: 1})

	// Then: content is cut to the limit in characters
	require.Len(t, results, 1)
	assert.Len(t, []rune(results[0].Content), DefaultContentLimit)
}

func TestIndex_Search_CitationOnLineTen(t *testing.T) {
	// Given: file A mentions "token" once on line 10, file B is unrelated
	dir := t.TempDir()
	var a strings.Builder
	for i := 1; i <= 9; i++ {
		a.WriteString("filler line\n")
	}
	a.WriteString("the token lives here\n")
	pathA := writeCorpusFile(t, dir, "a.md", a.String())
	writeCorpusFile(t, dir, "b.md", "# Other\ncompletely different content\n")
	ix := Load(context.Background(), cedarCorpus(dir))

	// When: searching for "token"
	results := ix.Search(context.Background(), "token", SearchOptions{Limit: 5})

	// Then: one result from A, cited on line 10
	require.Len(t, results, 1)
	assert.Equal(t, pathA, results[0].Source)
	require.NotNil(t, results[0].Citation)
	assert.Equal(t, 10, results[0].Citation.StartLine)
	assert.Equal(t, 10, results[0].Citation.EndLine)
}

func TestIndex_Search_JSONHasNoCitation(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "docs.json", `[{"heading": "Voice", "content": "voice input with speech"}]`)
	ix := Load(context.Background(), cedarCorpus(dir))

	results := ix.Search(context.Background(), "voice", SearchOptions{Limit: 5})

	require.Len(t, results, 1)
	assert.Nil(t, results[0].Citation)
	assert.Equal(t, 3.0, results[0].Score)
}

func TestIndex_Search_SemanticFirst(t *testing.T) {
	// Given: a semantic searcher with matches
	sem := &mockSemantic{matches: []semantic.Match{
		{Content: "remote chunk", Source: "remote.md", Similarity: 0.91, Path: semantic.PathVector},
		{Content: "fallback chunk", Source: "", Similarity: 0.4, Path: semantic.PathDirect},
	}}
	ix := loadSample(t, WithSemantic(sem, 0.5))

	// When: searching with semantic enabled
	results := ix.Search(context.Background(), "streaming", SearchOptions{Limit: 5})

	// Then: semantic results are projected and the keyword path is skipped
	require.Len(t, results, 2)
	assert.Equal(t, int32(1), sem.calls.Load())
	assert.Equal(t, OriginVector, results[0].Origin)
	require.NotNil(t, results[0].Similarity)
	assert.Equal(t, 0.91, *results[0].Similarity)
	assert.Equal(t, 0.91, results[0].Score)
	assert.Equal(t, "remote.md", results[0].Source)
	assert.Equal(t, OriginDirect, results[1].Origin)
	assert.Equal(t, "cedar", results[1].Source)
	assert.True(t, ix.Describe().SemanticEnabled)
}

func TestIndex_Search_SemanticEmptyFallsBack(t *testing.T) {
	sem := &mockSemantic{}
	ix := loadSample(t, WithSemantic(sem, 0.5))

	results := ix.Search(context.Background(), "streaming", SearchOptions{Limit: 5})

	require.NotEmpty(t, results)
	assert.Equal(t, OriginKeyword, results[0].Origin)
	assert.Equal(t, int32(1), sem.calls.Load())
}

func TestIndex_Search_KeywordOnlySkipsSemantic(t *testing.T) {
	sem := &mockSemantic{matches: []semantic.Match{{Content: "x", Similarity: 0.9}}}
	ix := loadSample(t, WithSemantic(sem, 0.5))

	results := ix.Search(context.Background(), "streaming", SearchOptions{Limit: 5, KeywordOnly: true})

	require.NotEmpty(t, results)
	assert.Equal(t, OriginKeyword, results[0].Origin)
	assert.Equal(t, int32(0), sem.calls.Load())
}

func TestIndex_Describe_Generic(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "b.md", "# B\nbody\n")
	writeCorpusFile(t, dir, "a.md", "# A\nbody\n# A2\nmore\n")
	ix := Load(context.Background(), cedarCorpus(dir))

	d := ix.Describe()

	require.NotNil(t, d.DocsPath)
	assert.Equal(t, dir, *d.DocsPath)
	assert.Equal(t, "Cedar-OS Documentation", d.Type)
	assert.Equal(t, "cedar", d.Domain)
	assert.Equal(t, 3, d.NumChunks)
	assert.Equal(t, []string{"a.md", "b.md"}, d.Sources)
	assert.Nil(t, d.Sections)
}

func TestIndex_Describe_StructuredSections(t *testing.T) {
	res := &chunk.LoadResult{Chunks: []*chunk.Chunk{
		{Source: "mastra.txt", Heading: "Agents", Body: "a", Section: "[EN] Source: https://mastra.ai/en/docs/agents/overview"},
		{Source: "mastra.txt", Heading: "More", Body: "b", Section: "[EN] Source: https://mastra.ai/en/docs/agents/tools"},
		{Source: "mastra.txt", Heading: "Flows", Body: "c", Section: "[EN] Source: https://mastra.ai/en/docs/workflows"},
		{Source: "mastra.txt", Heading: "None", Body: "d"},
	}}
	corpus := Corpus{
		Name:           "mastra",
		Title:          "Mastra Documentation",
		Dialect:        chunk.DialectStructured,
		SectionPattern: `\[EN\] Source: https://mastra\.ai/en/docs/(.+?)(?:/|$)`,
	}

	d := New(corpus, res).Describe()

	assert.Equal(t, []string{"agents", "workflows"}, d.Sections)
	assert.Equal(t, []string{"mastra.txt"}, d.Sources)
	assert.Nil(t, d.DocsPath)
}

func TestCollectSources_ReducesAbsolutePaths(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "guide.md")
	chunks := []*chunk.Chunk{{Source: abs}, {Source: "rel/notes.md"}, {Source: abs}}

	assert.Equal(t, []string{"guide.md", "rel/notes.md"}, collectSources(chunks))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "héllo", truncate("héllo", 0))
	assert.Equal(t, "", truncate("", 3))
}
