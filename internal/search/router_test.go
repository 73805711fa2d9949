package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r := NewRouter("cedar",
		Route{Domain: "cedar", Keywords: []string{"cedar", "spell", "chat", "voice"}},
		Route{Domain: "mastra", Keywords: []string{"mastra", "workflow", "agent", "memory"}},
	)

	cedar := New(Corpus{Name: "cedar", Title: "Cedar"}, &chunk.LoadResult{Chunks: []*chunk.Chunk{
		{Source: "cedar.md", Heading: "Chat", Body: "chat input and voice"},
	}})
	mastra := New(Corpus{Name: "mastra", Title: "Mastra"}, &chunk.LoadResult{Chunks: []*chunk.Chunk{
		{Source: "mastra.txt", Heading: "Workflows", Body: "workflow steps and agent memory"},
	}})
	_, err := r.Swap("cedar", cedar)
	require.NoError(t, err)
	_, err = r.Swap("mastra", mastra)
	require.NoError(t, err)
	return r
}

func TestRouter_Select(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "mastra keywords", query: "How do Mastra workflows call agents?", want: "mastra"},
		{name: "cedar keywords", query: "add a chat with voice", want: "cedar"},
		{name: "no keywords goes to default", query: "install guide", want: "cedar"},
		{name: "empty goes to default", query: "", want: "cedar"},
		{name: "tie goes to default", query: "chat workflow", want: "cedar"},
		{name: "substring match", query: "agentic memorystore", want: "mastra"},
		{name: "case insensitive", query: "WORKFLOW", want: "mastra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Select(tt.query))
		})
	}
}

func TestRouter_Select_TokenCountedOnce(t *testing.T) {
	// Given: one token containing two mastra keywords, two cedar tokens
	r := NewRouter("mastra",
		Route{Domain: "cedar", Keywords: []string{"chat", "voice"}},
		Route{Domain: "mastra", Keywords: []string{"agent", "memory"}},
	)

	// Then: each token counts once, so cedar wins 2 to 1
	assert.Equal(t, "cedar", r.Select("agentmemory chat voice"))
}

func TestRouter_Search_AutoAndPinned(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	results, domain, err := r.Search(ctx, "", "workflow steps", SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "mastra", domain)
	require.Len(t, results, 1)
	assert.Equal(t, "Workflows", results[0].Heading)

	results, domain, err = r.Search(ctx, DomainAuto, "voice", SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "cedar", domain)
	require.Len(t, results, 1)

	// pinned domain ignores routing
	results, domain, err = r.Search(ctx, "cedar", "workflow", SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "cedar", domain)
	assert.Empty(t, results)
}

func TestRouter_UnknownDomain(t *testing.T) {
	r := newTestRouter(t)

	_, _, err := r.Search(context.Background(), "react", "hooks", SearchOptions{Limit: 5})
	require.Error(t, err)
	assert.Equal(t, docserrors.ErrCodeUnknownDomain, docserrors.GetCode(err))

	_, err = r.Describe("react")
	assert.Error(t, err)

	_, err = r.Swap("react", New(Corpus{Name: "react"}, nil))
	assert.Error(t, err)
}

func TestRouter_SearchAll(t *testing.T) {
	r := newTestRouter(t)

	all, err := r.SearchAll(context.Background(), "agent voice", SearchOptions{Limit: 5})

	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Len(t, all["cedar"], 1)
	assert.Len(t, all["mastra"], 1)
}

func TestRouter_SearchAll_CanceledContext(t *testing.T) {
	r := newTestRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.SearchAll(ctx, "agent", SearchOptions{Limit: 5})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouter_Swap(t *testing.T) {
	// Given: a router serving an index
	r := newTestRouter(t)
	before, err := r.Describe("cedar")
	require.NoError(t, err)
	assert.Equal(t, 1, before.NumChunks)

	// When: a rebuilt index is swapped in
	next := New(Corpus{Name: "cedar", Title: "Cedar"}, &chunk.LoadResult{Chunks: []*chunk.Chunk{
		{Source: "cedar.md", Heading: "A", Body: "a"},
		{Source: "cedar.md", Heading: "B", Body: "b"},
	}})
	old, err := r.Swap("cedar", next)

	// Then: the old index is returned and new searches see the new one
	require.NoError(t, err)
	assert.Equal(t, 1, old.Len())
	after, err := r.Describe("cedar")
	require.NoError(t, err)
	assert.Equal(t, 2, after.NumChunks)
}

func TestRouter_ConcurrentSwapAndSearch(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()
	idx, err := r.Index("cedar")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Swap("cedar", idx)
		}()
		go func() {
			defer wg.Done()
			results, _, err := r.Search(ctx, "cedar", "voice", SearchOptions{Limit: 5})
			assert.NoError(t, err)
			assert.Len(t, results, 1)
		}()
	}
	wg.Wait()
}

func TestRouter_Domains(t *testing.T) {
	r := NewRouter("cedar",
		Route{Domain: "cedar"},
		Route{Domain: "mastra"},
		Route{Domain: "cedar"},
	)

	assert.Equal(t, []string{"cedar", "mastra"}, r.Domains())
	assert.Equal(t, "cedar", r.DefaultDomain())

	d, err := r.Describe("mastra")
	require.NoError(t, err)
	assert.Equal(t, 0, d.NumChunks)
}
