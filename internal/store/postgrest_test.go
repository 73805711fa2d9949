package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

func newTestPostgREST(t *testing.T, handler http.HandlerFunc) *PostgRESTStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := NewPostgRESTStore(PostgRESTConfig{URL: srv.URL + "/", Key: "anon-key", Timeout: time.Second})
	require.NoError(t, err)
	return s
}

func TestPostgRESTStore_MatchDocuments(t *testing.T) {
	// Given: an RPC endpoint returning two rows
	var calls atomic.Int32
	s := newTestPostgREST(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/rpc/match_documents", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		var req matchRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, []float32{0.5, 0.25}, req.QueryEmbedding)
		assert.Equal(t, 0.5, req.MatchThreshold)
		assert.Equal(t, 5, req.MatchCount)
		assert.Equal(t, DefaultProductID, req.ProductFilter)

		_, _ = w.Write([]byte(`[
			{"id": 1, "content": "agents run tools", "metadata": {"source_label": "agents.md"}, "similarity": 0.91},
			{"id": "b", "content": "memory", "metadata": null, "similarity": 0.6}
		]`))
	})

	// When: matching
	rows, err := s.MatchDocuments(context.Background(), MatchParams{
		Embedding:     []float32{0.5, 0.25},
		Threshold:     0.5,
		Count:         5,
		ProductFilter: DefaultProductID,
	})

	// Then: rows are decoded in order
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].ID)
	assert.Equal(t, "agents run tools", rows[0].Content)
	assert.Equal(t, "agents.md", rows[0].Metadata["source_label"])
	assert.Equal(t, 0.91, rows[0].Similarity)
	assert.Equal(t, "b", rows[1].ID)
	assert.Empty(t, rows[1].Metadata)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostgRESTStore_ListByProduct(t *testing.T) {
	s := newTestPostgREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/browser_agent_nodes", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.prod-1", q.Get("metadata->>product_id"))
		assert.Equal(t, "15", q.Get("limit"))

		_, _ = w.Write([]byte(`[{"id": "x", "text": "workflow steps", "metadata": {"section_title": "Workflows"}}]`))
	})

	rows, err := s.ListByProduct(context.Background(), "prod-1", 15)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "workflow steps", rows[0].Text)
	assert.Equal(t, "Workflows", rows[0].Metadata["section_title"])
}

func TestPostgRESTStore_HTTPError(t *testing.T) {
	s := newTestPostgREST(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	})

	_, err := s.MatchDocuments(context.Background(), MatchParams{Count: 1})

	require.Error(t, err)
	assert.Equal(t, docserrors.ErrCodeVectorStore, docserrors.GetCode(err))
	assert.Contains(t, err.Error(), "401")
}

func TestPostgRESTStore_MalformedResponse(t *testing.T) {
	s := newTestPostgREST(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	})

	_, err := s.ListByProduct(context.Background(), "p", 3)

	require.Error(t, err)
	assert.Equal(t, docserrors.ErrCodeVectorStore, docserrors.GetCode(err))
}

func TestPostgRESTStore_Timeout(t *testing.T) {
	// Given: a server slower than the store timeout
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)
	s, err := NewPostgRESTStore(PostgRESTConfig{URL: srv.URL, Key: "k", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	// When: listing
	_, err = s.ListByProduct(context.Background(), "p", 3)

	// Then: the call fails with a timeout code
	require.Error(t, err)
	assert.Equal(t, docserrors.ErrCodeNetworkTimeout, docserrors.GetCode(err))
}

func TestNewPostgRESTStore_Validation(t *testing.T) {
	_, err := NewPostgRESTStore(PostgRESTConfig{URL: "https://x.supabase.co"})
	assert.Error(t, err)

	_, err = NewPostgRESTStore(PostgRESTConfig{Key: "k"})
	assert.Error(t, err)

	_, err = NewPostgRESTStore(PostgRESTConfig{URL: "https://x.supabase.co", Key: "k", Table: "../etc"})
	assert.Error(t, err)

	s, err := NewPostgRESTStore(PostgRESTConfig{URL: "https://x.supabase.co/", Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co/rest/v1", s.baseURL)
	assert.Equal(t, DefaultTable, s.table)
	assert.NoError(t, s.Close())
}
