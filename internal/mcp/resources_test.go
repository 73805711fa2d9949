package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
	"github.com/Aman-CERP/docsmcp/internal/search"
	"github.com/Aman-CERP/docsmcp/internal/telemetry"
)

func readReq(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestListResources(t *testing.T) {
	s := newTestServer(t)

	resources := s.ListResources()

	require.Len(t, resources, 2)
	assert.Equal(t, ResourceInfo{URI: "cedar://docs", Name: "cedar", MIMEType: "application/json"}, resources[0])
	assert.Equal(t, "mastra://docs", resources[1].URI)
}

func TestDescribeHandler(t *testing.T) {
	// Given: a server whose cedar index has two chunks
	s := newTestServer(t)
	handler := s.makeDescribeHandler("cedar")

	// When: the resource is read
	res, err := handler(context.Background(), readReq("cedar://docs"))

	// Then: the JSON body describes the corpus
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)
	assert.Equal(t, "cedar://docs", res.Contents[0].URI)

	var desc search.Description
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &desc))
	assert.Equal(t, "cedar", desc.Domain)
	assert.Equal(t, 2, desc.NumChunks)
	assert.Equal(t, []string{"cedar.md"}, desc.Sources)
}

func TestDescribeHandler_ReflectsSwap(t *testing.T) {
	// Given: a server and a reloaded cedar index
	router := newTestRouter(t)
	s, err := NewServer(router, nil)
	require.NoError(t, err)
	_, err = router.Swap("cedar", search.New(search.Corpus{Name: "cedar"}, &chunk.LoadResult{Chunks: []*chunk.Chunk{
		{Source: "new.md", Heading: "A", Body: "a"},
		{Source: "new.md", Heading: "B", Body: "b"},
		{Source: "new.md", Heading: "C", Body: "c"},
	}}))
	require.NoError(t, err)

	// When: the resource is read
	res, err := s.makeDescribeHandler("cedar")(context.Background(), readReq("cedar://docs"))

	// Then: the new index is described
	require.NoError(t, err)
	var desc search.Description
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &desc))
	assert.Equal(t, 3, desc.NumChunks)
}

func TestDescribeHandler_UnknownDomain(t *testing.T) {
	s := newTestServer(t)

	_, err := s.makeDescribeHandler("react")(context.Background(), readReq("react://docs"))

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeUnknownDomain, mcpErr.Code)
}

func TestQueryMetricsHandler(t *testing.T) {
	s := newTestServer(t)
	handler := s.makeQueryMetricsHandler()

	// Given: no collector
	_, err := handler(context.Background(), readReq(QueryMetricsURI))
	require.Error(t, err)

	// When: a collector with one event is set
	m := telemetry.NewQueryMetrics()
	m.Record(telemetry.QueryEvent{Query: "voice", Domain: "cedar", Origin: "keyword", ResultCount: 1})
	s.SetMetrics(m)
	res, err := handler(context.Background(), readReq(QueryMetricsURI))

	// Then: the snapshot is returned as JSON
	require.NoError(t, err)
	var snap telemetry.QueryMetricsSnapshot
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &snap))
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.DomainCounts["cedar"])
}
