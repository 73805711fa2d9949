package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

func TestListQuery(t *testing.T) {
	assert.Equal(t,
		`SELECT * FROM "browser_agent_nodes" WHERE metadata->>'product_id' = $1 LIMIT $2`,
		listQuery("browser_agent_nodes"))
	assert.Equal(t,
		`SELECT * FROM "public"."docs" WHERE metadata->>'product_id' = $1 LIMIT $2`,
		listQuery("public.docs"))
}

func TestMatchQuery(t *testing.T) {
	assert.Equal(t,
		`SELECT id, content, metadata, similarity FROM match_documents($1::vector, $2, $3, $4)`,
		matchQuery)
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(PostgresConfig{})
	require.Error(t, err)
	assert.Equal(t, docserrors.ErrCodeConfigInvalid, docserrors.GetCode(err))

	_, err = NewPostgresStore(PostgresConfig{DSN: "postgres://localhost/db", Table: "bad name"})
	require.Error(t, err)
	assert.Equal(t, docserrors.ErrCodeConfigInvalid, docserrors.GetCode(err))
}

func TestNewPostgresStore_Defaults(t *testing.T) {
	s, err := NewPostgresStore(PostgresConfig{DSN: "postgres://user@127.0.0.1:1/docs?sslmode=disable"})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, DefaultTable, s.table)
	assert.Equal(t, DefaultTimeout, s.timeout)
}

func TestPostgresStore_Unreachable(t *testing.T) {
	// Given: a DSN pointing at a closed port
	s, err := NewPostgresStore(PostgresConfig{
		DSN:     "postgres://user@127.0.0.1:1/docs?sslmode=disable&connect_timeout=1",
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	// When: querying
	_, matchErr := s.MatchDocuments(context.Background(), MatchParams{Embedding: []float32{0.1, 0.2}, Count: 3})
	_, listErr := s.ListByProduct(context.Background(), DefaultProductID, 3)

	// Then: both fail with store errors instead of hanging
	require.Error(t, matchErr)
	require.Error(t, listErr)
	assert.NotEmpty(t, docserrors.GetCode(matchErr))
	assert.NotEmpty(t, docserrors.GetCode(listErr))
}
