// Package store reads precomputed documentation embeddings from a remote
// vector store.
//
// Two backends are provided. PostgresStore talks SQL to a pgvector-enabled
// PostgreSQL database. PostgRESTStore talks to the same schema through a
// Supabase (PostgREST) HTTP endpoint. Both expose the match_documents
// similarity function and a direct scan of a table filtered by product.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Defaults for the hosted documentation tables.
const (
	DefaultTable     = "browser_agent_nodes"
	DefaultProductID = "b0cd564c-50e0-4cf5-812a-5d11c1fa63c8"
	DefaultTimeout   = 8 * time.Second

	// MatchFunction is the SQL function performing similarity search.
	MatchFunction = "match_documents"
)

// Row is one stored documentation node.
type Row struct {
	ID         string
	Content    string
	Text       string
	Metadata   map[string]any
	Similarity float64
}

// MatchParams are the arguments of the similarity function.
type MatchParams struct {
	Embedding     []float32
	Threshold     float64
	Count         int
	ProductFilter string
}

// VectorStore is a read-only view of stored embeddings.
type VectorStore interface {
	// MatchDocuments returns up to params.Count rows whose similarity to the
	// embedding is at least params.Threshold, most similar first.
	MatchDocuments(ctx context.Context, params MatchParams) ([]Row, error)

	// ListByProduct returns up to limit rows whose metadata product_id equals
	// productID, in store order.
	ListByProduct(ctx context.Context, productID string, limit int) ([]Row, error)

	// Close releases resources.
	Close() error
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateIdentifier checks that name is a plain or schema-qualified SQL
// identifier, so it can be placed in a query or URL path.
func ValidateIdentifier(name string) error {
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// rowFromRecord converts a decoded record into a Row. Unknown columns are
// ignored and missing ones stay empty.
func rowFromRecord(rec map[string]any) Row {
	row := Row{
		ID:      stringValue(rec["id"]),
		Content: stringValue(rec["content"]),
		Text:    stringValue(rec["text"]),
	}
	row.Similarity, _ = floatValue(rec["similarity"])
	row.Metadata = metadataValue(rec["metadata"])
	return row
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(t), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func metadataValue(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []byte:
		return decodeMetadata(t)
	case string:
		return decodeMetadata([]byte(t))
	default:
		return map[string]any{}
	}
}

func decodeMetadata(raw []byte) map[string]any {
	md := map[string]any{}
	if len(raw) == 0 {
		return md
	}
	if err := json.Unmarshal(raw, &md); err != nil || md == nil {
		return map[string]any{}
	}
	return md
}
