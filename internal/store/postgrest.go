package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// PostgRESTConfig configures a PostgRESTStore.
type PostgRESTConfig struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL     string
	Key     string
	Table   string
	Timeout time.Duration
}

// PostgRESTStore reads embeddings through a Supabase REST endpoint.
type PostgRESTStore struct {
	client  *http.Client
	baseURL string
	key     string
	table   string
	timeout time.Duration
}

var _ VectorStore = (*PostgRESTStore)(nil)

type matchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
	ProductFilter  string    `json:"product_filter"`
}

// NewPostgRESTStore creates a REST-backed store.
func NewPostgRESTStore(cfg PostgRESTConfig) (*PostgRESTStore, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, docserrors.ConfigError("PostgREST URL and key are required", nil).
			WithSuggestion("Set SUPABASE_URL and SUPABASE_KEY")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, docserrors.ConfigError("invalid PostgREST URL", err)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if err := ValidateIdentifier(cfg.Table); err != nil {
		return nil, docserrors.ConfigError("invalid vector store table", err).WithDetail("table", cfg.Table)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &PostgRESTStore{
		client:  &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 4, IdleConnTimeout: 30 * time.Second}},
		baseURL: strings.TrimRight(cfg.URL, "/") + "/rest/v1",
		key:     cfg.Key,
		table:   cfg.Table,
		timeout: cfg.Timeout,
	}, nil
}

// MatchDocuments calls the match_documents RPC.
func (s *PostgRESTStore) MatchDocuments(ctx context.Context, params MatchParams) ([]Row, error) {
	body, err := json.Marshal(matchRequest{
		QueryEmbedding: params.Embedding,
		MatchThreshold: params.Threshold,
		MatchCount:     params.Count,
		ProductFilter:  params.ProductFilter,
	})
	if err != nil {
		return nil, docserrors.InternalError("failed to marshal match request", err)
	}
	return s.do(ctx, http.MethodPost, s.baseURL+"/rpc/"+MatchFunction, body)
}

// ListByProduct filters the table on metadata->>product_id.
func (s *PostgRESTStore) ListByProduct(ctx context.Context, productID string, limit int) ([]Row, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("metadata->>product_id", "eq."+productID)
	q.Set("limit", strconv.Itoa(limit))
	return s.do(ctx, http.MethodGet, s.baseURL+"/"+s.table+"?"+q.Encode(), nil)
}

func (s *PostgRESTStore) do(ctx context.Context, method, target string, body []byte) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, docserrors.New(docserrors.ErrCodeVectorStore, "failed to build request", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, docserrors.New(docserrors.ErrCodeNetworkTimeout, "vector store request timed out", err).
				WithDetail("timeout", s.timeout.String())
		}
		return nil, docserrors.NetworkError("vector store request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, docserrors.New(docserrors.ErrCodeVectorStore,
			fmt.Sprintf("vector store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil).
			WithDetail("status", strconv.Itoa(resp.StatusCode))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, docserrors.New(docserrors.ErrCodeVectorStore, "malformed vector store response", err)
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rowFromRecord(rec))
	}
	return rows, nil
}

// Close releases idle connections.
func (s *PostgRESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
