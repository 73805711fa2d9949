package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// maxErrorBody caps how much of an error response is kept in the error.
const maxErrorBody = 512

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    Config
	limiter   *rate.Limiter

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OpenAIEmbedder)(nil)

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// NewOpenAIEmbedder creates an embedder. No request is made until Embed is
// called.
func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		IdleConnTimeout:     30 * time.Second,
	}

	// No client-level timeout: each request carries its own deadline.
	e := &OpenAIEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return e
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, docserrors.New(docserrors.ErrCodeEmbeddingRequest, "embedder is closed", nil)
	}
	if e.config.APIKey == "" {
		return nil, docserrors.New(docserrors.ErrCodeEmbeddingRequest, "no embedding API key configured", nil).
			WithSuggestion("Set OPENAI_API_KEY or semantic.embedding.api_key")
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, docserrors.New(docserrors.ErrCodeNetworkTimeout, "embedding rate limit wait", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	vec, err := e.doEmbed(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, docserrors.New(docserrors.ErrCodeNetworkTimeout, "embedding request timed out", err).
				WithDetail("timeout", e.config.Timeout.String())
		}
		return nil, err
	}
	if len(vec) != e.config.Dimensions {
		return nil, docserrors.New(docserrors.ErrCodeDimensionMismatch, "embedding has unexpected dimensions", nil).
			WithDetail("expected", strconv.Itoa(e.config.Dimensions)).
			WithDetail("actual", strconv.Itoa(len(vec)))
	}
	return vec, nil
}

func (e *OpenAIEmbedder) doEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Input:      text,
		Model:      e.config.Model,
		Dimensions: e.config.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, docserrors.New(docserrors.ErrCodeEmbeddingRequest, "failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, docserrors.NetworkError("embedding request failed", err).
			WithDetail("url", e.config.BaseURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, docserrors.New(docserrors.ErrCodeEmbeddingRequest,
			fmt.Sprintf("embedding failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil).
			WithDetail("status", strconv.Itoa(resp.StatusCode))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, docserrors.New(docserrors.ErrCodeEmbeddingRequest, "failed to decode embedding response", err)
	}
	if len(result.Data) == 0 {
		return nil, docserrors.New(docserrors.ErrCodeEmbeddingRequest, "embedding response has no data", nil)
	}

	emb := result.Data[0].Embedding
	vec := make([]float32, len(emb))
	for i, v := range emb {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.config.Model
}

// Available reports whether an API key is configured and the embedder is
// open. It does not probe the network.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed && e.config.APIKey != ""
}

// Close releases pooled connections.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
