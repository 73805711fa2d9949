// Package embed turns query text into embedding vectors for semantic search.
package embed

import (
	"context"
	"time"
)

// Embedding defaults, matching the vectors stored for the hosted corpora.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultDimensions = 512

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 8 * time.Second

	// DefaultPoolSize is the number of pooled connections per host.
	DefaultPoolSize = 4
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder can serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// Config configures an HTTP embedder.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSecond paces requests. Zero disables pacing.
	RequestsPerSecond float64

	PoolSize int
}

// DefaultConfig returns the embedding configuration used when none is set.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Model:      DefaultModel,
		Dimensions: DefaultDimensions,
		Timeout:    DefaultTimeout,
		PoolSize:   DefaultPoolSize,
	}
}
