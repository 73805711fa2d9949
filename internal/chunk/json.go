package chunk

import (
	"context"
	"encoding/json"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// jsonEntry is one pre-chunked section of a JSON corpus file.
type jsonEntry struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// JSONChunker reads files holding a JSON array of {heading, content}
// objects. Entries map one-to-one onto chunks. The file text is not retained,
// so these chunks never carry citations.
type JSONChunker struct{}

// NewJSONChunker creates a JSON chunker.
func NewJSONChunker() *JSONChunker {
	return &JSONChunker{}
}

// RetainsText implements Chunker.
func (c *JSONChunker) RetainsText() bool { return false }

// Chunk decodes the array and converts each entry into a chunk.
func (c *JSONChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []jsonEntry
	if err := json.Unmarshal(file.Content, &entries); err != nil {
		return nil, docserrors.New(docserrors.ErrCodeFileCorrupt, "invalid JSON corpus file", err).
			WithDetail("path", file.Path).
			WithSuggestion("JSON corpus files must hold an array of {\"heading\", \"content\"} objects")
	}

	chunks := make([]*Chunk, 0, len(entries))
	for _, e := range entries {
		chunks = append(chunks, &Chunk{
			Source:  file.Path,
			Heading: e.Heading,
			Body:    e.Content,
		})
	}
	return chunks, nil
}
