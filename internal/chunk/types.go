// Package chunk splits documentation corpora into heading-scoped chunks.
//
// Two text dialects are supported. The generic dialect starts a chunk at every
// line beginning with '#'. The structured dialect additionally tracks
// provenance marker lines ("Source: https://..." and "[EN] Source: ...") and
// stamps the current values onto every chunk produced after them. JSON files
// holding a list of {heading, content} objects are accepted by both.
package chunk

import (
	"context"
	"fmt"
	"strings"
)

// Dialect selects how plain-text corpus files are split.
type Dialect string

const (
	// DialectGeneric splits on heading lines only.
	DialectGeneric Dialect = "generic"
	// DialectStructured splits on headings and provenance markers.
	DialectStructured Dialect = "structured"
)

// ParseDialect converts a configuration string into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case DialectGeneric, "":
		return DialectGeneric, nil
	case DialectStructured:
		return DialectStructured, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (supported: generic, structured)", s)
	}
}

// Chunk is one heading-scoped span of a corpus file.
// Chunks are immutable once produced.
type Chunk struct {
	Source    string // Originating file path
	Heading   string // Empty for text that precedes the first heading
	Body      string // Trimmed body text
	Offset    int    // Byte offset of the chunk's first line in the file
	StartLine int    // 1-indexed; 0 when the source has no line structure (JSON)
	URL       string // Structured dialect: current "Source:" URL
	Section   string // Structured dialect: current section marker line
}

// FileInput is input for the Chunker interface
type FileInput struct {
	Path    string
	Content []byte
}

// Chunker is the interface for splitting files into chunks
type Chunker interface {
	// Chunk splits a file into heading-scoped chunks
	Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error)

	// RetainsText reports whether the file text should be kept for citations
	RetainsText() bool
}

// DefaultExtensions are the file extensions loaded when walking a directory.
var DefaultExtensions = []string{".md", ".markdown", ".json", ".txt"}
