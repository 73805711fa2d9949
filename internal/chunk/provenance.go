package chunk

import (
	"context"
	"strings"
)

// Default provenance markers of the structured dialect.
const (
	DefaultSourceMarker  = "Source: https://"
	DefaultSectionMarker = "[EN] Source:"
)

// ProvenanceOptions configures the structured dialect markers.
type ProvenanceOptions struct {
	// SourceMarker is the line prefix that sets the current URL.
	// The URL is the text after the first ':' of the line.
	SourceMarker string
	// SectionMarker is the line prefix that sets the current section.
	// The whole line becomes the section value.
	SectionMarker string
}

// ProvenanceChunker implements the structured dialect. Marker lines close
// the current chunk and update the URL or section attached to every chunk
// that follows, until superseded. Chunks are only produced under a heading
// and with a non-empty body.
type ProvenanceChunker struct {
	opts ProvenanceOptions
}

// NewProvenanceChunker creates a structured-dialect chunker.
func NewProvenanceChunker(opts ProvenanceOptions) *ProvenanceChunker {
	if opts.SourceMarker == "" {
		opts.SourceMarker = DefaultSourceMarker
	}
	if opts.SectionMarker == "" {
		opts.SectionMarker = DefaultSectionMarker
	}
	return &ProvenanceChunker{opts: opts}
}

// RetainsText implements Chunker.
func (c *ProvenanceChunker) RetainsText() bool { return true }

// Chunk splits file content on headings and provenance markers.
func (c *ProvenanceChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		chunks     []*Chunk
		heading    string
		hasHeading bool
		url        string
		section    string
		buf        accumulator
	)

	flush := func() {
		if hasHeading && !buf.empty() {
			if ch := buf.chunk(file.Path, heading); ch.Body != "" {
				ch.URL = url
				ch.Section = section
				chunks = append(chunks, ch)
			}
		}
		buf.reset()
	}

	for _, ln := range splitLines(string(file.Content)) {
		switch {
		case strings.HasPrefix(ln.text, c.opts.SourceMarker):
			flush()
			url = markerValue(ln.text)
		case strings.HasPrefix(ln.text, c.opts.SectionMarker):
			flush()
			section = ln.text
		case strings.HasPrefix(ln.text, "#"):
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(ln.text, "#"))
			hasHeading = true
			buf.anchor(ln)
		default:
			buf.add(ln)
		}
	}
	flush()

	return chunks, nil
}

// markerValue returns the trimmed text after the first ':' of a marker line.
func markerValue(s string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return strings.TrimSpace(s)
}
