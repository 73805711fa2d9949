package chunk

import (
	"context"
	"strings"
)

// HeadingChunker implements the generic dialect: every line starting with
// '#' closes the current chunk and opens a new heading.
type HeadingChunker struct{}

// NewHeadingChunker creates a generic-dialect chunker.
func NewHeadingChunker() *HeadingChunker {
	return &HeadingChunker{}
}

// RetainsText implements Chunker.
func (c *HeadingChunker) RetainsText() bool { return true }

// Chunk splits file content on heading lines. Text before the first heading
// becomes a chunk without a heading. Bodies are joined with "\n" and trimmed.
func (c *HeadingChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		chunks  []*Chunk
		heading string
		buf     accumulator
	)

	for _, ln := range splitLines(string(file.Content)) {
		if strings.HasPrefix(ln.text, "#") {
			if !buf.empty() {
				chunks = append(chunks, buf.chunk(file.Path, heading))
			}
			heading = strings.TrimLeft(ln.text, "# ")
			buf.reset()
			buf.anchor(ln)
			continue
		}
		buf.add(ln)
	}
	if !buf.empty() {
		chunks = append(chunks, buf.chunk(file.Path, heading))
	}

	return chunks, nil
}

// accumulator collects body lines and remembers where the chunk starts.
type accumulator struct {
	lines     []string
	offset    int
	startLine int
	anchored  bool
}

func (a *accumulator) empty() bool { return len(a.lines) == 0 }

func (a *accumulator) reset() {
	a.lines = a.lines[:0]
	a.anchored = false
}

// anchor pins the chunk start to ln (a heading line).
func (a *accumulator) anchor(ln line) {
	a.offset = ln.offset
	a.startLine = ln.number
	a.anchored = true
}

func (a *accumulator) add(ln line) {
	if !a.anchored {
		a.anchor(ln)
	}
	a.lines = append(a.lines, ln.text)
}

func (a *accumulator) body() string {
	return strings.TrimSpace(strings.Join(a.lines, "\n"))
}

func (a *accumulator) chunk(source, heading string) *Chunk {
	return &Chunk{
		Source:    source,
		Heading:   heading,
		Body:      a.body(),
		Offset:    a.offset,
		StartLine: a.startLine,
	}
}
