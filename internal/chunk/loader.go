package chunk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// LoaderOptions configures corpus loading.
type LoaderOptions struct {
	Dialect    Dialect
	Provenance ProvenanceOptions
	// Extensions filters files when the corpus path is a directory.
	// Default: DefaultExtensions.
	Extensions []string
}

// LoadResult is the output of a single load pass.
type LoadResult struct {
	// Chunks in file encounter order, then line order.
	Chunks []*Chunk
	// Texts maps a source path to its full text, for text dialect files only.
	Texts map[string]string
	// Files is the number of files parsed successfully.
	Files int
	// Skipped lists the files that could not be parsed.
	Skipped []SkippedFile
}

// SkippedFile records a file dropped from the corpus and why.
type SkippedFile struct {
	Path string
	Err  error
}

// Loader turns a file or directory into chunks.
type Loader struct {
	text       Chunker
	json       Chunker
	extensions map[string]struct{}
	logger     *slog.Logger
}

// NewLoader creates a loader for the given dialect.
func NewLoader(opts LoaderOptions) *Loader {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	var text Chunker = NewHeadingChunker()
	if opts.Dialect == DialectStructured {
		text = NewProvenanceChunker(opts.Provenance)
	}

	return &Loader{
		text:       text,
		json:       NewJSONChunker(),
		extensions: allowed,
		logger:     slog.Default(),
	}
}

// Load parses path, which may be a single file or a directory walked
// recursively. Files that cannot be read or parsed are logged and skipped.
// An error is returned only when path itself does not exist or ctx is done.
func (l *Loader) Load(ctx context.Context, path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, docserrors.New(docserrors.ErrCodeCorpusNotFound,
			fmt.Sprintf("corpus path not found: %s", path), err).
			WithSuggestion("check the corpus path in .docsmcp.yaml or the *_DOCS_PATH variables")
	}

	res := &LoadResult{Texts: make(map[string]string)}

	if !info.IsDir() {
		l.loadFile(ctx, path, res)
		return res, ctx.Err()
	}

	files, err := l.discover(path)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		l.loadFile(ctx, f, res)
	}

	return res, nil
}

// discover lists files under root with an allowed extension, in lexical order.
// Unreadable subdirectories are skipped.
func (l *Loader) discover(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			l.logger.Warn("skipping unreadable corpus entry",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := l.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, docserrors.IOError(fmt.Sprintf("walk corpus directory %s", root), err)
	}
	return files, nil
}

// loadFile parses a single file into res, recording failures as skips.
func (l *Loader) loadFile(ctx context.Context, path string, res *LoadResult) {
	chunks, text, err := l.parseFile(ctx, path)
	if err != nil {
		res.Skipped = append(res.Skipped, SkippedFile{Path: path, Err: err})
		attrs := append([]slog.Attr{slog.String("path", path)}, docserrors.LogAttrs(err)...)
		l.logger.LogAttrs(ctx, slog.LevelWarn, "skipping corpus file", attrs...)
		return
	}

	res.Files++
	res.Chunks = append(res.Chunks, chunks...)
	if text != "" {
		res.Texts[path] = text
	}
}

func (l *Loader) parseFile(ctx context.Context, path string) ([]*Chunk, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", docserrors.IOError("cannot read corpus file", err).WithDetail("path", path)
	}
	if !utf8.Valid(data) {
		return nil, "", docserrors.New(docserrors.ErrCodeFileCorrupt, "corpus file is not valid UTF-8", nil).
			WithDetail("path", path)
	}

	chunker := l.text
	if strings.EqualFold(filepath.Ext(path), ".json") {
		chunker = l.json
	}

	chunks, err := chunker.Chunk(ctx, &FileInput{Path: path, Content: data})
	if err != nil {
		var de *docserrors.DocsError
		if errors.As(err, &de) {
			return nil, "", err
		}
		return nil, "", docserrors.New(docserrors.ErrCodeChunkingFailed, "cannot chunk corpus file", err).
			WithDetail("path", path)
	}

	if !chunker.RetainsText() {
		return chunks, "", nil
	}
	return chunks, string(data), nil
}
