package search

import (
	"regexp"
	"sort"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// lineIndex maps byte offsets to 1-based line numbers. Entry 0 is 0 and
// entry i is the offset just past the terminator of line i.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	offsets := lineIndex{0}
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			offsets = append(offsets, i+1)
			start = i + 1
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			offsets = append(offsets, i+1)
			start = i + 1
		}
	}
	if start < len(text) {
		offsets = append(offsets, len(text))
	}
	return offsets
}

// lineAt returns the 1-based line containing byte offset idx.
func (li lineIndex) lineAt(idx int) int {
	line := sort.Search(len(li), func(i int) bool { return li[i] > idx })
	if line < 1 {
		return 1
	}
	return line
}

// sourceText is a raw file kept for citation lookups.
type sourceText struct {
	text  string
	lines lineIndex
}

func newSourceText(text string) *sourceText {
	return &sourceText{text: text, lines: newLineIndex(text)}
}

// lineCache memoizes token line scans for the results of one query, which
// often cite the same source file.
type lineCache map[lineKey][]int

type lineKey struct {
	source string
	token  string
}

// tokenLines returns the distinct lines on which a word starting with token
// occurs, case-insensitively, in order of first occurrence.
func (st *sourceText) tokenLines(token string) ([]int, error) {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(token) + `\w*\b`)
	if err != nil {
		return nil, docserrors.New(docserrors.ErrCodeCitationFailed, "cannot build token pattern", err).
			WithDetail("token", token)
	}
	var lines []int
	seen := make(map[int]struct{})
	for _, loc := range re.FindAllStringIndex(st.text, -1) {
		line := st.lines.lineAt(loc[0])
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		lines = append(lines, line)
	}
	return lines, nil
}

// citation builds a span for the given tokens, or nil when none of them
// occurs in the text. Each token keeps at most lineCap lines, but the span
// covers every occurrence. cache may be nil.
func (st *sourceText) citation(source string, tokens []string, lineCap int, cache lineCache) (*CitationSpan, error) {
	tokenLines := make(map[string][]int)
	start, end := 0, 0
	for _, tok := range tokens {
		key := lineKey{source: source, token: tok}
		lines, ok := cache[key]
		if !ok {
			var err error
			if lines, err = st.tokenLines(tok); err != nil {
				return nil, err
			}
			if cache != nil {
				cache[key] = lines
			}
		}
		if len(lines) == 0 {
			continue
		}
		for _, l := range lines {
			if start == 0 || l < start {
				start = l
			}
			if l > end {
				end = l
			}
		}
		if lineCap > 0 && len(lines) > lineCap {
			lines = lines[:lineCap]
		}
		tokenLines[tok] = lines
	}
	if len(tokenLines) == 0 {
		return nil, nil
	}
	return &CitationSpan{
		Source:     source,
		StartLine:  start,
		EndLine:    end,
		TokenLines: tokenLines,
	}, nil
}
