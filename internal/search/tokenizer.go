package search

import (
	"regexp"
	"strings"
)

// MinTokenLength is the shortest token kept unless it is allow-listed.
const MinTokenLength = 3

var (
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, replaces every character outside [a-z0-9] with
// a space and collapses runs of whitespace into single spaces.
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	cleaned := nonAlnumRegex.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(cleaned, " "))
}

// Tokenizer produces comparable tokens from free text.
type Tokenizer struct {
	short map[string]struct{}
}

// NewTokenizer creates a tokenizer that keeps the given short tokens
// (domain abbreviations such as "ui" or "mcp") despite MinTokenLength.
func NewTokenizer(shortTokens []string) *Tokenizer {
	short := make(map[string]struct{}, len(shortTokens))
	for _, s := range shortTokens {
		short[strings.ToLower(s)] = struct{}{}
	}
	return &Tokenizer{short: short}
}

// Tokenize returns the normalized tokens of text in order, dropping tokens
// shorter than MinTokenLength that are not allow-listed.
func (t *Tokenizer) Tokenize(text string) []string {
	words := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) >= MinTokenLength {
			tokens = append(tokens, w)
			continue
		}
		if _, ok := t.short[w]; ok {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// QueryTokens tokenizes a query and removes duplicates, keeping the first
// occurrence of each token.
func (t *Tokenizer) QueryTokens(query string) []string {
	tokens := t.Tokenize(query)
	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		unique = append(unique, tok)
	}
	return unique
}
