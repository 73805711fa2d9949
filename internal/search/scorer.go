package search

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
)

// document is a chunk with its heading and body pre-split into normalized
// words, so scoring does no regex work per query.
type document struct {
	chunk        *chunk.Chunk
	headingWords []string
	bodyWords    []string
}

func newDocument(c *chunk.Chunk) *document {
	return &document{
		chunk:        c,
		headingWords: strings.Fields(Normalize(c.Heading)),
		bodyWords:    strings.Fields(Normalize(c.Body)),
	}
}

// ScorerConfig holds the weights of the keyword scorer.
type ScorerConfig struct {
	// HeadingWeight multiplies hits in the heading.
	HeadingWeight float64

	// SalientTokens are query tokens whose contribution is multiplied by
	// SalientWeight.
	SalientTokens []string
	SalientWeight float64
}

// DefaultScorerConfig returns the weights used for plain markdown corpora.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{HeadingWeight: 2, SalientWeight: 1}
}

// Scorer ranks documents against query tokens.
type Scorer struct {
	headingWeight float64
	salientWeight float64
	salient       map[string]struct{}
}

// NewScorer creates a scorer. A non-positive heading or salient weight is
// replaced by the default.
func NewScorer(cfg ScorerConfig) *Scorer {
	def := DefaultScorerConfig()
	if cfg.HeadingWeight <= 0 {
		cfg.HeadingWeight = def.HeadingWeight
	}
	if cfg.SalientWeight <= 0 {
		cfg.SalientWeight = def.SalientWeight
	}
	salient := make(map[string]struct{}, len(cfg.SalientTokens))
	for _, tok := range cfg.SalientTokens {
		salient[strings.ToLower(tok)] = struct{}{}
	}
	return &Scorer{
		headingWeight: cfg.HeadingWeight,
		salientWeight: cfg.SalientWeight,
		salient:       salient,
	}
}

// scored is a document that matched at least one token.
type scored struct {
	doc   *document
	score float64
	// matched lists the tokens with a non-zero contribution, in query order.
	matched []string
	// hits holds each matched token's weighted contribution, truncated.
	hits map[string]int
}

// Rank scores every document, drops documents scoring zero and returns at
// most limit documents ordered by score and then by the number of distinct
// matched tokens, both descending. Ties keep corpus order.
func (s *Scorer) Rank(docs []*document, tokens []string, limit int) []scored {
	if limit <= 0 || len(tokens) == 0 {
		return nil
	}

	hits := make([]scored, 0)
	for _, doc := range docs {
		if sc, ok := s.score(doc, tokens); ok {
			hits = append(hits, sc)
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return len(hits[i].matched) > len(hits[j].matched)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (s *Scorer) score(doc *document, tokens []string) (scored, bool) {
	var total float64
	var matched []string
	hits := make(map[string]int)
	for _, tok := range tokens {
		headingHits := countPrefixed(doc.headingWords, tok)
		bodyHits := countPrefixed(doc.bodyWords, tok)
		if headingHits == 0 && bodyHits == 0 {
			continue
		}
		contribution := float64(headingHits)*s.headingWeight + float64(bodyHits)
		if _, ok := s.salient[tok]; ok {
			contribution *= s.salientWeight
		}
		total += contribution
		matched = append(matched, tok)
		hits[tok] = int(contribution)
	}
	if total <= 0 {
		return scored{}, false
	}
	return scored{doc: doc, score: total, matched: matched, hits: hits}, true
}

// countPrefixed counts words that start with token. Words are normalized,
// so a prefix match is a match at a word boundary extending over word
// characters.
func countPrefixed(words []string, token string) int {
	n := 0
	for _, w := range words {
		if strings.HasPrefix(w, token) {
			n++
		}
	}
	return n
}
