package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsmcp/internal/chunk"
)

func docs(pairs ...string) []*document {
	out := make([]*document, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, newDocument(&chunk.Chunk{Source: "doc.md", Heading: pairs[i], Body: pairs[i+1]}))
	}
	return out
}

func headings(ranked []scored) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.doc.chunk.Heading)
	}
	return out
}

func TestCountPrefixed(t *testing.T) {
	words := []string{"tool", "tools", "toolkit", "stool", "atool"}

	assert.Equal(t, 3, countPrefixed(words, "tool"))
	assert.Equal(t, 1, countPrefixed(words, "stool"))
	assert.Equal(t, 0, countPrefixed(words, "hammer"))
	assert.Equal(t, 0, countPrefixed(nil, "tool"))
}

func TestScorer_Rank_HeadingBoost(t *testing.T) {
	// Given: A has the token once in its heading, B once in its body
	s := NewScorer(DefaultScorerConfig())
	corpus := docs(
		"Unrelated", "explains the theme provider",
		"Theme", "nothing else here",
	)

	// When: ranking for the token
	ranked := s.Rank(corpus, []string{"theme"}, 5)

	// Then: the heading hit ranks first and scores heading_weight
	require.Len(t, ranked, 2)
	assert.Equal(t, "Theme", ranked[0].doc.chunk.Heading)
	assert.Equal(t, 2.0, ranked[0].score)
	assert.Equal(t, 1.0, ranked[1].score)
}

func TestScorer_Rank_HeadingWeightAgainstBodyHits(t *testing.T) {
	// A single heading hit beats three body hits only when heading_weight > 3.
	corpus := docs(
		"Streaming Setup", "configure SSE endpoint",
		"Other", "streaming streaming streaming text",
	)

	tests := []struct {
		name   string
		weight float64
		want   []string
		scores []float64
	}{
		{"weight above body hits", 4, []string{"Streaming Setup", "Other"}, []float64{4, 3}},
		{"cedar default weight", 2, []string{"Other", "Streaming Setup"}, []float64{3, 2}},
		{"mastra default weight ties", 3, []string{"Streaming Setup", "Other"}, []float64{3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: the heading weight under test
			s := NewScorer(ScorerConfig{HeadingWeight: tt.weight})

			// When: ranking for "streaming"
			ranked := s.Rank(corpus, []string{"streaming"}, 5)

			// Then: the order follows the weighted totals, ties keep corpus order
			assert.Equal(t, tt.want, headings(ranked))
			require.Len(t, ranked, 2)
			assert.Equal(t, tt.scores[0], ranked[0].score)
			assert.Equal(t, tt.scores[1], ranked[1].score)
		})
	}
}

func TestScorer_Rank_ExcludesZeroScores(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	corpus := docs("Alpha", "first", "Beta", "second")

	ranked := s.Rank(corpus, []string{"second"}, 5)

	assert.Equal(t, []string{"Beta"}, headings(ranked))
}

func TestScorer_Rank_PrefixVariants(t *testing.T) {
	// Given: body words that extend the query token
	s := NewScorer(DefaultScorerConfig())
	corpus := docs("Agents", "agentic agents agent")

	// When: ranking for the stem
	ranked := s.Rank(corpus, []string{"agent"}, 5)

	// Then: heading (1 x 2) plus three body variants
	require.Len(t, ranked, 1)
	assert.Equal(t, 5.0, ranked[0].score)
}

func TestScorer_Rank_SalientTokens(t *testing.T) {
	s := NewScorer(ScorerConfig{HeadingWeight: 3, SalientTokens: []string{"agent"}, SalientWeight: 2})
	corpus := docs("Agent", "an agent", "Other", "create workflow workflow workflow workflow")

	ranked := s.Rank(corpus, []string{"agent", "workflow"}, 5)

	// (1*3 + 1) * 2 = 8 for the salient token against 4 plain body hits
	require.Len(t, ranked, 2)
	assert.Equal(t, "Agent", ranked[0].doc.chunk.Heading)
	assert.Equal(t, 8.0, ranked[0].score)
	assert.Equal(t, 4.0, ranked[1].score)
}

func TestScorer_Rank_TieBreaksOnDistinctTokens(t *testing.T) {
	// Given: equal scores, one from two distinct tokens
	s := NewScorer(DefaultScorerConfig())
	corpus := docs(
		"One", "cache cache",
		"Two", "cache store",
	)

	ranked := s.Rank(corpus, []string{"cache", "store"}, 5)

	assert.Equal(t, []string{"Two", "One"}, headings(ranked))
	assert.Equal(t, []string{"cache", "store"}, ranked[0].matched)
	assert.Equal(t, map[string]int{"cache": 1, "store": 1}, ranked[0].hits)
	assert.Equal(t, map[string]int{"cache": 2}, ranked[1].hits)
}

func TestScorer_Rank_HitsPerToken(t *testing.T) {
	// Given: a salient token in heading and body next to a plain body token
	s := NewScorer(ScorerConfig{HeadingWeight: 3, SalientTokens: []string{"agent"}, SalientWeight: 2})
	corpus := docs("Agent Memory", "the agent stores memory and more memory")

	// When: ranking for both tokens and one that does not occur
	ranked := s.Rank(corpus, []string{"agent", "memory", "absent"}, 5)

	// Then: hits hold each token's weighted contribution and omit misses
	require.Len(t, ranked, 1)
	assert.Equal(t, map[string]int{"agent": 8, "memory": 5}, ranked[0].hits)
	assert.Equal(t, 13.0, ranked[0].score)
}

func TestScorer_Rank_StableForEqualKeys(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	corpus := docs("A", "cache", "B", "cache", "C", "cache")

	ranked := s.Rank(corpus, []string{"cache"}, 5)

	assert.Equal(t, []string{"A", "B", "C"}, headings(ranked))
}

func TestScorer_Rank_Limit(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	corpus := docs("A", "cache", "B", "cache", "C", "cache")

	assert.Len(t, s.Rank(corpus, []string{"cache"}, 2), 2)
	assert.Empty(t, s.Rank(corpus, []string{"cache"}, 0))
	assert.Empty(t, s.Rank(corpus, []string{"cache"}, -3))
	assert.Empty(t, s.Rank(corpus, nil, 5))
}

func TestNewScorer_DefaultsNonPositiveWeights(t *testing.T) {
	s := NewScorer(ScorerConfig{HeadingWeight: -1, SalientWeight: 0})

	assert.Equal(t, 2.0, s.headingWeight)
	assert.Equal(t, 1.0, s.salientWeight)
}
