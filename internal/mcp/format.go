package mcp

import (
	"fmt"
	"sort"

	"github.com/Aman-CERP/docsmcp/internal/search"
)

// Limits applied to tool inputs.
const (
	DefaultLimit = 5
	MinLimit     = 1
	MaxLimit     = 50
)

const mastraSuggestion = "Try searching for: agents, workflows, tools, memory, MCP, authentication, or specific Mastra features"

// clampLimit returns defaultVal for non-positive limits and clamps the rest
// to [min, max].
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// promptFor builds the answering instructions returned with results.
// title is the corpus title, used for domains without a dedicated prompt.
func promptFor(domain, title, query string) string {
	switch domain {
	case "cedar":
		return fmt.Sprintf("Search the Cedar-OS documentation for the query and return the most relevant sections with citations: '%s'.", query)
	case "mastra":
		return fmt.Sprintf("Search the Mastra backend documentation for information about: '%s'. "+
			"Return relevant sections about agents, workflows, tools, memory, MCP integration, authentication, "+
			"or other Mastra backend features. Include code examples and implementation details when available.", query)
	case DomainAll:
		return fmt.Sprintf("Search all available documentation for the query and return the most relevant sections with citations, naming the domain of each: '%s'.", query)
	}
	if title == "" {
		title = domain + " documentation"
	}
	return fmt.Sprintf("Search the %s for the query and return the most relevant sections with citations: '%s'.", title, query)
}

// toResultOutput converts a search result to its wire form.
func toResultOutput(domain string, r search.SearchResult) ResultOutput {
	return ResultOutput{
		Domain:        domain,
		Source:        r.Source,
		Heading:       r.Heading,
		Content:       r.Content,
		Score:         r.Score,
		MatchedTokens: r.MatchedTokens,
		Similarity:    r.Similarity,
		Citation:      r.Citation,
		URL:           r.URL,
		Section:       r.Section,
		Origin:        r.Origin,
	}
}

func toResultOutputs(domain string, results []search.SearchResult) []ResultOutput {
	out := make([]ResultOutput, 0, len(results))
	for _, r := range results {
		out = append(out, toResultOutput(domain, r))
	}
	return out
}

// mergeResults interleaves per-domain results by score, keeping domain order
// for ties, and keeps the best limit results.
func mergeResults(order []string, perDomain map[string][]search.SearchResult, limit int) []ResultOutput {
	var merged []ResultOutput
	for _, domain := range order {
		merged = append(merged, toResultOutputs(domain, perDomain[domain])...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	if merged == nil {
		merged = []ResultOutput{}
	}
	return merged
}

// primaryOrigin reports the origin of the top result, or "" when empty.
func primaryOrigin(results []ResultOutput) string {
	if len(results) == 0 {
		return ""
	}
	return string(results[0].Origin)
}
