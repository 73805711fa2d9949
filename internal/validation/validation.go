// Package validation runs golden retrieval queries against the loaded
// documentation indexes. Queries are data-driven, read from YAML, so they
// can be changed without rebuilding; the built-in set is embedded from
// configs/validation-queries.yaml.
package validation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docsmcp/configs"
	"github.com/Aman-CERP/docsmcp/internal/search"
)

// DefaultLimit is the number of results inspected per query.
const DefaultLimit = 5

// QuerySpec defines a query with expected results.
type QuerySpec struct {
	ID       string   `yaml:"id"`       // e.g., "C-3"
	Name     string   `yaml:"name"`     // Human-readable name
	Query    string   `yaml:"query"`    // The search query
	Domain   string   `yaml:"domain"`   // auto (default), all, or a corpus name
	Expected []string `yaml:"expected"` // Substrings of a heading, URL or source
	Notes    string   `yaml:"notes"`    // Optional explanation for maintainers
}

// QueryConfig holds all validation queries loaded from YAML.
type QueryConfig struct {
	Queries  []QuerySpec `yaml:"queries"`
	Negative []QuerySpec `yaml:"negative"`
}

// LoadQueries reads queries from path, or the built-in set when path is "".
func LoadQueries(path string) (*QueryConfig, error) {
	data := []byte(configs.ValidationQueries)
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read queries file %s: %w", path, err)
		}
	}
	return ParseQueries(data)
}

// ParseQueries parses a YAML query set.
func ParseQueries(data []byte) (*QueryConfig, error) {
	var cfg QueryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse queries YAML: %w", err)
	}
	for _, spec := range append(append([]QuerySpec{}, cfg.Queries...), cfg.Negative...) {
		if strings.TrimSpace(spec.Query) == "" {
			return nil, fmt.Errorf("query %s has no query text", spec.ID)
		}
	}
	for _, spec := range cfg.Queries {
		if len(spec.Expected) == 0 {
			return nil, fmt.Errorf("query %s has no expected results", spec.ID)
		}
	}
	return &cfg, nil
}

// TestResult captures the outcome of a single query.
type TestResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Domain     string        `json:"domain"`
	Duration   time.Duration `json:"duration_ns"`
	TopResults []string      `json:"top_results"` // Headings returned
	MatchedAt  int           `json:"matched_at"`  // Position of first match (-1 if not found)
	Error      string        `json:"error,omitempty"`
}

// ValidationResult captures results of a full validation run.
type ValidationResult struct {
	Timestamp time.Time    `json:"timestamp"`
	Queries   []TestResult `json:"queries"`
	Negative  []TestResult `json:"negative"`
	Pass      int          `json:"pass"`
	Total     int          `json:"total"`
	NegPass   int          `json:"negative_pass"`
	NegTotal  int          `json:"negative_total"`
}

// Passed reports whether every query passed.
func (r *ValidationResult) Passed() bool {
	return r.Pass == r.Total && r.NegPass == r.NegTotal
}

// Validator runs query specs against a router.
type Validator struct {
	router *search.Router
	opts   search.SearchOptions
}

// NewValidator creates a validator. keywordOnly skips semantic search so
// results depend only on the local corpora.
func NewValidator(router *search.Router, limit int, keywordOnly bool) *Validator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Validator{
		router: router,
		opts:   search.SearchOptions{Limit: limit, KeywordOnly: keywordOnly},
	}
}

// RunQuery executes a query that expects a match.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) TestResult {
	result, results := v.run(ctx, spec)
	if result.Error != "" {
		return result
	}
	result.Passed, result.MatchedAt = checkExpected(results, spec.Expected)
	return result
}

// RunNegative executes a query that must come back empty ("not in docs").
func (v *Validator) RunNegative(ctx context.Context, spec QuerySpec) TestResult {
	result, results := v.run(ctx, spec)
	if result.Error != "" {
		return result
	}
	result.Passed = len(results) == 0
	return result
}

func (v *Validator) run(ctx context.Context, spec QuerySpec) (TestResult, []search.SearchResult) {
	start := time.Now()
	result := TestResult{Spec: spec, MatchedAt: -1}

	var results []search.SearchResult
	var err error
	if spec.Domain == "all" {
		var per map[string][]search.SearchResult
		per, err = v.router.SearchAll(ctx, spec.Query, v.opts)
		for _, d := range v.router.Domains() {
			results = append(results, per[d]...)
		}
		result.Domain = "all"
	} else {
		results, result.Domain, err = v.router.Search(ctx, spec.Domain, spec.Query, v.opts)
	}
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	for _, r := range results {
		result.TopResults = append(result.TopResults, r.Heading)
	}
	return result, results
}

// RunAll executes every query in cfg.
func (v *Validator) RunAll(ctx context.Context, cfg *QueryConfig) *ValidationResult {
	out := &ValidationResult{Timestamp: time.Now()}

	for _, spec := range cfg.Queries {
		tr := v.RunQuery(ctx, spec)
		out.Queries = append(out.Queries, tr)
		out.Total++
		if tr.Passed {
			out.Pass++
		}
	}
	for _, spec := range cfg.Negative {
		tr := v.RunNegative(ctx, spec)
		out.Negative = append(out.Negative, tr)
		out.NegTotal++
		if tr.Passed {
			out.NegPass++
		}
	}
	return out
}

// checkExpected reports the first result whose heading, URL or source
// contains any expected substring, case-insensitively.
func checkExpected(results []search.SearchResult, expected []string) (bool, int) {
	for i, r := range results {
		fields := strings.ToLower(r.Heading + "\n" + r.URL + "\n" + r.Source)
		for _, exp := range expected {
			if strings.Contains(fields, strings.ToLower(exp)) {
				return true, i
			}
		}
	}
	return false, -1
}
