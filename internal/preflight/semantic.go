package preflight

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/docsmcp/internal/config"
)

// CheckSemantic reports whether semantic search can run. Missing
// credentials are warnings since keyword search still answers.
func (c *Checker) CheckSemantic(ctx context.Context, sc config.SemanticConfig) CheckResult {
	result := CheckResult{
		Name:     "semantic",
		Required: false,
	}

	if !sc.Enabled {
		result.Status = StatusPass
		result.Message = "disabled (keyword search only)"
		return result
	}

	var missing []string
	if sc.Embedding.APIKey == "" {
		missing = append(missing, "embedding API key")
	}
	switch sc.Backend {
	case config.BackendPostgres:
		if sc.DSN == "" {
			missing = append(missing, "postgres DSN")
		}
	case config.BackendPostgREST:
		if sc.URL == "" || sc.Key == "" {
			missing = append(missing, "vector store URL and key")
		}
	}
	if len(missing) > 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("enabled but missing %v; keyword search will be used", missing)
		result.Details = "Set OPENAI_API_KEY and SUPABASE_URL/SUPABASE_KEY or DOCSMCP_SEMANTIC_DSN"
		return result
	}

	if c.probe == nil {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s backend, model %s (not probed)", sc.Backend, sc.Embedding.Model)
		return result
	}

	pctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	if err := c.probe(pctx); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s backend unreachable; the direct scan and keyword fallbacks will be used", sc.Backend)
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s backend reachable, model %s", sc.Backend, sc.Embedding.Model)
	return result
}
