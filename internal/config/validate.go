package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	validTransports = map[string]bool{"stdio": true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validBackends   = map[string]bool{BackendPostgres: true, BackendPostgREST: true}
	validDialects   = map[string]bool{"": true, "generic": true, "structured": true}
	corpusNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.Corpora) == 0 {
		return fmt.Errorf("at least one corpus must be configured")
	}

	seen := make(map[string]bool, len(c.Corpora))
	for i := range c.Corpora {
		cc := &c.Corpora[i]
		if err := cc.validate(); err != nil {
			return err
		}
		if seen[cc.Name] {
			return fmt.Errorf("duplicate corpus name %q", cc.Name)
		}
		seen[cc.Name] = true
	}

	if !seen[c.Router.DefaultDomain] {
		return fmt.Errorf("router.default_domain %q does not name a configured corpus", c.Router.DefaultDomain)
	}

	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be at least search.default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}

	if c.Semantic.Threshold < 0 || c.Semantic.Threshold > 1 {
		return fmt.Errorf("semantic.threshold must be between 0 and 1, got %f", c.Semantic.Threshold)
	}
	if !validBackends[strings.ToLower(c.Semantic.Backend)] {
		return fmt.Errorf("semantic.backend must be 'postgres' or 'postgrest', got %s", c.Semantic.Backend)
	}
	if c.Semantic.Timeout != "" {
		if _, err := time.ParseDuration(c.Semantic.Timeout); err != nil {
			return fmt.Errorf("semantic.timeout: %w", err)
		}
	}
	if c.Semantic.Enabled && c.Semantic.Embedding.Dimensions <= 0 {
		return fmt.Errorf("semantic.embedding.dimensions must be positive, got %d", c.Semantic.Embedding.Dimensions)
	}

	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	if !validLogLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	if c.Server.WatchDebounce != "" {
		if _, err := time.ParseDuration(c.Server.WatchDebounce); err != nil {
			return fmt.Errorf("server.watch_debounce: %w", err)
		}
	}

	return nil
}

func (cc *CorpusConfig) validate() error {
	if !corpusNameRegex.MatchString(cc.Name) {
		return fmt.Errorf("corpus name %q must be lowercase letters, digits, '-' or '_'", cc.Name)
	}
	if cc.Name == "auto" || cc.Name == "all" {
		return fmt.Errorf("corpus name %q is reserved", cc.Name)
	}
	if !validDialects[strings.ToLower(cc.Dialect)] {
		return fmt.Errorf("corpus %s: dialect must be 'generic' or 'structured', got %s", cc.Name, cc.Dialect)
	}
	if cc.HeadingWeight <= 0 {
		return fmt.Errorf("corpus %s: heading_weight must be positive, got %f", cc.Name, cc.HeadingWeight)
	}
	if cc.SalientWeight <= 0 {
		return fmt.Errorf("corpus %s: salient_weight must be positive, got %f", cc.Name, cc.SalientWeight)
	}
	if cc.ContentLimit < 0 || cc.CitationLineCap < 0 {
		return fmt.Errorf("corpus %s: content_limit and citation_line_cap must be non-negative", cc.Name)
	}
	if cc.SectionPattern != "" {
		if _, err := regexp.Compile(cc.SectionPattern); err != nil {
			return fmt.Errorf("corpus %s: section_pattern: %w", cc.Name, err)
		}
	}
	return nil
}
