// Package config loads docsmcp configuration from defaults, YAML files and
// the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names for the semantic vector store.
const (
	BackendPostgres  = "postgres"
	BackendPostgREST = "postgrest"
)

// Config represents the complete docsmcp configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Corpora  []CorpusConfig `yaml:"corpora" json:"corpora"`
	Router   RouterConfig   `yaml:"router" json:"router"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Semantic SemanticConfig `yaml:"semantic" json:"semantic"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// CorpusConfig defines one documentation domain.
type CorpusConfig struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title" json:"title"`
	// Path is a file or directory; relative paths resolve against the
	// directory the configuration was loaded from.
	Path       string   `yaml:"path" json:"path"`
	Dialect    string   `yaml:"dialect" json:"dialect"`
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`

	HeadingWeight float64  `yaml:"heading_weight" json:"heading_weight"`
	SalientTokens []string `yaml:"salient_tokens,omitempty" json:"salient_tokens,omitempty"`
	SalientWeight float64  `yaml:"salient_weight" json:"salient_weight"`
	ShortTokens   []string `yaml:"short_tokens,omitempty" json:"short_tokens,omitempty"`

	SourceMarker   string `yaml:"source_marker,omitempty" json:"source_marker,omitempty"`
	SectionMarker  string `yaml:"section_marker,omitempty" json:"section_marker,omitempty"`
	SectionPattern string `yaml:"section_pattern,omitempty" json:"section_pattern,omitempty"`

	RouteKeywords []string `yaml:"route_keywords,omitempty" json:"route_keywords,omitempty"`
	ResourceURI   string   `yaml:"resource_uri" json:"resource_uri"`

	// ProductID filters this corpus' rows in the vector store. Empty means
	// semantic.product_id.
	ProductID string `yaml:"product_id,omitempty" json:"product_id,omitempty"`

	ContentLimit    int `yaml:"content_limit" json:"content_limit"`
	CitationLineCap int `yaml:"citation_line_cap" json:"citation_line_cap"`
}

// RouterConfig configures domain selection.
type RouterConfig struct {
	DefaultDomain string `yaml:"default_domain" json:"default_domain"`
}

// SearchConfig configures result limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`
}

// SemanticConfig configures the remote vector search.
type SemanticConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Backend   string  `yaml:"backend" json:"backend"`
	DSN       string  `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	URL       string  `yaml:"url,omitempty" json:"url,omitempty"`
	Key       string  `yaml:"key,omitempty" json:"key,omitempty"`
	Table     string  `yaml:"table" json:"table"`
	ProductID string  `yaml:"product_id" json:"product_id"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// Timeout bounds each network call, e.g. "8s".
	Timeout   string          `yaml:"timeout" json:"timeout"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
}

// EmbeddingConfig configures the query embedder.
type EmbeddingConfig struct {
	BaseURL           string  `yaml:"base_url" json:"base_url"`
	APIKey            string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Model             string  `yaml:"model" json:"model"`
	Dimensions        int     `yaml:"dimensions" json:"dimensions"`
	CacheSize         int     `yaml:"cache_size" json:"cache_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport     string `yaml:"transport" json:"transport"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
	Watch         bool   `yaml:"watch" json:"watch"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// DefaultCorpora returns the built-in Cedar-OS and Mastra corpora.
func DefaultCorpora() []CorpusConfig {
	return []CorpusConfig{
		{
			Name:            "cedar",
			Title:           "Cedar-OS Documentation",
			Path:            filepath.Join("docs", "cedar_llms_full.txt"),
			Dialect:         "generic",
			Extensions:      []string{".md", ".markdown", ".json", ".txt"},
			HeadingWeight:   2,
			SalientWeight:   1,
			ShortTokens:     []string{"ui", "os", "ai", "llm", "sse", "ux"},
			RouteKeywords:   []string{"cedar", "copilot", "spell", "radial", "chatinput", "voice", "speech", "audio", "streaming", "react", "hook", "component", "provider", "theme", "mention", "sidebar", "floating", "frontend"},
			ResourceURI:     "cedar://docs",
			ContentLimit:    2000,
			CitationLineCap: 10,
		},
		{
			Name:            "mastra",
			Title:           "Mastra Documentation",
			Path:            filepath.Join("docs", "mastra_llms_full.txt"),
			Dialect:         "structured",
			Extensions:      []string{".md", ".markdown", ".json", ".txt"},
			HeadingWeight:   3,
			SalientTokens:   []string{"mastra", "agent", "workflow", "tool", "memory"},
			SalientWeight:   2,
			ShortTokens:     []string{"mcp", "ai", "llm", "api", "jwt", "cli", "sdk"},
			SourceMarker:    "Source: https://mastra.ai/",
			SectionMarker:   "[EN] Source:",
			SectionPattern:  `\[EN\] Source: https://mastra\.ai/en/docs/(.+?)(?:/|$)`,
			RouteKeywords:   []string{"mastra", "agent", "workflow", "step", "memory", "tool", "rag", "vector", "embedding", "eval", "scorer", "deploy", "storage", "network"},
			ResourceURI:     "mastra://docs",
			ContentLimit:    2000,
			CitationLineCap: 10,
		},
	}
}

// withCorpusDefaults fills the zero fields of a corpus that has no built-in
// counterpart.
func withCorpusDefaults(cc CorpusConfig) CorpusConfig {
	if cc.Title == "" {
		cc.Title = cc.Name
	}
	if cc.Dialect == "" {
		cc.Dialect = "generic"
	}
	if len(cc.Extensions) == 0 {
		cc.Extensions = []string{".md", ".markdown", ".json", ".txt"}
	}
	if cc.HeadingWeight == 0 {
		cc.HeadingWeight = 2
	}
	if cc.SalientWeight == 0 {
		cc.SalientWeight = 1
	}
	if cc.ContentLimit == 0 {
		cc.ContentLimit = 2000
	}
	if cc.CitationLineCap == 0 {
		cc.CitationLineCap = 10
	}
	return cc
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpora: DefaultCorpora(),
		Router:  RouterConfig{DefaultDomain: "cedar"},
		Search: SearchConfig{
			DefaultLimit: 5,
			MaxLimit:     50,
		},
		Semantic: SemanticConfig{
			Enabled:   false,
			Backend:   BackendPostgREST,
			Table:     "browser_agent_nodes",
			ProductID: "b0cd564c-50e0-4cf5-812a-5d11c1fa63c8",
			Threshold: 0.5,
			Timeout:   "8s",
			Embedding: EmbeddingConfig{
				BaseURL:    "https://api.openai.com/v1",
				Model:      "text-embedding-3-small",
				Dimensions: 512,
				CacheSize:  1000,
			},
		},
		Server: ServerConfig{
			Transport:     "stdio",
			LogLevel:      "info",
			Watch:         false,
			WatchDebounce: "500ms",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/docsmcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/docsmcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsmcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docsmcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "docsmcp", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file in dir, preferring
// .docsmcp.yaml over .docsmcp.yml. It returns "" if neither exists.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{".docsmcp.yaml", ".docsmcp.yml"} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

// Load loads configuration for the given directory, in order of increasing
// precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/docsmcp/config.yaml)
//  3. Project config (.docsmcp.yaml in dir)
//  4. Environment variables (DOCSMCP_* and the corpus/credential variables)
//
// Relative corpus paths are resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if projectPath := ProjectConfigPath(dir); projectPath != "" {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Corpora are matched
// by name; unknown names are appended with defaults for unset fields.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	for _, oc := range other.Corpora {
		if existing := c.Corpus(oc.Name); existing != nil {
			existing.mergeWith(&oc)
			continue
		}
		c.Corpora = append(c.Corpora, withCorpusDefaults(oc))
	}

	if other.Router.DefaultDomain != "" {
		c.Router.DefaultDomain = other.Router.DefaultDomain
	}

	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}

	// Semantic: enabled can only be switched on from a file; use
	// DOCSMCP_SEMANTIC_ENABLED=false to switch it off.
	if other.Semantic.Enabled {
		c.Semantic.Enabled = true
	}
	mergeString(&c.Semantic.Backend, other.Semantic.Backend)
	mergeString(&c.Semantic.DSN, other.Semantic.DSN)
	mergeString(&c.Semantic.URL, other.Semantic.URL)
	mergeString(&c.Semantic.Key, other.Semantic.Key)
	mergeString(&c.Semantic.Table, other.Semantic.Table)
	mergeString(&c.Semantic.ProductID, other.Semantic.ProductID)
	mergeString(&c.Semantic.Timeout, other.Semantic.Timeout)
	if other.Semantic.Threshold != 0 {
		c.Semantic.Threshold = other.Semantic.Threshold
	}

	oe := other.Semantic.Embedding
	mergeString(&c.Semantic.Embedding.BaseURL, oe.BaseURL)
	mergeString(&c.Semantic.Embedding.APIKey, oe.APIKey)
	mergeString(&c.Semantic.Embedding.Model, oe.Model)
	if oe.Dimensions != 0 {
		c.Semantic.Embedding.Dimensions = oe.Dimensions
	}
	if oe.CacheSize != 0 {
		c.Semantic.Embedding.CacheSize = oe.CacheSize
	}
	if oe.RequestsPerSecond != 0 {
		c.Semantic.Embedding.RequestsPerSecond = oe.RequestsPerSecond
	}

	mergeString(&c.Server.Transport, other.Server.Transport)
	mergeString(&c.Server.LogLevel, other.Server.LogLevel)
	mergeString(&c.Server.WatchDebounce, other.Server.WatchDebounce)
	if other.Server.Watch {
		c.Server.Watch = true
	}
}

func (cc *CorpusConfig) mergeWith(other *CorpusConfig) {
	mergeString(&cc.Title, other.Title)
	mergeString(&cc.Path, other.Path)
	mergeString(&cc.Dialect, other.Dialect)
	mergeString(&cc.SourceMarker, other.SourceMarker)
	mergeString(&cc.SectionMarker, other.SectionMarker)
	mergeString(&cc.SectionPattern, other.SectionPattern)
	mergeString(&cc.ResourceURI, other.ResourceURI)
	mergeString(&cc.ProductID, other.ProductID)
	if len(other.Extensions) > 0 {
		cc.Extensions = other.Extensions
	}
	if len(other.SalientTokens) > 0 {
		cc.SalientTokens = other.SalientTokens
	}
	if len(other.ShortTokens) > 0 {
		cc.ShortTokens = other.ShortTokens
	}
	if len(other.RouteKeywords) > 0 {
		cc.RouteKeywords = other.RouteKeywords
	}
	if other.HeadingWeight != 0 {
		cc.HeadingWeight = other.HeadingWeight
	}
	if other.SalientWeight != 0 {
		cc.SalientWeight = other.SalientWeight
	}
	if other.ContentLimit != 0 {
		cc.ContentLimit = other.ContentLimit
	}
	if other.CitationLineCap != 0 {
		cc.CitationLineCap = other.CitationLineCap
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCSMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCSMCP_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("DOCSMCP_WATCH"); v != "" {
		c.Server.Watch = parseBool(v)
	}
	if v := os.Getenv("DOCSMCP_DEFAULT_DOMAIN"); v != "" {
		c.Router.DefaultDomain = v
	}

	// Corpus paths, named after the domains they override.
	if v := os.Getenv("CEDAR_DOCS_PATH"); v != "" {
		if cc := c.Corpus("cedar"); cc != nil {
			cc.Path = v
		}
	}
	if v := os.Getenv("MASTRA_DOCS_PATH"); v != "" {
		if cc := c.Corpus("mastra"); cc != nil {
			cc.Path = v
		}
	}

	// Supabase credentials select the REST backend and enable semantic search.
	supabaseURL, supabaseKey := os.Getenv("SUPABASE_URL"), os.Getenv("SUPABASE_KEY")
	if supabaseURL != "" && supabaseKey != "" {
		c.Semantic.Backend = BackendPostgREST
		c.Semantic.URL = supabaseURL
		c.Semantic.Key = supabaseKey
		c.Semantic.Enabled = true
	}
	if v := os.Getenv("DOCSMCP_SEMANTIC_DSN"); v != "" {
		c.Semantic.Backend = BackendPostgres
		c.Semantic.DSN = v
		c.Semantic.Enabled = true
	}
	if v := os.Getenv("DOCSMCP_SEMANTIC_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && t >= 0 && t <= 1 {
			c.Semantic.Threshold = t
		}
	}
	if v := os.Getenv("DOCSMCP_SEMANTIC_ENABLED"); v != "" {
		c.Semantic.Enabled = parseBool(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Semantic.Embedding.APIKey = v
	}
	if v := os.Getenv("DOCSMCP_EMBEDDING_MODEL"); v != "" {
		c.Semantic.Embedding.Model = v
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// resolvePaths makes relative corpus paths absolute against dir.
func (c *Config) resolvePaths(dir string) {
	for i := range c.Corpora {
		p := c.Corpora[i].Path
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		if strings.HasPrefix(p, "~"+string(filepath.Separator)) {
			if home, err := os.UserHomeDir(); err == nil {
				c.Corpora[i].Path = filepath.Join(home, p[2:])
				continue
			}
		}
		c.Corpora[i].Path = filepath.Join(dir, p)
	}
}

// Corpus returns the corpus with the given name, or nil.
func (c *Config) Corpus(name string) *CorpusConfig {
	for i := range c.Corpora {
		if c.Corpora[i].Name == name {
			return &c.Corpora[i]
		}
	}
	return nil
}

// CorpusNames returns the configured corpus names in order.
func (c *Config) CorpusNames() []string {
	names := make([]string, 0, len(c.Corpora))
	for _, cc := range c.Corpora {
		names = append(names, cc.Name)
	}
	return names
}

// ProductID returns the vector store product filter for a corpus: its own
// product_id when set, otherwise semantic.product_id.
func (c *Config) ProductID(corpus string) string {
	if cc := c.Corpus(corpus); cc != nil && cc.ProductID != "" {
		return cc.ProductID
	}
	return c.Semantic.ProductID
}

// SemanticTimeout returns the parsed semantic timeout, defaulting to 8s.
func (c *Config) SemanticTimeout() time.Duration {
	return parseDurationOr(c.Semantic.Timeout, 8*time.Second)
}

// WatchDebounce returns the parsed watch debounce, defaulting to 500ms.
func (c *Config) WatchDebounce() time.Duration {
	return parseDurationOr(c.Server.WatchDebounce, 500*time.Millisecond)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Corpora = append([]CorpusConfig(nil), c.Corpora...)
	out.Semantic.DSN = redact(c.Semantic.DSN)
	out.Semantic.Key = redact(c.Semantic.Key)
	out.Semantic.Embedding.APIKey = redact(c.Semantic.Embedding.APIKey)
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
