// Package configs provides embedded configuration templates for docsmcp.
//
// Templates are embedded at build time so they ship with every binary.
//
// The templates are used by:
//   - cmd/docsmcp/cmd/config.go: `docsmcp config init` writes ConfigTemplate
//   - internal/validation: the built-in query set for `docsmcp validate`
//
// Configuration Hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/docsmcp/config.yaml)
//  3. Project config (.docsmcp.yaml)
//  4. Environment variables (DOCSMCP_*, CEDAR_DOCS_PATH, MASTRA_DOCS_PATH,
//     SUPABASE_URL, SUPABASE_KEY, OPENAI_API_KEY)
package configs

import _ "embed"

// ConfigTemplate is the commented starting point for a docsmcp config file.
//
//go:embed config.example.yaml
var ConfigTemplate string

// ValidationQueries is the built-in golden query set for the Cedar-OS and
// Mastra corpora.
//
//go:embed validation-queries.yaml
var ValidationQueries string
