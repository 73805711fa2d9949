package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/mcp"
	"github.com/Aman-CERP/docsmcp/internal/output"
	"github.com/Aman-CERP/docsmcp/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	domain      string // "auto", "all" or a corpus name
	limit       int
	format      string // "text", "json"
	keywordOnly bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the documentation corpora",
		Long: `Search the documentation corpora the same way the searchDocs tool does.

The domain is picked from the query unless --domain names one. Use
--domain all to search every corpus and merge the results by score.`,
		Example: `  docsmcp search "voice streaming setup"
  docsmcp search "workflow suspend" --domain mastra --limit 3
  docsmcp search "memory" --domain all --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.domain, "domain", "d", search.DomainAuto, "Domain: auto, all, or a corpus name")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.keywordOnly, "keyword-only", false, "Use keyword search only (skip semantic search)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (supported: text, json)", opts.format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger()

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := mcp.NewServer(a.router, cfg)
	if err != nil {
		return err
	}
	srv.SetLogger(logger)

	res, err := srv.Search(cmd.Context(), opts.domain, query, opts.limit, opts.keywordOnly)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	formatText(output.New(cmd.OutOrStdout()), query, res)
	return nil
}

// formatText outputs results in human-readable format.
func formatText(out *output.Writer, query string, res mcp.SearchOutput) {
	if len(res.Results) == 0 {
		out.Statusf("", "No results found for %q in %s (%s)", query, res.Domain, res.Note)
		if res.Suggestion != "" {
			out.Dim(res.Suggestion)
		}
		return
	}

	out.Statusf("🔍", "Found %d results for %q in %s:", len(res.Results), query, res.Domain)
	out.Newline()

	for i, r := range res.Results {
		title := r.Heading
		if title == "" {
			title = r.Source
		}
		out.Statusf("", "%d. %s (score: %.2f, %s)", i+1, title, r.Score, r.Origin)

		location := r.Domain + ": " + r.Source
		if r.Citation != nil && r.Citation.StartLine > 0 {
			location = fmt.Sprintf("%s:%d-%d", location, r.Citation.StartLine, r.Citation.EndLine)
		}
		out.Dim("   " + location)
		if r.URL != "" {
			out.Dim("   " + r.URL)
		}

		for _, line := range getSnippet(r.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}
}

// getSnippet returns the first n non-empty lines of content.
func getSnippet(content string, n int) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}
