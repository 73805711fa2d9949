package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/output"
	"github.com/Aman-CERP/docsmcp/internal/search"
)

func newDescribeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "describe [domain]",
		Short: "Show what a corpus index contains",
		Long: `Load the corpora and print the same description the MCP resources
serve: chunk count, sources, sections and whether semantic search is on.

Without a domain every corpus is described.`,
		Example: `  docsmcp describe
  docsmcp describe mastra --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cliLogger())
			if err != nil {
				return err
			}
			defer a.Close()

			domains := a.router.Domains()
			if len(args) == 1 {
				domains = []string{args[0]}
			}

			descs := make([]search.Description, 0, len(domains))
			for _, d := range domains {
				desc, err := a.router.Describe(d)
				if err != nil {
					return err
				}
				descs = append(descs, desc)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if len(descs) == 1 {
					return enc.Encode(descs[0])
				}
				return enc.Encode(descs)
			}

			out := output.New(cmd.OutOrStdout())
			for i, d := range descs {
				if i > 0 {
					out.Newline()
				}
				printDescription(out, d)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printDescription(out *output.Writer, d search.Description) {
	out.Heading(d.Domain)
	out.KeyValue("Type", d.Type)
	path := "(none)"
	if d.DocsPath != nil {
		path = *d.DocsPath
	}
	out.KeyValue("Docs path", path)
	out.KeyValue("Chunks", d.NumChunks)
	out.KeyValue("Sources", len(d.Sources))
	if len(d.Sections) > 0 {
		out.KeyValue("Sections", len(d.Sections))
	}
	out.KeyValue("Semantic", fmt.Sprintf("%t", d.SemanticEnabled))
	if d.NumChunks == 0 {
		out.Warning("corpus is empty; searches in this domain return nothing")
	}
}
