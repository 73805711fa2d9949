package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/output"
	"github.com/Aman-CERP/docsmcp/internal/validation"
)

type validateOptions struct {
	queries    string
	limit      int
	semantic   bool
	jsonOutput bool
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run golden queries against the corpora",
		Long: `Run a set of golden queries and report which ones find their
expected sections.

Queries under "negative" must return nothing. The built-in set targets the
Cedar-OS and Mastra documentation; use --queries for your own corpora.

Keyword search only is used unless --semantic is given, so results do not
depend on the vector store. The command fails if any query fails.`,
		Example: `  docsmcp validate
  docsmcp validate --queries my-queries.yaml --limit 3
  docsmcp validate --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.queries, "queries", "", "Path to a queries YAML file (default: built-in set)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", validation.DefaultLimit, "Results inspected per query")
	cmd.Flags().BoolVar(&opts.semantic, "semantic", false, "Include semantic search")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runValidate(cmd *cobra.Command, opts validateOptions) error {
	queries, err := validation.LoadQueries(opts.queries)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, cliLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	v := validation.NewValidator(a.router, opts.limit, !opts.semantic)
	res := v.RunAll(cmd.Context(), queries)

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printValidation(output.New(cmd.OutOrStdout()), res)
	}

	if !res.Passed() {
		return fmt.Errorf("validation failed: %d/%d queries, %d/%d negative",
			res.Pass, res.Total, res.NegPass, res.NegTotal)
	}
	return nil
}

func printValidation(out *output.Writer, res *validation.ValidationResult) {
	out.Heading("Queries")
	for _, tr := range res.Queries {
		printTestResult(out, tr)
	}
	if len(res.Negative) > 0 {
		out.Newline()
		out.Heading("Negative queries")
		for _, tr := range res.Negative {
			printTestResult(out, tr)
		}
	}

	out.Newline()
	out.KeyValue("Queries", fmt.Sprintf("%d/%d passed", res.Pass, res.Total))
	out.KeyValue("Negative", fmt.Sprintf("%d/%d passed", res.NegPass, res.NegTotal))
}

func printTestResult(out *output.Writer, tr validation.TestResult) {
	label := fmt.Sprintf("%s %s [%s]", tr.Spec.ID, tr.Spec.Name, tr.Domain)
	switch {
	case tr.Error != "":
		out.Errorf("%s: %s", label, tr.Error)
	case tr.Passed && tr.MatchedAt >= 0:
		out.Successf("%s (rank %d)", label, tr.MatchedAt+1)
	case tr.Passed:
		out.Success(label)
	default:
		out.Errorf("%s: %q", label, tr.Spec.Query)
		if len(tr.TopResults) > 0 {
			out.Dim("      got: " + strings.Join(tr.TopResults, " | "))
		}
	}
}
