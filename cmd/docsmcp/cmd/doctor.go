package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsmcp/internal/logging"
	"github.com/Aman-CERP/docsmcp/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and diagnose issues",
		Long: `Run diagnostics to ensure docsmcp can serve documentation.

Checks:
  - Configuration loads and validates
  - Each corpus path exists and holds documentation files
  - Log directory is writable
  - File descriptor limits (when watching)
  - Semantic search credentials, and whether the vector store answers

Only configuration problems are critical. Corpus and semantic problems are
warnings: an empty corpus answers "not in docs" and keyword search still
works without the vector store.

Use --offline to skip contacting the vector store.`,
		Example: `  # Run diagnostics
  docsmcp doctor

  # Verbose output with details
  docsmcp doctor --verbose

  # JSON output for scripting
  docsmcp doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, verbose, jsonOutput, offline)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not probe the vector store")

	return cmd
}

func runDoctor(cmd *cobra.Command, verbose, jsonOutput, offline bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []preflight.Option{
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithLogDir(logging.DefaultLogDir()),
	}

	cfg, err := loadConfig()
	if err != nil {
		checker := preflight.New(opts...)
		results := []preflight.CheckResult{{
			Name:     "config",
			Status:   preflight.StatusFail,
			Message:  err.Error(),
			Required: true,
		}}
		if jsonOutput {
			return outputJSON(cmd, checker, results)
		}
		checker.PrintResults(results)
		return &doctorError{message: "system check failed"}
	}

	if !offline && cfg.Semantic.Enabled {
		vs, openErr := newVectorStore(cfg)
		switch {
		case openErr != nil:
			// Reported through the probe so it shows up as the semantic check.
			opts = append(opts, preflight.WithProbe(func(context.Context) error { return openErr }, cfg.SemanticTimeout()))
		case vs != nil:
			defer func() { _ = vs.Close() }()
			productID := cfg.Semantic.ProductID
			opts = append(opts, preflight.WithProbe(func(ctx context.Context) error {
				_, err := vs.ListByProduct(ctx, productID, 1)
				return err
			}, cfg.SemanticTimeout()))
		}
	}

	checker := preflight.New(opts...)
	results := checker.RunAll(ctx, cfg)

	if jsonOutput {
		return outputJSON(cmd, checker, results)
	}

	checker.PrintResults(results)

	if checker.HasCriticalFailures(results) {
		return &doctorError{message: "system check failed"}
	}
	return nil
}

// doctorError is a custom error for doctor command failures.
type doctorError struct {
	message string
}

func (e *doctorError) Error() string {
	return e.message
}

// JSONOutput is the structure for JSON output.
type JSONOutput struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func outputJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	out := JSONOutput{
		Status: checker.SummaryStatus(results),
		Checks: results,
	}
	for _, r := range results {
		if r.IsCritical() {
			out.Errors = append(out.Errors, r.Name+": "+r.Message)
		} else if r.Status != preflight.StatusPass {
			out.Warnings = append(out.Warnings, r.Name+": "+r.Message)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if checker.HasCriticalFailures(results) {
		return &doctorError{message: "system check failed"}
	}
	return nil
}
